// Package cmd wires the station's commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "unit-batch-station",
	Short: "Scan, validate and submit batches of blood products",
	Long: `unit-batch-station drives the irradiation and shipment verification workflows
of a blood bank scanning station. Run it as an HTTP API for scanner clients
or as a terminal station.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&envFile, "env", config.DefaultEnvFile, "env file with station settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
}

// initConfig loads the env file into the process so LOG_LEVEL is set before logging starts.
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", envFile, err)
	}
}
