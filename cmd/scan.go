package cmd

import (
	"fmt"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/spf13/cobra"
)

var (
	scanCheckDigit string
	scanProduct    bool
	scanWorkflow   string
	scanProfiles   string
)

var scanCmd = &cobra.Command{
	Use:   "scan <raw>",
	Short: "Normalize a raw scan or typed value offline",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanCheckDigit, "check-digit", "", "check digit typed with a manual unit number")
	scanCmd.Flags().BoolVar(&scanProduct, "product", false, "treat the value as a product code")
	scanCmd.Flags().StringVarP(&scanWorkflow, "workflow", "w", config.WorkflowStartIrradiation, "workflow whose scan profile applies")
	scanCmd.Flags().StringVar(&scanProfiles, "profiles", config.DefaultProfilesFile, "scan profiles file")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	profiles, err := config.LoadProfiles(scanProfiles)
	if err != nil {
		return err
	}
	normalizer, err := scan.NewNormalizer(profiles.Rules(scanWorkflow))
	if err != nil {
		return err
	}

	var event scan.Event
	if scanProduct {
		event, err = normalizer.ProductCode(args[0])
	} else {
		event, err = normalizer.UnitNumber(args[0], scanCheckDigit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if event.UnitNumber != "" {
		fmt.Fprintf(out, "unitNumber:  %s\n", event.UnitNumber)
	}
	if event.CheckDigit != "" {
		fmt.Fprintf(out, "checkDigit:  %s\n", event.CheckDigit)
	}
	if event.ProductCode != "" {
		fmt.Fprintf(out, "productCode: %s\n", event.ProductCode)
	}
	fmt.Fprintf(out, "scanner:     %t\n", event.Scanner)
	return nil
}
