package cmd

import (
	"fmt"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/tui"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var stationWorkflow string

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Run a terminal scanning station",
	Long: `Run one workflow in the terminal. Scanner input goes to the focused field;
the station talks to the backend directly and logs to the log file only.`,
	RunE: runStation,
}

func init() {
	stationCmd.Flags().StringVarP(&stationWorkflow, "workflow", "w", config.WorkflowStartIrradiation,
		"workflow to run: start-irradiation, close-irradiation or shipment-verification")
	rootCmd.AddCommand(stationCmd)
}

func runStation(cmd *cobra.Command, _ []string) error {
	kind, err := service.ParseKind(stationWorkflow)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.close()

	deps := a.deps
	deps.SessionID = uuid.NewString()
	deps.Rules = a.rules(string(kind))
	w, err := service.New(kind, deps)
	if err != nil {
		return err
	}
	utils.Logger.Info("Terminal station started",
		zap.String(utils.FieldWorkflow, string(kind)),
		zap.String(utils.FieldSessionID, deps.SessionID))

	p := tea.NewProgram(tui.New(cmd.Context(), w), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run station: %w", err)
	}
	return nil
}
