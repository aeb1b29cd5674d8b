package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khaledhikmat/fit-coach/service/data"
)

// sessionsCmd lists the sessions persisted by the data backend.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past coaching sessions and their stats.",
	Long: `Read the configured data backend and print every session with the last
coach stats it reported.

Examples:
  # Sessions stored in sqlite, with the reported errors
  fit-coach sessions --data-backend sqlite --errors`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dataSvc, err := data.New(cfgSvc)
		if err != nil {
			return err
		}
		defer dataSvc.Close()

		if err := data.WriteSessionsTable(os.Stdout, dataSvc, !color.NoColor); err != nil {
			return err
		}

		if showErrors, _ := cmd.Flags().GetBool("errors"); showErrors {
			return data.WriteErrorsTable(os.Stdout, dataSvc)
		}
		return nil
	},
}
