package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khaledhikmat/fit-coach/service/reference"
)

// lengthsCmd prints the segment lengths of a dataset or lengths file.
var lengthsCmd = &cobra.Command{
	Use:   "lengths [dataset.json|lengths.json]",
	Short: "Show the segment lengths of a pose dataset.",
	Long: `Measure every segment of a pose dataset, or read a precomputed lengths
file, and print dx, dy, length and direction per segment. Without an
argument the configured trainer dataset is measured.

Examples:
  # Measure the trainer and write the lengths file the coach loads
  fit-coach lengths reference/arm_curls.json --out reference/arm_curls_lengths.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgSvc.GetReferenceFile()
		if len(args) == 1 {
			path = args[0]
		}

		lengths, err := reference.LengthsOf(path)
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := reference.SaveLengths(out, lengths); err != nil {
				return err
			}
			cmd.Printf("wrote %d segment lengths to %s\n", len(lengths), out)
		}

		return reference.WriteLengthsTable(os.Stdout, lengths, !color.NoColor)
	},
}
