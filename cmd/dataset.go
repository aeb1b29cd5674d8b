package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/service/reference"
)

// datasetCmd turns a pose log into a dataset.
var datasetCmd = &cobra.Command{
	Use:   "dataset <poses.jsonl>",
	Short: "Build a pose dataset from a pose log.",
	Long: `Convert the pose log written during a session into a dataset keyed
frame_<n>. The dataset can be replayed or used as a trainer reference.

Examples:
  # Record a trainer session, then export it as the reference
  fit-coach dataset recordings/poses.jsonl --session 6f1c... \
    --out reference/arm_curls.json --lengths-out reference/arm_curls_lengths.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		out, _ := cmd.Flags().GetString("out")
		lengthsOut, _ := cmd.Flags().GetString("lengths-out")

		set, skipped, err := reference.FromRecordingFile(args[0], session)
		if err != nil {
			return err
		}
		if len(set) == 0 {
			return xerrors.Errorf("no poses found in %s", args[0])
		}

		if err := reference.SaveFrameSet(out, set); err != nil {
			return err
		}
		cmd.Printf("wrote %d frames to %s (%d lines skipped)\n", len(set), out, skipped)

		if lengthsOut != "" {
			lengths := reference.BuildLengths(set)
			if err := reference.SaveLengths(lengthsOut, lengths); err != nil {
				return err
			}
			cmd.Printf("wrote %d segment lengths to %s\n", len(lengths), lengthsOut)
		}
		return nil
	},
}
