package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fit-coach.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("fit-coach\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
		cmd.Printf("  OpenCV:  %s\n", gocv.OpenCVVersion())
	},
}
