package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khaledhikmat/fit-coach/service/lgr"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(lengthsCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("reference-file", "", "Trainer dataset (frame_<n> -> keypoints)")
	rootCmd.PersistentFlags().String("reference-lengths-file", "", "Trainer segment lengths ([dx, dy, length] per segment)")
	rootCmd.PersistentFlags().String("guide-file", "", "Pose dataset drawn while calibrating")
	rootCmd.PersistentFlags().String("data-backend", "", "Stats and errors backend: files or sqlite")
	rootCmd.PersistentFlags().String("database-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("pose-log", "", "Rotating JSON-lines log of every detected pose")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().String("webhook-url", "", "POST coaching events to this URL")
	rootCmd.PersistentFlags().Bool("display", true, "Show the coaching window")
	rootCmd.PersistentFlags().Int("clip-duration", 0, "Record MP4 clips of this many seconds (0 = off)")
	bindFlags(rootCmd, map[string]string{})

	// Coach flags live under the coach key
	rootCmd.PersistentFlags().String("exercise", "", "Exercise: arm_curls")
	rootCmd.PersistentFlags().String("gate-mode", "", "Calibration gate: exact or at_least")
	rootCmd.PersistentFlags().String("remap-mode", "", "Trainer fitting: scale or translate")
	rootCmd.PersistentFlags().String("scale-source", "", "User lengths used for fitting: rolling or baseline")
	rootCmd.PersistentFlags().Int("calibration-frames", 0, "Frames collected before tracking starts")
	bindFlags(rootCmd, map[string]string{
		"exercise":           "coach.exercise",
		"gate-mode":          "coach.gate-mode",
		"remap-mode":         "coach.remap-mode",
		"scale-source":       "coach.scale-source",
		"calibration-frames": "coach.calibration-frames",
	})

	liveCmd.Flags().String("camera", "", "Camera index, stream URL or video file")
	liveCmd.Flags().String("model-path", "", "Heatmap pose model (ONNX)")
	liveCmd.Flags().Int("stride", 1, "Estimate one frame out of every stride frames")
	for _, name := range []string{"camera", "model-path"} {
		if err := viper.BindPFlag(name, liveCmd.Flags().Lookup(name)); err != nil {
			lgr.Logger.Error("error binding live flags", slog.Any("error", err))
			os.Exit(1)
		}
	}

	datasetCmd.Flags().String("session", "", "Only keep poses of this session")
	datasetCmd.Flags().String("out", "dataset.json", "Dataset output path")
	datasetCmd.Flags().String("lengths-out", "", "Also write the segment lengths of the dataset here")

	lengthsCmd.Flags().String("out", "", "Write the computed lengths to this file")

	sessionsCmd.Flags().Bool("errors", false, "Also list the reported errors")
}

// bindFlags binds the persistent flags of cmd to viper. Flags named in keys
// bind to the mapped key; the others bind to their own name. Flags left at
// their zero default do not override config or env values.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	flags := cmd.PersistentFlags()
	if len(keys) == 0 {
		if err := viper.BindPFlags(flags); err != nil {
			lgr.Logger.Error("error binding root flags", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			lgr.Logger.Error("error binding flag", slog.String("flag", name), slog.Any("error", err))
			os.Exit(1)
		}
	}
}
