package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/mode"
	"github.com/khaledhikmat/fit-coach/pipeline"
	"github.com/khaledhikmat/fit-coach/service/data"
	"github.com/khaledhikmat/fit-coach/service/inference"
	"github.com/khaledhikmat/fit-coach/service/lgr"
	"github.com/khaledhikmat/fit-coach/service/metrics"
	"github.com/khaledhikmat/fit-coach/service/recorder"
	"github.com/khaledhikmat/fit-coach/service/webhook"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second

	poseLogMaxSizeMB  = 50
	poseLogMaxBackups = 5
)

var modeProcessors = map[string]mode.Processor{
	"live":   mode.Live,
	"replay": mode.Replay,
}

// liveCmd coaches from the camera.
var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Coach from a camera or video through the pose model.",
	Long: `Capture frames, estimate the user's pose, calibrate body proportions and
overlay the trainer skeleton scaled to the user.

Examples:
  # Coach from the default camera
  fit-coach live

  # Coach from a recorded video and keep a pose log for later replays
  fit-coach live --camera workout.mp4 --pose-log recordings/poses.jsonl`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stride, _ := cmd.Flags().GetInt("stride")
		return runMode("live", "", stride)
	},
}

// replayCmd coaches a recorded session.
var replayCmd = &cobra.Command{
	Use:   "replay <dataset.json|poses.jsonl>",
	Short: "Coach a recorded pose dataset or pose log without a camera.",
	Long: `Replay recorded poses through the coach as if they came from the pose
model. Useful to tune calibration and fitting settings.

Examples:
  # Replay a dataset exported with the dataset command
  fit-coach replay dataset.json --gate-mode exact

  # Replay a pose log headless and store stats in sqlite
  fit-coach replay recordings/poses.jsonl --display=false --data-backend sqlite`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		return runMode("replay", args[0], 1)
	},
}

// runMode creates the services, starts the mode processor and waits for it
// or for a kill signal.
func runMode(modeType, source string, stride int) error {
	modeProc, ok := modeProcessors[modeType]
	if !ok {
		return xerrors.Errorf("invalid mode %s", modeType)
	}

	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			lgr.Logger.Info(
				"received kill signal",
				slog.Any("signal", sig),
			)
			canxFn()
		case <-canxCtx.Done():
		}
	}()

	svcs, err := newServices(stride)
	if err != nil {
		return err
	}
	defer svcs.DataSvc.Close()
	defer svcs.RecorderSvc.Close()

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, source)
	}()

	var modeErr error

	// Wait for cancellation or mode proc
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"fit-coach context cancelled",
		)

	case modeErr = <-modeProcResult:
		if modeErr != nil {
			lgr.Logger.Error(
				"mode processor exited",
				slog.String("mode", modeType),
				slog.Any("error", lgr.Traced(modeErr)),
			)
		}
		return modeErr
	}

	// Wait in a non-blocking way for `waitOnShutdown` for the mode processor to exit
	// This is needed because the go routines may need to report stats as they are exiting
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"fit-coach shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
	case modeErr = <-modeProcResult:
		if modeErr != nil {
			lgr.Logger.Info(
				"mode processor exited",
				slog.Any("error", lgr.Traced(modeErr)),
			)
		}
	}
	return modeErr
}

// newServices creates the services needed by the mode processors.
func newServices(stride int) (pipeline.ServicesFactory, error) {
	// Data service
	dataSvc, err := data.New(cfgSvc)
	if err != nil {
		return pipeline.ServicesFactory{}, err
	}

	// Pose log
	recorderSvc := recorder.NewDiscard()
	if cfgSvc.GetPoseLogFile() != "" {
		recorderSvc = recorder.NewRotating(cfgSvc.GetPoseLogFile(), poseLogMaxSizeMB, poseLogMaxBackups)
	}

	return pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		InferenceSvc: inference.NewStride(stride),
		WebhookSvc:   webhook.New(cfgSvc),
		RecorderSvc:  recorderSvc,
		Metrics:      metrics.New(),
	}, nil
}
