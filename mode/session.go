package mode

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pipeline"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// runSession starts the session agent and persists everything it reports
// until the agent ends or the context is cancelled.
func runSession(canxCtx context.Context, svcs pipeline.ServicesFactory, session model.Session, estimator coach.Estimator[gocv.Mat]) error {
	// Create an error stream
	errorStream := make(chan interface{})

	// Create stats stream
	statsStream := make(chan interface{})

	// Create a child context for the agent so it can be stopped without
	// cancelling the main context
	agentCanxCtx, agentCanxFn := context.WithCancel(canxCtx)
	defer agentCanxFn()

	agentResult := make(chan error, 1)
	go func() {
		agentResult <- pipeline.Agent(agentCanxCtx, svcs, errorStream, statsStream, session, estimator)
	}()

	if svcs.Metrics != nil && svcs.CfgSvc.GetMetricsAddr() != "" {
		go func() {
			if err := svcs.Metrics.Serve(agentCanxCtx, svcs.CfgSvc.GetMetricsAddr()); err != nil {
				select {
				case errorStream <- model.GenError("metrics", err, nil, "error serving metrics on %s", svcs.CfgSvc.GetMetricsAddr()):
				case <-agentCanxCtx.Done():
				}
			}
		}()
	}

	var agentErr error
	var agentDone bool
	heartbeat := time.Duration(svcs.CfgSvc.GetStatsPeriodicTimeout()) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	// Wait for cancellation, agent exit, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"session context cancelled",
			)
			goto resume

		case agentErr = <-agentResult:
			agentDone = true
			goto resume

		case <-time.After(heartbeat):
			logHeartbeat(svcs)

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for all the go routines to exit
	// This is needed because the go routines may need to report stats as they are exiting
resume:
	agentCanxFn()

	lgr.Logger.Info(
		"session is waiting for all go routines to exit",
	)

	// The only way to exit is to wait for the shutdown duration
	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"session shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)
			logHeartbeat(svcs)
			return agentErr

		case err := <-agentResult:
			if !agentDone {
				agentErr = err
				agentDone = true
			}

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

func logHeartbeat(svcs pipeline.ServicesFactory) {
	if svcs.Metrics == nil {
		return
	}
	lgr.Logger.Info(
		"coach heartbeat",
		slog.Uint64("cycles", svcs.Metrics.Cycles.Load()),
		slog.Uint64("framesCaptured", svcs.Metrics.FramesCaptured.Load()),
		slog.Uint64("framesDropped", svcs.Metrics.FramesDropped.Load()),
		slog.Uint64("calibrationAdmitted", svcs.Metrics.CalibrationAdmitted.Load()),
		slog.Uint64("remaps", svcs.Metrics.Remaps.Load()),
		slog.Bool("calibrated", svcs.Metrics.Calibrated.Load() == 1),
	)
}
