package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/lgr"
	"github.com/khaledhikmat/fit-coach/service/reference"
)

const windowTitle = "fit-coach"

// Agent runs one coaching session from capture to display until the
// context is cancelled, the source ends or the user closes the window.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	errorStream chan interface{},
	statsStream chan interface{},
	session model.Session,
	estimator coach.Estimator[gocv.Mat]) error {
	session.ID = uuid.NewString()
	session.StartupTime = time.Now().Unix()

	// Correlate every log line of the session
	ctx := trace.ContextWithSpanContext(canxCtx, sessionSpan(session.ID))

	lgr.Logger.InfoContext(ctx,
		"agent starting....",
		slog.String("session", session.ID),
		slog.String("source", session.Source),
		slog.String("framerType", session.FramerType),
		slog.String("exercise", session.Exercise),
	)

	if err := svcs.DataSvc.NewSession(session); err != nil {
		return xerrors.Errorf("error storing session: %w", err)
	}

	ref, err := reference.Load(svcs.CfgSvc)
	if err != nil {
		return xerrors.Errorf("error loading reference: %w", err)
	}

	framer, err := StartFramer(ctx, svcs, session, errorStream, statsStream)
	if err != nil {
		return err
	}
	defer framer.Close()

	// Setup the sink channels
	sinks := []chan FrameData{}
	if svcs.CfgSvc.GetRecorderClipDuration() > 0 {
		sinks = append(sinks, MP4Recorder(ctx, svcs, session, errorStream, statsStream))
	}

	var window *Window
	if svcs.CfgSvc.GetDisplayEnabled() {
		window = NewWindow(windowTitle)
		defer window.Close()
	}

	canvas := NewMatCanvas(ctx, session, window, sinks)
	defer canvas.Close()

	loop, err := coach.NewLoop[gocv.Mat](svcs.CfgSvc.GetCoachConfig(), ref, framer, estimator, canvas)
	if err != nil {
		return err
	}
	loop.SessionID = session.ID
	loop.Events = Notifier(ctx, svcs, session, errorStream, statsStream)
	loop.ErrorStream = errorStream
	loop.StatsStream = statsStream
	if svcs.Metrics != nil {
		loop.Metrics = svcs.Metrics
	}
	if svcs.RecorderSvc != nil {
		loop.Recorder = svcs.RecorderSvc
	}

	err = loop.Run(ctx)

	lgr.Logger.InfoContext(ctx,
		"agent finished",
		slog.String("session", session.ID),
		slog.Any("stats", loop.Stats()),
	)
	return err
}

// sessionSpan derives a span context from the session id so log lines of
// one session share a trace id.
func sessionSpan(sessionID string) trace.SpanContext {
	var traceID trace.TraceID
	var spanID trace.SpanID
	if id, err := uuid.Parse(sessionID); err == nil {
		copy(traceID[:], id[:])
		copy(spanID[:], id[8:])
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}
