package coach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// ErrStopped is returned by a frame source or canvas to end the session
// cleanly, e.g. when the display window is closed.
var ErrStopped = xerrors.New("session stopped")

// FrameSource yields video frames. Next returns io.EOF when exhausted.
type FrameSource[F any] interface {
	Next(ctx context.Context) (F, error)
}

// Estimator is the pose source.
type Estimator[F any] interface {
	Estimate(ctx context.Context, frame F, opts model.EstimateOptions) ([]model.Pose, error)
}

// Canvas receives the draw calls of one cycle. Present flushes them.
type Canvas[F any] interface {
	DrawVideo(frame F)
	DrawKeypoints(frame model.Frame, minScore float64)
	DrawSkeleton(frame model.Frame, minScore float64)
	DrawReferenceSkeleton(frame model.Frame, minScore float64)
	Present() error
}

type Metrics interface {
	ObserveCycle(mode Mode, elapsed time.Duration)
	ObserveCalibration(obs Observation)
	ObserveRemap(err error)
	ObserveError(stage string)
}

type PoseRecorder interface {
	Record(rec model.PoseRecord) error
}

// Reference is the read-only trainer data loaded at startup.
type Reference struct {
	Frames  []model.Frame
	Lengths model.Lengths
	// Guide is drawn as the overlay while calibrating. Optional.
	Guide model.Frame
}

// Loop drives the per-frame cycle. It owns every piece of session state and
// must be run from a single goroutine.
type Loop[F any] struct {
	SessionID string
	Source    FrameSource[F]
	Estimator Estimator[F]
	Canvas    Canvas[F]

	Events      chan Event
	ErrorStream chan interface{}
	StatsStream chan interface{}
	Metrics     Metrics
	Recorder    PoseRecorder

	cfg       Config
	ref       Reference
	remapper  *pose.Remapper
	collector *Collector

	cycle             int
	calibratingCycles int
	started           bool
	prompted          bool

	stats     model.CoachStats
	startTime time.Time
	procTime  time.Duration
}

func NewLoop[F any](cfg Config, ref Reference, src FrameSource[F], est Estimator[F], canvas Canvas[F]) (*Loop[F], error) {
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid coach config: %w", err)
	}
	if len(ref.Frames) == 0 {
		return nil, xerrors.New("reference has no frames")
	}
	if src == nil || est == nil || canvas == nil {
		return nil, xerrors.New("frame source, estimator and canvas are required")
	}
	remapper, err := pose.NewRemapper(cfg.ReferenceSegment, cfg.AnchorPart, cfg.RemapMode)
	if err != nil {
		return nil, err
	}
	return &Loop[F]{
		Source:    src,
		Estimator: est,
		Canvas:    canvas,
		cfg:       cfg,
		ref:       ref,
		remapper:  remapper,
		collector: NewCollector(cfg),
		stats:     model.CoachStats{Name: "coach"},
		startTime: time.Now(),
	}, nil
}

// Collector exposes the calibration state.
func (l *Loop[F]) Collector() *Collector {
	return l.collector
}

// Cycle is the index of the reference frame used by the next tick.
func (l *Loop[F]) Cycle() int {
	return l.cycle
}

// Run ticks until the context is cancelled, the source is exhausted or a
// component returns ErrStopped. Stats are published on exit.
func (l *Loop[F]) Run(ctx context.Context) error {
	lgr.Logger.Info(
		"coach loop starting....",
		slog.String("session", l.SessionID),
		slog.String("exercise", l.cfg.Exercise),
		slog.Int("referenceFrames", len(l.ref.Frames)),
	)
	defer l.publishStats()

	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("coach loop context cancelled", slog.String("session", l.SessionID))
			return nil
		default:
		}

		err := l.Tick(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, ErrStopped) || ctx.Err() != nil {
			lgr.Logger.Info("coach loop ended", slog.String("session", l.SessionID), slog.Any("reason", err))
			return nil
		}
		return err
	}
}

// Tick runs one cycle. The estimator call blocks the cycle, so there is
// never more than one estimation in flight.
func (l *Loop[F]) Tick(ctx context.Context) error {
	frame, err := l.Source.Next(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	mode := l.collector.Mode()

	if !l.started {
		l.started = true
		l.emit(EventCalibrationStarted)
	}

	poses, err := l.Estimator.Estimate(ctx, frame, l.cfg.Estimate)
	if err != nil {
		l.stats.Errors++
		l.observeError("estimate")
		l.reportError(ctx, err, "pose estimation failed at cycle %d", l.cycle)
		l.advance(mode, start)
		return nil
	}

	l.Canvas.DrawVideo(frame)

	var anchor model.Position
	var anchorFound bool
	for _, p := range poses {
		if p.Score < l.cfg.MinPoseConfidence {
			continue
		}
		l.stats.Poses++
		l.record(p)

		obs := l.collector.Observe(p.Keypoints)
		l.observe(obs)

		l.Canvas.DrawKeypoints(p.Keypoints, l.cfg.MinPartConfidence)
		l.Canvas.DrawSkeleton(p.Keypoints, l.cfg.MinPartConfidence)

		if kp, ok := p.Keypoints.Find(l.cfg.AnchorPart); ok {
			anchor, anchorFound = kp.Position, true
		}
	}

	if l.collector.Mode() == Calibrating {
		l.calibratingCycles++
		if !l.prompted && l.cfg.PromptAfterFrames > 0 && l.calibratingCycles >= l.cfg.PromptAfterFrames {
			l.prompted = true
			l.emit(EventCalibrationPrompt)
		}
		if len(l.ref.Guide) > 0 {
			l.Canvas.DrawReferenceSkeleton(l.ref.Guide, l.cfg.MinPartConfidence)
		}
	} else {
		l.drawReference(anchor, anchorFound)
	}

	err = l.Canvas.Present()
	l.advance(mode, start)
	return err
}

func (l *Loop[F]) drawReference(anchor model.Position, found bool) {
	var err error
	defer func() {
		if l.Metrics != nil {
			l.Metrics.ObserveRemap(err)
		}
	}()

	if !found {
		err = pose.ErrUserAnchorMissing
		l.skipRemap(err)
		return
	}
	var fitted model.Frame
	fitted, err = l.remapper.Remap(l.ref.Frames[l.cycle], l.collector.ScaleLengths(), l.ref.Lengths, anchor)
	if err != nil {
		l.skipRemap(err)
		return
	}
	l.stats.Remaps++
	l.Canvas.DrawReferenceSkeleton(fitted, l.cfg.MinPartConfidence)
}

func (l *Loop[F]) skipRemap(err error) {
	l.stats.SkippedRemaps++
	lgr.Logger.Debug(
		"reference overlay skipped",
		slog.String("session", l.SessionID),
		slog.Int("cycle", l.cycle),
		slog.String("reason", err.Error()),
	)
}

func (l *Loop[F]) observe(obs Observation) {
	switch {
	case obs.Tracked:
		l.stats.TrackedFrames++
	case obs.Admitted:
		l.stats.CalibrationFrames++
	case obs.Rejected:
		l.stats.RejectedFrames++
	}
	if l.Metrics != nil {
		l.Metrics.ObserveCalibration(obs)
	}
	if obs.Completed {
		l.stats.Calibrated = true
		lgr.Logger.Info(
			"calibration complete",
			slog.String("session", l.SessionID),
			slog.Int("cycle", l.cycle),
			slog.Any("baseline", l.collector.Baseline()),
		)
		l.emit(EventCalibrationComplete)
	}
}

func (l *Loop[F]) advance(mode Mode, start time.Time) {
	elapsed := time.Since(start)
	l.procTime += elapsed
	l.stats.Cycles++
	l.cycle = (l.cycle + 1) % len(l.ref.Frames)
	if l.Metrics != nil {
		l.Metrics.ObserveCycle(mode, elapsed)
	}
}

func (l *Loop[F]) record(p model.Pose) {
	if l.Recorder == nil {
		return
	}
	err := l.Recorder.Record(model.PoseRecord{
		Session:   l.SessionID,
		Cycle:     l.cycle,
		Mode:      l.collector.Mode().String(),
		Score:     p.Score,
		Keypoints: p.Keypoints,
		Angles:    pose.JointAngles(p.Keypoints, l.cfg.MinPartConfidence),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		lgr.Logger.Warn("pose record failed", slog.String("session", l.SessionID), slog.Any("error", err))
	}
}

// emit never blocks: an event is dropped when the consumer lags.
func (l *Loop[F]) emit(t EventType) {
	if l.Events == nil {
		return
	}
	ev := Event{
		Type:      t,
		Session:   l.SessionID,
		Exercise:  l.cfg.Exercise,
		Message:   Message(t),
		Cycle:     l.cycle,
		Timestamp: time.Now(),
	}
	if t == EventCalibrationComplete {
		ev.Baseline = l.collector.Baseline()
	}
	select {
	case l.Events <- ev:
	default:
		lgr.Logger.Warn("coach event dropped", slog.String("type", string(t)), slog.String("session", l.SessionID))
	}
}

func (l *Loop[F]) observeError(stage string) {
	if l.Metrics != nil {
		l.Metrics.ObserveError(stage)
	}
}

func (l *Loop[F]) reportError(ctx context.Context, err error, format string, args ...interface{}) {
	lgr.Logger.Warn(fmt.Sprintf(format, args...), slog.String("session", l.SessionID), slog.Any("error", err))
	if l.ErrorStream == nil {
		return
	}
	select {
	case l.ErrorStream <- model.GenError("coach", err, map[string]interface{}{"session": l.SessionID, "cycle": l.cycle}, format, args...):
	case <-ctx.Done():
	}
}

// Stats returns a snapshot of the loop counters.
func (l *Loop[F]) Stats() model.CoachStats {
	s := l.stats
	s.Session = l.SessionID
	s.Uptime = int64(time.Since(l.startTime).Seconds())
	if s.Cycles > 0 {
		s.AvgProcTime = float64(l.procTime.Milliseconds()) / float64(s.Cycles)
	}
	s.Timestamp = time.Now().Unix()
	return s
}

func (l *Loop[F]) publishStats() {
	if l.StatsStream == nil {
		return
	}
	select {
	case l.StatsStream <- l.Stats():
	case <-time.After(time.Second):
		lgr.Logger.Warn("coach stats not consumed", slog.String("session", l.SessionID))
	}
}
