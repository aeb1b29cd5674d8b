package coach

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

type fakeSource struct {
	frames int
	next   int
}

func (s *fakeSource) Next(_ context.Context) (int, error) {
	if s.next >= s.frames {
		return 0, io.EOF
	}
	s.next++
	return s.next - 1, nil
}

// fakeEstimator returns script[frame] and records the call order in calls.
type fakeEstimator struct {
	script   map[int][]model.Pose
	fallback []model.Pose
	fail     map[int]bool
	calls    *[]string
	inFlight int
	maxIn    int
}

func (e *fakeEstimator) Estimate(_ context.Context, frame int, _ model.EstimateOptions) ([]model.Pose, error) {
	e.inFlight++
	defer func() { e.inFlight-- }()
	if e.inFlight > e.maxIn {
		e.maxIn = e.inFlight
	}
	*e.calls = append(*e.calls, "estimate")
	if e.fail[frame] {
		return nil, errors.New("inference backend unavailable")
	}
	if p, ok := e.script[frame]; ok {
		return p, nil
	}
	return e.fallback, nil
}

type fakeCanvas struct {
	calls      *[]string
	videos     []int
	keypoints  int
	skeletons  int
	references []model.Frame
	presentErr error
}

func (c *fakeCanvas) DrawVideo(frame int) {
	*c.calls = append(*c.calls, "video")
	c.videos = append(c.videos, frame)
}

func (c *fakeCanvas) DrawKeypoints(_ model.Frame, _ float64) { c.keypoints++ }

func (c *fakeCanvas) DrawSkeleton(_ model.Frame, _ float64) { c.skeletons++ }

func (c *fakeCanvas) DrawReferenceSkeleton(frame model.Frame, _ float64) {
	c.references = append(c.references, frame)
}

func (c *fakeCanvas) Present() error {
	*c.calls = append(*c.calls, "present")
	return c.presentErr
}

type fakeRecorder struct {
	records []model.PoseRecord
}

func (r *fakeRecorder) Record(rec model.PoseRecord) error {
	r.records = append(r.records, rec)
	return nil
}

// trainer returns reference frames whose wrist offset from the shoulder
// encodes the frame index.
func trainer(n int) Reference {
	frames := make([]model.Frame, n)
	for k := range frames {
		frames[k] = model.Frame{
			{Part: pose.RightShoulder, Position: model.Position{X: 60, Y: 30}, Score: 1},
			{Part: pose.RightElbow, Position: model.Position{X: 80, Y: 40}, Score: 1},
			{Part: pose.RightWrist, Position: model.Position{X: 60 + 10*float64(k), Y: 30}, Score: 1},
		}
	}
	return Reference{
		Frames:  frames,
		Lengths: model.Lengths{"right_upper_arm": {DX: 20, DY: 10, Length: math.Sqrt(500)}},
		Guide:   model.Frame{{Part: pose.Nose, Position: model.Position{X: 1, Y: 1}, Score: 1}},
	}
}

type harness struct {
	loop   *Loop[int]
	est    *fakeEstimator
	canvas *fakeCanvas
	calls  *[]string
}

func newHarness(t *testing.T, cfg Config, ref Reference, frames int, est *fakeEstimator) harness {
	t.Helper()
	calls := &[]string{}
	est.calls = calls
	canvas := &fakeCanvas{calls: calls}
	l, err := NewLoop[int](cfg, ref, &fakeSource{frames: frames}, est, canvas)
	require.NoError(t, err)
	l.SessionID = "test-session"
	return harness{loop: l, est: est, canvas: canvas, calls: calls}
}

func posesOf(f model.Frame) []model.Pose {
	return []model.Pose{{Score: 0.9, Keypoints: f}}
}

func TestNewLoopValidation(t *testing.T) {
	calls := &[]string{}
	src := &fakeSource{}
	est := &fakeEstimator{calls: calls}
	canvas := &fakeCanvas{calls: calls}

	_, err := NewLoop[int](DefaultConfig(), Reference{}, src, est, canvas)
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.CalibrationFrames = 0
	_, err = NewLoop[int](bad, trainer(1), src, est, canvas)
	assert.Error(t, err)

	_, err = NewLoop[int](DefaultConfig(), trainer(1), src, nil, canvas)
	assert.Error(t, err)
}

func TestLoopCalibratesThenOverlaysTrainer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PromptAfterFrames = 2

	// two rejected frames, then five good ones complete calibration on frame 6
	est := &fakeEstimator{
		script: map[int][]model.Pose{
			0: posesOf(userFrame(16)),
			1: posesOf(userFrame(16)),
		},
		fallback: posesOf(userFrame(17)),
	}
	h := newHarness(t, cfg, trainer(3), 10, est)
	h.loop.Events = make(chan Event, 10)
	h.loop.StatsStream = make(chan interface{}, 1)
	rec := &fakeRecorder{}
	h.loop.Recorder = rec

	require.NoError(t, h.loop.Run(context.Background()))

	stats := (<-h.loop.StatsStream).(model.CoachStats)
	assert.Equal(t, "test-session", stats.Session)
	assert.Equal(t, 10, stats.Cycles)
	assert.Equal(t, 10, stats.Poses)
	assert.Equal(t, 2, stats.RejectedFrames)
	assert.Equal(t, 5, stats.CalibrationFrames)
	assert.Equal(t, 3, stats.TrackedFrames)
	assert.Equal(t, 4, stats.Remaps)
	assert.True(t, stats.Calibrated)
	assert.Len(t, rec.records, 10)
	assert.Equal(t, "calibrating", rec.records[0].Mode)
	assert.Equal(t, "tracking", rec.records[9].Mode)

	// guide on frames 0..5, fitted trainer on frames 6..9
	require.Len(t, h.canvas.references, 10)
	for i := 0; i < 6; i++ {
		assert.Equal(t, pose.Nose, h.canvas.references[i][0].Part)
	}
	for i := 6; i < 10; i++ {
		wrist, ok := h.canvas.references[i].Find(pose.RightWrist)
		require.True(t, ok)
		assert.InDelta(t, 60+10*float64(i%3), wrist.Position.X, 1e-9, "frame %d", i)

		shoulder, ok := h.canvas.references[i].Find(pose.RightShoulder)
		require.True(t, ok)
		assert.InDelta(t, 60, shoulder.Position.X, 1e-9)
		assert.InDelta(t, 30, shoulder.Position.Y, 1e-9)
	}
	assert.Equal(t, 10%3, h.loop.Cycle())

	close(h.loop.Events)
	var types []EventType
	for ev := range h.loop.Events {
		types = append(types, ev.Type)
		if ev.Type == EventCalibrationComplete {
			assert.Contains(t, ev.Baseline, "right_upper_arm")
			assert.Equal(t, "Calibration complete. Let's start the exercise!", ev.Message)
		}
	}
	assert.Equal(t, []EventType{EventCalibrationStarted, EventCalibrationPrompt, EventCalibrationComplete}, types)
}

func TestLoopNeverOverlapsEstimates(t *testing.T) {
	est := &fakeEstimator{fallback: posesOf(userFrame(17))}
	h := newHarness(t, DefaultConfig(), trainer(2), 6, est)

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, 1, est.maxIn)
	// every estimate is followed by its present before the next estimate
	var pending bool
	for _, c := range *h.calls {
		switch c {
		case "estimate":
			assert.False(t, pending, "estimate issued before the previous cycle was presented")
			pending = true
		case "present":
			pending = false
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, h.canvas.videos)
}

func TestLoopSkipsOverlayWithoutAnchor(t *testing.T) {
	cfg := DefaultConfig()
	noAnchor := model.Frame{}
	for _, kp := range userFrame(17) {
		if kp.Part != pose.RightShoulder {
			noAnchor = append(noAnchor, kp)
		}
	}
	est := &fakeEstimator{
		script: map[int][]model.Pose{
			5: posesOf(noAnchor),
			6: {{Score: 0.01, Keypoints: userFrame(17)}},
		},
		fallback: posesOf(userFrame(17)),
	}
	h := newHarness(t, cfg, trainer(4), 8, est)

	require.NoError(t, h.loop.Run(context.Background()))

	stats := h.loop.Stats()
	// frame 4 completes calibration and draws, 5 lacks the anchor, 6 has no
	// confident pose, 7 draws
	assert.Equal(t, 2, stats.Remaps)
	assert.Equal(t, 2, stats.SkippedRemaps)
	assert.Equal(t, 7, stats.Poses)
	assert.Len(t, h.canvas.references, 4+2)
}

func TestLoopSkipsOverlayOnZeroReferenceLength(t *testing.T) {
	ref := trainer(2)
	ref.Lengths = model.Lengths{"right_upper_arm": {}}
	est := &fakeEstimator{fallback: posesOf(userFrame(17))}
	h := newHarness(t, DefaultConfig(), ref, 7, est)

	require.NoError(t, h.loop.Run(context.Background()))

	stats := h.loop.Stats()
	assert.Equal(t, 0, stats.Remaps)
	assert.Equal(t, 3, stats.SkippedRemaps)
	assert.Equal(t, 2, stats.TrackedFrames)
}

func TestLoopReportsEstimateErrorsAndContinues(t *testing.T) {
	est := &fakeEstimator{
		fail:     map[int]bool{1: true},
		fallback: posesOf(userFrame(17)),
	}
	h := newHarness(t, DefaultConfig(), trainer(3), 3, est)
	h.loop.ErrorStream = make(chan interface{}, 1)

	require.NoError(t, h.loop.Run(context.Background()))

	genErr := (<-h.loop.ErrorStream).(model.CustomError)
	assert.Equal(t, "coach", genErr.Processor)
	assert.Equal(t, 1, genErr.Misc["cycle"])
	assert.Equal(t, 1, h.loop.Stats().Errors)
	assert.Equal(t, 3, h.loop.Stats().Cycles)
	assert.Equal(t, []int{0, 2}, h.canvas.videos)
}

func TestLoopEventsNeverBlock(t *testing.T) {
	est := &fakeEstimator{fallback: posesOf(userFrame(17))}
	h := newHarness(t, DefaultConfig(), trainer(1), 8, est)
	h.loop.Events = make(chan Event)

	done := make(chan error, 1)
	go func() { done <- h.loop.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop blocked on an unread event channel")
	}
}

func TestLoopStopsOnPresentError(t *testing.T) {
	est := &fakeEstimator{fallback: posesOf(userFrame(17))}
	h := newHarness(t, DefaultConfig(), trainer(1), 8, est)
	h.canvas.presentErr = ErrStopped

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 1, h.loop.Stats().Cycles)

	h = newHarness(t, DefaultConfig(), trainer(1), 8, &fakeEstimator{fallback: posesOf(userFrame(17))})
	h.canvas.presentErr = errors.New("display lost")
	assert.Error(t, h.loop.Run(context.Background()))
}

func TestLoopStopsOnCancel(t *testing.T) {
	est := &fakeEstimator{fallback: posesOf(userFrame(17))}
	h := newHarness(t, DefaultConfig(), trainer(1), 100, est)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.loop.Run(ctx))
	assert.Equal(t, 0, h.loop.Stats().Cycles)
}

func TestEventPayload(t *testing.T) {
	ev := Event{
		Type:      EventCalibrationComplete,
		Session:   "s1",
		Exercise:  "arm_curls",
		Message:   Message(EventCalibrationComplete),
		Cycle:     4,
		Baseline:  model.Lengths{"right_upper_arm": {DX: 0, DY: 5, Length: 5}},
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	payload := ev.Payload()
	assert.Equal(t, "calibration_complete", payload["type"])
	assert.Equal(t, "Calibration complete. Let's start the exercise!", payload["message"])
	assert.Equal(t, "2024-01-02T03:04:05Z", payload["timestamp"])
	assert.Equal(t, 4, payload["cycle"])
	assert.Contains(t, payload, "baseline")

	ev.Baseline = nil
	assert.NotContains(t, ev.Payload(), "baseline")
}

func TestLoopRecordsJointAngles(t *testing.T) {
	arm := model.Frame{
		{Part: pose.RightShoulder, Position: model.Position{X: 0, Y: 0}, Score: 0.9},
		{Part: pose.RightElbow, Position: model.Position{X: 10, Y: 0}, Score: 0.9},
		{Part: pose.RightWrist, Position: model.Position{X: 10, Y: 10}, Score: 0.9},
	}
	est := &fakeEstimator{fallback: posesOf(arm)}
	h := newHarness(t, DefaultConfig(), trainer(3), 2, est)
	rec := &fakeRecorder{}
	h.loop.Recorder = rec

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, rec.records, 2)
	for _, r := range rec.records {
		assert.InDelta(t, 90.0, r.Angles["right_elbow"], 1e-9)
		assert.NotContains(t, r.Angles, "left_elbow")
	}
}
