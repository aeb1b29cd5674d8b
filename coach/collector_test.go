package coach

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// userFrame returns a full 17-part frame in which the first good parts score
// high and the rest score below every threshold.
func userFrame(good int) model.Frame {
	f := make(model.Frame, 0, len(pose.Parts))
	for i, part := range pose.Parts {
		score := 0.05
		if i < good {
			score = 0.9
		}
		f = append(f, model.Keypoint{
			Part:     part,
			Position: model.Position{X: float64(i) * 10, Y: float64(i) * 5},
			Score:    score,
		})
	}
	return f
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 7; i++ {
		r.Push(model.Frame{{Part: pose.Nose, Position: model.Position{X: float64(i)}}})
	}

	assert.Equal(t, 5, r.Len())
	assert.Equal(t, 5, r.Cap())
	assert.Equal(t, []int{2, 3, 4, 5, 6}, r.sequences())

	frames := r.Frames()
	require.Len(t, frames, 5)
	assert.Equal(t, 2.0, frames[0][0].Position.X)
	assert.Equal(t, 6.0, frames[4][0].Position.X)
}

func TestRingPartiallyFilled(t *testing.T) {
	r := NewRing(0)
	assert.Equal(t, 1, r.Cap())

	r = NewRing(5)
	r.Seed([]model.Frame{{{Part: "a"}}, {{Part: "b"}}, {{Part: "c"}}})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{0, 1, 2}, r.sequences())
	assert.Equal(t, "a", r.Frames()[0][0].Part)
}

func TestQualifyingPartsSkipsFaceAndUnknownParts(t *testing.T) {
	assert.Equal(t, 12, QualifyingParts(userFrame(17), 0.2, pose.FaceParts))
	assert.Equal(t, 0, QualifyingParts(userFrame(5), 0.2, pose.FaceParts))
	assert.Equal(t, 5, QualifyingParts(userFrame(5), 0.2, 0))

	f := model.Frame{{Part: "tail", Score: 1}, {Part: pose.RightKnee, Score: 0.2}}
	assert.Equal(t, 1, QualifyingParts(f, 0.2, pose.FaceParts))
}

func TestCalibrationGate(t *testing.T) {
	tests := []struct {
		name   string
		gate   GateMode
		good   int
		admits bool
	}{
		{"exact below", GateExact, 11, false},
		{"exact on target", GateExact, 12, true},
		{"exact above", GateExact, 13, false},
		{"at least below", GateAtLeast, 11, false},
		{"at least on target", GateAtLeast, 12, true},
		{"at least above", GateAtLeast, 13, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.GateMode = tt.gate
			cfg.CalibrationMinPartIndex = 0
			c := NewCollector(cfg)

			obs := c.Observe(userFrame(tt.good))
			assert.Equal(t, tt.good, obs.Qualifying)
			assert.Equal(t, tt.admits, obs.Admitted)
			assert.Equal(t, !tt.admits, obs.Rejected)
			if tt.admits {
				assert.Equal(t, 1, c.Admitted())
			} else {
				assert.Equal(t, 0, c.Admitted())
				assert.Empty(t, c.CalibrationFrames())
			}
		})
	}
}

func TestCalibrationCompletesAfterExactlyNAdmissions(t *testing.T) {
	cfg := DefaultConfig()
	c := NewCollector(cfg)

	// rejected frames earn no credit
	for i := 0; i < 3; i++ {
		assert.True(t, c.Observe(userFrame(16)).Rejected)
	}

	for i := 0; i < cfg.CalibrationFrames-1; i++ {
		obs := c.Observe(userFrame(17))
		require.True(t, obs.Admitted)
		require.False(t, obs.Completed)
		require.Equal(t, Calibrating, c.Mode())
	}
	assert.Empty(t, c.Baseline())

	obs := c.Observe(userFrame(17))
	assert.True(t, obs.Admitted)
	assert.True(t, obs.Completed)
	assert.Equal(t, Tracking, obs.Mode)
	assert.Equal(t, Tracking, c.Mode())
	assert.Len(t, c.CalibrationFrames(), cfg.CalibrationFrames)
	assert.Contains(t, c.Baseline(), "right_upper_arm")

	for i := 0; i < 10; i++ {
		obs := c.Observe(userFrame(17))
		assert.True(t, obs.Tracked)
		assert.False(t, obs.Admitted)
		assert.False(t, obs.Completed)
	}
	assert.Equal(t, cfg.CalibrationFrames, c.Admitted())
	assert.Len(t, c.CalibrationFrames(), cfg.CalibrationFrames)
	assert.Equal(t, Tracking, c.Mode())
}

func TestTrackingRecomputesFromRollingBuffer(t *testing.T) {
	cfg := DefaultConfig()
	c := NewCollector(cfg)
	for i := 0; i < cfg.CalibrationFrames; i++ {
		c.Observe(userFrame(17))
	}
	require.Equal(t, Tracking, c.Mode())
	assert.Equal(t, cfg.TrackingFrames, c.Ring().Len())

	baseline := c.Baseline()
	assert.Equal(t, baseline, c.Live())

	// stretch the right elbow away from the shoulder
	wide := userFrame(17)
	for i := range wide {
		if wide[i].Part == pose.RightElbow {
			wide[i].Position.X += 100
		}
	}
	c.Observe(wide)

	live := c.Live()
	assert.Greater(t, live["right_upper_arm"].Length, baseline["right_upper_arm"].Length)
	assert.Equal(t, baseline, c.Baseline())
	assert.Equal(t, live, c.ScaleLengths())

	cfg.ScaleSource = ScaleBaseline
	b := NewCollector(cfg)
	for i := 0; i < cfg.CalibrationFrames; i++ {
		b.Observe(userFrame(17))
	}
	b.Observe(wide)
	assert.Equal(t, baseline, b.ScaleLengths())
}

func TestCollectorStoresCopies(t *testing.T) {
	cfg := DefaultConfig()
	c := NewCollector(cfg)

	f := userFrame(17)
	c.Observe(f)
	f[0].Position.X = 999

	stored := c.CalibrationFrames()[model.FrameID(0)]
	assert.Equal(t, 0.0, stored[0].Position.X)
	assert.Equal(t, "tracking", Tracking.String())
	assert.Equal(t, "calibrating", Calibrating.String())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero calibration frames", func(c *Config) { c.CalibrationFrames = 0 }},
		{"negative tracking frames", func(c *Config) { c.TrackingFrames = -1 }},
		{"too many parts", func(c *Config) { c.CalibrationParts = 18 }},
		{"min part index out of range", func(c *Config) { c.CalibrationMinPartIndex = 17 }},
		{"negative prompt", func(c *Config) { c.PromptAfterFrames = -1 }},
		{"threshold above one", func(c *Config) { c.MinPoseConfidence = 1.5 }},
		{"no detections", func(c *Config) { c.Estimate.MaxDetections = 0 }},
		{"negative nms", func(c *Config) { c.Estimate.NMSRadius = -1 }},
		{"nan nms", func(c *Config) { c.Estimate.NMSRadius = math.NaN() }},
		{"infinite nms", func(c *Config) { c.Estimate.NMSRadius = math.Inf(1) }},
		{"nan pose confidence", func(c *Config) { c.MinPoseConfidence = math.NaN() }},
		{"nan part confidence", func(c *Config) { c.MinPartConfidence = math.NaN() }},
		{"nan calibration confidence", func(c *Config) { c.CalibrationPartConfidence = math.NaN() }},
		{"nan score threshold", func(c *Config) { c.Estimate.ScoreThreshold = math.NaN() }},
		{"unknown gate", func(c *Config) { c.GateMode = "most" }},
		{"unknown scale source", func(c *Config) { c.ScaleSource = "median" }},
		{"unknown segment", func(c *Config) { c.ReferenceSegment = "tail" }},
		{"unknown anchor", func(c *Config) { c.AnchorPart = "tail" }},
		{"unknown remap mode", func(c *Config) { c.RemapMode = "stretch" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWithExercise(t *testing.T) {
	cfg, err := DefaultConfig().WithExercise("arm_curls")
	require.NoError(t, err)
	assert.Equal(t, "right_upper_arm", cfg.ReferenceSegment)
	assert.Equal(t, pose.RightShoulder, cfg.AnchorPart)

	_, err = DefaultConfig().WithExercise("burpees")
	assert.Error(t, err)
}
