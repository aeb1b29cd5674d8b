package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/pose"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	return v
}

func TestViperDefaultsMatchHardcoded(t *testing.T) {
	svc, err := NewViper(newTestViper())
	require.NoError(t, err)

	hc := NewHardCoded()
	assert.Equal(t, hc.GetCoachConfig(), svc.GetCoachConfig())
	assert.Equal(t, hc.GetModeMaxShutdownTime(), svc.GetModeMaxShutdownTime())
	assert.Equal(t, hc.GetReferenceFile(), svc.GetReferenceFile())
	assert.Equal(t, hc.GetFramerFPS(), svc.GetFramerFPS())
	assert.Equal(t, hc.GetModelLogits(), svc.GetModelLogits())
	assert.Equal(t, FilesBackend, svc.GetDataBackend())
	assert.Equal(t, filepath.Join("./recordings", "poses.jsonl"), svc.GetPoseLogFile())
	assert.Equal(t, filepath.Join("./settings", "fitcoach.db"), svc.GetDatabasePath())
}

func TestViperReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".fitcoach.yaml")
	yaml := `
fps: 15
data-backend: sqlite
coach:
  gate-mode: exact
  calibration-frames: 8
  remap-mode: translate
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))
	t.Setenv("FITCOACH_COACH_TRACKING_FRAMES", "9")
	t.Setenv("FITCOACH_WEBHOOK_URL", "http://localhost:9000/events")
	t.Setenv("FITCOACH_MODEL_LOGITS", "false")

	v := newTestViper()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	svc, err := NewViper(v)
	require.NoError(t, err)

	assert.Equal(t, 15, svc.GetFramerFPS())
	assert.Equal(t, SQLiteBackend, svc.GetDataBackend())
	assert.Equal(t, "http://localhost:9000/events", svc.GetWebhookURL())
	assert.False(t, svc.GetModelLogits())

	cfg := svc.GetCoachConfig()
	assert.Equal(t, coach.GateExact, cfg.GateMode)
	assert.Equal(t, 8, cfg.CalibrationFrames)
	assert.Equal(t, 9, cfg.TrackingFrames)
	assert.Equal(t, pose.RemapTranslate, cfg.RemapMode)
	assert.Equal(t, "right_upper_arm", cfg.ReferenceSegment)
}

func TestViperOverridesSegmentAndAnchor(t *testing.T) {
	v := newTestViper()
	v.Set("coach.reference-segment", "left_forearm")
	v.Set("coach.anchor-part", pose.LeftElbow)

	svc, err := NewViper(v)
	require.NoError(t, err)
	assert.Equal(t, "left_forearm", svc.GetCoachConfig().ReferenceSegment)
	assert.Equal(t, pose.LeftElbow, svc.GetCoachConfig().AnchorPart)
}

func TestViperRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{"fps", 0},
		{"data-backend", "mongo"},
		{"clip-duration", -1},
		{"reference-file", ""},
		{"coach.exercise", "burpees"},
		{"coach.remap-mode", "stretch"},
		{"coach.gate-mode", "most"},
		{"coach.calibration-frames", 0},
		{"coach.anchor-part", "tail"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := newTestViper()
			v.Set(tt.key, tt.value)
			_, err := NewViper(v)
			assert.Error(t, err)
		})
	}
}

func TestViperRejectsNaNFromEnv(t *testing.T) {
	for _, key := range []string{
		"FITCOACH_COACH_CALIBRATION_PART_CONFIDENCE",
		"FITCOACH_COACH_MIN_POSE_CONFIDENCE",
		"FITCOACH_COACH_NMS_RADIUS",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "NaN")
			_, err := NewViper(newTestViper())
			assert.Error(t, err)
		})
	}
}
