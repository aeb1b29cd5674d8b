package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// EnvPrefix is the prefix of environment variables read by the viper service.
const EnvPrefix = "FITCOACH"

// Settings is the raw configuration as read from file, env and flags.
type Settings struct {
	ShutdownTime         int           `mapstructure:"shutdown-time"`
	InputFolder          string        `mapstructure:"input-folder"`
	RecordingsFolder     string        `mapstructure:"recordings-folder"`
	ReferenceFile        string        `mapstructure:"reference-file"`
	ReferenceLengthsFile string        `mapstructure:"reference-lengths-file"`
	GuideFile            string        `mapstructure:"guide-file"`
	Camera               string        `mapstructure:"camera"`
	FPS                  int           `mapstructure:"fps"`
	ModelPath            string        `mapstructure:"model-path"`
	ModelInputSize       int           `mapstructure:"model-input-size"`
	ModelLogits          bool          `mapstructure:"model-logits"`
	Display              bool          `mapstructure:"display"`
	ClipDuration         int           `mapstructure:"clip-duration"`
	PoseLog              string        `mapstructure:"pose-log"`
	MetricsAddr          string        `mapstructure:"metrics-addr"`
	WebhookURL           string        `mapstructure:"webhook-url"`
	DataBackend          string        `mapstructure:"data-backend"`
	DatabasePath         string        `mapstructure:"database-path"`
	StatsTimeout         int           `mapstructure:"stats-timeout"`
	Coach                CoachSettings `mapstructure:"coach"`
}

type CoachSettings struct {
	Exercise                  string  `mapstructure:"exercise"`
	MinPoseConfidence         float64 `mapstructure:"min-pose-confidence"`
	MinPartConfidence         float64 `mapstructure:"min-part-confidence"`
	FlipHorizontal            bool    `mapstructure:"flip-horizontal"`
	MaxDetections             int     `mapstructure:"max-detections"`
	ScoreThreshold            float64 `mapstructure:"score-threshold"`
	NMSRadius                 float64 `mapstructure:"nms-radius"`
	CalibrationFrames         int     `mapstructure:"calibration-frames"`
	CalibrationPartConfidence float64 `mapstructure:"calibration-part-confidence"`
	CalibrationMinPartIndex   int     `mapstructure:"calibration-min-part-index"`
	CalibrationParts          int     `mapstructure:"calibration-parts"`
	GateMode                  string  `mapstructure:"gate-mode"`
	PromptAfterFrames         int     `mapstructure:"prompt-after-frames"`
	TrackingFrames            int     `mapstructure:"tracking-frames"`
	// Empty segment and anchor come from the exercise.
	ReferenceSegment string `mapstructure:"reference-segment"`
	AnchorPart       string `mapstructure:"anchor-part"`
	RemapMode        string `mapstructure:"remap-mode"`
	ScaleSource      string `mapstructure:"scale-source"`
}

// SetDefaults registers the hardcoded values as viper defaults so that
// every key can also be set from the environment.
func SetDefaults(v *viper.Viper) {
	hc := NewHardCoded()
	v.SetDefault("shutdown-time", hc.GetModeMaxShutdownTime())
	v.SetDefault("input-folder", hc.GetInputFolder())
	v.SetDefault("recordings-folder", hc.GetRecordingsFolder())
	v.SetDefault("reference-file", hc.GetReferenceFile())
	v.SetDefault("reference-lengths-file", hc.GetReferenceLengthsFile())
	v.SetDefault("guide-file", hc.GetGuideFile())
	v.SetDefault("camera", hc.GetCameraDevice())
	v.SetDefault("fps", hc.GetFramerFPS())
	v.SetDefault("model-path", hc.GetModelPath())
	v.SetDefault("model-input-size", hc.GetModelInputSize())
	v.SetDefault("model-logits", hc.GetModelLogits())
	v.SetDefault("display", hc.GetDisplayEnabled())
	v.SetDefault("clip-duration", hc.GetRecorderClipDuration())
	v.SetDefault("pose-log", "")
	v.SetDefault("metrics-addr", hc.GetMetricsAddr())
	v.SetDefault("webhook-url", hc.GetWebhookURL())
	v.SetDefault("data-backend", hc.GetDataBackend())
	v.SetDefault("database-path", "")
	v.SetDefault("stats-timeout", hc.GetStatsPeriodicTimeout())

	c := coach.DefaultConfig()
	v.SetDefault("coach.exercise", c.Exercise)
	v.SetDefault("coach.min-pose-confidence", c.MinPoseConfidence)
	v.SetDefault("coach.min-part-confidence", c.MinPartConfidence)
	v.SetDefault("coach.flip-horizontal", c.Estimate.FlipHorizontal)
	v.SetDefault("coach.max-detections", c.Estimate.MaxDetections)
	v.SetDefault("coach.score-threshold", c.Estimate.ScoreThreshold)
	v.SetDefault("coach.nms-radius", c.Estimate.NMSRadius)
	v.SetDefault("coach.calibration-frames", c.CalibrationFrames)
	v.SetDefault("coach.calibration-part-confidence", c.CalibrationPartConfidence)
	v.SetDefault("coach.calibration-min-part-index", c.CalibrationMinPartIndex)
	v.SetDefault("coach.calibration-parts", c.CalibrationParts)
	v.SetDefault("coach.gate-mode", string(c.GateMode))
	v.SetDefault("coach.prompt-after-frames", c.PromptAfterFrames)
	v.SetDefault("coach.tracking-frames", c.TrackingFrames)
	v.SetDefault("coach.reference-segment", "")
	v.SetDefault("coach.anchor-part", "")
	v.SetDefault("coach.remap-mode", string(c.RemapMode))
	v.SetDefault("coach.scale-source", string(c.ScaleSource))
}

// ConfigureEnv makes v read FITCOACH_* variables, with dots and dashes in
// keys mapped to underscores.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

type viperService struct {
	settings Settings
	coach    coach.Config
}

// NewViper unmarshals and validates the settings resolved by v.
func NewViper(v *viper.Viper) (IService, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	cfg, err := s.Coach.toConfig()
	if err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	return &viperService{settings: s, coach: cfg}, nil
}

func (s Settings) validate() error {
	if s.ShutdownTime <= 0 {
		return fmt.Errorf("shutdown-time must be positive, got %d", s.ShutdownTime)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", s.FPS)
	}
	if s.ModelInputSize <= 0 {
		return fmt.Errorf("model-input-size must be positive, got %d", s.ModelInputSize)
	}
	if s.ClipDuration < 0 {
		return fmt.Errorf("clip-duration must not be negative, got %d", s.ClipDuration)
	}
	if s.StatsTimeout <= 0 {
		return fmt.Errorf("stats-timeout must be positive, got %d", s.StatsTimeout)
	}
	if s.ReferenceFile == "" || s.ReferenceLengthsFile == "" {
		return fmt.Errorf("reference-file and reference-lengths-file are required")
	}
	switch s.DataBackend {
	case FilesBackend, SQLiteBackend:
	default:
		return fmt.Errorf("invalid data-backend %q: must be %q or %q", s.DataBackend, FilesBackend, SQLiteBackend)
	}
	return nil
}

func (c CoachSettings) toConfig() (coach.Config, error) {
	cfg, err := coach.DefaultConfig().WithExercise(c.Exercise)
	if err != nil {
		return cfg, err
	}

	remapMode, err := pose.ParseRemapMode(c.RemapMode)
	if err != nil {
		return cfg, err
	}

	cfg.MinPoseConfidence = c.MinPoseConfidence
	cfg.MinPartConfidence = c.MinPartConfidence
	cfg.Estimate = model.EstimateOptions{
		FlipHorizontal: c.FlipHorizontal,
		MaxDetections:  c.MaxDetections,
		ScoreThreshold: c.ScoreThreshold,
		NMSRadius:      c.NMSRadius,
	}
	cfg.CalibrationFrames = c.CalibrationFrames
	cfg.CalibrationPartConfidence = c.CalibrationPartConfidence
	cfg.CalibrationMinPartIndex = c.CalibrationMinPartIndex
	cfg.CalibrationParts = c.CalibrationParts
	cfg.GateMode = coach.GateMode(c.GateMode)
	cfg.PromptAfterFrames = c.PromptAfterFrames
	cfg.TrackingFrames = c.TrackingFrames
	cfg.RemapMode = remapMode
	cfg.ScaleSource = coach.ScaleSource(c.ScaleSource)
	if c.ReferenceSegment != "" {
		cfg.ReferenceSegment = c.ReferenceSegment
	}
	if c.AnchorPart != "" {
		cfg.AnchorPart = c.AnchorPart
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (svc *viperService) GetModeMaxShutdownTime() int {
	return svc.settings.ShutdownTime
}

func (svc *viperService) GetInputFolder() string {
	return svc.settings.InputFolder
}

func (svc *viperService) GetRecordingsFolder() string {
	return svc.settings.RecordingsFolder
}

func (svc *viperService) GetReferenceFile() string {
	return svc.settings.ReferenceFile
}

func (svc *viperService) GetReferenceLengthsFile() string {
	return svc.settings.ReferenceLengthsFile
}

func (svc *viperService) GetGuideFile() string {
	return svc.settings.GuideFile
}

func (svc *viperService) GetCameraDevice() string {
	return svc.settings.Camera
}

func (svc *viperService) GetFramerFPS() int {
	return svc.settings.FPS
}

func (svc *viperService) GetModelPath() string {
	return svc.settings.ModelPath
}

func (svc *viperService) GetModelInputSize() int {
	return svc.settings.ModelInputSize
}

func (svc *viperService) GetModelLogits() bool {
	return svc.settings.ModelLogits
}

func (svc *viperService) GetDisplayEnabled() bool {
	return svc.settings.Display
}

func (svc *viperService) GetRecorderClipDuration() int {
	return svc.settings.ClipDuration
}

func (svc *viperService) GetPoseLogFile() string {
	if svc.settings.PoseLog == "" {
		return filepath.Join(svc.settings.RecordingsFolder, "poses.jsonl")
	}
	return svc.settings.PoseLog
}

func (svc *viperService) GetMetricsAddr() string {
	return svc.settings.MetricsAddr
}

func (svc *viperService) GetWebhookURL() string {
	return svc.settings.WebhookURL
}

func (svc *viperService) GetDataBackend() string {
	return svc.settings.DataBackend
}

func (svc *viperService) GetDatabasePath() string {
	if svc.settings.DatabasePath == "" {
		return filepath.Join(svc.settings.InputFolder, "fitcoach.db")
	}
	return svc.settings.DatabasePath
}

func (svc *viperService) GetStatsPeriodicTimeout() int {
	return svc.settings.StatsTimeout
}

func (svc *viperService) GetCoachConfig() coach.Config {
	return svc.coach
}
