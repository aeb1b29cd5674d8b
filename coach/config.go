// Package coach runs the calibration-then-exercise workflow: it gates
// calibration frames, keeps the rolling tracking buffer, and drives the
// per-frame loop that fits the trainer skeleton onto the user.
package coach

import (
	"fmt"
	"math"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// GateMode decides how the qualifying part count of a calibration frame is
// compared with the target count.
type GateMode string

const (
	GateExact   GateMode = "exact"
	GateAtLeast GateMode = "at_least"
)

// Accept reports whether count passes the gate for target.
func (g GateMode) Accept(count, target int) bool {
	if g == GateExact {
		return count == target
	}
	return count >= target
}

// ScaleSource selects which user lengths size the trainer skeleton.
type ScaleSource string

const (
	// ScaleRolling uses the lengths recomputed from the tracking buffer every frame.
	ScaleRolling ScaleSource = "rolling"
	// ScaleBaseline uses the lengths fixed at the end of calibration.
	ScaleBaseline ScaleSource = "baseline"
)

// Exercise names the reference segment and anchor used for one exercise.
type Exercise struct {
	Segment string
	Anchor  string
}

// Exercises known to the coach.
var Exercises = map[string]Exercise{
	"arm_curls": {Segment: "right_upper_arm", Anchor: pose.RightShoulder},
}

// Config is the immutable set of tunables handed to the coach at construction.
type Config struct {
	Exercise string

	// Pose filtering and drawing
	MinPoseConfidence float64
	MinPartConfidence float64
	Estimate          model.EstimateOptions

	// Calibration gate
	CalibrationFrames         int
	CalibrationPartConfidence float64
	CalibrationMinPartIndex   int
	CalibrationParts          int
	GateMode                  GateMode
	PromptAfterFrames         int

	// Tracking
	TrackingFrames int

	// Remapping
	ReferenceSegment string
	AnchorPart       string
	RemapMode        pose.RemapMode
	ScaleSource      ScaleSource
}

// DefaultConfig mirrors the multi-pose settings the coach was tuned with.
func DefaultConfig() Config {
	return Config{
		Exercise:          "arm_curls",
		MinPoseConfidence: 0.15,
		MinPartConfidence: 0.1,
		Estimate: model.EstimateOptions{
			FlipHorizontal: true,
			MaxDetections:  5,
			ScoreThreshold: 0.1,
			NMSRadius:      30,
		},
		CalibrationFrames:         5,
		CalibrationPartConfidence: 0.20,
		CalibrationMinPartIndex:   pose.FaceParts,
		CalibrationParts:          12,
		GateMode:                  GateAtLeast,
		PromptAfterFrames:         5,
		TrackingFrames:            5,
		ReferenceSegment:          "right_upper_arm",
		AnchorPart:                pose.RightShoulder,
		RemapMode:                 pose.RemapScale,
		ScaleSource:               ScaleRolling,
	}
}

// WithExercise returns a copy of cfg using the segment and anchor of the
// named exercise.
func (cfg Config) WithExercise(name string) (Config, error) {
	ex, ok := Exercises[name]
	if !ok {
		return cfg, fmt.Errorf("unknown exercise %q", name)
	}
	cfg.Exercise = name
	cfg.ReferenceSegment = ex.Segment
	cfg.AnchorPart = ex.Anchor
	return cfg, nil
}

// Validate checks every field of the configuration.
func (cfg Config) Validate() error {
	if cfg.CalibrationFrames <= 0 {
		return fmt.Errorf("calibration frames must be positive, got %d", cfg.CalibrationFrames)
	}
	if cfg.TrackingFrames <= 0 {
		return fmt.Errorf("tracking frames must be positive, got %d", cfg.TrackingFrames)
	}
	if cfg.CalibrationParts <= 0 || cfg.CalibrationParts > len(pose.Parts) {
		return fmt.Errorf("calibration parts must be in [1, %d], got %d", len(pose.Parts), cfg.CalibrationParts)
	}
	if cfg.CalibrationMinPartIndex < 0 || cfg.CalibrationMinPartIndex >= len(pose.Parts) {
		return fmt.Errorf("calibration min part index must be in [0, %d), got %d", len(pose.Parts), cfg.CalibrationMinPartIndex)
	}
	if cfg.PromptAfterFrames < 0 {
		return fmt.Errorf("prompt after frames must not be negative, got %d", cfg.PromptAfterFrames)
	}

	thresholds := map[string]float64{
		"min pose confidence":         cfg.MinPoseConfidence,
		"min part confidence":         cfg.MinPartConfidence,
		"calibration part confidence": cfg.CalibrationPartConfidence,
		"score threshold":             cfg.Estimate.ScoreThreshold,
	}
	for name, v := range thresholds {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
		}
	}

	if cfg.Estimate.MaxDetections <= 0 {
		return fmt.Errorf("max detections must be positive, got %d", cfg.Estimate.MaxDetections)
	}
	if math.IsNaN(cfg.Estimate.NMSRadius) || math.IsInf(cfg.Estimate.NMSRadius, 0) || cfg.Estimate.NMSRadius < 0 {
		return fmt.Errorf("nms radius must not be negative, got %v", cfg.Estimate.NMSRadius)
	}

	switch cfg.GateMode {
	case GateExact, GateAtLeast:
	default:
		return fmt.Errorf("invalid gate mode %q", cfg.GateMode)
	}
	switch cfg.ScaleSource {
	case ScaleRolling, ScaleBaseline:
	default:
		return fmt.Errorf("invalid scale source %q", cfg.ScaleSource)
	}

	if _, err := pose.NewRemapper(cfg.ReferenceSegment, cfg.AnchorPart, cfg.RemapMode); err != nil {
		return err
	}
	return nil
}
