package config

import "github.com/khaledhikmat/fit-coach/coach"

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetRecordingsFolder() string

	GetReferenceFile() string
	GetReferenceLengthsFile() string
	GetGuideFile() string

	GetCameraDevice() string
	GetFramerFPS() int
	GetModelPath() string
	GetModelInputSize() int
	// GetModelLogits reports whether the model emits raw heatmap logits
	// rather than probabilities.
	GetModelLogits() bool

	GetDisplayEnabled() bool
	GetRecorderClipDuration() int
	GetPoseLogFile() string

	GetMetricsAddr() string
	GetWebhookURL() string
	GetDataBackend() string
	GetDatabasePath() string
	GetStatsPeriodicTimeout() int

	GetCoachConfig() coach.Config
}

// Data backends
const (
	FilesBackend  = "files"
	SQLiteBackend = "sqlite"
)
