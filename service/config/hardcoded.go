package config

import (
	"fmt"

	"github.com/khaledhikmat/fit-coach/coach"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetInputFolder() string {
	return "./settings"
}

func (svc *hardcodedService) GetRecordingsFolder() string {
	return "./recordings"
}

func (svc *hardcodedService) GetReferenceFile() string {
	return "./reference/arm_curls.json"
}

func (svc *hardcodedService) GetReferenceLengthsFile() string {
	return "./reference/arm_curls_lengths.json"
}

func (svc *hardcodedService) GetGuideFile() string {
	return "./reference/calibration_guide.json"
}

func (svc *hardcodedService) GetCameraDevice() string {
	return "0"
}

func (svc *hardcodedService) GetFramerFPS() int {
	return 30
}

func (svc *hardcodedService) GetModelPath() string {
	return "./models/posenet.onnx"
}

func (svc *hardcodedService) GetModelInputSize() int {
	return 257
}

func (svc *hardcodedService) GetModelLogits() bool {
	return true
}

func (svc *hardcodedService) GetDisplayEnabled() bool {
	return true
}

// Zero disables the MP4 recorder.
func (svc *hardcodedService) GetRecorderClipDuration() int {
	return 0
}

func (svc *hardcodedService) GetPoseLogFile() string {
	return fmt.Sprintf("%s/poses.jsonl", svc.GetRecordingsFolder())
}

func (svc *hardcodedService) GetMetricsAddr() string {
	return ""
}

func (svc *hardcodedService) GetWebhookURL() string {
	return ""
}

func (svc *hardcodedService) GetDataBackend() string {
	return FilesBackend
}

func (svc *hardcodedService) GetDatabasePath() string {
	return fmt.Sprintf("%s/fitcoach.db", svc.GetInputFolder())
}

func (svc *hardcodedService) GetStatsPeriodicTimeout() int {
	return 30
}

func (svc *hardcodedService) GetCoachConfig() coach.Config {
	return coach.DefaultConfig()
}
