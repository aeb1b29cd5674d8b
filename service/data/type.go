package data

import (
	"fmt"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/config"
)

type IService interface {
	NewSession(session model.Session) error
	RetrieveSessions() ([]model.Session, error)

	NewError(err interface{}) error
	RetrieveErrors() ([]ErrorRecord, error)

	NewCoachStats(stats model.CoachStats) error
	RetrieveCoachStats(session string) ([]model.CoachStats, error)
	NewFramerStats(stats model.FramerStats) error
	NewSinkStats(stats model.SinkStats) error
	NewNotifierStats(stats model.NotifierStats) error

	Close() error
}

// ErrorRecord is the persisted form of a reported error.
type ErrorRecord struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

// toErrorRecord accepts model.CustomError envelopes and plain errors.
func toErrorRecord(err interface{}) ErrorRecord {
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = "unknown error"
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	return ErrorRecord{
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
}

// New returns the data service selected by the configured backend.
func New(cfgsvc config.IService) (IService, error) {
	switch cfgsvc.GetDataBackend() {
	case config.FilesBackend:
		return NewFilesDB(cfgsvc), nil
	case config.SQLiteBackend:
		return NewSQLite(cfgsvc.GetDatabasePath())
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfgsvc.GetDataBackend())
	}
}
