// Package recorder writes the pose log: one JSON record per detected pose,
// in rotating files.
package recorder

import (
	"encoding/json"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/khaledhikmat/fit-coach/model"
)

type IService interface {
	Record(rec model.PoseRecord) error
	Close() error
}

type rotatingService struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// NewRotating writes to path and rotates the file once it grows past
// maxSizeMB megabytes, keeping maxBackups old files.
func NewRotating(path string, maxSizeMB, maxBackups int) IService {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   false,
	}
	return &rotatingService{
		out: out,
		enc: json.NewEncoder(out),
	}
}

func (svc *rotatingService) Record(rec model.PoseRecord) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.enc.Encode(rec)
}

func (svc *rotatingService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.out.Close()
}

type discardService struct{}

// NewDiscard drops every record.
func NewDiscard() IService {
	return discardService{}
}

func (discardService) Record(model.PoseRecord) error { return nil }

func (discardService) Close() error { return nil }
