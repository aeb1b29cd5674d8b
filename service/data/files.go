package data

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

// NewFilesDB keeps every entity kind in its own JSON array file under the
// input folder.
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewSession(session model.Session) error {
	if session.StartupTime == 0 {
		session.StartupTime = time.Now().Unix()
	}
	return svc.newEntity(session, "sessions")
}

func (svc *filesDBService) RetrieveSessions() ([]model.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return retrieveEntites[model.Session]("sessions", svc.CfgSvc)
}

func (svc *filesDBService) NewError(err interface{}) error {
	rec := toErrorRecord(err)
	rec.Timestamp = time.Now().Unix()
	return svc.newEntity(rec, "errors")
}

// RetrieveErrors returns the persisted errors, oldest first.
func (svc *filesDBService) RetrieveErrors() ([]ErrorRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return retrieveEntites[ErrorRecord]("errors", svc.CfgSvc)
}

func (svc *filesDBService) NewCoachStats(stats model.CoachStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "coach-stats")
}

func (svc *filesDBService) RetrieveCoachStats(session string) ([]model.CoachStats, error) {
	svc.mu.Lock()
	all, err := retrieveEntites[model.CoachStats]("coach-stats", svc.CfgSvc)
	svc.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := []model.CoachStats{}
	for _, s := range all {
		if s.Session == session {
			out = append(out, s)
		}
	}
	return out, nil
}

func (svc *filesDBService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "framer-stats")
}

func (svc *filesDBService) NewSinkStats(stats model.SinkStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "sink-stats")
}

func (svc *filesDBService) NewNotifierStats(stats model.NotifierStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, "notifier-stats")
}

func (svc *filesDBService) Close() error {
	return nil
}

func (svc *filesDBService) newEntity(entity interface{}, filename string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(entity, filename, svc.CfgSvc)
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntites[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetInputFolder(), 0o755); err != nil {
		return err
	}

	// Rewrite the whole array
	output := entityFile(filename, cfgsvc)
	return os.WriteFile(output, data, 0644)
}

func retrieveEntites[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(entityFile(filename, cfgsvc))
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing persisted yet
			return entities, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("corrupt %s file: %w", filename, err)
	}

	return entities, nil
}

func entityFile(filename string, cfgsvc config.IService) string {
	return fmt.Sprintf("%s/%s.json", cfgsvc.GetInputFolder(), filename)
}
