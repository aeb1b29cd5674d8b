package webhook

import (
	"sync"

	"github.com/khaledhikmat/fit-coach/service/config"
)

type fakeService struct {
	CfgSvc config.IService

	mu       sync.Mutex
	payloads []map[string]interface{}
}

// NewFake keeps posted payloads in memory. Used when no webhook URL is set.
func NewFake(cfgsvc config.IService) IService {
	return &fakeService{
		CfgSvc: cfgsvc,
	}
}

func (svc *fakeService) Post(payload map[string]interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.payloads = append(svc.payloads, payload)
	return nil
}

// Payloads returns what was posted to a fake service.
func Payloads(svc IService) []map[string]interface{} {
	f, ok := svc.(*fakeService)
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.payloads...)
}
