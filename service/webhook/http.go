package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/khaledhikmat/fit-coach/service/config"
)

type httpService struct {
	CfgSvc config.IService
	url    string
	client *http.Client
}

// NewHTTP posts payloads as JSON to the configured webhook URL.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		url:    cfgsvc.GetWebhookURL(),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// New returns the HTTP service when a webhook URL is configured and the
// fake otherwise.
func New(cfgsvc config.IService) IService {
	if cfgsvc.GetWebhookURL() == "" {
		return NewFake(cfgsvc)
	}
	return NewHTTP(cfgsvc)
}

func (svc *httpService) Post(payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling webhook payload: %w", err)
	}

	resp, err := svc.client.Post(svc.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error posting webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
