package coach

import (
	"time"

	"github.com/khaledhikmat/fit-coach/model"
)

type EventType string

const (
	EventCalibrationStarted  EventType = "calibration_started"
	EventCalibrationPrompt   EventType = "calibration_prompt"
	EventCalibrationComplete EventType = "calibration_complete"
)

// Event is a user-facing notification emitted by the loop. Emission never
// blocks the loop.
type Event struct {
	Type      EventType     `json:"type"`
	Session   string        `json:"session"`
	Exercise  string        `json:"exercise"`
	Message   string        `json:"message"`
	Cycle     int           `json:"cycle"`
	Baseline  model.Lengths `json:"baseline,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

var eventMessages = map[EventType]string{
	EventCalibrationStarted:  "Calibration started. Stand so your whole body is visible",
	EventCalibrationPrompt:   "Please match your skeleton to the pose shown",
	EventCalibrationComplete: "Calibration complete. Let's start the exercise!",
}

// Message returns the text shown to the user for an event type.
func Message(t EventType) string {
	return eventMessages[t]
}

// Payload is the webhook body of an event.
func (e Event) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"type":      string(e.Type),
		"session":   e.Session,
		"exercise":  e.Exercise,
		"message":   e.Message,
		"cycle":     e.Cycle,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
	if len(e.Baseline) > 0 {
		payload["baseline"] = e.Baseline
	}
	return payload
}
