package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

var eventColors = map[coach.EventType]*color.Color{
	coach.EventCalibrationStarted:  color.New(color.FgCyan),
	coach.EventCalibrationPrompt:   color.New(color.FgYellow, color.Bold),
	coach.EventCalibrationComplete: color.New(color.FgGreen, color.Bold),
}

// Notifier shows coaching events to the user and forwards them to the
// webhook. The returned channel is handed to the coach loop.
func Notifier(canx context.Context, svcs ServicesFactory, session model.Session, errorStream chan interface{}, statsStream chan interface{}) chan coach.Event {
	in := make(chan coach.Event, 10)

	go func() {
		events := 0
		errors := 0
		beginTime := time.Now().Unix()

		defer func() {
			statsStream <- model.NotifierStats{
				Name:      "notifier",
				Session:   session.ID,
				Events:    events,
				Errors:    errors,
				Uptime:    time.Now().Unix() - beginTime,
				Timestamp: time.Now().Unix(),
			}
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"notifier context cancelled",
					slog.String("session", session.ID),
				)
				return

			case ev := <-in:
				events++
				lgr.Logger.Info(
					"coach event",
					slog.String("session", ev.Session),
					slog.String("type", string(ev.Type)),
					slog.Int("cycle", ev.Cycle),
				)

				c, ok := eventColors[ev.Type]
				if !ok {
					c = color.New(color.Reset)
				}
				fmt.Fprintln(color.Output, c.Sprint(ev.Message))

				if err := svcs.WebhookSvc.Post(ev.Payload()); err != nil {
					errors++
					select {
					case errorStream <- model.GenError("notifier",
						err,
						map[string]interface{}{"session": ev.Session, "event": string(ev.Type)},
						"error posting event to webhook"):
					case <-canx.Done():
					}
				}
			}
		}
	}()

	return in
}
