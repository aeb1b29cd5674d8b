package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

type Session struct {
	ID          string `json:"id"`
	Source      string `json:"source"`     // Camera device, URL or replay file
	FramerType  string `json:"framerType"` // camera or replay
	Exercise    string `json:"exercise"`
	StartupTime int64  `json:"startupTime"`
}

type NotifierStats struct {
	Name      string `json:"name"`
	Session   string `json:"session"`
	Events    int    `json:"events"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type CoachStats struct {
	Name              string  `json:"name"`
	Session           string  `json:"session"`
	Cycles            int     `json:"cycles"`
	Poses             int     `json:"poses"`
	CalibrationFrames int     `json:"calibrationFrames"`
	RejectedFrames    int     `json:"rejectedFrames"`
	TrackedFrames     int     `json:"trackedFrames"`
	Remaps            int     `json:"remaps"`
	SkippedRemaps     int     `json:"skippedRemaps"`
	Errors            int     `json:"errors"`
	Calibrated        bool    `json:"calibrated"`
	Uptime            int64   `json:"uptime"`
	AvgProcTime       float64 `json:"avgProcTime"`
	Timestamp         int64   `json:"timestamp"`
}

type FramerStats struct {
	Name          string `json:"name"`
	Session       string `json:"session"`
	FPS           int    `json:"fps"`
	Frames        int    `json:"frames"`
	SkippedFrames int    `json:"skippedFrames"`
	Errors        int    `json:"errors"`
	Uptime        int64  `json:"uptime"`
	Timestamp     int64  `json:"timestamp"`
}

type SinkStats struct {
	Name      string `json:"name"`
	Session   string `json:"session"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}
