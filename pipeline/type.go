package pipeline

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/config"
	"github.com/khaledhikmat/fit-coach/service/data"
	"github.com/khaledhikmat/fit-coach/service/inference"
	"github.com/khaledhikmat/fit-coach/service/metrics"
	"github.com/khaledhikmat/fit-coach/service/recorder"
	"github.com/khaledhikmat/fit-coach/service/webhook"
)

// WARNING: this must stay below the mode processor shutdown time
const waitBeforeCancel = 500 * time.Millisecond

type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// ServicesFactory carries the services a session needs. Mode processors
// create it once and hand it down to the pipeline.
type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	InferenceSvc inference.IService
	WebhookSvc   webhook.IService
	RecorderSvc  recorder.IService
	Metrics      *metrics.Metrics
}

// Signature of a sink function. Sinks receive a copy of every presented
// canvas and own the Mats they receive.
type Sink func(canx context.Context, svcs ServicesFactory, session model.Session, errorStream chan interface{}, statsStream chan interface{}) chan FrameData
