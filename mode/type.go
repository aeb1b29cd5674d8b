package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pipeline"
	"github.com/khaledhikmat/fit-coach/service/data"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// Processor runs one coaching session described by the mode's source.
type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, source string) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.CoachStats:
		err = datasvc.NewCoachStats(stats)
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.SinkStats:
		err = datasvc.NewSinkStats(stats)
	case model.NotifierStats:
		err = datasvc.NewNotifierStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
