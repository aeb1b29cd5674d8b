package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pipeline"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// Live coaches from a camera device or a video file through the heatmap
// pose model. An empty source uses the configured camera.
func Live(canxCtx context.Context, svcs pipeline.ServicesFactory, source string) error {
	session := model.Session{
		Source:     source,
		FramerType: pipeline.CameraFramer,
		Exercise:   svcs.CfgSvc.GetCoachConfig().Exercise,
	}
	if session.Source == "" {
		session.Source = svcs.CfgSvc.GetCameraDevice()
	}
	if isVideoFile(session.Source) {
		session.FramerType = pipeline.VideoFramer
	}

	estimator, err := pipeline.NewHeatmapEstimator(svcs)
	if err != nil {
		return err
	}
	defer estimator.Close()

	lgr.Logger.Info(
		"live mode starting",
		slog.String("source", session.Source),
		slog.String("framerType", session.FramerType),
	)
	return runSession(canxCtx, svcs, session, estimator)
}
