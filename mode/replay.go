package mode

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pipeline"
	"github.com/khaledhikmat/fit-coach/service/inference"
	"github.com/khaledhikmat/fit-coach/service/lgr"
	"github.com/khaledhikmat/fit-coach/service/reference"
)

// Replay coaches a recorded session: either a dataset of frames keyed
// frame_<n> or a pose log written by the recorder (.jsonl). Frames are
// paced by blank video at the configured rate.
func Replay(canxCtx context.Context, svcs pipeline.ServicesFactory, source string) error {
	if source == "" {
		return xerrors.New("replay needs a dataset or pose log")
	}

	set, err := loadRecording(source)
	if err != nil {
		return err
	}

	estimator, err := inference.NewReplayFromSet[gocv.Mat](set)
	if err != nil {
		return xerrors.Errorf("error preparing replay of %s: %w", source, err)
	}

	session := model.Session{
		Source:     source,
		FramerType: pipeline.BlankFramer,
		Exercise:   svcs.CfgSvc.GetCoachConfig().Exercise,
	}

	lgr.Logger.Info(
		"replay mode starting",
		slog.String("source", source),
		slog.Int("frames", len(set)),
	)
	err = runSession(canxCtx, svcs, session, estimator)

	lgr.Logger.Info(
		"replay mode ended",
		slog.String("source", source),
		slog.Int("loops", estimator.Loops()),
	)
	return err
}

func loadRecording(path string) (model.FrameSet, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		set, skipped, err := reference.FromRecordingFile(path, "")
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			lgr.Logger.Warn("pose log lines skipped", slog.String("path", path), slog.Int("skipped", skipped))
		}
		return set, nil
	}
	return reference.LoadFrameSet(path)
}

// isVideoFile tells a video path apart from a camera index or stream URL.
func isVideoFile(source string) bool {
	if _, err := strconv.Atoi(source); err == nil {
		return false
	}
	if strings.Contains(source, "://") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && !info.IsDir()
}
