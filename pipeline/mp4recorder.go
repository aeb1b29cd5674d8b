package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// WARNING:
// GoCV writes barely compressed frames, so clips grow quickly. Keep the
// clip duration short.
func MP4Recorder(canx context.Context, svcs ServicesFactory, session model.Session, errorStream chan interface{}, statsStream chan interface{}) chan FrameData {
	in := make(chan FrameData, 30)

	go func() {
		var buffer []FrameData
		var clipStart = time.Now()
		var clipDuration = time.Duration(svcs.CfgSvc.GetRecorderClipDuration()) * time.Second

		lgr.Logger.Info(
			"mp4 recorder initialized...",
			slog.String("session", session.ID),
			slog.Duration("clip", clipDuration),
		)

		frames := 0
		clips := 0
		errors := 0
		beginTime := time.Now().Unix()

		flush := func() {
			defer func() {
				for _, f := range buffer {
					f.Mat.Close()
				}
				buffer = buffer[:0]
			}()

			if len(buffer) == 0 {
				return
			}

			filename := filepath.Join(svcs.CfgSvc.GetRecordingsFolder(), fmt.Sprintf("%s_recording_%d.mp4", session.ID, time.Now().Unix()))
			if err := saveFramesAsMP4(filename, svcs.CfgSvc.GetFramerFPS(), buffer); err != nil {
				errors++
				select {
				case errorStream <- model.GenError("mp4_recorder",
					err,
					map[string]interface{}{"session": session.ID},
					"error saving clip %s",
					filename):
				case <-time.After(waitBeforeCancel):
				}
				return
			}
			clips++
		}

		defer func() {
			statsStream <- model.SinkStats{
				Name:      "mp4Recorder",
				Session:   session.ID,
				Frames:    frames,
				Errors:    errors,
				Uptime:    time.Now().Unix() - beginTime,
				Timestamp: time.Now().Unix(),
			}
		}()

		// Final flush on shutdown
		defer flush()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"mp4 recorder context cancelled",
					slog.String("session", session.ID),
					slog.Int("clips", clips),
				)
				// Drain what the canvas already handed over
				for {
					select {
					case f := <-in:
						buffer = append(buffer, f)
						frames++
					default:
						return
					}
				}

			case f := <-in:
				buffer = append(buffer, f)
				frames++
				if time.Since(clipStart) >= clipDuration {
					flush()
					clipStart = time.Now()
				}
			}
		}
	}()

	return in
}

func saveFramesAsMP4(filename string, fps int, frames []FrameData) error {
	first := frames[0].Mat
	if first.Empty() || first.Cols() <= 0 || first.Rows() <= 0 {
		return xerrors.Errorf("invalid first frame: cols=%d, rows=%d", first.Cols(), first.Rows())
	}
	if fps <= 0 {
		fps = 30
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return xerrors.Errorf("creating recordings folder: %w", err)
	}

	lgr.Logger.Info(
		"mp4 recorder saving clip",
		slog.String("filename", filename),
		slog.Int("frames", len(frames)),
	)

	writer, err := gocv.VideoWriterFile(filename, "avc1", float64(fps), first.Cols(), first.Rows(), true)
	if err != nil {
		return xerrors.Errorf("creating video writer: %w", err)
	}
	defer writer.Close()

	size := image.Pt(first.Cols(), first.Rows())
	resized := gocv.NewMat()
	defer resized.Close()

	for _, f := range frames {
		if f.Mat.Cols() == size.X && f.Mat.Rows() == size.Y {
			if err := writer.Write(f.Mat); err != nil {
				return xerrors.Errorf("writing frame: %w", err)
			}
			continue
		}

		// Frames must match the clip size
		if err := gocv.Resize(f.Mat, &resized, size, 0, 0, gocv.InterpolationLinear); err != nil {
			return xerrors.Errorf("resizing frame: %w", err)
		}
		if err := writer.Write(resized); err != nil {
			return xerrors.Errorf("writing frame: %w", err)
		}
	}

	return nil
}
