package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

const (
	CameraFramer = "camera"
	VideoFramer  = "video"
	BlankFramer  = "blank"

	maxConsecutiveReadErrors = 30
)

// Framer captures frames on its own goroutine and hands them to the coach
// loop one at a time. A frame that arrives while the loop is still busy
// with the previous one is dropped.
type Framer struct {
	frames  chan FrameData
	cancel  context.CancelFunc
	current gocv.Mat
	holding bool
}

// StartFramer opens the session source and starts capturing. Camera and
// video sources are opened before returning so a missing device fails the
// session before the loop starts.
func StartFramer(canxCtx context.Context, svcs ServicesFactory, session model.Session, errorStream chan interface{}, statsStream chan interface{}) (*Framer, error) {
	canxCtx, cancel := context.WithCancel(canxCtx)
	f := &Framer{
		frames: make(chan FrameData, 1),
		cancel: cancel,
	}

	switch session.FramerType {
	case BlankFramer:
		go f.blankFramer(canxCtx, svcs, session, statsStream)
		return f, nil

	case CameraFramer, VideoFramer:
		var device interface{} = session.Source
		if id, err := strconv.Atoi(session.Source); err == nil {
			device = id
		}

		capture, err := gocv.OpenVideoCapture(device)
		if err != nil {
			cancel()
			return nil, xerrors.Errorf("error opening capture %s: %w", session.Source, err)
		}
		if !capture.IsOpened() {
			capture.Close()
			cancel()
			return nil, xerrors.Errorf("capture %s is not available", session.Source)
		}

		go f.captureFramer(canxCtx, svcs, session, capture, errorStream, statsStream)
		return f, nil
	}

	cancel()
	return nil, xerrors.Errorf("unknown framer type %q", session.FramerType)
}

// Next blocks until the next frame is available. The returned Mat stays
// valid until the following call.
func (f *Framer) Next(ctx context.Context) (gocv.Mat, error) {
	f.release()

	select {
	case <-ctx.Done():
		return gocv.Mat{}, ctx.Err()
	case fd, ok := <-f.frames:
		if !ok {
			return gocv.Mat{}, io.EOF
		}
		f.current = fd.Mat
		f.holding = true
		return fd.Mat, nil
	}
}

// Close stops the capture and releases the frame handed out last along with
// any frame still waiting in the hand-off channel.
func (f *Framer) Close() {
	f.release()
	f.cancel()

	timer := time.NewTimer(waitBeforeCancel)
	defer timer.Stop()

	for {
		select {
		case fd, ok := <-f.frames:
			if !ok {
				return
			}
			fd.Mat.Close()
		case <-timer.C:
			lgr.Logger.Warn("framer did not stop in time, pending frames left")
			return
		}
	}
}

func (f *Framer) release() {
	if f.holding {
		f.current.Close()
		f.holding = false
	}
}

// offer never blocks the capture: the frame is dropped when the loop has
// not picked up the previous one.
func (f *Framer) offer(svcs ServicesFactory, img gocv.Mat) bool {
	select {
	case f.frames <- FrameData{Mat: img, Timestamp: time.Now()}:
		if svcs.Metrics != nil {
			svcs.Metrics.FramesCaptured.Add(1)
		}
		return true
	default:
		img.Close() // Crucial to close the image to avoid memory leaks
		if svcs.Metrics != nil {
			svcs.Metrics.FramesDropped.Add(1)
		}
		return false
	}
}

func (f *Framer) captureFramer(canxCtx context.Context, svcs ServicesFactory, session model.Session, capture *gocv.VideoCapture, errorStream chan interface{}, statsStream chan interface{}) {
	defer close(f.frames)
	defer capture.Close()

	var startTime = time.Now().Unix()
	var frames = 0
	var skippedFrames = 0
	var errors = 0
	var consecutiveErrors = 0

	defer func() {
		statsStream <- framerStats(session, session.FramerType+"Framer", startTime, frames, skippedFrames, errors)
	}()

	lgr.Logger.Info(
		"framer starting....",
		slog.String("session", session.ID),
		slog.String("source", session.Source),
		slog.String("type", session.FramerType),
	)

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"framer context cancelled",
				slog.String("session", session.ID),
			)
			return

		default:
			img := gocv.NewMat()
			if ok := capture.Read(&img); !ok || img.Empty() {
				img.Close() // Crucial to close the image to avoid memory leaks

				// A video file that stops reading is finished
				if session.FramerType == VideoFramer {
					lgr.Logger.Info("video source exhausted", slog.String("source", session.Source))
					return
				}

				errors++
				consecutiveErrors++
				if consecutiveErrors >= maxConsecutiveReadErrors {
					select {
					case errorStream <- model.GenError("framer",
						xerrors.Errorf("%d consecutive read failures", consecutiveErrors),
						map[string]interface{}{"session": session.ID},
						"camera %s stopped delivering frames",
						session.Source):
					case <-canxCtx.Done():
					}
					return
				}
				continue
			}
			consecutiveErrors = 0

			frames++
			if svcs.InferenceSvc.CanSkipFrame(frames) {
				skippedFrames++
				img.Close() // Crucial to close the image to avoid memory leaks
				continue
			}

			if !f.offer(svcs, img) {
				skippedFrames++
			}
		}
	}
}

// blankFramer paces a replay session with empty frames at the configured
// frame rate.
func (f *Framer) blankFramer(canxCtx context.Context, svcs ServicesFactory, session model.Session, statsStream chan interface{}) {
	defer close(f.frames)

	var startTime = time.Now().Unix()
	var frames = 0
	var skippedFrames = 0

	defer func() {
		statsStream <- framerStats(session, "blankFramer", startTime, frames, skippedFrames, 0)
	}()

	fps := svcs.CfgSvc.GetFramerFPS()
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"blankFramer context cancelled",
				slog.String("session", session.ID),
			)
			return

		case <-ticker.C:
			frames++
			if svcs.InferenceSvc.CanSkipFrame(frames) {
				skippedFrames++
				continue
			}

			img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
			if !f.offer(svcs, img) {
				skippedFrames++
			}
		}
	}
}

func framerStats(session model.Session, name string, startTime int64, frames, skippedFrames, errors int) model.FramerStats {
	uptime := time.Now().Unix() - startTime
	fps := 0
	if uptime > 0 {
		fps = int(float64(frames) / float64(uptime))
	}
	return model.FramerStats{
		Name:          name,
		Session:       session.ID,
		Frames:        frames,
		SkippedFrames: skippedFrames,
		Errors:        errors,
		Uptime:        uptime,
		FPS:           fps,
		Timestamp:     time.Now().Unix(),
	}
}
