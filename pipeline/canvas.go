package pipeline

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fit-coach/coach"
	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

var (
	keypointColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	skeletonColor  = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	referenceColor = color.RGBA{R: 255, G: 215, B: 0, A: 0}
)

const (
	keypointRadius = 3
	lineThickness  = 2
)

// MatCanvas draws one cycle onto a Mat and presents it to the display
// window and the streaming sinks.
type MatCanvas struct {
	canx    context.Context
	session model.Session
	mat     gocv.Mat
	window  *Window
	sinks   []chan FrameData
	dropped int
}

var _ coach.Canvas[gocv.Mat] = &MatCanvas{} // Compile-time check

// NewMatCanvas presents to window when it is not nil and forwards a copy of
// every presented frame to each sink.
func NewMatCanvas(canx context.Context, session model.Session, window *Window, sinks []chan FrameData) *MatCanvas {
	return &MatCanvas{
		canx:    canx,
		session: session,
		mat:     gocv.NewMat(),
		window:  window,
		sinks:   sinks,
	}
}

func (c *MatCanvas) DrawVideo(frame gocv.Mat) {
	frame.CopyTo(&c.mat)
}

func (c *MatCanvas) DrawKeypoints(frame model.Frame, minScore float64) {
	for _, kp := range frame {
		if kp.Score < minScore {
			continue
		}
		gocv.Circle(&c.mat, point(kp.Position), keypointRadius, keypointColor, -1)
	}
}

func (c *MatCanvas) DrawSkeleton(frame model.Frame, minScore float64) {
	c.drawSegments(frame, minScore, skeletonColor)
}

func (c *MatCanvas) DrawReferenceSkeleton(frame model.Frame, minScore float64) {
	c.drawSegments(frame, minScore, referenceColor)
}

func (c *MatCanvas) drawSegments(frame model.Frame, minScore float64, col color.RGBA) {
	for _, pair := range pose.Adjacent {
		from, ok := frame.Find(pair[0])
		if !ok || from.Score < minScore {
			continue
		}
		to, ok := frame.Find(pair[1])
		if !ok || to.Score < minScore {
			continue
		}
		gocv.Line(&c.mat, point(from.Position), point(to.Position), col, lineThickness)
	}
}

// Present shows the canvas and hands a copy to every sink. A sink that
// lags loses the frame.
func (c *MatCanvas) Present() error {
	if c.mat.Empty() {
		return nil
	}

	for _, sink := range c.sinks {
		clone := c.mat.Clone()
		select {
		case <-c.canx.Done():
			clone.Close()
			return c.canx.Err()
		case sink <- FrameData{Mat: clone, Timestamp: time.Now()}:
		default:
			clone.Close() // Crucial to close the image to avoid memory leaks
			c.dropped++
		}
	}

	if c.window != nil {
		return c.window.Show(c.mat)
	}
	return nil
}

func (c *MatCanvas) Close() error {
	if c.dropped > 0 {
		lgr.Logger.Warn(
			"canvas dropped frames for lagging sinks",
			slog.String("session", c.session.ID),
			slog.Int("dropped", c.dropped),
		)
	}
	return c.mat.Close()
}

func point(p model.Position) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
