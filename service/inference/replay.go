package inference

import (
	"context"
	"sync/atomic"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
)

// Replay is a pose source that plays back recorded frames in order and
// starts over at the end. The video frame handed to Estimate is ignored.
type Replay[F any] struct {
	frames []model.Frame
	next   int
	loops  atomic.Int64
}

func NewReplay[F any](frames []model.Frame) (*Replay[F], error) {
	if len(frames) == 0 {
		return nil, xerrors.New("replay needs at least one recorded frame")
	}
	return &Replay[F]{frames: frames}, nil
}

// NewReplayFromSet plays a dataset in frame index order.
func NewReplayFromSet[F any](fs model.FrameSet) (*Replay[F], error) {
	return NewReplay[F](fs.Ordered())
}

func (r *Replay[F]) Estimate(ctx context.Context, _ F, opts model.EstimateOptions) ([]model.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := r.frames[r.next].Clone()
	r.next++
	if r.next == len(r.frames) {
		r.next = 0
		r.loops.Add(1)
	}

	return SinglePose(frame, opts), nil
}

// Loops is the number of times the recording was played to the end. It is
// safe to call while the replay is running.
func (r *Replay[F]) Loops() int {
	return int(r.loops.Load())
}

// SinglePose wraps one decoded frame as the result of a single-person pose
// source, honoring the detection limit and score threshold.
func SinglePose(frame model.Frame, opts model.EstimateOptions) []model.Pose {
	p := model.Pose{Score: PoseScore(frame), Keypoints: frame}
	if len(frame) == 0 || p.Score < opts.ScoreThreshold || opts.MaxDetections == 0 {
		return []model.Pose{}
	}
	return []model.Pose{p}
}

// PoseScore is the mean keypoint score of a frame.
func PoseScore(frame model.Frame) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range frame {
		sum += kp.Score
	}
	return sum / float64(len(frame))
}
