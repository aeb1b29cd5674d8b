package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

func TestStrideSkipsFrames(t *testing.T) {
	svc := NewStride(3)
	var kept []int
	for frames := 1; frames <= 9; frames++ {
		if !svc.CanSkipFrame(frames) {
			kept = append(kept, frames)
		}
	}
	assert.Equal(t, []int{1, 4, 7}, kept)

	for _, stride := range []int{-1, 0, 1} {
		assert.False(t, NewStride(stride).CanSkipFrame(2))
	}
}

func TestReplayLoops(t *testing.T) {
	fs := model.FrameSet{
		"frame_1": {{Part: "nose", Score: 0.4}},
		"frame_0": {{Part: "nose", Score: 0.8}},
	}
	r, err := NewReplayFromSet[struct{}](fs)
	require.NoError(t, err)

	opts := model.EstimateOptions{MaxDetections: 5}
	var scores []float64
	for i := 0; i < 5; i++ {
		poses, err := r.Estimate(context.Background(), struct{}{}, opts)
		require.NoError(t, err)
		require.Len(t, poses, 1)
		scores = append(scores, poses[0].Score)
	}
	assert.Equal(t, []float64{0.8, 0.4, 0.8, 0.4, 0.8}, scores)
	assert.Equal(t, 2, r.Loops())
}

func TestReplayReturnsCopies(t *testing.T) {
	frames := []model.Frame{{{Part: "nose", Position: model.Position{X: 1}, Score: 1}}}
	r, err := NewReplay[int](frames)
	require.NoError(t, err)

	poses, err := r.Estimate(context.Background(), 0, model.EstimateOptions{MaxDetections: 1})
	require.NoError(t, err)
	poses[0].Keypoints[0].Position.X = 50
	assert.Equal(t, 1.0, frames[0][0].Position.X)
}

func TestReplayAppliesScoreThreshold(t *testing.T) {
	r, err := NewReplay[int]([]model.Frame{{{Part: "nose", Score: 0.2}}})
	require.NoError(t, err)

	poses, err := r.Estimate(context.Background(), 0, model.EstimateOptions{MaxDetections: 1, ScoreThreshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, poses)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Estimate(ctx, 0, model.EstimateOptions{MaxDetections: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplayNeedsFrames(t *testing.T) {
	_, err := NewReplay[int](nil)
	assert.Error(t, err)
	assert.Equal(t, 0.0, PoseScore(nil))
}

func TestHeatmapDecode(t *testing.T) {
	// two parts on a 2x4 grid
	h := Heatmaps{
		Rows: 2,
		Cols: 4,
		Data: []float32{
			0, 0, 0, 0,
			0, 0, 0.9, 0,

			0.7, 0, 0, 0,
			0, 0, 0, 0.1,
		},
	}

	frame, err := h.Decode(400, 200, false)
	require.NoError(t, err)
	require.Len(t, frame, 2)

	assert.Equal(t, pose.Nose, frame[0].Part)
	assert.Equal(t, model.Position{X: 250, Y: 150}, frame[0].Position)
	assert.InDelta(t, 0.9, frame[0].Score, 1e-6)

	assert.Equal(t, pose.LeftEye, frame[1].Part)
	assert.Equal(t, model.Position{X: 50, Y: 50}, frame[1].Position)

	flipped, err := h.Decode(400, 200, true)
	require.NoError(t, err)
	assert.Equal(t, 150.0, flipped[0].Position.X)
}

func TestHeatmapDecodeLogits(t *testing.T) {
	h := Heatmaps{Rows: 1, Cols: 1, Data: []float32{0}, Logits: true}
	frame, err := h.Decode(10, 10, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, frame[0].Score, 1e-9)
}

func TestHeatmapDecodeRejectsBadShapes(t *testing.T) {
	_, err := Heatmaps{Rows: 0, Cols: 4, Data: []float32{1}}.Decode(10, 10, false)
	assert.Error(t, err)

	_, err = Heatmaps{Rows: 2, Cols: 2, Data: []float32{1, 2, 3}}.Decode(10, 10, false)
	assert.Error(t, err)
}

func TestSinglePose(t *testing.T) {
	frame := model.Frame{{Part: pose.Nose, Score: 0.6}, {Part: pose.LeftEye, Score: 0.4}}

	poses := SinglePose(frame, model.EstimateOptions{MaxDetections: 1, ScoreThreshold: 0.5})
	require.Len(t, poses, 1)
	assert.InDelta(t, 0.5, poses[0].Score, 1e-9)

	assert.Empty(t, SinglePose(frame, model.EstimateOptions{MaxDetections: 1, ScoreThreshold: 0.51}))
	assert.Empty(t, SinglePose(frame, model.EstimateOptions{}))
	assert.Empty(t, SinglePose(nil, model.EstimateOptions{MaxDetections: 1}))
}
