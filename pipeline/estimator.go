package pipeline

import (
	"context"
	"image"
	"log/slog"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/service/inference"
	"github.com/khaledhikmat/fit-coach/service/lgr"
)

// HeatmapEstimator runs a single-person heatmap pose model through the
// OpenCV DNN module. The model must output a [1, parts, rows, cols] blob
// with one heatmap channel per body part, in part index order. Channels
// hold logits unless model-logits is off, in which case they must already
// be probabilities. Offset maps are not read: a keypoint is placed at the
// centre of its best heatmap cell, so positions are quantized to the
// heatmap grid.
//
// WARNING: gocv.Net is not thread-safe. The coach loop never has more than
// one estimation in flight, so one estimator per session is enough.
type HeatmapEstimator struct {
	net       gocv.Net
	inputSize int
	logits    bool
}

func NewHeatmapEstimator(svcs ServicesFactory) (*HeatmapEstimator, error) {
	modelPath := svcs.CfgSvc.GetModelPath()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, xerrors.Errorf("no pose model exists at %s", modelPath)
	}

	lgr.Logger.Info("heatmap estimator starting...",
		slog.String("model", modelPath),
		slog.Int("inputSize", svcs.CfgSvc.GetModelInputSize()),
		slog.Bool("logits", svcs.CfgSvc.GetModelLogits()),
		slog.String("openCV", gocv.Version()),
	)

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("error reading pose model %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting target: %w", err)
	}

	return &HeatmapEstimator{
		net:       net,
		inputSize: svcs.CfgSvc.GetModelInputSize(),
		logits:    svcs.CfgSvc.GetModelLogits(),
	}, nil
}

func (e *HeatmapEstimator) Estimate(ctx context.Context, frame gocv.Mat, opts model.EstimateOptions) ([]model.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, xerrors.New("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(e.inputSize, e.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")

	output := e.net.Forward("")
	defer output.Close()

	// Expect [1, parts, rows, cols]
	dims := output.Size()
	if len(dims) != 4 {
		return nil, xerrors.Errorf("unexpected DNN output dims: %v", dims)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, xerrors.Errorf("reading DNN output: %w", err)
	}

	size := dims[1] * dims[2] * dims[3]
	if len(data) < size {
		return nil, xerrors.Errorf("DNN output has %d values, expected %d", len(data), size)
	}

	heatmaps := inference.Heatmaps{
		Data:   data[:size],
		Rows:   dims[2],
		Cols:   dims[3],
		Logits: e.logits,
	}
	keypoints, err := heatmaps.Decode(frame.Cols(), frame.Rows(), opts.FlipHorizontal)
	if err != nil {
		return nil, err
	}
	return inference.SinglePose(keypoints, opts), nil
}

func (e *HeatmapEstimator) Close() error {
	return e.net.Close()
}
