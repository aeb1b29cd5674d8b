package inference

import (
	"math"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// Heatmaps is the raw output of a single-person heatmap model laid out
// channel first: one rows x cols map per body part, in part index order.
type Heatmaps struct {
	Data []float32
	Rows int
	Cols int
	// Logits marks heatmaps that still need a sigmoid to become scores.
	Logits bool
}

// Decode picks the arg-max cell of every part channel and maps the cell
// center to frame coordinates. Channels beyond the known parts are ignored.
func (h Heatmaps) Decode(frameWidth, frameHeight int, flip bool) (model.Frame, error) {
	if h.Rows <= 0 || h.Cols <= 0 {
		return nil, xerrors.Errorf("invalid heatmap size %dx%d", h.Rows, h.Cols)
	}
	plane := h.Rows * h.Cols
	if len(h.Data) < plane || len(h.Data)%plane != 0 {
		return nil, xerrors.Errorf("heatmap data of %d values does not divide into %dx%d planes", len(h.Data), h.Rows, h.Cols)
	}

	channels := len(h.Data) / plane
	if channels > len(pose.Parts) {
		channels = len(pose.Parts)
	}

	out := make(model.Frame, 0, channels)
	for c := 0; c < channels; c++ {
		values := h.Data[c*plane : (c+1)*plane]
		best := 0
		for i, v := range values {
			if v > values[best] {
				best = i
			}
		}

		row, col := best/h.Cols, best%h.Cols
		x := (float64(col) + 0.5) / float64(h.Cols) * float64(frameWidth)
		y := (float64(row) + 0.5) / float64(h.Rows) * float64(frameHeight)
		if flip {
			x = float64(frameWidth) - x
		}

		score := float64(values[best])
		if h.Logits {
			score = 1 / (1 + math.Exp(-score))
		}

		out = append(out, model.Keypoint{
			Part:     pose.Parts[c],
			Position: model.Position{X: x, Y: y},
			Score:    score,
		})
	}
	return out, nil
}
