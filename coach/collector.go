package coach

import (
	"maps"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// Mode is the collector state. Calibrating is initial, Tracking is terminal.
type Mode int

const (
	Calibrating Mode = iota
	Tracking
)

func (m Mode) String() string {
	switch m {
	case Calibrating:
		return "calibrating"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Observation describes what the collector did with one frame.
type Observation struct {
	Mode       Mode
	Qualifying int
	Admitted   bool
	Rejected   bool
	Completed  bool
	Tracked    bool
}

// Collector accumulates calibration frames until the buffer is full, then
// tracks live frames in a rolling buffer.
type Collector struct {
	cfg         Config
	mode        Mode
	calibration model.FrameSet
	admitted    int
	baseline    model.Lengths
	ring        *Ring
	live        model.Lengths
}

func NewCollector(cfg Config) *Collector {
	return &Collector{
		cfg:         cfg,
		mode:        Calibrating,
		calibration: make(model.FrameSet, cfg.CalibrationFrames),
		ring:        NewRing(cfg.TrackingFrames),
		baseline:    model.Lengths{},
		live:        model.Lengths{},
	}
}

// QualifyingParts counts keypoints scoring at least minScore whose part
// index is at least minIndex.
func QualifyingParts(frame model.Frame, minScore float64, minIndex int) int {
	n := 0
	for _, kp := range frame {
		if kp.Score >= minScore && pose.PartIndex(kp.Part) >= minIndex {
			n++
		}
	}
	return n
}

// Observe feeds one user frame to the collector.
func (c *Collector) Observe(frame model.Frame) Observation {
	if c.mode == Tracking {
		c.ring.Push(frame.Clone())
		c.live = pose.Lengths(c.ring.Frames())
		return Observation{Mode: Tracking, Tracked: true}
	}

	n := QualifyingParts(frame, c.cfg.CalibrationPartConfidence, c.cfg.CalibrationMinPartIndex)
	if !c.cfg.GateMode.Accept(n, c.cfg.CalibrationParts) {
		return Observation{Mode: Calibrating, Qualifying: n, Rejected: true}
	}

	c.calibration[model.FrameID(c.admitted%c.cfg.CalibrationFrames)] = frame.Clone()
	c.admitted++
	obs := Observation{Mode: Calibrating, Qualifying: n, Admitted: true}

	if c.admitted == c.cfg.CalibrationFrames {
		frames := c.calibration.Ordered()
		c.baseline = pose.Lengths(frames)
		c.ring.Seed(frames)
		c.live = pose.Lengths(c.ring.Frames())
		c.mode = Tracking
		obs.Mode = Tracking
		obs.Completed = true
	}
	return obs
}

func (c *Collector) Mode() Mode {
	return c.mode
}

// Admitted is the number of calibration frames accepted so far.
func (c *Collector) Admitted() int {
	return c.admitted
}

// CalibrationFrames returns a copy of the calibration buffer.
func (c *Collector) CalibrationFrames() model.FrameSet {
	return maps.Clone(c.calibration)
}

// Baseline returns the lengths fixed when calibration completed.
func (c *Collector) Baseline() model.Lengths {
	return maps.Clone(c.baseline)
}

// Live returns the lengths computed from the tracking buffer.
func (c *Collector) Live() model.Lengths {
	return maps.Clone(c.live)
}

// Ring exposes the tracking buffer.
func (c *Collector) Ring() *Ring {
	return c.ring
}

// ScaleLengths returns the user lengths used to size the trainer skeleton.
func (c *Collector) ScaleLengths() model.Lengths {
	if c.cfg.ScaleSource == ScaleBaseline {
		return c.baseline
	}
	return c.live
}
