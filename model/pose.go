package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Position is a 2D point in frame pixel coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Position) Scale(s float64) Position {
	return Position{X: p.X * s, Y: p.Y * s}
}

// Keypoint is a named, scored position estimate for one body part.
type Keypoint struct {
	Part     string   `json:"part"`
	Position Position `json:"position"`
	Score    float64  `json:"score"`
}

// Frame is the ordered set of keypoints detected for one person in one image.
type Frame []Keypoint

// Find returns the keypoint of the given part.
func (f Frame) Find(part string) (Keypoint, bool) {
	for _, kp := range f {
		if kp.Part == part {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Clone returns a deep copy that shares nothing with f.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Pose is one detected person as returned by a pose source.
type Pose struct {
	Score     float64 `json:"score"`
	Keypoints Frame   `json:"keypoints"`
}

// EstimateOptions are passed to a pose source on every call.
type EstimateOptions struct {
	FlipHorizontal bool    `json:"flipHorizontal"`
	MaxDetections  int     `json:"maxDetections"`
	ScoreThreshold float64 `json:"scoreThreshold"`
	NMSRadius      float64 `json:"nmsRadius"`
}

// SegmentLength is the vector between the two endpoints of a segment in one frame.
// It is encoded as the triple [dx, dy, length].
type SegmentLength struct {
	DX     float64
	DY     float64
	Length float64
}

// Angle returns the direction of the segment in degrees, measured from the x axis.
func (s SegmentLength) Angle() float64 {
	return math.Atan2(s.DY, s.DX) * 180 / math.Pi
}

func (s SegmentLength) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{s.DX, s.DY, s.Length})
}

func (s *SegmentLength) UnmarshalJSON(data []byte) error {
	var triple []float64
	if err := json.Unmarshal(data, &triple); err != nil {
		return err
	}
	if len(triple) != 3 {
		return fmt.Errorf("segment length must be [dx, dy, length], got %d values", len(triple))
	}
	s.DX, s.DY, s.Length = triple[0], triple[1], triple[2]
	return nil
}

// Lengths maps a segment name to its measured length.
type Lengths map[string]SegmentLength

const framePrefix = "frame_"

// FrameID returns the dataset key of the n-th frame.
func FrameID(n int) string {
	return framePrefix + strconv.Itoa(n)
}

// FrameIndex parses a dataset key produced by FrameID.
func FrameIndex(id string) (int, error) {
	if !strings.HasPrefix(id, framePrefix) {
		return 0, fmt.Errorf("invalid frame id %q", id)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, framePrefix))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid frame id %q", id)
	}
	return n, nil
}

// FrameSet maps frame ids to frames, as stored in the pose datasets.
type FrameSet map[string]Frame

// Ordered returns the frames sorted by their numeric frame index.
// Keys that are not valid frame ids sort last, by name.
func (fs FrameSet) Ordered() []Frame {
	ids := fs.IDs()
	out := make([]Frame, 0, len(ids))
	for _, id := range ids {
		out = append(out, fs[id])
	}
	return out
}

// IDs returns the frame ids in frame index order.
func (fs FrameSet) IDs() []string {
	ids := make([]string, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := FrameIndex(ids[i])
		b, errB := FrameIndex(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// PoseRecord is one line of a recorded session pose log.
type PoseRecord struct {
	Session   string             `json:"session"`
	Cycle     int                `json:"cycle"`
	Mode      string             `json:"mode"`
	Score     float64            `json:"score"`
	Keypoints Frame              `json:"keypoints"`
	Angles    map[string]float64 `json:"angles,omitempty"` // degrees, by joint name
	Timestamp int64              `json:"timestamp"`
}
