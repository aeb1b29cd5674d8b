package pose

import (
	"math"

	"github.com/khaledhikmat/fit-coach/model"
)

// Segment is a named pair of body parts whose distance measures a body proportion.
type Segment struct {
	Name string
	From string
	To   string
}

// Segments is the static segment table.
var Segments = []Segment{
	{Name: "left_upper_arm", From: LeftShoulder, To: LeftElbow},
	{Name: "right_upper_arm", From: RightShoulder, To: RightElbow},
	{Name: "left_forearm", From: LeftElbow, To: LeftWrist},
	{Name: "right_forearm", From: RightElbow, To: RightWrist},
	{Name: "left_thigh", From: LeftHip, To: LeftKnee},
	{Name: "right_thigh", From: RightHip, To: RightKnee},
	{Name: "left_shin", From: LeftKnee, To: LeftAnkle},
	{Name: "right_shin", From: RightKnee, To: RightAnkle},
	{Name: "left_torso", From: LeftShoulder, To: LeftHip},
	{Name: "right_torso", From: RightShoulder, To: RightHip},
	{Name: "shoulders", From: LeftShoulder, To: RightShoulder},
	{Name: "hips", From: LeftHip, To: RightHip},
}

// Joint names the angle at Vertex between the parts A and C.
type Joint struct {
	Name   string
	A      string
	Vertex string
	C      string
}

// Joints is the static joint table.
var Joints = []Joint{
	{Name: "left_elbow", A: LeftShoulder, Vertex: LeftElbow, C: LeftWrist},
	{Name: "right_elbow", A: RightShoulder, Vertex: RightElbow, C: RightWrist},
	{Name: "left_shoulder", A: LeftElbow, Vertex: LeftShoulder, C: LeftHip},
	{Name: "right_shoulder", A: RightElbow, Vertex: RightShoulder, C: RightHip},
	{Name: "left_hip", A: LeftShoulder, Vertex: LeftHip, C: LeftKnee},
	{Name: "right_hip", A: RightShoulder, Vertex: RightHip, C: RightKnee},
	{Name: "left_knee", A: LeftHip, Vertex: LeftKnee, C: LeftAnkle},
	{Name: "right_knee", A: RightHip, Vertex: RightKnee, C: RightAnkle},
}

// LookupSegment returns the segment with the given name.
func LookupSegment(name string) (Segment, bool) {
	for _, s := range Segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// Measure computes the segment vector within one frame. It reports false
// when either endpoint is missing from the frame.
func Measure(frame model.Frame, seg Segment) (model.SegmentLength, bool) {
	from, ok := frame.Find(seg.From)
	if !ok {
		return model.SegmentLength{}, false
	}
	to, ok := frame.Find(seg.To)
	if !ok {
		return model.SegmentLength{}, false
	}
	dx := to.Position.X - from.Position.X
	dy := to.Position.Y - from.Position.Y
	return model.SegmentLength{
		DX:     dx,
		DY:     dy,
		Length: math.Sqrt(dx*dx + dy*dy),
	}, true
}

// Lengths computes every segment of the table over frames ordered oldest
// first. For each segment the value from the newest frame holding both
// endpoints wins; segments never measured are absent from the result.
func Lengths(frames []model.Frame) model.Lengths {
	out := model.Lengths{}
	for _, frame := range frames {
		for _, seg := range Segments {
			if l, ok := Measure(frame, seg); ok {
				out[seg.Name] = l
			}
		}
	}
	return out
}

// FrameSetLengths is Lengths over a dataset, in frame id order.
func FrameSetLengths(fs model.FrameSet) model.Lengths {
	return Lengths(fs.Ordered())
}

// JointAngle returns the angle in degrees at part b formed by the parts a
// and c, in [0, 180]. It reports false when a part is missing or one of the
// arms has zero length.
func JointAngle(frame model.Frame, a, b, c string) (float64, bool) {
	ka, ok := frame.Find(a)
	if !ok {
		return 0, false
	}
	kb, ok := frame.Find(b)
	if !ok {
		return 0, false
	}
	kc, ok := frame.Find(c)
	if !ok {
		return 0, false
	}

	u := ka.Position.Sub(kb.Position)
	v := kc.Position.Sub(kb.Position)
	nu := math.Hypot(u.X, u.Y)
	nv := math.Hypot(v.X, v.Y)
	if nu == 0 || nv == 0 {
		return 0, false
	}

	cos := (u.X*v.X + u.Y*v.Y) / (nu * nv)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// JointAngles measures every joint of the table whose three parts score at
// least minScore. Joints that cannot be measured are absent.
func JointAngles(frame model.Frame, minScore float64) map[string]float64 {
	confident := make(model.Frame, 0, len(frame))
	for _, k := range frame {
		if k.Score >= minScore {
			confident = append(confident, k)
		}
	}

	out := map[string]float64{}
	for _, j := range Joints {
		if angle, ok := JointAngle(confident, j.A, j.Vertex, j.C); ok {
			out[j.Name] = angle
		}
	}
	return out
}
