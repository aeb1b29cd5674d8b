package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fit-coach/model"
)

func kp(part string, x, y float64) model.Keypoint {
	return model.Keypoint{Part: part, Position: model.Position{X: x, Y: y}, Score: 0.9}
}

func TestPartIndex(t *testing.T) {
	assert.Equal(t, 0, PartIndex(Nose))
	assert.Equal(t, FaceParts, PartIndex(LeftShoulder))
	assert.Equal(t, 6, PartIndex(RightShoulder))
	assert.Equal(t, 16, PartIndex(RightAnkle))
	assert.Equal(t, -1, PartIndex("tail"))
	assert.Len(t, Parts, 17)
}

func TestSegmentsReferenceKnownParts(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Segments {
		assert.GreaterOrEqual(t, PartIndex(s.From), 0, s.Name)
		assert.GreaterOrEqual(t, PartIndex(s.To), 0, s.Name)
		assert.False(t, seen[s.Name], "duplicate segment %s", s.Name)
		seen[s.Name] = true
	}
}

func TestMeasure(t *testing.T) {
	frame := model.Frame{kp(RightShoulder, 10, 20), kp(RightElbow, 13, 24)}
	seg, ok := LookupSegment("right_upper_arm")
	require.True(t, ok)

	l, ok := Measure(frame, seg)
	require.True(t, ok)
	assert.Equal(t, 3.0, l.DX)
	assert.Equal(t, 4.0, l.DY)
	assert.Equal(t, 5.0, l.Length)

	reversed := Segment{Name: "reversed", From: RightElbow, To: RightShoulder}
	r, ok := Measure(frame, reversed)
	require.True(t, ok)
	assert.Equal(t, l.Length, r.Length)
	assert.Equal(t, -l.DX, r.DX)
	assert.Equal(t, -l.DY, r.DY)
}

func TestMeasureMissingEndpoint(t *testing.T) {
	seg, _ := LookupSegment("left_shin")
	_, ok := Measure(model.Frame{kp(LeftKnee, 0, 0)}, seg)
	assert.False(t, ok)
}

func TestLengths(t *testing.T) {
	tests := []struct {
		name     string
		frames   []model.Frame
		expected model.Lengths
	}{
		{
			name:     "no frames",
			frames:   nil,
			expected: model.Lengths{},
		},
		{
			name: "single frame only measures present segments",
			frames: []model.Frame{
				{kp(LeftShoulder, 0, 0), kp(RightShoulder, 6, 8)},
			},
			expected: model.Lengths{
				"shoulders": {DX: 6, DY: 8, Length: 10},
			},
		},
		{
			name: "newest frame wins",
			frames: []model.Frame{
				{kp(LeftShoulder, 0, 0), kp(RightShoulder, 6, 8)},
				{kp(LeftShoulder, 0, 0), kp(RightShoulder, 3, 4)},
			},
			expected: model.Lengths{
				"shoulders": {DX: 3, DY: 4, Length: 5},
			},
		},
		{
			name: "older frame kept when newest lacks an endpoint",
			frames: []model.Frame{
				{kp(LeftHip, 0, 0), kp(RightHip, 0, 2)},
				{kp(LeftHip, 0, 0)},
			},
			expected: model.Lengths{
				"hips": {DX: 0, DY: 2, Length: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Lengths(tt.frames))
		})
	}
}

func TestLengthsIsDeterministic(t *testing.T) {
	frames := []model.Frame{
		{kp(LeftShoulder, 1, 2), kp(LeftElbow, 4, 6), kp(LeftWrist, 4, 10)},
	}
	assert.Equal(t, Lengths(frames), Lengths(frames))
}

func TestFrameSetLengthsUsesFrameOrder(t *testing.T) {
	fs := model.FrameSet{
		"frame_10": {kp(LeftHip, 0, 0), kp(RightHip, 10, 0)},
		"frame_2":  {kp(LeftHip, 0, 0), kp(RightHip, 2, 0)},
	}
	l := FrameSetLengths(fs)
	assert.Equal(t, 10.0, l["hips"].Length)
}

func TestJointAngle(t *testing.T) {
	frame := model.Frame{
		kp(RightShoulder, 0, 0),
		kp(RightElbow, 10, 0),
		kp(RightWrist, 10, 10),
	}
	angle, ok := JointAngle(frame, RightShoulder, RightElbow, RightWrist)
	require.True(t, ok)
	assert.InDelta(t, 90.0, angle, 1e-9)

	straight := model.Frame{kp(LeftHip, 0, 0), kp(LeftKnee, 0, 5), kp(LeftAnkle, 0, 10)}
	angle, ok = JointAngle(straight, LeftHip, LeftKnee, LeftAnkle)
	require.True(t, ok)
	assert.InDelta(t, 180.0, angle, 1e-9)

	_, ok = JointAngle(frame, LeftShoulder, RightElbow, RightWrist)
	assert.False(t, ok)

	degenerate := model.Frame{kp(LeftHip, 1, 1), kp(LeftKnee, 1, 1), kp(LeftAnkle, 0, 10)}
	_, ok = JointAngle(degenerate, LeftHip, LeftKnee, LeftAnkle)
	assert.False(t, ok)
}

func TestJointAngles(t *testing.T) {
	frame := model.Frame{
		kp(RightShoulder, 0, 0),
		kp(RightElbow, 10, 0),
		kp(RightWrist, 10, 10),
		kp(RightHip, 0, 20),
		{Part: LeftShoulder, Position: model.Position{X: 40, Y: 0}, Score: 0.9},
		{Part: LeftElbow, Position: model.Position{X: 50, Y: 0}, Score: 0.9},
		{Part: LeftWrist, Position: model.Position{X: 60, Y: 0}, Score: 0.05},
	}

	angles := JointAngles(frame, 0.1)
	assert.InDelta(t, 90.0, angles["right_elbow"], 1e-9)
	assert.InDelta(t, 90.0, angles["right_shoulder"], 1e-9)
	assert.NotContains(t, angles, "left_elbow", "wrist below the part threshold")
	assert.NotContains(t, angles, "right_knee")

	angles = JointAngles(frame, 0)
	assert.InDelta(t, 180.0, angles["left_elbow"], 1e-9)
}

func TestSegmentAngle(t *testing.T) {
	l := model.SegmentLength{DX: 0, DY: 1, Length: 1}
	assert.InDelta(t, 90.0, l.Angle(), 1e-9)
	l = model.SegmentLength{DX: -1, DY: 0, Length: 1}
	assert.InDelta(t, 180.0, math.Abs(l.Angle()), 1e-9)
}
