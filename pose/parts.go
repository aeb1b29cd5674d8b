// Package pose holds the body geometry used by the coach: the part
// enumeration, the segment table, segment length calculation and the
// skeleton remapper.
package pose

// Body part names in the order the pose estimator reports them.
const (
	Nose          = "nose"
	LeftEye       = "leftEye"
	RightEye      = "rightEye"
	LeftEar       = "leftEar"
	RightEar      = "rightEar"
	LeftShoulder  = "leftShoulder"
	RightShoulder = "rightShoulder"
	LeftElbow     = "leftElbow"
	RightElbow    = "rightElbow"
	LeftWrist     = "leftWrist"
	RightWrist    = "rightWrist"
	LeftHip       = "leftHip"
	RightHip      = "rightHip"
	LeftKnee      = "leftKnee"
	RightKnee     = "rightKnee"
	LeftAnkle     = "leftAnkle"
	RightAnkle    = "rightAnkle"
)

// Parts lists every known part. A part's index is its position here.
var Parts = []string{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// FaceParts is the number of leading face-area parts in Parts.
const FaceParts = 5

var partIndex = func() map[string]int {
	m := make(map[string]int, len(Parts))
	for i, p := range Parts {
		m[p] = i
	}
	return m
}()

// PartIndex returns the index of a part, or -1 when the part is unknown.
func PartIndex(part string) int {
	if i, ok := partIndex[part]; ok {
		return i
	}
	return -1
}

// Adjacent lists the part pairs joined by a line when drawing a skeleton.
var Adjacent = [][2]string{
	{LeftHip, LeftShoulder},
	{LeftElbow, LeftShoulder},
	{LeftElbow, LeftWrist},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightShoulder},
	{RightElbow, RightShoulder},
	{RightElbow, RightWrist},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
	{LeftShoulder, RightShoulder},
	{LeftHip, RightHip},
}
