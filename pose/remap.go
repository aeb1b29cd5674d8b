package pose

import (
	"fmt"
	"math"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fit-coach/model"
)

// RemapMode selects how the reference skeleton is fitted onto the user.
type RemapMode string

const (
	// RemapScale scales every reference point around the reference anchor and
	// moves the anchor onto the user's anchor.
	RemapScale RemapMode = "scale"
	// RemapTranslate only moves the reference anchor onto the user's anchor.
	RemapTranslate RemapMode = "translate"
)

// ParseRemapMode validates a remap mode name.
func ParseRemapMode(s string) (RemapMode, error) {
	switch RemapMode(s) {
	case RemapScale, RemapTranslate:
		return RemapMode(s), nil
	default:
		return "", fmt.Errorf("invalid remap mode %q: must be %q or %q", s, RemapScale, RemapTranslate)
	}
}

// Reasons a remap is skipped for a frame. None of them is fatal.
var (
	ErrReferenceAnchorMissing = xerrors.New("reference anchor keypoint missing")
	ErrUserAnchorMissing      = xerrors.New("user anchor keypoint missing")
	ErrUserSegmentMissing     = xerrors.New("user reference segment length missing")
	ErrReferenceSegment       = xerrors.New("reference segment length missing or zero")
	ErrInvalidScale           = xerrors.New("scale factor is not a positive finite number")
)

// Remapper fits a reference skeleton onto a user: one reference segment is
// scaled to the user's length and the reference anchor is placed on the
// user's anchor.
type Remapper struct {
	Segment string
	Anchor  string
	Mode    RemapMode
}

// Transform is the affine map p' = Scale*p + Shift applied to every
// reference keypoint.
type Transform struct {
	Scale float64
	Shift model.Position
}

// Apply maps one position.
func (t Transform) Apply(p model.Position) model.Position {
	return p.Scale(t.Scale).Add(t.Shift)
}

// NewRemapper validates its arguments and returns a remapper.
func NewRemapper(segment, anchor string, mode RemapMode) (*Remapper, error) {
	if _, ok := LookupSegment(segment); !ok {
		return nil, fmt.Errorf("unknown reference segment %q", segment)
	}
	if PartIndex(anchor) < 0 {
		return nil, fmt.Errorf("unknown anchor part %q", anchor)
	}
	if _, err := ParseRemapMode(string(mode)); err != nil {
		return nil, err
	}
	return &Remapper{Segment: segment, Anchor: anchor, Mode: mode}, nil
}

// ScaleFactor is userLength/referenceLength for the remapper's segment.
func (r *Remapper) ScaleFactor(user, reference model.Lengths) (float64, error) {
	ref, ok := reference[r.Segment]
	if !ok || ref.Length == 0 || math.IsNaN(ref.Length) || math.IsInf(ref.Length, 0) {
		return 0, ErrReferenceSegment
	}
	u, ok := user[r.Segment]
	if !ok {
		return 0, ErrUserSegmentMissing
	}
	scale := u.Length / ref.Length
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return 0, ErrInvalidScale
	}
	return scale, nil
}

// Transform derives the affine map for one cycle. In scale mode the
// scaled reference anchor is scale*anchor and the shift brings it onto
// userAnchor, so every point lands at userAnchor + scale*(p - anchor).
// In translate mode the scale is 1.
func (r *Remapper) Transform(reference model.Frame, user, referenceLengths model.Lengths, userAnchor model.Position) (Transform, error) {
	anchor, ok := reference.Find(r.Anchor)
	if !ok {
		return Transform{}, ErrReferenceAnchorMissing
	}
	scale, err := r.ScaleFactor(user, referenceLengths)
	if err != nil {
		return Transform{}, err
	}
	if r.Mode == RemapTranslate {
		scale = 1
	}
	scaledAnchor := anchor.Position.Scale(scale)
	return Transform{Scale: scale, Shift: userAnchor.Sub(scaledAnchor)}, nil
}

// Remap returns a new frame holding the reference keypoints fitted onto the
// user. The reference frame is never modified.
func (r *Remapper) Remap(reference model.Frame, user, referenceLengths model.Lengths, userAnchor model.Position) (model.Frame, error) {
	t, err := r.Transform(reference, user, referenceLengths, userAnchor)
	if err != nil {
		return nil, err
	}
	return ApplyTransform(reference, t), nil
}

// RemapFrom is Remap with the user anchor taken from the user's live frame.
func (r *Remapper) RemapFrom(reference, userFrame model.Frame, user, referenceLengths model.Lengths) (model.Frame, error) {
	kp, ok := userFrame.Find(r.Anchor)
	if !ok {
		return nil, ErrUserAnchorMissing
	}
	return r.Remap(reference, user, referenceLengths, kp.Position)
}

// ApplyTransform returns a transformed copy of frame.
func ApplyTransform(frame model.Frame, t Transform) model.Frame {
	out := frame.Clone()
	for i := range out {
		out[i].Position = t.Apply(out[i].Position)
	}
	return out
}
