// Package inference holds the pose sources that do not need OpenCV and
// the frame skipping policy shared by the framers.
package inference

// IService decides which captured frames never reach the pose source.
type IService interface {
	CanSkipFrame(frames int) bool
}
