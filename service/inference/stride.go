package inference

type strideService struct {
	stride int
}

// NewStride keeps one frame out of every stride frames. A stride of one or
// less keeps every frame.
func NewStride(stride int) IService {
	return &strideService{
		stride: stride,
	}
}

// CanSkipFrame takes the 1-based count of captured frames.
func (svc *strideService) CanSkipFrame(frames int) bool {
	if svc.stride <= 1 {
		return false
	}
	return frames%svc.stride != 1
}
