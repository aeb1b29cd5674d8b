package coach

import "github.com/khaledhikmat/fit-coach/model"

type ringEntry struct {
	seq   int
	frame model.Frame
}

// Ring is a fixed-capacity frame buffer that overwrites its oldest frame.
type Ring struct {
	entries []ringEntry
	next    int
	size    int
	seq     int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{entries: make([]ringEntry, capacity)}
}

// Push stores frame in the next slot, evicting the oldest frame when full.
func (r *Ring) Push(frame model.Frame) {
	r.entries[r.next] = ringEntry{seq: r.seq, frame: frame}
	r.seq++
	r.next = (r.next + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// Seed pushes frames in order.
func (r *Ring) Seed(frames []model.Frame) {
	for _, f := range frames {
		r.Push(f)
	}
}

func (r *Ring) Len() int {
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.entries)
}

func (r *Ring) oldest() int {
	if r.size < len(r.entries) {
		return 0
	}
	return r.next
}

// Frames returns the buffered frames, oldest first.
func (r *Ring) Frames() []model.Frame {
	out := make([]model.Frame, 0, r.size)
	start := r.oldest()
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)].frame)
	}
	return out
}

// sequences returns the insertion numbers of the buffered frames, oldest first.
func (r *Ring) sequences() []int {
	out := make([]int, 0, r.size)
	start := r.oldest()
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)].seq)
	}
	return out
}
