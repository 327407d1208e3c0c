package mdf

import "fmt"

// Timeline is the ordered, read-only sequence of keyframes produced by Parse.
type Timeline struct {
	keyframes []Keyframe
}

// NewTimeline builds a Timeline from keyframes in playback order.
// The slice is copied.
func NewTimeline(keyframes []Keyframe) *Timeline {
	t := new(Timeline)
	t.keyframes = make([]Keyframe, len(keyframes))
	copy(t.keyframes, keyframes)
	return t
}

// Len returns the number of keyframes.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keyframes)
}

// IsEmpty reports whether the timeline has no keyframes.
func (t *Timeline) IsEmpty() bool {
	return t.Len() == 0
}

// At returns keyframe i. It panics if i is outside [0, Len()).
func (t *Timeline) At(i int) Keyframe {
	if i < 0 || i >= t.Len() {
		panic(fmt.Sprintf("mdf: keyframe index %d out of range [0, %d)", i, t.Len()))
	}
	return t.keyframes[i]
}

// Duration is the span between the first and last timestamps.
func (t *Timeline) Duration() float64 {
	if t.Len() < 2 {
		return 0
	}
	d := t.keyframes[len(t.keyframes)-1].Timestamp - t.keyframes[0].Timestamp
	if d < 0 {
		return 0
	}
	return d
}
