// Package mdf reads the line-oriented mdf animation format into a Timeline
// of keyframed object states.
package mdf

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ObjectState is the target state of one named object at a keyframe.
//
// Pos, Vel, Rot and Rvel are discrete fields, applied once when the keyframe
// becomes active. Acc and Racc are continuous fields, applied on every tick
// while the keyframe remains active.
type ObjectState struct {
	Name string
	Pos  mgl64.Vec3
	Vel  mgl64.Vec3
	Acc  mgl64.Vec3
	Rot  mgl64.Vec3
	Rvel mgl64.Vec3
	Racc mgl64.Vec3
}

// A Keyframe is a timestamped set of object states.
// States may repeat a name; consumers decide what that means.
type Keyframe struct {
	Timestamp float64
	States    []ObjectState
	Raw       string
	Line      int
}

// Delay returns how long playback waits after prev before applying k.
// Out of order or duplicate timestamps give a zero delay.
func (k Keyframe) Delay(prev Keyframe) time.Duration {
	delta := k.Timestamp - prev.Timestamp
	if delta <= 0 {
		return 0
	}
	if delta >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delta * float64(time.Second))
}
