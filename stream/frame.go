package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/matt-g-everett/mdfplay/mdf"
)

// FrameKind tells a consumer how to apply a Frame.
type FrameKind uint8

const (
	// FrameApplied carries a keyframe's discrete fields, applied once.
	FrameApplied FrameKind = 1
	// FrameTick carries the active keyframe's continuous fields for one step.
	FrameTick FrameKind = 2
)

var errShortFrame = errors.New("frame truncated")

const vectorsPerState = 6

// Frame is one keyframe update sent to a consumer.
type Frame struct {
	Kind      FrameKind
	Session   string
	Index     uint32
	Timestamp float64
	States    []mdf.ObjectState
}

// NewFrame creates a Frame for keyframe index of a session.
func NewFrame(kind FrameKind, session string, index int, kf mdf.Keyframe) *Frame {
	f := new(Frame)
	f.Kind = kind
	f.Session = session
	f.Index = uint32(index)
	f.Timestamp = kf.Timestamp
	f.States = kf.States
	return f
}

// MarshalBinary converts a Frame into little-endian binary data.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	if len(f.Session) > math.MaxUint16 {
		return nil, fmt.Errorf("session id too long: %d bytes", len(f.Session))
	}
	if len(f.States) > math.MaxUint16 {
		return nil, fmt.Errorf("too many states: %d", len(f.States))
	}

	size := 1 + 4 + 8 + 2 + len(f.Session) + 2
	for _, s := range f.States {
		size += 2 + len(s.Name) + vectorsPerState*3*8
	}

	data = make([]byte, 0, size)
	data = append(data, byte(f.Kind))
	data = binary.LittleEndian.AppendUint32(data, f.Index)
	data = binary.LittleEndian.AppendUint64(data, math.Float64bits(f.Timestamp))
	data = appendString(data, f.Session)
	data = binary.LittleEndian.AppendUint16(data, uint16(len(f.States)))
	for _, s := range f.States {
		if len(s.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("object name too long: %d bytes", len(s.Name))
		}
		data = appendString(data, s.Name)
		for _, v := range vectors(&s) {
			for _, c := range v {
				data = binary.LittleEndian.AppendUint64(data, math.Float64bits(c))
			}
		}
	}

	return data, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (f *Frame) UnmarshalBinary(data []byte) error {
	r := reader{data: data}

	kind := r.readByte()
	index := r.readUint32()
	ts := math.Float64frombits(r.readUint64())
	session := r.readString()
	count := int(r.readUint16())
	if r.err != nil {
		return r.err
	}

	states := make([]mdf.ObjectState, 0, count)
	for i := 0; i < count; i++ {
		var s mdf.ObjectState
		s.Name = r.readString()
		for _, v := range vectors(&s) {
			for c := range v {
				v[c] = math.Float64frombits(r.readUint64())
			}
		}
		if r.err != nil {
			return fmt.Errorf("state %d: %w", i, r.err)
		}
		states = append(states, s)
	}

	if len(r.data) != 0 {
		return fmt.Errorf("%d trailing bytes", len(r.data))
	}

	f.Kind = FrameKind(kind)
	f.Index = index
	f.Timestamp = ts
	f.Session = session
	f.States = states
	return nil
}

func vectors(s *mdf.ObjectState) [vectorsPerState]*mgl64.Vec3 {
	return [vectorsPerState]*mgl64.Vec3{&s.Pos, &s.Vel, &s.Acc, &s.Rot, &s.Rvel, &s.Racc}
}

func appendString(data []byte, s string) []byte {
	data = binary.LittleEndian.AppendUint16(data, uint16(len(s)))
	return append(data, s...)
}

type reader struct {
	data []byte
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data) < n {
		r.err = errShortFrame
		return nil
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *reader) readByte() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) readUint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) readUint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) readUint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) readString() string {
	n := int(r.readUint16())
	return string(r.take(n))
}
