package stream

import (
	"log"

	"github.com/matt-g-everett/mdfplay/mdf"
)

// LogApplier is a playback.Applier that only logs, for dry runs.
type LogApplier struct {
	logger *log.Logger
	ticks  int
}

// NewLogApplier creates a LogApplier. A nil logger uses the standard logger.
func NewLogApplier(logger *log.Logger) *LogApplier {
	a := new(LogApplier)
	if logger == nil {
		logger = log.Default()
	}
	a.logger = logger
	return a
}

func (a *LogApplier) OnStateApplied(index int, kf mdf.Keyframe) error {
	if index > 0 {
		a.logger.Printf("keyframe %d ticked %d times", index-1, a.ticks)
	}
	a.ticks = 0

	a.logger.Printf("keyframe %d at %.3fs: %d objects", index, kf.Timestamp, len(kf.States))
	for _, s := range kf.States {
		a.logger.Printf("  %s pos %v vel %v rot %v rvel %v | acc %v racc %v",
			s.Name, s.Pos, s.Vel, s.Rot, s.Rvel, s.Acc, s.Racc)
	}
	return nil
}

func (a *LogApplier) OnContinuousTick(index int, kf mdf.Keyframe) error {
	a.ticks++
	return nil
}

// Ticks returns the ticks seen since the last applied keyframe.
func (a *LogApplier) Ticks() int {
	return a.ticks
}
