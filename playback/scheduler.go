// Package playback walks a Timeline in time.
//
// Each keyframe is activated once, after waiting the clamped gap between its
// timestamp and the previous one. Activation hands the keyframe to the
// Applier's OnStateApplied. Between activations the host calls Tick once per
// simulation step, and the active keyframe is handed to OnContinuousTick so
// its continuous fields act for the whole dwell time.
//
// Every wake schedules only the next wake. Cancel bumps a generation counter
// that is checked right before each callback, so a wake that is already in
// flight applies nothing.
package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/matt-g-everett/mdfplay/mdf"
)

// ErrAlreadyStarted is returned by Start on a scheduler that has left Idle.
var ErrAlreadyStarted = errors.New("playback already started")

// State is the scheduler's position in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Phase names the callback an error came from.
type Phase string

const (
	PhaseApply Phase = "apply"
	PhaseTick  Phase = "tick"
)

// An Applier consumes keyframes. OnStateApplied receives each keyframe once,
// in index order. OnContinuousTick receives the active keyframe once per Tick.
type Applier interface {
	OnStateApplied(index int, kf mdf.Keyframe) error
	OnContinuousTick(index int, kf mdf.Keyframe) error
}

// ApplierFuncs adapts two functions to an Applier. Nil fields are skipped.
type ApplierFuncs struct {
	Applied func(index int, kf mdf.Keyframe) error
	Tick    func(index int, kf mdf.Keyframe) error
}

func (f ApplierFuncs) OnStateApplied(index int, kf mdf.Keyframe) error {
	if f.Applied == nil {
		return nil
	}
	return f.Applied(index, kf)
}

func (f ApplierFuncs) OnContinuousTick(index int, kf mdf.Keyframe) error {
	if f.Tick == nil {
		return nil
	}
	return f.Tick(index, kf)
}

// Options tune a Scheduler.
type Options struct {
	// ID names the session. A random one is used when unset.
	ID uuid.UUID
	// HoldLast keeps the final keyframe active, and ticking, until Cancel.
	HoldLast bool
	// OnError is called when an Applier callback fails. Scheduling carries
	// on regardless. The default logs the error.
	OnError func(index int, phase Phase, err error)
}

// Status is a point-in-time view of a Scheduler.
type Status struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Cursor    int    `json:"cursor"`
	Count     int    `json:"count"`
	Cancelled bool   `json:"cancelled"`
}

// Scheduler plays one Timeline. It is the handle returned by Start.
type Scheduler struct {
	id      uuid.UUID
	host    Host
	applier Applier
	opts    Options

	state     atomic.Int32
	cursor    atomic.Int64
	count     atomic.Int64
	gen       atomic.Uint64
	cancelled atomic.Bool

	// inCallback is set while a goroutine holding mu is inside, or about to
	// enter, an Applier callback.
	inCallback atomic.Bool

	// mu serialises activation and ticks, so a tick never sees a keyframe
	// that has been replaced or not yet applied.
	mu       sync.Mutex
	timeline *mdf.Timeline

	timerMu sync.Mutex
	timer   Timer

	done     chan struct{}
	doneOnce sync.Once
}

// NewScheduler creates an Idle scheduler.
func NewScheduler(host Host, applier Applier, opts Options) *Scheduler {
	s := new(Scheduler)
	s.id = opts.ID
	if s.id == uuid.Nil {
		s.id = uuid.New()
	}
	s.host = host
	s.applier = applier
	s.opts = opts
	s.cursor.Store(-1)
	s.done = make(chan struct{})

	if s.opts.OnError == nil {
		s.opts.OnError = func(index int, phase Phase, err error) {
			log.Printf("playback %s: keyframe %d %s failed: %v", s.id, index, phase, err)
		}
	}

	return s
}

// Start creates a scheduler and starts it on tl.
func Start(host Host, tl *mdf.Timeline, applier Applier, opts Options) *Scheduler {
	s := NewScheduler(host, applier, opts)
	// A fresh scheduler is always Idle.
	_ = s.Start(tl)
	return s
}

// Start applies keyframe 0 synchronously and schedules the rest. An empty
// timeline finishes immediately without any callbacks.
func (s *Scheduler) Start(tl *mdf.Timeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateIdle {
		return ErrAlreadyStarted
	}

	s.timeline = tl
	s.count.Store(int64(tl.Len()))
	if tl.IsEmpty() {
		s.finish()
		return nil
	}

	gen := s.gen.Load()
	if s.activate(gen, 0, StateIdle) {
		s.scheduleNext(gen, 1)
	}
	return nil
}

// activate applies keyframe i and moves the cursor to it. It reports false if
// playback was cancelled first. Callers hold mu.
func (s *Scheduler) activate(gen uint64, i int, from State) bool {
	kf := s.timeline.At(i)
	ok := s.invoke(gen, func() {
		if err := s.applier.OnStateApplied(i, kf); err != nil {
			s.opts.OnError(i, PhaseApply, err)
		}
	})
	if !ok {
		return false
	}

	s.cursor.Store(int64(i))
	return s.state.CompareAndSwap(int32(from), int32(StatePlaying))
}

// scheduleNext arranges for keyframe i to be activated. Callers hold mu.
func (s *Scheduler) scheduleNext(gen uint64, i int) {
	if i >= s.timeline.Len() {
		if !s.opts.HoldLast {
			s.finish()
		}
		return
	}

	delay := s.timeline.At(i).Delay(s.timeline.At(i - 1))
	t := s.host.AfterFunc(delay, func() { s.wake(gen, i) })

	s.timerMu.Lock()
	s.timer = t
	s.timerMu.Unlock()

	if s.gen.Load() != gen {
		t.Stop()
	}
}

func (s *Scheduler) wake(gen uint64, i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activate(gen, i, StatePlaying) {
		s.scheduleNext(gen, i+1)
	}
}

// Tick hands the active keyframe to OnContinuousTick. It does nothing unless
// the scheduler is Playing.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StatePlaying || s.cancelled.Load() {
		return
	}

	i := int(s.cursor.Load())
	s.invoke(s.gen.Load(), func() {
		if err := s.applier.OnContinuousTick(i, s.timeline.At(i)); err != nil {
			s.opts.OnError(i, PhaseTick, err)
		}
	})
}

// invoke runs fn unless playback has moved past gen. The flag is raised
// before the check, so a Cancel that skips mu either bumps gen in time for
// the check or finds fn already under way. Callers hold mu.
func (s *Scheduler) invoke(gen uint64, fn func()) bool {
	s.inCallback.Store(true)
	defer s.inCallback.Store(false)

	if s.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

// Cancel stops playback. No callback starts after Cancel returns; one that is
// already running is left to finish.
//
// Outside a callback Cancel waits for mu, so a wake or tick that has passed
// its checks completes before Cancel returns. While a callback is running,
// on this goroutine or another, Cancel does not wait for it.
func (s *Scheduler) Cancel() {
	if s.State() == StateFinished {
		return
	}
	if !s.inCallback.Load() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.State() == StateFinished {
			return
		}
	}
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.gen.Add(1)

	s.timerMu.Lock()
	t := s.timer
	s.timer = nil
	s.timerMu.Unlock()
	if t != nil {
		t.Stop()
	}

	s.finish()
}

func (s *Scheduler) finish() {
	s.state.Store(int32(StateFinished))
	s.doneOnce.Do(func() { close(s.done) })
}

// ID identifies this playback session.
func (s *Scheduler) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Cursor returns the index of the active keyframe, or -1 before the first
// activation.
func (s *Scheduler) Cursor() int {
	return int(s.cursor.Load())
}

// Done is closed once the scheduler is Finished.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Status reports the scheduler's state without blocking on callbacks.
func (s *Scheduler) Status() Status {
	return Status{
		ID:        s.id.String(),
		State:     s.State().String(),
		Cursor:    s.Cursor(),
		Count:     int(s.count.Load()),
		Cancelled: s.cancelled.Load(),
	}
}
