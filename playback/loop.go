package playback

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Timer is a pending delayed continuation.
type Timer interface {
	// Stop prevents the continuation from running. It reports whether the
	// call stopped it.
	Stop() bool
}

// Host provides the delayed continuations a Scheduler waits on.
type Host interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// WallClock runs continuations on their own goroutines using the runtime
// timers. Tick must then be driven from elsewhere.
var WallClock Host = wallClock{}

type loopTimer struct {
	loop  *Loop
	due   time.Duration
	seq   uint64
	fn    func()
	index int
}

func (t *loopTimer) Stop() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&t.loop.queue, t.index)
	return true
}

type timerQueue []*loopTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x interface{}) {
	t := x.(*loopTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Loop is a single-threaded host loop with its own clock. Each Step advances
// the clock by a fixed amount, runs every continuation that fell due (each at
// its exact due time, in due order) and then runs the per-step hooks.
type Loop struct {
	step time.Duration

	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	queue timerQueue
	hooks []func()
}

// NewLoop creates a Loop that advances by step on every Step.
func NewLoop(step time.Duration) *Loop {
	if step <= 0 {
		panic("playback: loop step must be positive")
	}
	l := new(Loop)
	l.step = step
	return l
}

// AfterFunc queues fn to run d after the loop's current time.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d < 0 {
		d = 0
	}
	t := &loopTimer{loop: l, due: l.now + d, seq: l.seq, fn: fn}
	l.seq++
	heap.Push(&l.queue, t)
	return t
}

// OnStep registers fn to run once at the end of every Step.
func (l *Loop) OnStep(fn func()) {
	l.mu.Lock()
	l.hooks = append(l.hooks, fn)
	l.mu.Unlock()
}

// Now returns the time elapsed on the loop's clock. Inside a continuation it
// is that continuation's due time.
func (l *Loop) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// StepSize returns the fixed step.
func (l *Loop) StepSize() time.Duration {
	return l.step
}

// Step advances the clock by one step.
func (l *Loop) Step() {
	l.mu.Lock()
	target := l.now + l.step
	for len(l.queue) > 0 && l.queue[0].due <= target {
		t := heap.Pop(&l.queue).(*loopTimer)
		l.now = t.due
		l.mu.Unlock()
		t.fn()
		l.mu.Lock()
	}
	l.now = target
	hooks := make([]func(), len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// Pending returns the number of queued continuations.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run steps the loop in real time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		}
	}
}
