// Package simtime implements the deterministic discrete-event virtual-time
// runtime the rest of the simulator is built on (spec §4.A). It drives
// thousands of cooperating activities — per-node senders, per-connection
// transmit loops, per-connection latency relayers — against a virtual clock
// instead of wall time, so a whole run advances as fast as the host can pop
// events off a priority queue rather than as fast as real seconds pass.
//
// Go has no stackful coroutines, so each activity runs on its own goroutine,
// but only one activity goroutine executes application code at a time: the
// Scheduler hands out a single "turn" token, and an activity hands it back
// the moment it suspends (Sleep, Queue.Get) or returns. That keeps the
// whole system single-threaded in effect — deterministic given a seed —
// while letting Go's runtime do the bookkeeping a hand-rolled coroutine
// trampoline would otherwise need.
//
// Contract for activity functions: once Sleep or Queue.Get returns
// ErrCancelled, the activity MUST return promptly. The scheduler's turn/
// yield handshake relies on exactly one yield signal per turn grant; an
// activity that swallows cancellation and keeps running without ever
// suspending or returning will wedge the scheduler.
package simtime

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"
)

// Duration is virtual simulated time, measured in milliseconds to bound the
// size of the event heap and keep floating-point seconds (as used
// throughout the YAML config surface) from accumulating rounding error
// across millions of events.
type Duration int64

// FromSeconds rounds a floating point second count to the nearest
// millisecond.
func FromSeconds(sec float64) Duration {
	return Duration(int64(sec*1000 + 0.5))
}

// Seconds converts back to floating point seconds for reporting.
func (d Duration) Seconds() float64 {
	return float64(d) / 1000.0
}

// activityRT is the runtime handshake state for one spawned activity.
// turn carries a single "you may run now" token; yield carries the single
// "I have suspended or finished" acknowledgement back to the scheduler
// loop. Both are consumed exactly once per turn grant.
type activityRT struct {
	turn  chan struct{}
	yield chan struct{}
}

type ctxKey struct{}

func artFromContext(ctx context.Context) *activityRT {
	art, _ := ctx.Value(ctxKey{}).(*activityRT)
	if art == nil {
		panic("simtime: Sleep/Queue.Get called outside an activity spawned by this scheduler")
	}
	return art
}

type eventFunc func()

type event struct {
	at    Duration
	seq   uint64
	art   *activityRT // non-nil: deliver a turn to this activity and await its yield
	run   eventFunc   // non-nil when art is nil: a plain scheduler-local callback
	index int         // heap index, maintained by container/heap
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is the single-threaded cooperative discrete-event runtime.
// Use New to construct one.
type Scheduler struct {
	mu     sync.Mutex
	now    Duration
	seq    uint64
	events eventHeap
}

// New constructs an empty Scheduler at virtual time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the current virtual time. Monotone non-decreasing.
func (s *Scheduler) Now() Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// scheduleActivity queues a turn grant for art at virtual time at.
func (s *Scheduler) scheduleActivity(at Duration, art *activityRT) {
	s.mu.Lock()
	seq := s.nextSeq()
	heap.Push(&s.events, &event{at: at, seq: seq, art: art})
	s.mu.Unlock()
}

// scheduleFunc queues a plain callback — used for scheduler-local
// bookkeeping, like a Scope's deadline expiry, that doesn't belong to any
// one activity's turn.
func (s *Scheduler) scheduleFunc(at Duration, fn eventFunc) {
	s.mu.Lock()
	seq := s.nextSeq()
	heap.Push(&s.events, &event{at: at, seq: seq, run: fn})
	s.mu.Unlock()
}

// dispatch grants a turn to art and blocks until it yields (suspends again
// or finishes). turn has a one-slot buffer, so a cancelled activity that
// never consumes the turn (because it took the ctx.Done() branch in
// suspend) cannot wedge the scheduler loop: the stale token simply stays
// in the buffer and no goroutine is left blocked on it.
func (s *Scheduler) dispatch(art *activityRT) {
	art.turn <- struct{}{}
	<-art.yield
}

// suspend gives up the current turn and blocks until either art is granted
// a new turn (a future event fires) or ctx is cancelled.
func (s *Scheduler) suspend(ctx context.Context, art *activityRT) error {
	art.yield <- struct{}{}
	select {
	case <-art.turn:
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}

// Run drains the event heap until it is empty: every activity has finished,
// is cancelled and has returned, or (a bug) is blocked forever without a
// pending wakeup.
func (s *Scheduler) Run() {
	for {
		s.mu.Lock()
		if s.events.Len() == 0 {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.events).(*event)
		if e.at > s.now {
			s.now = e.at
		}
		s.mu.Unlock()

		if e.art != nil {
			s.dispatch(e.art)
		} else if e.run != nil {
			e.run()
		}
	}
}

// RunUntil drains events up to and including deadline and then returns
// without requiring the heap to be empty. Callers normally pair this with
// a Scope whose deadline cancels remaining activities, so the heap drains
// on its own; RunUntil additionally bails out to guarantee termination
// even if some activity never observes cancellation.
func (s *Scheduler) RunUntil(deadline Duration) {
	for {
		s.mu.Lock()
		if s.events.Len() == 0 {
			s.mu.Unlock()
			return
		}
		if s.events[0].at > deadline {
			s.now = deadline
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.events).(*event)
		if e.at > s.now {
			s.now = e.at
		}
		s.mu.Unlock()

		if e.art != nil {
			s.dispatch(e.art)
		} else if e.run != nil {
			e.run()
		}
	}
}

// Sleep suspends the calling activity until now()+d, or returns
// ErrCancelled if ctx is already done or becomes done while sleeping. It
// must be called from the goroutine of an activity spawned by this
// scheduler (Spawn/Scope.Spawn), since the suspension point is implemented
// as that goroutine parking on the activity's turn channel.
func (s *Scheduler) Sleep(ctx context.Context, d Duration) error {
	art := artFromContext(ctx)
	if ctx.Err() != nil {
		return ErrCancelled
	}
	if d < 0 {
		d = 0
	}
	wake := s.Now() + d
	s.scheduleActivity(wake, art)
	return s.suspend(ctx, art)
}

// Spawn registers fn as a cooperative activity, made ready at the current
// virtual time, and returns a Handle that can cancel it. fn receives a
// context.Context that is done once the activity (or an enclosing Scope)
// is cancelled; fn must observe cancellation at its next suspension point
// and return.
func (s *Scheduler) Spawn(parent context.Context, fn func(ctx context.Context)) *Handle {
	art := &activityRT{turn: make(chan struct{}, 1), yield: make(chan struct{})}
	ctx, cancel := context.WithCancel(parent)
	ctx = context.WithValue(ctx, ctxKey{}, art)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		<-art.turn
		fn(ctx)
		art.yield <- struct{}{}
		close(h.done)
	}()

	s.scheduleActivity(s.Now(), art)
	return h
}

// Handle is a cancellation/completion handle for a spawned activity.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel requests that the activity observe ErrCancelled at its next (or
// current) suspension and return. It does not block until the activity
// has actually exited; use Done for that.
func (h *Handle) Cancel() { h.cancel() }

// Done reports whether the activity has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Scope bounds a group of activities spawned via Scope.Spawn: when the
// scheduler's virtual clock reaches the configured deadline, every activity
// registered in the scope observes cancellation (spec §4.A
// `scope(deadline)`). The deadline is delivered as an ordinary scheduled
// event rather than a wall-clock timer, so it fires in correct virtual-time
// order relative to every other event in the run.
type Scope struct {
	sched    *Scheduler
	ctx      context.Context
	cancel   context.CancelFunc
	deadline Duration
}

// NewScope creates a Scope whose activities are all cancelled once virtual
// time reaches deadline (an absolute virtual timestamp, not a relative
// offset).
func (s *Scheduler) NewScope(parent context.Context, deadline Duration) *Scope {
	ctx, cancel := context.WithCancel(parent)
	sc := &Scope{sched: s, ctx: ctx, cancel: cancel, deadline: deadline}
	s.scheduleFunc(deadline, func() {
		sc.cancel()
	})
	return sc
}

// Spawn registers fn as an activity bound to this scope's lifetime.
func (sc *Scope) Spawn(fn func(ctx context.Context)) *Handle {
	return sc.sched.Spawn(sc.ctx, fn)
}

// Context returns the scope's cancellation context, done once the deadline
// passes or the scope is cancelled early.
func (sc *Scope) Context() context.Context { return sc.ctx }

// Cancel ends the scope immediately, independent of the deadline.
func (sc *Scope) Cancel() { sc.cancel() }

// Deadline returns the virtual time at which the scope expires.
func (sc *Scope) Deadline() Duration { return sc.deadline }

// String renders the scheduler's current virtual time for diagnostics.
func (s *Scheduler) String() string {
	return fmt.Sprintf("simtime.Scheduler{now=%s}", time.Duration(s.Now())*time.Millisecond)
}
