package simtime

import (
	"context"
	"sync"
)

// Queue is an asynchronous single-value FIFO (spec §4.A `queue<T>()`). Put
// never blocks and is O(1); Get suspends the calling activity until a
// value is available. A Queue is safe to Put from any activity's turn; Get
// must be called from the activity that owns the suspension (the one
// holding the current turn).
type Queue[T any] struct {
	sched *Scheduler

	mu      sync.Mutex
	buf     []T
	waiters []*waiter[T]
}

type waiter[T any] struct {
	art       *activityRT
	value     T
	delivered bool
}

// NewQueue constructs a Queue bound to sched, so that Get's suspension
// participates in the scheduler's event ordering.
func NewQueue[T any](sched *Scheduler) *Queue[T] {
	return &Queue[T]{sched: sched}
}

// Put appends data to the queue. If an activity is already blocked in Get,
// Put hands the value directly to the oldest waiter and schedules its
// resumption at the current virtual time, preserving "ready activities run
// in the order they became ready".
func (q *Queue[T]) Put(data T) {
	q.mu.Lock()
	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w.value = data
		w.delivered = true
		q.mu.Unlock()
		q.sched.scheduleActivity(q.sched.Now(), w.art)
		return
	}
	q.buf = append(q.buf, data)
	q.mu.Unlock()
}

// Get suspends until a value is available, then returns it. It returns
// ErrCancelled if ctx is cancelled before a value arrives.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	if len(q.buf) > 0 {
		v := q.buf[0]
		q.buf = q.buf[1:]
		q.mu.Unlock()
		return v, nil
	}
	art := artFromContext(ctx)
	w := &waiter[T]{art: art}
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	err := q.sched.suspend(ctx, art)
	if err != nil {
		q.mu.Lock()
		if !w.delivered {
			q.removeWaiterLocked(w)
			q.mu.Unlock()
			var zero T
			return zero, err
		}
		q.mu.Unlock()
		// A value was handed to this waiter in the same instant it was
		// cancelled; honor the delivery rather than drop the message.
		return w.value, nil
	}
	return w.value, nil
}

func (q *Queue[T]) removeWaiterLocked(w *waiter[T]) {
	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// Empty reports whether the queue currently holds no buffered values and
// has no pending Put to deliver. It does not reflect activities presently
// blocked in Get.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) == 0
}

// Len returns the number of buffered values not yet delivered to a waiter.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
