// Package simnet implements the unidirectional and duplex connection types
// messages travel over inside the simulator (spec §4.B): a zero-latency
// local link for same-process wiring, and a constant-latency remote link
// whose single relayer activity guarantees per-direction FIFO delivery
// regardless of how the constant latency was drawn.
package simnet

import (
	"context"
	"math/rand"

	"github.com/nomix-labs/mixsim/internal/simtime"
)

// SimplexConnection is a unidirectional typed channel. Implementations must
// make Send non-blocking with respect to the caller's own progress (it may
// still suspend the *relayer* activity internally) and Recv suspend the
// caller until data is available or ctx is cancelled.
type SimplexConnection[T any] interface {
	Send(ctx context.Context, data T) error
	Recv(ctx context.Context) (T, error)
}

// LocalSimplexConnection is a zero-latency simplex connection: data sent
// can be received immediately (at the same virtual instant, respecting the
// scheduler's ordering rules).
type LocalSimplexConnection[T any] struct {
	q *simtime.Queue[T]
}

// NewLocal constructs a zero-latency simplex connection.
func NewLocal[T any](sched *simtime.Scheduler) *LocalSimplexConnection[T] {
	return &LocalSimplexConnection[T]{q: simtime.NewQueue[T](sched)}
}

func (c *LocalSimplexConnection[T]) Send(_ context.Context, data T) error {
	c.q.Put(data)
	return nil
}

func (c *LocalSimplexConnection[T]) Recv(ctx context.Context) (T, error) {
	return c.q.Get(ctx)
}

// Empty reports whether the connection currently holds no buffered,
// undelivered values.
func (c *LocalSimplexConnection[T]) Empty() bool {
	return c.q.Empty()
}

type sentItem[T any] struct {
	sentAt simtime.Duration
	data   T
}

// RemoteSimplexConnection models a link with a constant latency drawn once
// at construction from U(minLatency, maxLatency). A single relayer activity
// re-emits each sent item after the latency has elapsed (or immediately, if
// it already has), which is what guarantees FIFO delivery even though the
// latency is randomly chosen: one producer, one consumer, one relayer.
type RemoteSimplexConnection[T any] struct {
	sched   *simtime.Scheduler
	sendQ   *simtime.Queue[sentItem[T]]
	recvQ   *simtime.Queue[T]
	latency simtime.Duration
}

// NewRemote constructs a remote simplex connection and spawns its relayer
// activity in scope. rng supplies the one latency draw for this connection
// — callers share a single *rand.Rand per LatencyConfig the way the
// original simulator's `LatencyConfig.random_latency()` does, so the
// overall run stays reproducible from one seed.
func NewRemote[T any](scope *simtime.Scope, sched *simtime.Scheduler, rng *rand.Rand, minLatency, maxLatency simtime.Duration) *RemoteSimplexConnection[T] {
	c := &RemoteSimplexConnection[T]{
		sched:   sched,
		sendQ:   simtime.NewQueue[sentItem[T]](sched),
		recvQ:   simtime.NewQueue[T](sched),
		latency: drawLatency(rng, minLatency, maxLatency),
	}
	scope.Spawn(c.run)
	return c
}

// Latency returns the constant latency drawn for this connection.
func (c *RemoteSimplexConnection[T]) Latency() simtime.Duration { return c.latency }

func (c *RemoteSimplexConnection[T]) run(ctx context.Context) {
	for {
		item, err := c.sendQ.Get(ctx)
		if err != nil {
			return
		}
		elapsed := c.sched.Now() - item.sentAt
		if wait := c.latency - elapsed; wait > 0 {
			if err := c.sched.Sleep(ctx, wait); err != nil {
				return
			}
		}
		c.recvQ.Put(item.data)
	}
}

func (c *RemoteSimplexConnection[T]) Send(_ context.Context, data T) error {
	c.sendQ.Put(sentItem[T]{sentAt: c.sched.Now(), data: data})
	return nil
}

func (c *RemoteSimplexConnection[T]) Recv(ctx context.Context) (T, error) {
	return c.recvQ.Get(ctx)
}

func drawLatency(rng *rand.Rand, min, max simtime.Duration) simtime.Duration {
	if min >= max {
		return min
	}
	span := max.Seconds() - min.Seconds()
	return simtime.FromSeconds(min.Seconds() + rng.Float64()*span)
}

// DuplexConnection pairs an inbound and outbound SimplexConnection to mimic
// bidirectional communication (spec §3: "a duplex pair is two simplex
// connections").
type DuplexConnection[T any] struct {
	Inbound  SimplexConnection[T]
	Outbound SimplexConnection[T]
}

// NewDuplex pairs the two simplex connections.
func NewDuplex[T any](inbound, outbound SimplexConnection[T]) *DuplexConnection[T] {
	return &DuplexConnection[T]{Inbound: inbound, Outbound: outbound}
}

func (d *DuplexConnection[T]) Recv(ctx context.Context) (T, error) {
	return d.Inbound.Recv(ctx)
}

func (d *DuplexConnection[T]) Send(ctx context.Context, data T) error {
	return d.Outbound.Send(ctx, data)
}
