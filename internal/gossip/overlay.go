// Package gossip implements the duplicate-suppressing broadcast overlay
// (spec §4.E) and its NomMix extension: a set of duplex peer connections
// up to a configured peering degree, a duplicate cache that prevents a
// message from being re-gossiped by the node that already sent or
// received it, and (for NomMix) a GTR transmit pipeline on every outbound
// edge plus a REAL/NOISE flag the mix layer consumes internally.
package gossip

import (
	"context"
	"sync"

	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
)

// Message is anything an Overlay can broadcast: a stable identity for
// deduplication and a byte length the overlay can check against its
// configured fixed size.
type Message interface {
	ID() ID
	Len() int
}

// Handler processes a message once per node: once when this node
// publishes or first receives it.
type Handler[T Message] func(ctx context.Context, msg T) error

// Overlay is the plain broadcast/gossip layer (spec §4.E, base operations):
// no transmission-rate shaping, no REAL/NOISE flag — every connected peer
// eventually sees every message exactly once via this node, and the
// duplicate cache bounds memory to in-flight unique messages.
type Overlay[T Message] struct {
	scope   *simtime.Scope
	degree  int
	handler Handler[T]
	msgSize int // 0 disables the fixed-size check

	mu    sync.Mutex
	conns []*simnet.DuplexConnection[T]
	cache map[ID]int
}

// New constructs an overlay bound to scope, accepting up to degree peer
// connections. msgSize, if non-zero, is enforced on every published and
// inbound REAL message (the broadcast layer typically leaves this at 0,
// since messages there don't share one fixed size).
func New[T Message](scope *simtime.Scope, degree int, msgSize int, handler Handler[T]) *Overlay[T] {
	return &Overlay[T]{
		scope:   scope,
		degree:  degree,
		handler: handler,
		msgSize: msgSize,
		cache:   make(map[ID]int),
	}
}

// CanAcceptConn reports whether the overlay has room for another peer
// (spec §4.E state machine: ACCEPTING while |conns| < d).
func (o *Overlay[T]) CanAcceptConn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns) < o.degree
}

// AddConn registers a duplex peer connection and spawns its inbound
// processing activity. It fails with ErrPeeringDegreeReached once the
// overlay already holds degree connections.
func (o *Overlay[T]) AddConn(inbound, outbound simnet.SimplexConnection[T]) error {
	o.mu.Lock()
	if len(o.conns) >= o.degree {
		o.mu.Unlock()
		return ErrPeeringDegreeReached
	}
	conn := simnet.NewDuplex(inbound, outbound)
	o.conns = append(o.conns, conn)
	o.mu.Unlock()

	o.scope.Spawn(func(ctx context.Context) {
		o.processInboundConn(ctx, conn)
	})
	return nil
}

func (o *Overlay[T]) processInboundConn(ctx context.Context, conn *simnet.DuplexConnection[T]) {
	for {
		msg, err := conn.Recv(ctx)
		if err != nil {
			return
		}
		if o.msgSize != 0 && msg.Len() != o.msgSize {
			continue
		}
		o.handleInbound(ctx, msg, conn)
	}
}

// handleInbound applies the duplicate-cache update rule for an arrival:
// a first sighting is cached at count 1 and forwarded; a repeat increments
// the count and is evicted once it reaches the peering degree (spec §4.E,
// §9 "dict keyed by id with count, evicted at d" — the authoritative
// policy over the set-that's-never-evicted alternative).
func (o *Overlay[T]) handleInbound(ctx context.Context, msg T, from *simnet.DuplexConnection[T]) {
	id := msg.ID()

	o.mu.Lock()
	count, seen := o.cache[id]
	if seen {
		count++
		if count >= o.degree {
			delete(o.cache, id)
		} else {
			o.cache[id] = count
		}
		o.mu.Unlock()
		return
	}
	o.cache[id] = 1
	o.mu.Unlock()

	o.processInboundMsg(ctx, msg, from)
}

// processInboundMsg re-gossips a freshly-seen message to every peer except
// the one it arrived from, then invokes the local handler.
func (o *Overlay[T]) processInboundMsg(ctx context.Context, msg T, from *simnet.DuplexConnection[T]) {
	_ = o.gossip(ctx, msg, from)
	_ = o.handler(ctx, msg)
}

// Publish originates msg at this node: the duplicate cache is seeded at
// count 0 (not 1) so that later arrivals of the same message from peers
// still count toward eviction after exactly d peer arrivals, without
// triggering a second round of gossip (spec §4.E "why the self-publish
// count=0 rule").
func (o *Overlay[T]) Publish(ctx context.Context, msg T) error {
	if o.msgSize != 0 && msg.Len() != o.msgSize {
		return ErrSizeMismatch
	}

	id := msg.ID()
	o.mu.Lock()
	if _, seen := o.cache[id]; seen {
		o.mu.Unlock()
		return nil
	}
	o.cache[id] = 0
	o.mu.Unlock()

	if err := o.gossip(ctx, msg, nil); err != nil {
		return err
	}
	return o.handler(ctx, msg)
}

// gossip sends msg to every connected peer except exclude (nil excludes
// none).
func (o *Overlay[T]) gossip(ctx context.Context, msg T, exclude *simnet.DuplexConnection[T]) error {
	o.mu.Lock()
	conns := make([]*simnet.DuplexConnection[T], len(o.conns))
	copy(conns, o.conns)
	o.mu.Unlock()

	for _, c := range conns {
		if c == exclude {
			continue
		}
		if err := c.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// CacheLen reports the duplicate cache's current entry count, which is
// bounded by the number of unique in-flight messages in the system (spec
// §8 property 3).
func (o *Overlay[T]) CacheLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cache)
}

// ConnCount reports the number of peer connections currently registered.
func (o *Overlay[T]) ConnCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns)
}
