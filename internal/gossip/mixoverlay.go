package gossip

import (
	"context"
	"sync"

	"github.com/nomix-labs/mixsim/internal/mixpipe"
	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/temporalmix"
)

// PayloadHandler processes a REAL payload recovered by a MixOverlay, once
// per node, the first time that payload is seen.
type PayloadHandler func(ctx context.Context, payload []byte) error

// MixOverlay is the NomMix extension of Overlay (spec §4.E "NomMix
// extension"): every outbound edge is wrapped in a GTR transmit pipeline,
// inbound NOISE frames are dropped before they ever reach the duplicate
// cache or the gossip fan-out, and REAL frames carry the fixed payload
// size invariant the whole mix link depends on.
type MixOverlay struct {
	scope     *simtime.Scope
	sched     *simtime.Scheduler
	degree    int
	ratePerSec float64
	size      int
	mixCfg    temporalmix.Config
	skipNoise bool
	handler   PayloadHandler

	mu    sync.Mutex
	conns []*simnet.DuplexConnection[mixpipe.Frame]
	cache map[ID]int
}

// MixOverlayConfig bundles a MixOverlay's fixed parameters.
type MixOverlayConfig struct {
	PeeringDegree    int
	TransmissionRate float64 // R, frames/sec
	PayloadSize      int     // S, Sphinx packet size in bytes
	TemporalMix      temporalmix.Config
	SkipSendingNoise bool
}

// NewMixOverlay constructs a NomMix overlay bound to scope.
func NewMixOverlay(scope *simtime.Scope, sched *simtime.Scheduler, cfg MixOverlayConfig, handler PayloadHandler) *MixOverlay {
	return &MixOverlay{
		scope:      scope,
		sched:      sched,
		degree:     cfg.PeeringDegree,
		ratePerSec: cfg.TransmissionRate,
		size:       cfg.PayloadSize,
		mixCfg:     cfg.TemporalMix,
		skipNoise:  cfg.SkipSendingNoise,
		handler:    handler,
		cache:      make(map[ID]int),
	}
}

// CanAcceptConn reports whether the overlay has room for another peer.
func (o *MixOverlay) CanAcceptConn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns) < o.degree
}

// AddConn wraps outbound in a GTR transmit pipeline and registers the
// resulting duplex connection, spawning its inbound processing activity.
func (o *MixOverlay) AddConn(inbound, outbound simnet.SimplexConnection[mixpipe.Frame]) error {
	o.mu.Lock()
	if len(o.conns) >= o.degree {
		o.mu.Unlock()
		return ErrPeeringDegreeReached
	}
	o.mu.Unlock()

	pipeline := mixpipe.New(o.scope, o.sched, outbound, o.ratePerSec, o.size, o.mixCfg, o.skipNoise)
	conn := simnet.NewDuplex[mixpipe.Frame](inbound, pipeline)

	o.mu.Lock()
	o.conns = append(o.conns, conn)
	o.mu.Unlock()

	o.scope.Spawn(func(ctx context.Context) {
		o.processInboundConn(ctx, conn)
	})
	return nil
}

func (o *MixOverlay) processInboundConn(ctx context.Context, conn *simnet.DuplexConnection[mixpipe.Frame]) {
	for {
		frame, err := conn.Recv(ctx)
		if err != nil {
			return
		}
		if frame.Flag == mixpipe.Noise {
			// Noise is edge-local filler: never cached, never re-gossiped.
			continue
		}
		if len(frame.Payload) != o.size {
			continue
		}
		o.handleInbound(ctx, frame, conn)
	}
}

func (o *MixOverlay) handleInbound(ctx context.Context, frame mixpipe.Frame, from *simnet.DuplexConnection[mixpipe.Frame]) {
	id := HashID(frame.Payload)

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

	_ = o.gossip(ctx, frame, from)
	_ = o.handler(ctx, frame.Payload)
}

// Publish originates a REAL payload on this overlay (spec §4.F
// send_message: "build a fixed-size Sphinx packet; publish on NomMix
// overlay"). Like Overlay.Publish, the cache is seeded at count 0 so a
// later peer echo doesn't trigger a second gossip round but still counts
// toward eviction.
func (o *MixOverlay) Publish(ctx context.Context, payload []byte) error {
	if len(payload) != o.size {
		return ErrSizeMismatch
	}
	frame := mixpipe.Frame{Flag: mixpipe.Real, Payload: payload}
	id := HashID(payload)

	o.mu.Lock()
	if _, seen := o.cache[id]; seen {
		o.mu.Unlock()
		return nil
	}
	o.cache[id] = 0
	o.mu.Unlock()

	if err := o.gossip(ctx, frame, nil); err != nil {
		return err
	}
	return o.handler(ctx, payload)
}

func (o *MixOverlay) gossip(ctx context.Context, frame mixpipe.Frame, exclude *simnet.DuplexConnection[mixpipe.Frame]) error {
	o.mu.Lock()
	conns := make([]*simnet.DuplexConnection[mixpipe.Frame], len(o.conns))
	copy(conns, o.conns)
	o.mu.Unlock()

	for _, c := range conns {
		if c == exclude {
			continue
		}
		if err := c.Send(ctx, frame); err != nil {
			return err
		}
	}
	return nil
}

// CacheLen reports the duplicate cache's current entry count.
func (o *MixOverlay) CacheLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cache)
}

// ConnCount reports the number of peer connections currently registered.
func (o *MixOverlay) ConnCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns)
}
