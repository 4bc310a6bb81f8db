// Package mixpipe implements the per-edge GTR (Global Transmission Rate)
// transmit pipeline (spec §4.D): a constant-rate emitter fed by a
// temporal-mix queue that turns bursty, variable-sized gossip traffic into
// an indistinguishable fixed-rate, fixed-size stream.
package mixpipe

import (
	"context"
	"errors"

	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/temporalmix"
)

// ErrSizeMismatch is returned by Publish when the payload isn't exactly
// the pipeline's configured size S.
var ErrSizeMismatch = errors.New("mixpipe: payload size mismatch")

// Flag tags a Frame as carrying a real gossip payload or indistinguishable
// filler.
type Flag byte

const (
	Real  Flag = 0x00
	Noise Flag = 0x01
)

// Frame is the fixed-size wire unit on a mix link: one flag byte followed
// by exactly S payload bytes (spec §6). Len reports the full 1+S size so
// MeteredConnection can account bandwidth without knowing what a Frame
// means.
type Frame struct {
	Flag    Flag
	Payload []byte
}

// Len implements simnet.Sized.
func (f Frame) Len() int { return 1 + len(f.Payload) }

// noiseFrame builds the sentinel NOISE frame for a pipeline of the given
// payload size: flag=NOISE, S zero bytes.
func noiseFrame(size int) Frame {
	return Frame{Flag: Noise, Payload: make([]byte, size)}
}

// Pipeline owns a temporal-mix queue and an outbound connection, draining
// the queue at the configured rate and forwarding whatever it yields
// (spec §4.D). It also satisfies simnet.SimplexConnection[Frame] so a
// gossip overlay can treat a pipeline exactly like any other outbound
// connection: Send enqueues (via the mix queue) rather than transmitting
// directly, and Recv passes through to the wrapped connection for
// symmetry even though pipelines are normally only used outbound.
type Pipeline struct {
	sched     *simtime.Scheduler
	queue     temporalmix.Queue[Frame]
	conn      simnet.SimplexConnection[Frame]
	interval  simtime.Duration
	size      int
	skipNoise bool
}

// New constructs a Pipeline and spawns its emitter activity in scope.
// ratePerSec is R (frames/sec); size is S (payload bytes, excluding the
// flag byte); mixCfg selects the temporal-mix discipline feeding the
// emitter. skipNoise implements the `skip_sending_noise` optimization
// (spec §9): when set, NOISE frames are never actually transmitted, which
// breaks the GTR invariant and so must never be enabled for runs that
// exercise it.
func New(scope *simtime.Scope, sched *simtime.Scheduler, conn simnet.SimplexConnection[Frame], ratePerSec float64, size int, mixCfg temporalmix.Config, skipNoise bool) *Pipeline {
	p := &Pipeline{
		sched:     sched,
		queue:     temporalmix.New[Frame](mixCfg, noiseFrame(size)),
		conn:      conn,
		interval:  simtime.FromSeconds(1.0 / ratePerSec),
		size:      size,
		skipNoise: skipNoise,
	}
	scope.Spawn(p.run)
	return p
}

func (p *Pipeline) run(ctx context.Context) {
	for {
		if err := p.sched.Sleep(ctx, p.interval); err != nil {
			return
		}
		frame := p.queue.Get()
		if p.skipNoise && frame.Flag == Noise {
			continue
		}
		if err := p.conn.Send(ctx, frame); err != nil {
			return
		}
	}
}

// Publish enqueues frame for eventual transmission at the next tick,
// after checking the fixed-size invariant (spec §4.D: "assert |m| =
// 1+S, then Q.put(m)"). Publish never blocks: the temporal-mix queue's
// Put is O(1) and never drops.
func (p *Pipeline) Publish(frame Frame) error {
	if len(frame.Payload) != p.size {
		return ErrSizeMismatch
	}
	p.queue.Put(frame)
	return nil
}

// Send implements simnet.SimplexConnection[Frame] in terms of Publish, so
// a Pipeline can be handed anywhere an outbound connection is expected.
func (p *Pipeline) Send(_ context.Context, frame Frame) error {
	return p.Publish(frame)
}

// Recv passes through to the wrapped connection.
func (p *Pipeline) Recv(ctx context.Context) (Frame, error) {
	return p.conn.Recv(ctx)
}

// Size returns the pipeline's configured payload size S.
func (p *Pipeline) Size() int { return p.size }
