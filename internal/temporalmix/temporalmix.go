// Package temporalmix implements the queue disciplines a GTR transmit
// pipeline pulls from at every tick (spec §4.B/§6 "temporal mix"). Every
// discipline here is synchronous: Put is an O(1) append and Get always
// returns a value immediately (a real message, or a noise message padded
// in when the pool is too thin or the coin flip says so) — none of them
// ever suspend the caller, which is why the type doesn't take a
// context.Context anywhere.
package temporalmix

import (
	"fmt"
	"math/rand"
)

// Type names one of the mixing strategies a GTR pipeline can use to decide
// what to transmit on its next tick.
type Type string

const (
	// None performs no mixing: real messages are sent FIFO, and a noise
	// message is substituted only when the outbound queue is empty.
	None Type = "none"
	// PureCoinFlipping pads the pool to MinQueueSize with noise, then
	// repeatedly coin-flips each position until one flips heads, and
	// releases that position without refilling the hole.
	PureCoinFlipping Type = "pure-coin-flipping"
	// PureRandomSampling pads the pool to MinQueueSize with noise, then
	// releases one uniformly-random position.
	PureRandomSampling Type = "pure-random-sampling"
	// PermutedCoinFlipping is PureCoinFlipping over a freshly shuffled pool.
	PermutedCoinFlipping Type = "permuted-coin-flipping"
	// NoisyCoinFlipping never pads the pool: it flips one coin for the
	// head of the queue and either releases it (heads) or releases noise
	// (tails), so an empty pool and a losing flip look identical from the
	// outside.
	NoisyCoinFlipping Type = "noisy-coin-flipping"
	// NoisyCoinFlippingRandomRelease generalizes NoisyCoinFlipping: every
	// position in the pool is flipped in one pass, and if one or more
	// flipped heads, a uniformly-random one among them is released;
	// otherwise noise is released. With a single message in the pool it
	// behaves like NoisyCoinFlipping; an empty pool always yields noise.
	NoisyCoinFlippingRandomRelease Type = "noisy-coin-flipping-random-release"
)

// Config selects a discipline and its parameters (spec §6 `mix:`).
type Config struct {
	Type Type
	// MinQueueSize is the minimum pool size the *-coin-flipping and
	// random-sampling disciplines pad up to with noise before releasing
	// (values below 1 are treated as 1); ignored by None and the
	// noisy-coin-flipping variants.
	MinQueueSize int
	// SeedGenerator fans out a distinct RNG seed to each Queue built from
	// this Config, so sibling queues (e.g. one per connection) don't share
	// a stream yet the whole run stays reproducible from one root seed.
	SeedGenerator *rand.Rand
}

// Queue is a temporal-mix pool: Put enqueues a real message, Get releases
// the next thing to transmit (real or noise) according to the configured
// discipline.
type Queue[T any] interface {
	Put(data T)
	Get() T
	Empty() bool
}

// New builds the Queue implementation selected by cfg.Type. noise is the
// sentinel value released in place of a real message.
func New[T any](cfg Config, noise T) Queue[T] {
	switch cfg.Type {
	case None, "":
		return &nonMixQueue[T]{noise: noise}
	case PureCoinFlipping:
		return &pureCoinFlippingQueue[T]{mixBase: newMixBase(cfg, noise)}
	case PureRandomSampling:
		return &pureRandomSamplingQueue[T]{mixBase: newMixBase(cfg, noise)}
	case PermutedCoinFlipping:
		return &permutedCoinFlippingQueue[T]{mixBase: newMixBase(cfg, noise)}
	case NoisyCoinFlipping:
		return &noisyCoinFlippingQueue[T]{rng: seedRNG(cfg.SeedGenerator), noise: noise}
	case NoisyCoinFlippingRandomRelease:
		return &noisyRandomReleaseQueue[T]{rng: seedRNG(cfg.SeedGenerator), noise: noise}
	default:
		panic(fmt.Sprintf("temporalmix: unknown discipline %q", cfg.Type))
	}
}

func seedRNG(parent *rand.Rand) *rand.Rand {
	return rand.New(rand.NewSource(parent.Int63()))
}

// nonMixQueue releases real messages FIFO, substituting noise only when
// the queue is empty.
type nonMixQueue[T any] struct {
	buf   []T
	noise T
}

func (q *nonMixQueue[T]) Put(data T) { q.buf = append(q.buf, data) }

func (q *nonMixQueue[T]) Get() T {
	if len(q.buf) == 0 {
		return q.noise
	}
	v := q.buf[0]
	q.buf = q.buf[1:]
	return v
}

func (q *nonMixQueue[T]) Empty() bool { return len(q.buf) == 0 }

// mixBase holds the state shared by the pool-based disciplines: an
// in-memory pool, a dedicated RNG, the minimum pool size to pad to, and the
// noise sentinel.
type mixBase[T any] struct {
	pool    []T
	rng     *rand.Rand
	noise   T
	minSize int
}

func newMixBase[T any](cfg Config, noise T) mixBase[T] {
	minSize := cfg.MinQueueSize
	if minSize < 1 {
		// An unpadded empty pool would leave the coin-flipping loops
		// nothing to release and random sampling nothing to pick.
		minSize = 1
	}
	return mixBase[T]{rng: seedRNG(cfg.SeedGenerator), noise: noise, minSize: minSize}
}

func (b *mixBase[T]) Put(data T) { b.pool = append(b.pool, data) }

func (b *mixBase[T]) Empty() bool { return len(b.pool) == 0 }

// padToMinSize fills the pool with noise until it reaches minSize, mirroring
// the original's "always pad, never refill a released slot" pool shape.
func (b *mixBase[T]) padToMinSize() {
	for len(b.pool) < b.minSize {
		b.pool = append(b.pool, b.noise)
	}
}

// popAt removes and returns the element at index i without preserving
// order (the released slot is simply dropped; the pool is never refilled
// from the front).
func (b *mixBase[T]) popAt(i int) T {
	v := b.pool[i]
	b.pool = append(b.pool[:i], b.pool[i+1:]...)
	return v
}

func (b *mixBase[T]) coinFlipPass() (T, bool) {
	for i := 0; i < len(b.pool); i++ {
		if b.rng.Intn(2) == 1 {
			return b.popAt(i), true
		}
	}
	var zero T
	return zero, false
}

type pureCoinFlippingQueue[T any] struct{ mixBase[T] }

func (q *pureCoinFlippingQueue[T]) Get() T {
	q.padToMinSize()
	for {
		if v, ok := q.coinFlipPass(); ok {
			return v
		}
	}
}

type pureRandomSamplingQueue[T any] struct{ mixBase[T] }

func (q *pureRandomSamplingQueue[T]) Get() T {
	q.padToMinSize()
	i := q.rng.Intn(len(q.pool))
	return q.popAt(i)
}

type permutedCoinFlippingQueue[T any] struct{ mixBase[T] }

func (q *permutedCoinFlippingQueue[T]) Get() T {
	q.padToMinSize()
	q.rng.Shuffle(len(q.pool), func(i, j int) {
		q.pool[i], q.pool[j] = q.pool[j], q.pool[i]
	})
	for {
		if v, ok := q.coinFlipPass(); ok {
			return v
		}
	}
}

// noisyCoinFlippingQueue never pads: a single coin flip on the head of the
// pool decides whether a real message or noise is released. A tail flip on
// the queue's only testable position (the head) and an empty queue are
// observationally identical — both release noise.
type noisyCoinFlippingQueue[T any] struct {
	pool  []T
	rng   *rand.Rand
	noise T
}

func (q *noisyCoinFlippingQueue[T]) Put(data T) { q.pool = append(q.pool, data) }
func (q *noisyCoinFlippingQueue[T]) Empty() bool { return len(q.pool) == 0 }

func (q *noisyCoinFlippingQueue[T]) Get() T {
	if len(q.pool) == 0 {
		return q.noise
	}
	if q.rng.Intn(2) == 1 {
		v := q.pool[0]
		q.pool = q.pool[1:]
		return v
	}
	return q.noise
}

// noisyRandomReleaseQueue generalizes noisyCoinFlippingQueue to the whole
// pool: every position is flipped once per Get, and a uniformly-random
// position among those that flipped heads is released.
type noisyRandomReleaseQueue[T any] struct {
	pool  []T
	rng   *rand.Rand
	noise T
}

func (q *noisyRandomReleaseQueue[T]) Put(data T) { q.pool = append(q.pool, data) }
func (q *noisyRandomReleaseQueue[T]) Empty() bool { return len(q.pool) == 0 }

func (q *noisyRandomReleaseQueue[T]) Get() T {
	if len(q.pool) == 0 {
		return q.noise
	}
	var heads []int
	for i := range q.pool {
		if q.rng.Intn(2) == 1 {
			heads = append(heads, i)
		}
	}
	if len(heads) == 0 {
		return q.noise
	}
	i := heads[q.rng.Intn(len(heads))]
	v := q.pool[i]
	q.pool = append(q.pool[:i], q.pool[i+1:]...)
	return v
}
