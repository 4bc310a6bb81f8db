package simconfig

import (
	"math/rand"

	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/temporalmix"
)

// Resolved holds a Config's parameters converted into the types the rest
// of the module consumes directly: simtime.Duration instead of float
// seconds, and seeded *rand.Rand streams instead of bare int64 seeds.
// Produced once per run by Resolve and shared read-only across all nodes.
type Resolved struct {
	Duration      simtime.Duration
	NumNodes      int
	PeeringDegree int
	IdentitySeed  int64

	MinLatency simtime.Duration
	MaxLatency simtime.Duration
	LatencyRNG *rand.Rand

	TransmissionRatePerSec int
	MaxMessageSize         int

	MinPathLength int
	MaxPathLength int
	PathRNG       *rand.Rand

	TemporalMix temporalmix.Config

	SenderLotteryInterval     simtime.Duration
	SenderLotteryProbability  float64
	SenderLotterySeed         int64
}

// Resolve converts a validated Config into Resolved. Callers must call
// Validate (or Load/Parse, which already do) first.
func Resolve(c *Config) Resolved {
	return Resolved{
		Duration:      simtime.FromSeconds(c.Simulation.DurationSec),
		NumNodes:      c.Network.NumNodes,
		PeeringDegree: c.Network.Gossip.PeeringDegree,
		IdentitySeed:  c.Network.IdentitySeed,

		MinLatency: simtime.FromSeconds(c.Network.Latency.MinLatencySec),
		MaxLatency: simtime.FromSeconds(c.Network.Latency.MaxLatencySec),
		LatencyRNG: rand.New(rand.NewSource(c.Network.Latency.Seed)),

		TransmissionRatePerSec: c.Mix.TransmissionRatePerSec,
		MaxMessageSize:         c.Mix.MaxMessageSize,

		MinPathLength: c.Mix.MixPath.MinLength,
		MaxPathLength: c.Mix.MixPath.MaxLength,
		PathRNG:       rand.New(rand.NewSource(c.Mix.MixPath.Seed)),

		TemporalMix: temporalmix.Config{
			Type:          temporalMixTypes[c.Mix.TemporalMix.MixType],
			MinQueueSize:  c.Mix.TemporalMix.MinQueueSize,
			SeedGenerator: rand.New(rand.NewSource(c.Mix.TemporalMix.SeedGenerator)),
		},

		SenderLotteryInterval:    simtime.FromSeconds(c.Logic.SenderLottery.IntervalSec),
		SenderLotteryProbability: c.Logic.SenderLottery.Probability,
		SenderLotterySeed:        c.Logic.SenderLottery.Seed,
	}
}

// SenderLotteryRNGs fans the sender lottery's configured seed out into one
// independent RNG per node (spec §9).
func (r Resolved) SenderLotteryRNGs() []*rand.Rand {
	return DeriveRands(r.SenderLotterySeed, r.NumNodes)
}
