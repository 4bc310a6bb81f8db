// Package simconfig loads and validates a simulation's YAML configuration
// (spec §6 "Simulation inputs") and resolves it into the typed parameters
// the rest of the module consumes: scheduler durations, per-subsystem RNGs,
// and a temporalmix.Config ready to hand to a queue factory.
package simconfig

import "github.com/nomix-labs/mixsim/internal/temporalmix"

// CurrentConfigVersion tracks the YAML schema shape. Bumped when a field
// is added or renamed in a way that requires migration.
const CurrentConfigVersion = 1

// Config is the root of a simulation's YAML input, mirroring spec §6's
// four top-level keys.
type Config struct {
	Version    int              `yaml:"version,omitempty"`
	Simulation SimulationConfig `yaml:"simulation"`
	Network    NetworkConfig    `yaml:"network"`
	Mix        MixConfig        `yaml:"mix"`
	Logic      LogicConfig      `yaml:"logic"`
}

// SimulationConfig controls the scheduler's deadline and plotting.
type SimulationConfig struct {
	DurationSec float64 `yaml:"duration_sec"`
	ShowPlots   bool    `yaml:"show_plots,omitempty"`
}

// NetworkConfig describes the membership size and connection shape.
type NetworkConfig struct {
	NumNodes     int           `yaml:"num_nodes"`
	Latency      LatencyConfig `yaml:"latency"`
	Gossip       GossipConfig  `yaml:"gossip"`
	IdentitySeed int64         `yaml:"identity_seed,omitempty"`
}

// LatencyConfig bounds the uniform draw used for each remote connection's
// one-time constant latency (internal/simnet.drawLatency).
type LatencyConfig struct {
	MinLatencySec float64 `yaml:"min_latency_sec"`
	MaxLatencySec float64 `yaml:"max_latency_sec"`
	Seed          int64   `yaml:"seed"`
}

// GossipConfig holds the broadcast and mix overlays' shared peering degree.
type GossipConfig struct {
	PeeringDegree int `yaml:"peering_degree"`
}

// MixConfig configures the GTR transmit pipeline, the Sphinx-sized packet
// envelope, and the temporal-mix discipline applied on every outbound edge.
type MixConfig struct {
	TransmissionRatePerSec int               `yaml:"transmission_rate_per_sec"`
	MaxMessageSize         int               `yaml:"max_message_size"`
	MixPath                MixPathConfig     `yaml:"mix_path"`
	TemporalMix            TemporalMixConfig `yaml:"temporal_mix"`
}

// MixPathConfig bounds the per-message Sphinx route length L.
type MixPathConfig struct {
	MinLength int   `yaml:"min_length"`
	MaxLength int   `yaml:"max_length"`
	Seed      int64 `yaml:"seed"`
}

// TemporalMixConfig names the queue discipline and its parameters.
type TemporalMixConfig struct {
	MixType       string `yaml:"mix_type"`
	MinQueueSize  int    `yaml:"min_queue_size,omitempty"`
	SeedGenerator int64  `yaml:"seed_generator"`
}

// LogicConfig holds the sender lottery's per-node activity parameters.
type LogicConfig struct {
	SenderLottery SenderLotteryConfig `yaml:"sender_lottery"`
}

// SenderLotteryConfig: every interval_sec, a node's lottery activity flips
// a coin biased by probability; independent per-node RNG streams are fanned
// out from seed (spec §9 "Sender lottery").
type SenderLotteryConfig struct {
	IntervalSec float64 `yaml:"interval_sec"`
	Probability float64 `yaml:"probability"`
	Seed        int64   `yaml:"seed"`
}

// temporalMixTypes maps the YAML mix_type string onto the six discipline
// tags internal/temporalmix dispatches on.
var temporalMixTypes = map[string]temporalmix.Type{
	"NONE":                              temporalmix.None,
	"PURE_COIN_FLIPPING":                temporalmix.PureCoinFlipping,
	"PURE_RANDOM_SAMPLING":              temporalmix.PureRandomSampling,
	"PERMUTED_COIN_FLIPPING":            temporalmix.PermutedCoinFlipping,
	"NOISY_COIN_FLIPPING":               temporalmix.NoisyCoinFlipping,
	"NOISY_COIN_FLIPPING_RANDOM_RELEASE": temporalmix.NoisyCoinFlippingRandomRelease,
}
