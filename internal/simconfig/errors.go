package simconfig

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure below so callers can
	// test with errors.Is(err, ErrInvalidConfig) without matching the
	// specific field (spec §7 "Configuration error... fatal at startup").
	ErrInvalidConfig = errors.New("invalid simulation configuration")

	ErrDurationNotPositive   = errors.New("simulation.duration_sec must be > 0")
	ErrNumNodesNotPositive   = errors.New("network.num_nodes must be > 0")
	ErrLatencyRange          = errors.New("network.latency: min_latency_sec must be <= max_latency_sec and >= 0")
	ErrPeeringDegreeTooSmall = errors.New("network.gossip.peering_degree must be >= 1")
	ErrTransmissionRate      = errors.New("mix.transmission_rate_per_sec must be > 0")
	ErrMaxMessageSize        = errors.New("mix.max_message_size must be > 0")
	ErrMixPathRange          = errors.New("mix.mix_path: min_length must be >= 1 and <= max_length")
	ErrUnknownTemporalMix    = errors.New("mix.temporal_mix.mix_type is not a recognized discipline")
	ErrSenderLotteryRange    = errors.New("logic.sender_lottery.probability must be in [0,1]")

	// ErrNoArchive is returned by LoadArchived when the given directory
	// holds no config written by Archive.
	ErrNoArchive = errors.New("no last-known-good config archive found")
)
