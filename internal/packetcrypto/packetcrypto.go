// Package packetcrypto defines the boundary between the simulator core and
// Sphinx packet construction/unwrapping, which the core treats as an
// opaque collaborator (route sampling and onion cryptography are out of
// scope for the simulated core itself).
package packetcrypto

import (
	"errors"

	"github.com/nomix-labs/mixsim/internal/simidentity"
)

// ErrMessageTooLarge is returned by Build when the payload exceeds the
// global config's maximum message size.
var ErrMessageTooLarge = errors.New("packetcrypto: message exceeds max_message_size")

// ErrInvalidPathLength is returned by Build when path_len is out of range.
var ErrInvalidPathLength = errors.New("packetcrypto: path_len out of range")

// GlobalConfig carries the parameters a Provider needs to size and route a
// packet; it mirrors the simulation-wide config rather than duplicating it.
// Membership is the ordered public-key list a Provider samples routes from
// (spec §3 GlobalConfig), generated once per run by internal/simidentity.
type GlobalConfig struct {
	MaxMessageSize int
	MaxMixPathLen  int
	Membership     simidentity.Membership
}

// Outcome tags the three ways processing an inbound packet can resolve
// (spec §6 `process`). Exactly one of the typed accessors is valid per tag.
type Outcome int

const (
	OutcomeForward Outcome = iota
	OutcomeFinal
	OutcomeReject
)

// Processed is the result of unwrapping one hop of a Sphinx packet.
type Processed struct {
	Outcome Outcome
	// Next holds the re-wrapped packet bytes when Outcome == OutcomeForward.
	Next []byte
	// Payload holds the recovered plaintext when Outcome == OutcomeFinal.
	Payload []byte
}

// Provider is the opaque Sphinx collaborator the mix core builds on. A
// conforming implementation turns payload bytes into a fixed-size packet
// and, given a private key, peels exactly one layer off an inbound packet.
type Provider interface {
	// Build constructs a fixed-size packet carrying payload, routed over
	// pathLen hops sampled from the membership in cfg, and returns the
	// sampled route alongside the packet bytes (spec §6
	// `build(payload_bytes, global_config, path_len) -> (packet_bytes, route)`).
	Build(payload []byte, cfg GlobalConfig, pathLen int) ([]byte, []int, error)
	// Size returns the fixed packet size S produced by Build for cfg.
	Size(cfg GlobalConfig) int
	// Process unwraps one hop of packet using the receiving node's
	// private key material, identified opaquely by privateKey.
	Process(packet []byte, privateKey []byte) (Processed, error)
}
