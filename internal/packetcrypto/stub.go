package packetcrypto

import (
	"encoding/binary"
	"errors"
	"math/rand"

	"github.com/zeebo/blake3"
)

// ErrMalformedPacket is returned by StubProvider.Process when the packet
// isn't the fixed size StubProvider.Size produced for the given config.
var ErrMalformedPacket = errors.New("packetcrypto: malformed packet")

// headerSize is the per-hop overhead a real Sphinx packet would spend on
// routing/MAC material; the stub spends it on a blake3 digest per hop so
// packet size still scales with path length the way spec §6 describes
// (`S` depends on `(M, L)`), without implementing onion encryption.
const headerSize = 32

// lengthPrefixSize encodes the payload's true length ahead of its
// zero-padding to MaxMessageSize, so Process can recover exactly what was
// built rather than trailing zero bytes.
const lengthPrefixSize = 2

// StubProvider is a deterministic, non-cryptographic stand-in for Sphinx
// packet construction: it preserves the fixed-size and hop-count contract
// of Provider without performing any real onion encryption, since Sphinx
// itself is an external collaborator out of scope for the core. It is
// useful for tests and for running the simulator end-to-end before a real
// Provider is wired in.
//
// RouteRNG draws each Build call's route from cfg.Membership. It is a
// pointer so the value-receiver methods below can still share and advance
// one stream across every node that builds packets through this provider.
type StubProvider struct {
	RouteRNG *rand.Rand
}

// NewStubProvider returns a StubProvider whose routes are sampled from rng.
func NewStubProvider(rng *rand.Rand) StubProvider {
	return StubProvider{RouteRNG: rng}
}

// Size returns 1 (hop counter) + lengthPrefixSize + cfg.MaxMessageSize (the
// padded payload) + cfg.MaxMixPathLen*headerSize (per-hop header material).
func (StubProvider) Size(cfg GlobalConfig) int {
	return 1 + lengthPrefixSize + cfg.MaxMessageSize + cfg.MaxMixPathLen*headerSize
}

// Build pads payload to cfg.MaxMessageSize, prefixes its true length and a
// hops-remaining counter, appends pathLen deterministic per-hop digests so
// Process can later tell how many hops remain, and samples a route of
// pathLen member indices from cfg.Membership via RouteRNG.
func (s StubProvider) Build(payload []byte, cfg GlobalConfig, pathLen int) ([]byte, []int, error) {
	if len(payload) > cfg.MaxMessageSize {
		return nil, nil, ErrMessageTooLarge
	}
	if pathLen <= 0 || pathLen > cfg.MaxMixPathLen {
		return nil, nil, ErrInvalidPathLength
	}

	var route []int
	if s.RouteRNG != nil && cfg.Membership.Len() > 0 {
		route = cfg.Membership.GenerateRoute(s.RouteRNG, pathLen)
	}

	out := make([]byte, 0, s.Size(cfg))
	out = append(out, byte(pathLen))
	lenPrefix := make([]byte, lengthPrefixSize)
	binary.BigEndian.PutUint16(lenPrefix, uint16(len(payload)))
	out = append(out, lenPrefix...)

	padded := make([]byte, cfg.MaxMessageSize)
	copy(padded, payload)
	out = append(out, padded...)

	digest := hash(payload)
	for hop := 0; hop < cfg.MaxMixPathLen; hop++ {
		if hop < pathLen {
			out = append(out, digest...)
		} else {
			out = append(out, make([]byte, headerSize)...)
		}
		digest = hash(digest)
	}
	return out, route, nil
}

// Process decrements the hop counter: a positive remainder yields
// OutcomeForward with the same packet bytes minus one hop; zero yields
// OutcomeFinal with the original payload recovered from its length prefix.
// privateKey is accepted for interface compatibility but unused by the
// stub, since it performs no real per-node unwrapping.
func (StubProvider) Process(packet []byte, _ []byte) (Processed, error) {
	if len(packet) < 1+lengthPrefixSize {
		return Processed{}, ErrMalformedPacket
	}
	hopsRemaining := int(packet[0]) - 1
	payloadLen := int(binary.BigEndian.Uint16(packet[1 : 1+lengthPrefixSize]))

	if hopsRemaining <= 0 {
		start := 1 + lengthPrefixSize
		end := start + payloadLen
		if end > len(packet) {
			return Processed{}, ErrMalformedPacket
		}
		return Processed{Outcome: OutcomeFinal, Payload: packet[start:end]}, nil
	}

	next := make([]byte, len(packet))
	copy(next, packet)
	next[0] = byte(hopsRemaining)
	return Processed{Outcome: OutcomeForward, Next: next}, nil
}

func hash(data []byte) []byte {
	h := blake3.New()
	h.Write(data)
	return h.Sum(nil)
}
