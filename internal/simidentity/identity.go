// Package simidentity mints the per-node cryptographic identities a
// simulation's GlobalConfig membership list is built from (spec §3
// "GlobalConfig: membership (ordered list of (public_key))"). Key
// generation itself is real (libp2p's Ed25519 implementation); everything
// downstream of it — Sphinx route sampling, packet unwrap — treats the
// resulting keys as opaque identifiers, exactly as spec §1 scopes out.
package simidentity

import (
	crand "crypto/rand"
	"math/rand"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// NodeInfo is one membership entry: a peer identity plus the private key
// material backing it, generated once per node at the start of a run.
type NodeInfo struct {
	ID         peer.ID
	PublicKey  crypto.PubKey
	PrivateKey crypto.PrivKey
}

// Generate mints a fresh Ed25519 keypair and derives its peer ID.
func Generate() (NodeInfo, error) {
	priv, pub, err := crypto.GenerateEd25519Key(crand.Reader)
	if err != nil {
		return NodeInfo{}, err
	}
	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return NodeInfo{}, err
	}
	return NodeInfo{ID: id, PublicKey: pub, PrivateKey: priv}, nil
}

// GenerateN mints n node identities deterministically from seed: each
// node's keypair is drawn from the same reproducible stream so a run's
// membership list is byte-identical across repeats with the same seed
// (spec §8 property 6, reproducibility).
func GenerateN(n int, seed int64) ([]NodeInfo, error) {
	rng := rand.New(rand.NewSource(seed))
	out := make([]NodeInfo, n)
	for i := range out {
		priv, pub, err := crypto.GenerateEd25519Key(rng)
		if err != nil {
			return nil, err
		}
		id, err := peer.IDFromPublicKey(pub)
		if err != nil {
			return nil, err
		}
		out[i] = NodeInfo{ID: id, PublicKey: pub, PrivateKey: priv}
	}
	return out, nil
}

// Membership is the ordered, immutable list of node identities a
// simulation run's GlobalConfig carries (spec §3). Route sampling
// (delegated to the packetcrypto collaborator) draws from this list by
// index, never mutating it once the run starts.
type Membership struct {
	nodes []NodeInfo
}

// NewMembership wraps an ordered list of node identities.
func NewMembership(nodes []NodeInfo) Membership {
	cp := make([]NodeInfo, len(nodes))
	copy(cp, nodes)
	return Membership{nodes: cp}
}

// Len returns the membership size.
func (m Membership) Len() int { return len(m.nodes) }

// At returns the i'th member.
func (m Membership) At(i int) NodeInfo { return m.nodes[i] }

// GenerateRoute samples pathLen distinct member indices uniformly at
// random using rng, mirroring the original's `membership.generate_route`.
func (m Membership) GenerateRoute(rng *rand.Rand, pathLen int) []int {
	if pathLen > len(m.nodes) {
		pathLen = len(m.nodes)
	}
	perm := rng.Perm(len(m.nodes))
	route := make([]int, pathLen)
	copy(route, perm[:pathLen])
	return route
}
