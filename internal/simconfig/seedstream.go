package simconfig

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/rand"

	"golang.org/x/crypto/hkdf"
)

// DeriveSeeds fans a single configured seed out into n independent
// pseudorandom seeds, one per node's lottery RNG (spec §9 "independent
// per-node RNG seeded from config for reproducibility"). HKDF-Expand over
// the root seed keeps the fan-out deterministic and collision-resistant
// without needing n separately configured seeds in the YAML.
func DeriveSeeds(root int64, n int) []int64 {
	var secret [8]byte
	binary.BigEndian.PutUint64(secret[:], uint64(root))

	r := hkdf.New(sha256.New, secret[:], nil, []byte("mixsim-seed-fanout"))
	out := make([]int64, n)
	var buf [8]byte
	for i := range out {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			panic(err) // hkdf.Reader only fails once its max output is exhausted, far beyond any realistic n
		}
		out[i] = int64(binary.BigEndian.Uint64(buf[:]))
	}
	return out
}

// DeriveRands is DeriveSeeds followed by wrapping each seed in its own
// *rand.Rand stream, ready to hand to a per-node activity.
func DeriveRands(root int64, n int) []*rand.Rand {
	seeds := DeriveSeeds(root, n)
	out := make([]*rand.Rand, n)
	for i, s := range seeds {
		out[i] = rand.New(rand.NewSource(s))
	}
	return out
}
