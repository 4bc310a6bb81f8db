// Package simtopology generates the undirected peering graphs a
// simulation run wires nodes together with, grounded on sim/topology.py's
// regenerate-until-connected random topology and the ring topology used
// throughout spec.md's end-to-end scenarios (S1, S7, property 7).
package simtopology

import "math/rand"

// Topology is an undirected adjacency list: Topology[i] is the set of
// peer indices i is connected to. Degree per node never exceeds the
// configured peering degree.
type Topology map[int][]int

// Ring connects each node to its immediate next neighbor, forming a
// single cycle of degree 2 (spec scenario S1/S7's "ring topology of N
// nodes each with degree d>=2").
func Ring(numNodes int) Topology {
	t := make(Topology, numNodes)
	for i := 0; i < numNodes; i++ {
		j := (i + 1) % numNodes
		t[i] = append(t[i], j)
		t[j] = append(t[j], i)
	}
	return t
}

// FullMesh connects every node to every other node (spec scenario S2's
// "N=10 full-mesh, d=9").
func FullMesh(numNodes int) Topology {
	t := make(Topology, numNodes)
	for i := 0; i < numNodes; i++ {
		for j := 0; j < numNodes; j++ {
			if i != j {
				t[i] = append(t[i], j)
			}
		}
	}
	return t
}

// BuildRandom regenerates a random undirected topology, capping each
// node's degree at peeringDegree, until every node is reachable from
// every other — mirroring sim/topology.py's build_full_random_topology,
// which makes no attempt at guaranteed connectivity beyond resampling.
func BuildRandom(rng *rand.Rand, numNodes, peeringDegree int) Topology {
	for {
		t := attempt(rng, numNodes, peeringDegree)
		// A node that drew no peers never appears in t, so every node must
		// be present before connectivity among the present ones counts.
		if (numNodes <= 1 || len(t) == numNodes) && allConnected(t) {
			return t
		}
	}
}

func attempt(rng *rand.Rand, numNodes, peeringDegree int) Topology {
	t := make(Topology, numNodes)
	degree := make([]int, numNodes)
	has := func(a, b int) bool {
		for _, p := range t[a] {
			if p == b {
				return true
			}
		}
		return false
	}

	for node := 0; node < numNodes; node++ {
		var candidates []int
		for other := 0; other < numNodes; other++ {
			if other == node || has(node, other) {
				continue
			}
			if degree[other] < peeringDegree {
				candidates = append(candidates, other)
			}
		}
		need := peeringDegree - degree[node]
		if need <= 0 || len(candidates) == 0 {
			continue
		}
		if need > len(candidates) {
			need = len(candidates)
		}
		rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		peers := candidates[:need]

		for _, peer := range peers {
			t[node] = append(t[node], peer)
			t[peer] = append(t[peer], node)
			degree[node]++
			degree[peer]++
		}
	}
	return t
}

func allConnected(t Topology) bool {
	if len(t) == 0 {
		return true
	}
	visited := make(map[int]bool, len(t))
	var stack []int
	for first := range t {
		stack = append(stack, first)
		break
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, peer := range t[n] {
			if !visited[peer] {
				stack = append(stack, peer)
			}
		}
	}
	return len(visited) == len(t)
}

// Edges returns each undirected connection exactly once, as (a, b) pairs
// with a < b, so a caller can wire one duplex connection per edge rather
// than iterating the adjacency list twice.
func (t Topology) Edges() [][2]int {
	var edges [][2]int
	for node, peers := range t {
		for _, peer := range peers {
			if node < peer {
				edges = append(edges, [2]int{node, peer})
			}
		}
	}
	return edges
}
