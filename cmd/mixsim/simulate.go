package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/nomix-labs/mixsim/internal/gossip"
	"github.com/nomix-labs/mixsim/internal/mixpipe"
	"github.com/nomix-labs/mixsim/internal/packetcrypto"
	"github.com/nomix-labs/mixsim/internal/simconfig"
	"github.com/nomix-labs/mixsim/internal/simidentity"
	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simnode"
	"github.com/nomix-labs/mixsim/internal/simrunner"
	"github.com/nomix-labs/mixsim/internal/simstats"
	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/simtopology"
	"github.com/nomix-labs/mixsim/pkg/mixmetrics"
)

// meterer is the non-generic subset of *simnet.MeteredConnection's
// accessors. Mix and broadcast connections instantiate the same generic
// type over different T, so a slice collecting both needs this interface
// rather than the concrete type.
type meterer interface {
	SendingBandwidths() []int64
	ReceivingBandwidths() []int64
	MessageSizeCounts() map[int]int64
}

// buildGlobalConfig converts the resolved simulation parameters and a
// generated membership into the packetcrypto collaborator's view of them.
func buildGlobalConfig(r simconfig.Resolved, membership simidentity.Membership) packetcrypto.GlobalConfig {
	return packetcrypto.GlobalConfig{
		MaxMessageSize: r.MaxMessageSize,
		MaxMixPathLen:  r.MaxPathLength,
		Membership:     membership,
	}
}

// newIterationFunc wires one independent simulation run end to end: it
// builds a fresh scheduler, generates a fresh node membership and samples
// a topology and per-node path lengths from the iteration's derived
// seeds, wires every node's mix and broadcast overlays over that topology
// through metered connections, runs each node's sender lottery activity,
// drains the scheduler to the configured deadline, folds the run's
// connection metering into connStats, and returns the dissemination times
// the tracker observed. The returned func is an internal/simrunner.
// IterationFunc, closing over the paramset's resolved config so it can be
// passed directly to (*simrunner.Session).Run.
func newIterationFunc(resolved simconfig.Resolved, metrics *mixmetrics.Metrics, connStats *simstats.ConnectionStats) simrunner.IterationFunc {
	basePacketSize := packetcrypto.StubProvider{}.Size(packetcrypto.GlobalConfig{
		MaxMessageSize: resolved.MaxMessageSize,
		MaxMixPathLen:  resolved.MaxPathLength,
	})

	return func(ctx context.Context, iter int, seeds simrunner.IterationSeeds) ([]float64, error) {
		sched := simtime.New()
		scope := sched.NewScope(ctx, resolved.Duration)
		tracker := simstats.NewTracker(resolved.NumNodes)
		states := simnet.NewNodeStateTable(resolved.NumNodes, resolved.Duration)

		split := simconfig.DeriveSeeds(seeds.Topology, 4)
		topoRNG := rand.New(rand.NewSource(split[0]))
		pathLenRNG := rand.New(rand.NewSource(split[1]))
		// identitySeed/routeSeed fold the config's IdentitySeed (0 by
		// default) in with the iteration's own derived stream, so every
		// iteration generates a distinct membership even when
		// IdentitySeed is left unset.
		identitySeed := resolved.IdentitySeed ^ split[2]
		routeSeed := resolved.IdentitySeed ^ split[3]
		latencyRNG := rand.New(rand.NewSource(seeds.Latency))

		identities, err := simidentity.GenerateN(resolved.NumNodes, identitySeed)
		if err != nil {
			return nil, fmt.Errorf("generating membership: %w", err)
		}
		membership := simidentity.NewMembership(identities)
		global := buildGlobalConfig(resolved, membership)
		crypto := packetcrypto.NewStubProvider(rand.New(rand.NewSource(routeSeed)))

		topo := simtopology.BuildRandom(topoRNG, resolved.NumNodes, resolved.PeeringDegree)

		temporalMix := resolved.TemporalMix
		temporalMix.SeedGenerator = rand.New(rand.NewSource(seeds.TemporalMix))
		mixCfg := gossip.MixOverlayConfig{
			PeeringDegree:    resolved.PeeringDegree,
			TransmissionRate: float64(resolved.TransmissionRatePerSec),
			PayloadSize:      basePacketSize,
			TemporalMix:      temporalMix,
		}

		nodes := make([]*simnode.Node, resolved.NumNodes)
		for i := range nodes {
			pathLen := resolved.MinPathLength
			if resolved.MaxPathLength > resolved.MinPathLength {
				pathLen += pathLenRNG.Intn(resolved.MaxPathLength - resolved.MinPathLength + 1)
			}
			privateKey, err := identities[i].PrivateKey.Raw()
			if err != nil {
				return nil, fmt.Errorf("node %d private key: %w", i, err)
			}
			nodeCfg := simnode.Config{
				PrivateKey:    privateKey,
				MixPathLength: pathLen,
			}
			onDeliver := func(ctx context.Context, nodeID int, payload []byte) {
				id := gossip.HashID(payload)
				tracker.RecordDelivered(id, nodeID, sched.Now())
				if metrics != nil {
					metrics.MessagesDeliveredTotal.WithLabelValues(fmt.Sprint(nodeID)).Inc()
				}
			}
			node := simnode.New(scope, sched, i, nodeCfg, global, crypto, mixCfg, resolved.PeeringDegree, onDeliver)
			node.OnMixComplete(func(ctx context.Context, nodeID int, payload []byte) {
				id := gossip.HashID(payload)
				tracker.RecordMixPropagation(id, sched.Now())
				if metrics != nil {
					metrics.PacketsEmittedTotal.WithLabelValues("final").Inc()
				}
			})
			nodes[i] = node
		}

		var meters []meterer
		for src, peers := range topo {
			for _, dst := range peers {
				if dst <= src {
					continue // undirected: wire each edge once
				}
				pairMeters, err := connectPair(scope, sched, resolved, latencyRNG, states, nodes[src], nodes[dst])
				if err != nil {
					return nil, fmt.Errorf("wiring node %d<->%d: %w", src, dst, err)
				}
				meters = append(meters, pairMeters...)
			}
		}

		lotteryRNGs := simconfig.DeriveRands(seeds.SenderLottery, resolved.NumNodes)
		for i, node := range nodes {
			node, rng := node, lotteryRNGs[i]
			nodeID := i
			counter := 0
			scope.Spawn(func(ctx context.Context) {
				for {
					if err := sched.Sleep(ctx, resolved.SenderLotteryInterval); err != nil {
						return
					}
					if rng.Float64() >= resolved.SenderLotteryProbability {
						continue
					}
					counter++
					payload := []byte(fmt.Sprintf("node-%d-msg-%d-%d", nodeID, counter, rng.Int63()))
					if len(payload) > resolved.MaxMessageSize {
						payload = payload[:resolved.MaxMessageSize]
					}
					id := gossip.HashID(payload)
					tracker.RecordCreated(id, sched.Now())
					if metrics != nil {
						metrics.MessagesCreatedTotal.Inc()
					}
					if err := node.SendMessage(ctx, payload); err != nil {
						return
					}
				}
			})
		}

		sched.RunUntil(resolved.Duration)

		if connStats != nil {
			for _, m := range meters {
				connStats.RecordConnection(m.SendingBandwidths(), m.ReceivingBandwidths(), m.MessageSizeCounts())
			}
		}
		activity := simstats.SummarizeNodeStates(states, resolved.NumNodes)
		var sendingMillis, receivingMillis int64
		for _, a := range activity {
			sendingMillis += a.SendingMillis
			receivingMillis += a.ReceivingMillis
		}
		slog.Debug("iteration connection activity",
			"iter", iter, "connections", len(meters),
			"sending_ms", sendingMillis, "receiving_ms", receivingMillis)

		return tracker.DisseminationTimes(), nil
	}
}

// connectPair wires both the mix and broadcast overlay connections
// between a and b over constant-latency remote links, wrapped in
// bandwidth/message-size metering and per-millisecond node-state
// observation (spec §4.B "observed connections"). It returns every
// metered connection it created so the caller can fold their lifetime
// counters into a session's simstats.ConnectionStats once the run ends.
func connectPair(scope *simtime.Scope, sched *simtime.Scheduler, resolved simconfig.Resolved, latencyRNG *rand.Rand, states *simnet.NodeStateTable, a, b *simnode.Node) ([]meterer, error) {
	meterStart := sched.Now()

	abMixRaw := simnet.NewRemote[mixpipe.Frame](scope, sched, latencyRNG, resolved.MinLatency, resolved.MaxLatency)
	baMixRaw := simnet.NewRemote[mixpipe.Frame](scope, sched, latencyRNG, resolved.MinLatency, resolved.MaxLatency)
	abMix := simnet.NewMetered(abMixRaw, sched, meterStart, a.ID(), b.ID(), states)
	baMix := simnet.NewMetered(baMixRaw, sched, meterStart, b.ID(), a.ID(), states)
	if err := a.ConnectMix(b, abMix, baMix); err != nil {
		return nil, err
	}

	abBroadcastRaw := simnet.NewRemote[simnode.BroadcastMessage](scope, sched, latencyRNG, resolved.MinLatency, resolved.MaxLatency)
	baBroadcastRaw := simnet.NewRemote[simnode.BroadcastMessage](scope, sched, latencyRNG, resolved.MinLatency, resolved.MaxLatency)
	abBroadcast := simnet.NewMetered(abBroadcastRaw, sched, meterStart, a.ID(), b.ID(), states)
	baBroadcast := simnet.NewMetered(baBroadcastRaw, sched, meterStart, b.ID(), a.ID(), states)
	if err := a.ConnectBroadcast(b, abBroadcast, baBroadcast); err != nil {
		return nil, err
	}

	return []meterer{abMix, baMix, abBroadcast, baBroadcast}, nil
}
