// Package simnode composes the per-peer building blocks — a NomMix
// overlay for Sphinx-wrapped mix traffic, a plain gossip overlay for the
// recovered plaintext, and the packetcrypto collaborator — into the node
// type the rest of a simulation run wires together (spec §4.F "Node").
//
// As in the node this package is grounded on, delivery does not stop at
// the peer whose private key finally unwraps a packet: that peer
// publishes the recovered payload onto a second, broadcast-only overlay
// so every member of the network eventually observes it (spec §8
// property 7 "every published message is eventually delivered to all
// N-1 other nodes" — a guarantee the onion-routed mix overlay alone
// cannot make, since exactly one node recovers any given packet's final
// payload).
package simnode

import (
	"context"
	"sync"

	"github.com/nomix-labs/mixsim/internal/gossip"
	"github.com/nomix-labs/mixsim/internal/mixpipe"
	"github.com/nomix-labs/mixsim/internal/packetcrypto"
	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
)

// BroadcastMessage wraps a recovered plaintext payload for the post-mix
// broadcast overlay. Its ID is content-addressed, same as the mix
// overlay's frames, so duplicate suppression works identically.
type BroadcastMessage struct {
	id      gossip.ID
	Payload []byte
}

// NewBroadcastMessage computes the content-addressed ID for payload.
func NewBroadcastMessage(payload []byte) BroadcastMessage {
	return BroadcastMessage{id: gossip.HashID(payload), Payload: payload}
}

func (m BroadcastMessage) ID() gossip.ID { return m.id }
func (m BroadcastMessage) Len() int      { return len(m.Payload) }

// Config bundles one node's fixed parameters: its private key material,
// and the mix path length sampled once for it at config-build time
// (mirroring sim/config.py's `node_configs`, where `mix_path_length` is
// drawn once per node from the shared mix_path seed, not re-sampled per
// message).
type Config struct {
	PrivateKey    []byte
	MixPathLength int
}

// Node is one simulated network participant.
type Node struct {
	id     int
	cfg    Config
	global packetcrypto.GlobalConfig
	crypto packetcrypto.Provider

	mix       *gossip.MixOverlay
	broadcast *gossip.Overlay[BroadcastMessage]

	mu            sync.Mutex
	delivered     map[gossip.ID]bool
	onDeliver     func(ctx context.Context, id int, payload []byte)
	onMixComplete func(ctx context.Context, id int, payload []byte)
}

// OnMixComplete registers a hook called the moment this node recovers a
// packet's final payload (Sphinx route exhausted), before the payload is
// handed to the broadcast overlay — the "mix propagation" instant a
// dissemination tracker times separately from full-network delivery.
func (n *Node) OnMixComplete(fn func(ctx context.Context, id int, payload []byte)) {
	n.onMixComplete = fn
}

// New constructs a Node bound to scope/sched. onDeliver, if non-nil, is
// called exactly once per node per unique payload, the first time that
// payload reaches this node's broadcast overlay — the hook simstats uses
// to time dissemination.
func New(
	scope *simtime.Scope,
	sched *simtime.Scheduler,
	id int,
	cfg Config,
	global packetcrypto.GlobalConfig,
	crypto packetcrypto.Provider,
	mixCfg gossip.MixOverlayConfig,
	broadcastDegree int,
	onDeliver func(ctx context.Context, id int, payload []byte),
) *Node {
	n := &Node{
		id:        id,
		cfg:       cfg,
		global:    global,
		crypto:    crypto,
		delivered: make(map[gossip.ID]bool),
		onDeliver: onDeliver,
	}
	n.mix = gossip.NewMixOverlay(scope, sched, mixCfg, n.processSphinxPayload)
	n.broadcast = gossip.New[BroadcastMessage](scope, broadcastDegree, 0, n.processBroadcastMsg)
	return n
}

// ID returns this node's index in the membership/topology.
func (n *Node) ID() int { return n.id }

// processSphinxPayload unwraps one hop of an inbound Sphinx packet and
// either re-publishes the next hop on the mix overlay, hands the fully
// recovered payload to the broadcast overlay, or silently drops a reject
// (spec §7 "Sphinx reject (inbound): drop, continue").
func (n *Node) processSphinxPayload(ctx context.Context, packet []byte) error {
	processed, err := n.crypto.Process(packet, n.cfg.PrivateKey)
	if err != nil {
		return nil
	}
	switch processed.Outcome {
	case packetcrypto.OutcomeForward:
		return n.mix.Publish(ctx, processed.Next)
	case packetcrypto.OutcomeFinal:
		if n.onMixComplete != nil {
			n.onMixComplete(ctx, n.id, processed.Payload)
		}
		return n.broadcast.Publish(ctx, NewBroadcastMessage(processed.Payload))
	default: // OutcomeReject
		return nil
	}
}

func (n *Node) processBroadcastMsg(ctx context.Context, msg BroadcastMessage) error {
	n.mu.Lock()
	if n.delivered[msg.id] {
		n.mu.Unlock()
		return nil
	}
	n.delivered[msg.id] = true
	n.mu.Unlock()

	if n.onDeliver != nil {
		n.onDeliver(ctx, n.id, msg.Payload)
	}
	return nil
}

// SendMessage builds a fixed-size Sphinx packet carrying payload and
// publishes it on the mix overlay (spec §4.F "send_message").
func (n *Node) SendMessage(ctx context.Context, payload []byte) error {
	packet, _, err := n.crypto.Build(payload, n.global, n.cfg.MixPathLength)
	if err != nil {
		return err
	}
	return n.mix.Publish(ctx, packet)
}

// ConnectMix establishes a duplex mix-overlay connection between n and
// peer, mirroring node.py's `connect`: both sides' degree is checked
// before either is mutated, so a rejection never leaves one side
// partially wired.
// nOut is n's outbound leg (n sends, peer receives); peerOut is peer's
// outbound leg (peer sends, n receives) — the same "ab, ba" pair shape
// simnet connections are built in.
func (n *Node) ConnectMix(peer *Node, nOut, peerOut simnet.SimplexConnection[mixpipe.Frame]) error {
	if !n.mix.CanAcceptConn() || !peer.mix.CanAcceptConn() {
		return gossip.ErrPeeringDegreeReached
	}
	if err := n.mix.AddConn(peerOut, nOut); err != nil {
		return err
	}
	return peer.mix.AddConn(nOut, peerOut)
}

// ConnectBroadcast is ConnectMix's counterpart for the post-mix
// broadcast overlay.
func (n *Node) ConnectBroadcast(peer *Node, nOut, peerOut simnet.SimplexConnection[BroadcastMessage]) error {
	if !n.broadcast.CanAcceptConn() || !peer.broadcast.CanAcceptConn() {
		return gossip.ErrPeeringDegreeReached
	}
	if err := n.broadcast.AddConn(peerOut, nOut); err != nil {
		return err
	}
	return peer.broadcast.AddConn(nOut, peerOut)
}
