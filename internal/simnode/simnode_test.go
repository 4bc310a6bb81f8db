package simnode

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/nomix-labs/mixsim/internal/gossip"
	"github.com/nomix-labs/mixsim/internal/mixpipe"
	"github.com/nomix-labs/mixsim/internal/packetcrypto"
	"github.com/nomix-labs/mixsim/internal/simidentity"
	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/temporalmix"
)

func testGlobal() packetcrypto.GlobalConfig {
	nodes, err := simidentity.GenerateN(2, 1)
	if err != nil {
		panic(err)
	}
	return packetcrypto.GlobalConfig{MaxMessageSize: 16, MaxMixPathLen: 1, Membership: simidentity.NewMembership(nodes)}
}

func testMixOverlayConfig(size int) gossip.MixOverlayConfig {
	return gossip.MixOverlayConfig{
		PeeringDegree:    2,
		TransmissionRate: 20,
		PayloadSize:      size,
		TemporalMix:      temporalmix.Config{Type: temporalmix.None},
	}
}

func TestNode_SendMessageIsDeliveredAcrossMixLink(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))

	global := testGlobal()
	crypto := packetcrypto.StubProvider{}
	size := crypto.Size(global)
	mixCfg := testMixOverlayConfig(size)

	var mu sync.Mutex
	var delivered [][]byte

	onDeliver := func(_ context.Context, _ int, payload []byte) {
		mu.Lock()
		cp := append([]byte{}, payload...)
		delivered = append(delivered, cp)
		mu.Unlock()
	}

	a := New(scope, sched, 0, Config{PrivateKey: []byte("a"), MixPathLength: 1}, global, crypto, mixCfg, 2, onDeliver)
	b := New(scope, sched, 1, Config{PrivateKey: []byte("b"), MixPathLength: 1}, global, crypto, mixCfg, 2, onDeliver)

	ab := simnet.NewLocal[mixpipe.Frame](sched)
	ba := simnet.NewLocal[mixpipe.Frame](sched)
	if err := a.ConnectMix(b, ab, ba); err != nil {
		t.Fatalf("ConnectMix: %v", err)
	}

	abB := simnet.NewLocal[BroadcastMessage](sched)
	baB := simnet.NewLocal[BroadcastMessage](sched)
	if err := a.ConnectBroadcast(b, abB, baB); err != nil {
		t.Fatalf("ConnectBroadcast: %v", err)
	}

	payload := make([]byte, global.MaxMessageSize)
	copy(payload, []byte("hello"))

	scope.Spawn(func(ctx context.Context) {
		if err := a.SendMessage(ctx, payload); err != nil {
			t.Errorf("SendMessage: %v", err)
		}
	})

	sched.RunUntil(simtime.FromSeconds(5))

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) == 0 {
		t.Fatal("expected at least one node to deliver the recovered payload")
	}
	for _, got := range delivered {
		if !bytes.Equal(got, payload) {
			t.Fatalf("delivered payload = %q, want %q", got, payload)
		}
	}
}

func TestNode_ConnectMixRejectsWhenEitherSideFull(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(1))
	global := testGlobal()
	crypto := packetcrypto.StubProvider{}
	size := crypto.Size(global)
	mixCfg := testMixOverlayConfig(size)
	mixCfg.PeeringDegree = 1

	noop := func(context.Context, int, []byte) {}
	a := New(scope, sched, 0, Config{PrivateKey: []byte("a"), MixPathLength: 1}, global, crypto, mixCfg, 1, noop)
	b := New(scope, sched, 1, Config{PrivateKey: []byte("b"), MixPathLength: 1}, global, crypto, mixCfg, 1, noop)
	c := New(scope, sched, 2, Config{PrivateKey: []byte("c"), MixPathLength: 1}, global, crypto, mixCfg, 1, noop)

	ab := simnet.NewLocal[mixpipe.Frame](sched)
	ba := simnet.NewLocal[mixpipe.Frame](sched)
	if err := a.ConnectMix(b, ab, ba); err != nil {
		t.Fatalf("ConnectMix a-b: %v", err)
	}

	ac := simnet.NewLocal[mixpipe.Frame](sched)
	ca := simnet.NewLocal[mixpipe.Frame](sched)
	if err := a.ConnectMix(c, ac, ca); err != gossip.ErrPeeringDegreeReached {
		t.Fatalf("ConnectMix a-c err = %v, want ErrPeeringDegreeReached", err)
	}
}
