package gossip

import (
	"context"
	"sync"
	"testing"

	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
)

type testMsg struct {
	id   ID
	body string
}

func (m testMsg) ID() ID   { return m.id }
func (m testMsg) Len() int { return len(m.body) }

func idFor(s string) ID { return HashID([]byte(s)) }

// ring builds n overlays wired into a ring topology (each node connected to
// its two neighbors), mirroring scenario S1/S7 from the spec.
func ring(t *testing.T, sched *simtime.Scheduler, scope *simtime.Scope, n int, degree int) ([]*Overlay[testMsg], *[][]testMsg) {
	t.Helper()
	received := make([][]testMsg, n)
	var mu sync.Mutex

	overlays := make([]*Overlay[testMsg], n)
	for i := range overlays {
		i := i
		overlays[i] = New[testMsg](scope, degree, 0, func(_ context.Context, m testMsg) error {
			mu.Lock()
			received[i] = append(received[i], m)
			mu.Unlock()
			return nil
		})
	}

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		ab := simnet.NewLocal[testMsg](sched)
		ba := simnet.NewLocal[testMsg](sched)
		if err := overlays[i].AddConn(ba, ab); err != nil {
			t.Fatalf("AddConn: %v", err)
		}
		if err := overlays[j].AddConn(ab, ba); err != nil {
			t.Fatalf("AddConn: %v", err)
		}
	}

	return overlays, &received
}

func TestOverlay_RingDisseminatesToEveryNode(t *testing.T) {
	const n = 10
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(30))
	overlays, received := ring(t, sched, scope, n, 2)

	scope.Spawn(func(ctx context.Context) {
		if err := overlays[0].Publish(ctx, testMsg{id: idFor("m"), body: "m"}); err != nil {
			t.Errorf("Publish: %v", err)
		}
	})

	sched.RunUntil(simtime.FromSeconds(30))

	for i := 0; i < n; i++ {
		if len(deref(received)[i]) != 1 {
			t.Fatalf("node %d received %d copies, want exactly 1", i, len(deref(received)[i]))
		}
	}
}

func deref(p *[][]testMsg) [][]testMsg { return *p }

func TestOverlay_PeeringDegreeRejection(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))
	o := New[testMsg](scope, 2, 0, func(context.Context, testMsg) error { return nil })

	a1, a2 := simnet.NewLocal[testMsg](sched), simnet.NewLocal[testMsg](sched)
	b1, b2 := simnet.NewLocal[testMsg](sched), simnet.NewLocal[testMsg](sched)
	c1, c2 := simnet.NewLocal[testMsg](sched), simnet.NewLocal[testMsg](sched)

	if err := o.AddConn(a1, a2); err != nil {
		t.Fatalf("AddConn 1: %v", err)
	}
	if err := o.AddConn(b1, b2); err != nil {
		t.Fatalf("AddConn 2: %v", err)
	}
	if err := o.AddConn(c1, c2); err != ErrPeeringDegreeReached {
		t.Fatalf("AddConn 3 err = %v, want ErrPeeringDegreeReached", err)
	}
	if o.ConnCount() != 2 {
		t.Fatalf("ConnCount = %d, want 2 (rejected conn must not be registered)", o.ConnCount())
	}
}

// TestOverlay_PublishSeedsCacheAtZeroAndEvictsAfterDPeerArrivals mirrors
// spec scenario S4: A publishes m to peers B, C, D (d=3); the cache
// entry starts at 0 so B's later arrival doesn't trigger a second gossip
// round, and the entry is only evicted once all three peers have echoed
// it back.
func TestOverlay_PublishSeedsCacheAtZeroAndEvictsAfterDPeerArrivals(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))

	var aReceived []testMsg
	a := New[testMsg](scope, 3, 0, func(_ context.Context, m testMsg) error {
		aReceived = append(aReceived, m)
		return nil
	})

	for i := 0; i < 3; i++ {
		inbound := simnet.NewLocal[testMsg](sched)
		outbound := simnet.NewLocal[testMsg](sched)
		if err := a.AddConn(inbound, outbound); err != nil {
			t.Fatalf("AddConn %d: %v", i, err)
		}
	}

	msg := testMsg{id: idFor("m"), body: "m"}
	scope.Spawn(func(ctx context.Context) {
		if err := a.Publish(ctx, msg); err != nil {
			t.Errorf("Publish: %v", err)
		}
	})
	sched.RunUntil(simtime.FromSeconds(1))

	if len(aReceived) != 1 {
		t.Fatalf("a received %d copies, want 1 (self-publish handler call only)", len(aReceived))
	}
	if a.CacheLen() != 1 {
		t.Fatalf("cache len after publish = %d, want 1 (entry present at count 0)", a.CacheLen())
	}

	a.mu.Lock()
	conns := append([]*simnet.DuplexConnection[testMsg]{}, a.conns...)
	a.mu.Unlock()

	a.handleInbound(context.Background(), msg, conns[0])
	if len(aReceived) != 1 {
		t.Fatalf("a received %d copies after B's echo, want still 1 (no re-gossip)", len(aReceived))
	}
	if a.CacheLen() != 1 {
		t.Fatalf("cache len after 1 peer echo = %d, want 1 (count=1, not yet evicted)", a.CacheLen())
	}

	a.handleInbound(context.Background(), msg, conns[1])
	a.handleInbound(context.Background(), msg, conns[2])
	if a.CacheLen() != 0 {
		t.Fatalf("cache len after 3 peer echoes = %d, want 0 (evicted at count=d)", a.CacheLen())
	}
}
