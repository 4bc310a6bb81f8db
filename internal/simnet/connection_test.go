package simnet

import (
	"context"
	"math/rand"
	"testing"

	"github.com/nomix-labs/mixsim/internal/simtime"
)

type sizedInt int

func (sizedInt) Len() int { return 1 }

func TestLocalSimplexConnection_DeliversImmediately(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))
	conn := NewLocal[sizedInt](sched)

	got := make(chan sizedInt, 1)
	scope.Spawn(func(ctx context.Context) {
		v, err := conn.Recv(ctx)
		if err != nil {
			return
		}
		got <- v
	})

	scope.Spawn(func(ctx context.Context) {
		if err := conn.Send(ctx, sizedInt(7)); err != nil {
			t.Errorf("Send: %v", err)
		}
	})

	sched.Run()

	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("got %v, want 7", v)
		}
	default:
		t.Fatal("receiver never got a value")
	}
}

func TestRemoteSimplexConnection_DelaysByLatency(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))
	rng := rand.New(rand.NewSource(1))
	conn := NewRemote[sizedInt](scope, sched, rng, simtime.FromSeconds(1), simtime.FromSeconds(1))

	var recvAt simtime.Duration
	done := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		defer close(done)
		if _, err := conn.Recv(ctx); err != nil {
			t.Errorf("Recv: %v", err)
			return
		}
		recvAt = sched.Now()
	})

	scope.Spawn(func(ctx context.Context) {
		if err := conn.Send(ctx, sizedInt(1)); err != nil {
			t.Errorf("Send: %v", err)
		}
	})

	sched.Run()
	<-done

	if recvAt != simtime.FromSeconds(1) {
		t.Fatalf("recvAt = %v, want %v", recvAt, simtime.FromSeconds(1))
	}
	if conn.Latency() != simtime.FromSeconds(1) {
		t.Fatalf("latency = %v, want %v", conn.Latency(), simtime.FromSeconds(1))
	}
}

func TestRemoteSimplexConnection_PreservesFIFOOrder(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))
	rng := rand.New(rand.NewSource(2))
	conn := NewRemote[sizedInt](scope, sched, rng, simtime.FromSeconds(1), simtime.FromSeconds(3))

	var received []sizedInt
	done := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		defer close(done)
		for i := 0; i < 3; i++ {
			v, err := conn.Recv(ctx)
			if err != nil {
				return
			}
			received = append(received, v)
		}
	})

	scope.Spawn(func(ctx context.Context) {
		for i := 0; i < 3; i++ {
			if err := conn.Send(ctx, sizedInt(i)); err != nil {
				t.Errorf("Send: %v", err)
				return
			}
		}
	})

	sched.Run()
	<-done

	if len(received) != 3 {
		t.Fatalf("received %v, want 3 values", received)
	}
	for i, v := range received {
		if int(v) != i {
			t.Fatalf("received[%d] = %v, want %v", i, v, i)
		}
	}
}

func TestDuplexConnection_RoutesEachDirection(t *testing.T) {
	sched := simtime.New()
	_ = sched.NewScope(context.Background(), simtime.FromSeconds(10))
	a := NewLocal[sizedInt](sched)
	b := NewLocal[sizedInt](sched)
	duplex := NewDuplex[sizedInt](a, b)

	if err := duplex.Send(context.Background(), sizedInt(5)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if a.q.Len() != 0 {
		t.Fatalf("expected outbound Send to go through b, not a")
	}
	if b.q.Len() != 1 {
		t.Fatalf("expected outbound Send to land in b's queue")
	}
}

func TestMeteredConnection_AccumulatesBandwidthAndNodeState(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(10))
	rng := rand.New(rand.NewSource(3))
	remote := NewRemote[sizedInt](scope, sched, rng, 0, 0)
	states := NewNodeStateTable(2, simtime.FromSeconds(10))
	metered := NewMetered[sizedInt](remote, sched, 0, 0, 1, states)

	done := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		defer close(done)
		if _, err := metered.Recv(ctx); err != nil {
			t.Errorf("Recv: %v", err)
		}
	})
	scope.Spawn(func(ctx context.Context) {
		if err := metered.Send(ctx, sizedInt(1)); err != nil {
			t.Errorf("Send: %v", err)
		}
	})

	sched.Run()
	<-done

	sendBW := metered.SendingBandwidths()
	if len(sendBW) == 0 || sendBW[0] != 1 {
		t.Fatalf("sendBW = %v, want first slot = 1", sendBW)
	}
	recvBW := metered.ReceivingBandwidths()
	if len(recvBW) == 0 || recvBW[0] != 1 {
		t.Fatalf("recvBW = %v, want first slot = 1", recvBW)
	}
	counts := metered.MessageSizeCounts()
	if counts[1] != 1 {
		t.Fatalf("counts = %v, want {1: 1}", counts)
	}
}
