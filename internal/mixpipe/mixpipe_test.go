package mixpipe

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/nomix-labs/mixsim/internal/simnet"
	"github.com/nomix-labs/mixsim/internal/simtime"
	"github.com/nomix-labs/mixsim/internal/temporalmix"
)

func TestPipeline_GTRInvariant_EmitsOneFixedSizeFrameEveryTick(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(11))
	local := simnet.NewLocal[Frame](sched)

	cfg := temporalmix.Config{Type: temporalmix.None}
	p := New(scope, sched, local, 10, 4, cfg, false)

	var received []Frame
	done := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		defer close(done)
		for i := 0; i < 100; i++ {
			f, err := local.Recv(ctx)
			if err != nil {
				return
			}
			received = append(received, f)
		}
	})

	sched.RunUntil(simtime.FromSeconds(10))
	<-done

	if len(received) != 100 {
		t.Fatalf("received %d frames over 10s at rate 10/s, want 100", len(received))
	}
	for i, f := range received {
		if f.Len() != 5 {
			t.Fatalf("frame[%d].Len() = %d, want 5 (1+S)", i, f.Len())
		}
		if f.Flag != Noise {
			t.Fatalf("frame[%d].Flag = %v, want Noise (nothing was published)", i, f.Flag)
		}
	}
	_ = p
}

// TestProperty_GTRFrameCountMatchesRateAndDuration checks spec.md's GTR
// bound (§8 property 1): over any configured rate and run duration, the
// pipeline emits one frame per tick interval (1/rate rounded to whole
// milliseconds) strictly before the scope deadline, since a tick landing
// exactly on the deadline is cancelled with the scope; every frame is
// exactly 1+S bytes, regardless of whether anything was ever published.
func TestProperty_GTRFrameCountMatchesRateAndDuration(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rate := rapid.Float64Range(1, 200).Draw(rt, "ratePerSec")
		durationSec := rapid.Float64Range(0.1, 5).Draw(rt, "durationSec")
		size := rapid.IntRange(0, 32).Draw(rt, "size")

		sched := simtime.New()
		duration := simtime.FromSeconds(durationSec)
		scope := sched.NewScope(context.Background(), duration)
		local := simnet.NewLocal[Frame](sched)

		cfg := temporalmix.Config{Type: temporalmix.None}
		New(scope, sched, local, rate, size, cfg, false)

		var received []Frame
		scope.Spawn(func(ctx context.Context) {
			for {
				f, err := local.Recv(ctx)
				if err != nil {
					return
				}
				received = append(received, f)
			}
		})

		sched.RunUntil(duration)

		interval := simtime.FromSeconds(1.0 / rate)
		want := int((duration - 1) / interval)
		if len(received) != want {
			rt.Fatalf("rate=%v duration=%v: received %d frames, want %d", rate, durationSec, len(received), want)
		}
		for i, f := range received {
			if f.Len() != 1+size {
				rt.Fatalf("frame[%d].Len() = %d, want %d", i, f.Len(), 1+size)
			}
		}
	})
}

func TestPipeline_PublishRejectsWrongSize(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(1))
	local := simnet.NewLocal[Frame](sched)
	cfg := temporalmix.Config{Type: temporalmix.None}
	p := New(scope, sched, local, 1, 4, cfg, false)

	if err := p.Publish(Frame{Flag: Real, Payload: []byte("xx")}); err != ErrSizeMismatch {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestPipeline_SkipNoiseDropsNoiseFrames(t *testing.T) {
	sched := simtime.New()
	scope := sched.NewScope(context.Background(), simtime.FromSeconds(1))
	local := simnet.NewLocal[Frame](sched)
	cfg := temporalmix.Config{Type: temporalmix.None}
	p := New(scope, sched, local, 1000, 4, cfg, true)

	sched.RunUntil(simtime.FromSeconds(1))
	if !local.Empty() {
		t.Fatal("expected skip_sending_noise to drop every NOISE frame")
	}
	_ = p
}
