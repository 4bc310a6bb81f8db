package simtime

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_SleepAdvancesVirtualTime(t *testing.T) {
	s := New()
	scope := s.NewScope(context.Background(), FromSeconds(10))

	var observed Duration
	done := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		defer close(done)
		if err := s.Sleep(ctx, FromSeconds(2)); err != nil {
			t.Errorf("Sleep: %v", err)
			return
		}
		observed = s.Now()
	})

	s.Run()
	<-done

	if observed != FromSeconds(2) {
		t.Fatalf("observed now = %v, want %v", observed, FromSeconds(2))
	}
}

func TestScheduler_SleepOrderMatchesSpawnOrder(t *testing.T) {
	s := New()
	scope := s.NewScope(context.Background(), FromSeconds(10))

	var order []int
	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		scope.Spawn(func(ctx context.Context) {
			if err := s.Sleep(ctx, FromSeconds(1)); err != nil {
				return
			}
			results <- i
		})
	}

	s.Run()
	close(results)
	for v := range results {
		order = append(order, v)
	}

	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestScope_DeadlineCancelsActivities(t *testing.T) {
	s := New()
	scope := s.NewScope(context.Background(), FromSeconds(1))

	cancelled := make(chan struct{})
	scope.Spawn(func(ctx context.Context) {
		for {
			if err := s.Sleep(ctx, FromSeconds(1)); err != nil {
				close(cancelled)
				return
			}
		}
	})

	s.RunUntil(FromSeconds(5))

	select {
	case <-cancelled:
	default:
		t.Fatal("activity was not cancelled by scope deadline")
	}
}

func TestQueue_PutThenGetFIFO(t *testing.T) {
	s := New()
	scope := s.NewScope(context.Background(), FromSeconds(10))
	q := NewQueue[int](s)

	got := make(chan []int, 1)
	scope.Spawn(func(ctx context.Context) {
		var vals []int
		for i := 0; i < 2; i++ {
			v, err := q.Get(ctx)
			if err != nil {
				return
			}
			vals = append(vals, v)
		}
		got <- vals
	})

	q.Put(1)
	q.Put(2)

	s.Run()

	select {
	case vals := <-got:
		if len(vals) != 2 || vals[0] != 1 || vals[1] != 2 {
			t.Fatalf("vals = %v, want [1 2]", vals)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for consumer")
	}
}

func TestQueue_GetSuspendsUntilPut(t *testing.T) {
	s := New()
	scope := s.NewScope(context.Background(), FromSeconds(10))
	q := NewQueue[string](s)

	received := make(chan string, 1)
	scope.Spawn(func(ctx context.Context) {
		v, err := q.Get(ctx)
		if err != nil {
			return
		}
		received <- v
	})

	scope.Spawn(func(ctx context.Context) {
		if err := s.Sleep(ctx, FromSeconds(3)); err != nil {
			return
		}
		q.Put("hello")
	})

	s.Run()

	select {
	case v := <-received:
		if v != "hello" {
			t.Fatalf("received %q, want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for consumer")
	}
}
