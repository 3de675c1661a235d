package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestQueue_FIFOOrderAndSpacing(t *testing.T) {
	interval := 30 * time.Millisecond
	q := NewQueue(interval, zerolog.Nop())

	const n = 5
	var (
		mu     sync.Mutex
		starts = make([]time.Time, n)
		ends   = make([]time.Time, n)
		order  []int
	)

	results := make([]<-chan Result, n)
	for i := 0; i < n; i++ {
		i := i
		results[i] = q.Enqueue(func() (any, error) {
			mu.Lock()
			starts[i] = time.Now()
			order = append(order, i)
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			ends[i] = time.Now()
			mu.Unlock()
			return i, nil
		})
	}

	for i, ch := range results {
		res := <-ch
		if res.Err != nil {
			t.Fatalf("task %d error = %v", i, res.Err)
		}
		if res.Value != i {
			t.Errorf("task %d value = %v, want %d", i, res.Value, i)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("dispatch order = %v, want ascending", order)
		}
	}
	for i := 1; i < n; i++ {
		if starts[i].Before(ends[i-1]) {
			t.Errorf("task %d started before task %d finished", i, i-1)
		}
		if gap := starts[i].Sub(ends[i-1]); gap < interval {
			t.Errorf("gap between task %d and %d = %v, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestQueue_SingleWorker(t *testing.T) {
	q := NewQueue(0, zerolog.Nop())

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-q.Enqueue(func() (any, error) {
				cur := atomic.AddInt32(&active, 1)
				for {
					prev := atomic.LoadInt32(&maxActive)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", maxActive)
	}
}

func TestQueue_FailureIsolation(t *testing.T) {
	q := NewQueue(0, zerolog.Nop())
	boom := errors.New("boom")

	first := q.Enqueue(func() (any, error) { return nil, boom })
	second := q.Enqueue(func() (any, error) { panic("kaboom") })
	third := q.Enqueue(func() (any, error) { return "ok", nil })

	if res := <-first; !errors.Is(res.Err, boom) {
		t.Errorf("first error = %v, want boom", res.Err)
	}
	if res := <-second; res.Err == nil {
		t.Error("panicking task should report an error")
	}
	if res := <-third; res.Err != nil || res.Value != "ok" {
		t.Errorf("third = %+v, want ok", res)
	}
}

func TestQueue_PausesAfterEachTask(t *testing.T) {
	var mu sync.Mutex
	var pauses []time.Duration
	q := NewQueue(100*time.Millisecond, zerolog.Nop(), WithSleep(func(d time.Duration) {
		mu.Lock()
		pauses = append(pauses, d)
		mu.Unlock()
	}))

	var chans []<-chan Result
	for i := 0; i < 3; i++ {
		chans = append(chans, q.Enqueue(func() (any, error) { return nil, nil }))
	}
	for _, ch := range chans {
		<-ch
	}

	waitFor(t, func() bool { return !q.Running() })

	mu.Lock()
	defer mu.Unlock()
	if len(pauses) != 3 {
		t.Fatalf("pauses = %v, want 3", pauses)
	}
	for _, p := range pauses {
		if p != 100*time.Millisecond {
			t.Errorf("pause = %v, want 100ms", p)
		}
	}
}

func TestQueue_WorkerRestartsAfterDrain(t *testing.T) {
	q := NewQueue(0, zerolog.Nop())

	<-q.Enqueue(func() (any, error) { return 1, nil })
	waitFor(t, func() bool { return !q.Running() })

	res := <-q.Enqueue(func() (any, error) { return 2, nil })
	if res.Value != 2 {
		t.Errorf("value = %v, want 2", res.Value)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestDo_Typed(t *testing.T) {
	q := NewQueue(0, zerolog.Nop())

	got, err := Do(context.Background(), q, func(ctx context.Context) ([]byte, error) {
		return []byte("payload"), nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Do() = %s, want payload", got)
	}

	_, err = Do(context.Background(), q, func(ctx context.Context) (int, error) {
		return 0, errors.New("nope")
	})
	if err == nil || err.Error() != "nope" {
		t.Errorf("Do() error = %v, want nope", err)
	}
}

func TestDo_ContextCancelledWhileQueued(t *testing.T) {
	q := NewQueue(0, zerolog.Nop())

	release := make(chan struct{})
	blocker := q.Enqueue(func() (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		_, err := Do(ctx, q, func(ctx context.Context) (int, error) {
			ran.Store(true)
			return 1, ctx.Err()
		})
		errCh <- err
	}()

	waitFor(t, func() bool { return q.Len() == 1 })
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}

	close(release)
	<-blocker
	waitFor(t, func() bool { return ran.Load() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
