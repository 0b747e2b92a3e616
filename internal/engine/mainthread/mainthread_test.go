package mainthread

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDrain(t *testing.T) {
	q := NewQueue(4)

	var order []int
	for i := 0; i < 3; i++ {
		q.Post(func() { order = append(order, i) })
	}

	if n := q.Drain(); n != 3 {
		t.Errorf("expected 3 functions to run, got %d", n)
	}
	if len(order) != 3 || order[0] != 0 || order[2] != 2 {
		t.Errorf("expected functions to run in order, got %v", order)
	}
	if n := q.Drain(); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestCallRunsOnDrainingGoroutine(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		q.Run(ctx)
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := q.Call(ctx, func() error {
				mu.Lock()
				ran++
				mu.Unlock()
				if i == 3 {
					return boom
				}
				return nil
			})
			if i == 3 && !errors.Is(err, boom) {
				t.Errorf("expected boom, got %v", err)
			}
			if i != 3 && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	cancel()

	select {
	case <-runnerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if ran != 10 {
		t.Errorf("expected 10 calls, got %d", ran)
	}
}

func TestCallCanceled(t *testing.T) {
	q := NewQueue(1)
	q.Post(func() {}) // fill the queue

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Call(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunEveryCallsIdle(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	idles := 0
	ran := false
	q.Post(func() { ran = true })
	q.RunEvery(ctx, time.Millisecond, func() {
		idles++
		if idles == 3 {
			cancel()
		}
	})

	if !ran {
		t.Error("expected queued function to run")
	}
	// A tick may be pending when the context is canceled
	if idles < 3 {
		t.Errorf("expected at least 3 idle calls, got %d", idles)
	}
}
