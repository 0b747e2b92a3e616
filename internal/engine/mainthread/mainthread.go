// Package mainthread marshals work onto the thread that owns the rendering
// context. The owning goroutine must call runtime.LockOSThread (the window
// package does so at init) and then drain the queue from its loop.
package mainthread

import (
	"context"
	"time"
)

// Queue holds functions waiting to run on the main thread.
type Queue struct {
	funcs chan func()
}

// NewQueue returns a queue buffering up to size pending functions.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{funcs: make(chan func(), size)}
}

// Post schedules f without waiting for it to run. It blocks while the
// queue is full.
func (q *Queue) Post(f func()) {
	q.funcs <- f
}

// Call runs f on the main thread and returns its error. It must not be
// called from the main thread itself, which would wait on itself forever.
func (q *Queue) Call(ctx context.Context, f func() error) error {
	result := make(chan error, 1)
	select {
	case q.funcs <- func() { result <- f() }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs every pending function without waiting for new ones and
// returns how many ran. Call it once per frame from the render loop.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case f := <-q.funcs:
			f()
			n++
		default:
			return n
		}
	}
}

// Run executes functions as they arrive until ctx is done, then drains
// what is left.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case f := <-q.funcs:
			f()
		case <-ctx.Done():
			q.Drain()
			return
		}
	}
}

// RunEvery is Run with idle called between functions at least once per
// interval, for loops that also have to pump window events.
func (q *Queue) RunEvery(ctx context.Context, interval time.Duration, idle func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case f := <-q.funcs:
			f()
		case <-ticker.C:
			idle()
		case <-ctx.Done():
			q.Drain()
			return
		}
	}
}
