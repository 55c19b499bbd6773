package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// workerPool is a fixed-size goroutine pool with a bounded input queue.
// The engine runs it with a single worker so commands never overlap.
type workerPool[T any] struct {
	queue   chan T
	process func(ctx context.Context, t T) error
	wg      sync.WaitGroup
	once    sync.Once
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity cap.
func newWorkerPool[T any](ctx context.Context, n, cap int, fn func(context.Context, T) error) *workerPool[T] {
	p := &workerPool[T]{
		queue:   make(chan T, cap),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T]) run(ctx context.Context) {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			if err := p.safeProcess(ctx, t); err != nil {
				slog.Debug("engine: job failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// safeProcess keeps a panicking job from taking the worker down.
func (p *workerPool[T]) safeProcess(ctx context.Context, t T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: job panicked", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.process(ctx, t)
}

// Submit enqueues a job without blocking (returns false if full).
func (p *workerPool[T]) Submit(t T) (ok bool) {
	defer func() {
		// Submit after Drain.
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for all workers to finish.
func (p *workerPool[T]) Drain() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T]) QueueCap() int {
	return cap(p.queue)
}
