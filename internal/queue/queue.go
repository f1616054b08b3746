// Package queue runs post verifications in the background on a fixed pool
// of workers fed by a bounded channel.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"hive/internal/logging"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("verification queue is closed")
	// ErrQueueFull is returned when the buffer has no room.
	ErrQueueFull = errors.New("verification queue is full")
)

// Handler processes one post id.
type Handler func(ctx context.Context, postID string) error

// Config sizes the queue.
type Config struct {
	Workers  int
	Capacity int
	// OnDepth, when set, is called with the number of pending jobs after
	// every change.
	OnDepth func(depth int)
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Pending   int
	Processed int64
	Failed    int64
}

// Queue is an in-process verification queue. Handler errors and panics are
// logged and counted; they never stop a worker.
type Queue struct {
	cfg     Config
	handler Handler

	jobs   chan string
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	pending   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// New starts cfg.Workers workers that call handler for each enqueued id.
func New(handler Handler, cfg Config) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		handler: handler,
		jobs:    make(chan string, cfg.Capacity),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	logging.Queue("Verification queue started (workers=%d, capacity=%d)", cfg.Workers, cfg.Capacity)
	return q
}

// Enqueue schedules a verification without blocking.
func (q *Queue) Enqueue(postID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	n := q.pending.Add(1)
	select {
	case q.jobs <- postID:
		q.reportDepth(n)
		logging.Get(logging.CategoryQueue).Debug("Enqueued post %s", postID)
		return nil
	default:
		q.pending.Add(-1)
		return ErrQueueFull
	}
}

// Close stops accepting work, lets the workers drain what is already queued
// and waits for them. Cancelling ctx aborts in-flight handlers instead.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		logging.Queue("Verification queue drained (processed=%d, failed=%d)", q.processed.Load(), q.failed.Load())
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return fmt.Errorf("queue drain interrupted: %w", ctx.Err())
	}
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   int(q.pending.Load()),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for postID := range q.jobs {
		q.reportDepth(q.pending.Add(-1))
		q.process(id, postID)
	}
}

func (q *Queue) process(worker int, postID string) {
	defer q.processed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			logging.QueueError("Worker %d panicked on post %s: %v", worker, postID, r)
		}
	}()

	timer := logging.StartTimer(logging.CategoryQueue, "verify "+postID)
	err := q.handler(q.ctx, postID)
	timer.Stop()

	if err != nil {
		q.failed.Add(1)
		logging.QueueError("Worker %d failed post %s: %v", worker, postID, err)
	}
}

func (q *Queue) reportDepth(n int64) {
	if q.cfg.OnDepth != nil {
		q.cfg.OnDepth(int(n))
	}
}
