// Package batch accumulates interaction events and hands them off in batches:
// on a size threshold, on an idle timeout counted from the first unflushed
// event, on a periodic safety-net sweep, or on an explicit teardown drain.
package batch

import (
	"context"
	"sync"
	"time"

	"clicktrail/internal/clock"
	"clicktrail/internal/models"
)

const (
	DefaultMaxEvents     = 10
	DefaultFlushTimeout  = 3 * time.Second
	DefaultSweepInterval = 5 * time.Second
)

// Sink receives a drained batch. The queue does not wait for the sink:
// transmission acknowledgment is the sink's problem.
type Sink func(events []models.InteractionEvent)

// Queue is the ordered pending-event buffer. It is owned by the capture
// pipeline (producer) and the flush path (drainer); drains swap-and-clear
// under the lock so a concurrent enqueue lands in exactly one batch.
type Queue struct {
	mu      sync.Mutex
	clk     clock.Clock
	limit   int
	timeout time.Duration
	sweep   time.Duration
	sink    Sink

	pending []models.InteractionEvent
	timer   clock.Timer
}

// Option tweaks queue behavior.
type Option func(*Queue)

// WithLimit overrides the size threshold.
func WithLimit(n int) Option { return func(q *Queue) { q.limit = n } }

// WithFlushTimeout overrides the idle flush timer.
func WithFlushTimeout(d time.Duration) Option { return func(q *Queue) { q.timeout = d } }

// WithSweepInterval overrides the safety-net sweep period.
func WithSweepInterval(d time.Duration) Option { return func(q *Queue) { q.sweep = d } }

// New builds a queue that drains into sink.
func New(clk clock.Clock, sink Sink, opts ...Option) *Queue {
	if clk == nil {
		clk = clock.System()
	}
	q := &Queue{
		clk:     clk,
		limit:   DefaultMaxEvents,
		timeout: DefaultFlushTimeout,
		sweep:   DefaultSweepInterval,
		sink:    sink,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends one event. Reaching the size threshold flushes
// immediately; the first event into an empty queue arms the idle timer.
func (q *Queue) Enqueue(event models.InteractionEvent) {
	q.mu.Lock()
	q.pending = append(q.pending, event)
	if len(q.pending) == 1 {
		q.timer = q.clk.AfterFunc(q.timeout, func() { q.Flush() })
	}
	full := len(q.pending) >= q.limit
	q.mu.Unlock()
	if full {
		q.Flush()
	}
}

// Flush atomically drains the queue, disarms the idle timer, and hands the
// batch to the sink. Returns the drained batch; a no-op on an empty queue.
func (q *Queue) Flush() []models.InteractionEvent {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if q.sink != nil {
		q.sink(batch)
	}
	return batch
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run sweeps the queue on a fixed period until ctx is done, catching any
// non-empty queue whose idle timer was missed. On shutdown it performs a
// final unconditional drain.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			q.Flush()
			return
		case <-ticker.C:
			if q.Len() > 0 {
				q.Flush()
			}
		}
	}
}
