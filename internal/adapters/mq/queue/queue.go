// Package queue defines the contract for distributing per-account work to
// the feature-aggregation workers.
//
// The queue carries account groups, not individual rows: each task is
// independent, so consumption order cannot affect the aggregated output.
package queue

import (
	"context"
	"sync"

	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Task is one unit of aggregation work: all transactions of one account.
type Task struct {
	Customer string
	Txs      []model.Transaction
}

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task, blocking while the queue is full.
	// Returns ErrClosed after Close, or the context error on cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns the channel workers consume from. The channel is
	// closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close stops accepting tasks; queued ones remain consumable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	q.mu.RUnlock()

	select {
	case q.tasks <- t:
		metrics.UpdateQueueSize(len(q.tasks))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the consumption channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Task {
	return q.tasks
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.tasks)
}

// Close stops accepting tasks and closes the consumption channel once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.closed = true
	close(q.tasks)
	return nil
}
