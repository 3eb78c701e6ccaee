// Package worker runs feature aggregation across a pool of goroutines.
//
// Parallelism here is purely an optimization: every task is one account's
// complete transaction group, results are collected into a map keyed by
// account, and the aggregate itself is pure, so worker scheduling cannot
// change the output.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/finsift/internal/adapters/mq/queue"
	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/pkg/logger"
	"github.com/okian/finsift/pkg/metrics"
)

// Aggregator computes the feature row for one account group.
type Aggregator interface {
	BuildGroup(customer string, txs []model.Transaction) model.CustomerFeatures
}

// Pool fans account groups out to workers and gathers the feature rows.
type Pool struct {
	workerCount int
	queueSize   int
	aggregator  Aggregator
	logger      logger.Logger
}

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workerCount = n
		}
	}
}

// WithQueueSize bounds the task queue.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPool creates a pool around an aggregator.
func NewPool(agg Aggregator, opts ...Option) *Pool {
	p := &Pool{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		aggregator:  agg,
		logger:      logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run aggregates all groups and returns one feature row per account. It
// blocks until every group is processed or ctx is cancelled.
func (p *Pool) Run(ctx context.Context, groups map[string][]model.Transaction) (map[string]model.CustomerFeatures, error) {
	start := time.Now()
	q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
	results := make(chan model.CustomerFeatures, p.queueSize)

	metrics.UpdateWorkerActiveCount(p.workerCount)
	defer metrics.UpdateWorkerActiveCount(0)

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range q.Dequeue(ctx) {
				row := p.aggregator.BuildGroup(task.Customer, task.Txs)
				select {
				case results <- row:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Producer: enqueue every group, then close so workers drain and exit.
	enqueueErr := make(chan error, 1)
	go func() {
		defer func() { _ = q.Close() }()
		for customer, txs := range groups {
			if err := q.Enqueue(ctx, queue.Task{Customer: customer, Txs: txs}); err != nil {
				enqueueErr <- err
				return
			}
		}
		enqueueErr <- nil
	}()

	// Close the results channel once all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]model.CustomerFeatures, len(groups))
	for row := range results {
		out[row.Customer] = row
	}

	if err := <-enqueueErr; err != nil {
		return nil, fmt.Errorf("feature aggregation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("feature aggregation aborted: %w", err)
	}
	if len(out) != len(groups) {
		return nil, fmt.Errorf("feature aggregation incomplete: %d of %d groups", len(out), len(groups))
	}

	metrics.RecordStageDuration("feature_aggregation", time.Since(start))
	p.logger.Debug(ctx, "aggregation complete",
		logger.Int("groups", len(out)),
		logger.Int("workers", p.workerCount),
	)
	return out, nil
}
