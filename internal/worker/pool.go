package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gcs2autoclass/internal/checkpoint"
	"gcs2autoclass/internal/metrics"
	"gcs2autoclass/internal/report"
	"gcs2autoclass/internal/storage"

	"go.uber.org/zap"
)

// Pool manages a fixed number of workers draining a shared task channel.
// Per-bucket failures are captured as outcomes and never escape a worker;
// the only fatal condition is a bad pool configuration.
type Pool struct {
	size       int
	config     Config
	client     storage.Client
	checkpoint checkpoint.Store
	results    *report.Aggregator
	metrics    *metrics.Collector
	logger     *zap.Logger

	// test injection points, passed through to the retry policy
	sleep  func(ctx context.Context, d time.Duration) error
	randFn func() float64
}

// NewPool creates a new worker pool. The size is fixed for the lifetime of
// the run.
func NewPool(
	size int,
	config Config,
	client storage.Client,
	checkpointStore checkpoint.Store,
	results *report.Aggregator,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", size)
	}

	return &Pool{
		size:       size,
		config:     config,
		client:     client,
		checkpoint: checkpointStore,
		results:    results,
		metrics:    metricsCollector,
		logger:     logger,
	}, nil
}

// Start launches the workers. The pool has joined when wg unblocks; Finalize
// on the aggregator is safe only after that.
func (p *Pool) Start(ctx context.Context, tasks <-chan Task, wg *sync.WaitGroup) {
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go p.worker(ctx, i, tasks, wg)
	}
}

func (p *Pool) worker(ctx context.Context, id int, tasks <-chan Task, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	processor := &Processor{
		config:     p.config,
		client:     p.client,
		checkpoint: p.checkpoint,
		results:    p.results,
		metrics:    p.metrics,
		logger:     logger,
		sleep:      p.sleep,
		randFn:     p.randFn,
	}

	for {
		select {
		case task, ok := <-tasks:
			if !ok {
				logger.Debug("Worker finished - no more tasks")
				return
			}

			// Cancellation checkpoint between dequeue operations.
			if ctx.Err() != nil {
				processor.Cancel(task)
				continue
			}

			p.metrics.IncInflight()
			processor.Process(ctx, task)
			p.metrics.DecInflight()

		case <-ctx.Done():
			// Drain without picking up new work; every queued task still
			// gets an outcome so the report stays complete.
			for task := range tasks {
				processor.Cancel(task)
			}
			logger.Debug("Worker stopped - cancellation drained")
			return
		}
	}
}
