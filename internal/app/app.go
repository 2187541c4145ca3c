package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gcs2autoclass/internal/checkpoint"
	"gcs2autoclass/internal/config"
	"gcs2autoclass/internal/metrics"
	"gcs2autoclass/internal/progress"
	"gcs2autoclass/internal/report"
	"gcs2autoclass/internal/storage"
	"gcs2autoclass/internal/worker"

	"go.uber.org/zap"
)

// Migrator represents the main migration application.
type Migrator struct {
	cfg        *config.Config
	logger     *zap.Logger
	client     storage.Client
	checkpoint checkpoint.Store
	metrics    *metrics.Collector
}

// New creates a new migrator instance. Construction is fatal on any error;
// per-bucket failures during the run are not.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Migrator, error) {
	client, err := storage.NewGCSClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var checkpointStore checkpoint.Store = checkpoint.NopStore{}
	if cfg.Migration.Checkpoint != "" {
		checkpointStore, err = checkpoint.NewSQLiteStore(cfg.Migration.Checkpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
		}
	}

	return &Migrator{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		checkpoint: checkpointStore,
		metrics:    metrics.New(),
	}, nil
}

// Run executes the migration and returns the aggregate summary. The summary
// is valid even when ctx is cancelled mid-run; unprocessed buckets are
// reported as cancelled.
func (m *Migrator) Run(ctx context.Context) (report.Summary, error) {
	m.logger.Info("Starting migration",
		zap.String("input", m.cfg.Input),
		zap.String("terminal_class", m.cfg.Migration.TerminalClass),
		zap.Int("concurrency", m.cfg.Migration.Concurrency),
		zap.Bool("dry_run", m.cfg.Migration.DryRun),
	)

	tasks, err := LoadBucketList(m.cfg.Input, m.cfg.Project, m.logger)
	if err != nil {
		return report.Summary{}, err
	}

	if m.cfg.Migration.DryRun {
		return m.dryRun(tasks), nil
	}

	if m.cfg.MetricsAddr != "" {
		go func() {
			if err := m.metrics.StartServer(m.cfg.MetricsAddr); err != nil {
				m.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	buckets := make([]string, len(tasks))
	for i, t := range tasks {
		buckets[i] = t.Bucket
	}
	aggregator := report.NewAggregator(buckets, m.logger)
	m.metrics.SetTotal(int64(len(tasks)))

	pool, err := worker.NewPool(
		m.cfg.Migration.Concurrency,
		worker.Config{
			TerminalClass:  m.cfg.Migration.TerminalClass,
			MaxAttempts:    m.cfg.Migration.Retries,
			BaseBackoff:    time.Duration(m.cfg.Migration.RetryBackoffMs) * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			JitterFraction: m.cfg.Migration.RetryJitter,
			CallTimeout:    time.Duration(m.cfg.Migration.CallTimeoutMs) * time.Millisecond,
			SkipMigrated:   m.cfg.Migration.SkipMigrated,
			Resume:         m.cfg.Migration.Resume,
		},
		m.client,
		m.checkpoint,
		aggregator,
		m.metrics,
		m.logger,
	)
	if err != nil {
		return report.Summary{}, err
	}

	var progressDisplay *progress.Display
	if m.cfg.Migration.ShowProgress && progress.IsTerminalSupported() {
		progressDisplay = progress.NewDisplay(m.metrics.GetProgressTracker(), 2*time.Second)
		progressDisplay.Start()
	}

	taskCh := make(chan worker.Task, m.cfg.Migration.Concurrency*2)

	var wg sync.WaitGroup
	pool.Start(ctx, taskCh, &wg)

	m.enqueue(ctx, tasks, taskCh, aggregator)
	close(taskCh)
	wg.Wait()

	if progressDisplay != nil {
		progressDisplay.Stop()
	}

	result := aggregator.Finalize()
	if len(result.Missing) > 0 {
		// Should be unreachable once the pool has joined.
		m.logger.Error("Report is missing outcomes", zap.Strings("buckets", result.Missing))
	}

	if err := report.WriteCSVFile(m.cfg.Output, result); err != nil {
		return result.Summary, fmt.Errorf("failed to write report: %w", err)
	}

	m.logger.Info("Migration completed",
		zap.String("output", m.cfg.Output),
		zap.Int("total", result.Summary.Total),
		zap.Int("succeeded", result.Summary.Succeeded),
		zap.Int("skipped", result.Summary.Skipped),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("cancelled", result.Summary.Cancelled),
	)

	return result.Summary, nil
}

// enqueue feeds tasks to the pool. When the run is cancelled mid-enqueue the
// remaining tasks never reach a worker, so their cancelled outcomes are
// recorded here to keep the report complete.
func (m *Migrator) enqueue(ctx context.Context, tasks []worker.Task, taskCh chan<- worker.Task, aggregator *report.Aggregator) {
	for i, task := range tasks {
		select {
		case taskCh <- task:
		case <-ctx.Done():
			now := time.Now()
			for _, rest := range tasks[i:] {
				aggregator.Submit(report.Outcome{
					Project:    rest.Project,
					Bucket:     rest.Bucket,
					Status:     report.StatusCancelled,
					StartedAt:  now,
					FinishedAt: now,
				})
				m.metrics.ObserveOutcome(string(report.StatusCancelled), 0)
			}
			m.logger.Warn("Enqueue stopped - run cancelled",
				zap.Int("enqueued", i),
				zap.Int("remaining", len(tasks)-i),
			)
			return
		}
	}
}

func (m *Migrator) dryRun(tasks []worker.Task) report.Summary {
	for _, task := range tasks {
		m.logger.Info("Would migrate bucket",
			zap.String("project", task.Project),
			zap.String("bucket", task.Bucket),
			zap.String("terminal_class", m.cfg.Migration.TerminalClass),
		)
	}

	m.logger.Info("Dry run completed", zap.Int("buckets", len(tasks)))
	return report.Summary{Total: len(tasks)}
}

// Close cleans up resources.
func (m *Migrator) Close() error {
	if m.checkpoint != nil {
		m.checkpoint.Close()
	}
	if closer, ok := m.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
