package worker

import (
	"context"
	"errors"
	"time"

	"gcs2autoclass/internal/checkpoint"
	"gcs2autoclass/internal/metrics"
	"gcs2autoclass/internal/report"
	"gcs2autoclass/internal/retry"
	"gcs2autoclass/internal/storage"

	"go.uber.org/zap"
)

// Processor runs the two-step migration for a single bucket: enable
// Autoclass first, then set the terminal storage class. The second step only
// runs once the first has succeeded; a terminal class is meaningless on a
// bucket without Autoclass.
type Processor struct {
	config     Config
	client     storage.Client
	checkpoint checkpoint.Store
	results    *report.Aggregator
	metrics    *metrics.Collector
	logger     *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	randFn func() float64
}

// Process migrates one bucket and submits exactly one outcome.
func (p *Processor) Process(ctx context.Context, task Task) {
	started := time.Now()
	logger := p.logger.With(
		zap.String("project", task.Project),
		zap.String("bucket", task.Bucket),
	)

	if p.config.Resume {
		if record, err := p.checkpoint.Get(task.Project, task.Bucket); err == nil &&
			record != nil && record.Status == checkpoint.StatusCompleted {
			logger.Debug("Skipping bucket completed in previous run")
			p.submit(report.Outcome{
				Project:    task.Project,
				Bucket:     task.Bucket,
				Status:     report.StatusSkipped,
				StartedAt:  started,
				FinishedAt: time.Now(),
			}, logger)
			return
		}
	}

	status, info, attempts, err := p.migrate(ctx, task, logger)

	outcome := report.Outcome{
		Project:    task.Project,
		Bucket:     task.Bucket,
		Status:     status,
		Attempts:   attempts,
		Info:       info,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		outcome.Err = err.Error()
	}

	p.submit(outcome, logger)
}

// migrate performs the migration steps. Each step keeps its own retry state;
// the returned attempt count is that of the step that retried the most.
func (p *Processor) migrate(ctx context.Context, task Task, logger *zap.Logger) (report.Status, storage.BucketInfo, int, error) {
	policy := p.policy(logger)
	worst := 0

	var info storage.BucketInfo
	attempts, err := p.step(ctx, policy, logger, "get_bucket_attrs", func(callCtx context.Context) error {
		var aerr error
		info, aerr = p.client.BucketAttrs(callCtx, task.Project, task.Bucket)
		return aerr
	})
	worst = max(worst, attempts)
	if err != nil {
		return failureStatus(err), info, worst, err
	}

	if p.config.SkipMigrated && info.Migrated(p.config.TerminalClass) {
		return report.StatusSkipped, info, worst, nil
	}

	attempts, err = p.step(ctx, policy, logger, "enable_autoclass", func(callCtx context.Context) error {
		return p.client.EnableAutoclass(callCtx, task.Project, task.Bucket)
	})
	worst = max(worst, attempts)
	if err != nil {
		return failureStatus(err), info, worst, err
	}

	attempts, err = p.step(ctx, policy, logger, "set_terminal_storage_class", func(callCtx context.Context) error {
		return p.client.SetTerminalStorageClass(callCtx, task.Project, task.Bucket, p.config.TerminalClass)
	})
	worst = max(worst, attempts)
	if err != nil {
		return failureStatus(err), info, worst, err
	}

	info.AutoclassEnabled = true
	info.TerminalStorageClass = p.config.TerminalClass
	return report.StatusSucceeded, info, worst, nil
}

// step runs one remote operation under the retry policy with a per-call
// timeout.
func (p *Processor) step(ctx context.Context, policy retry.Policy, logger *zap.Logger, name string, call func(ctx context.Context) error) (int, error) {
	attempt := 0
	return policy.Do(ctx, func() error {
		attempt++
		logger.Debug("Attempt started",
			zap.String("step", name),
			zap.Int("attempt", attempt),
		)

		callCtx := ctx
		if p.config.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.config.CallTimeout)
			defer cancel()
		}

		return call(callCtx)
	})
}

func (p *Processor) policy(logger *zap.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts:    p.config.MaxAttempts,
		BaseDelay:      p.config.BaseBackoff,
		MaxDelay:       p.config.MaxBackoff,
		JitterFraction: p.config.JitterFraction,
		Sleep:          p.sleep,
		Rand:           p.randFn,
		Notify: func(attempt int, delay time.Duration, err error) {
			p.metrics.IncRetry()
			logger.Warn("Attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)
		},
	}
}

// Cancel records a task that will not be processed because the run was
// stopped.
func (p *Processor) Cancel(task Task) {
	now := time.Now()
	p.submit(report.Outcome{
		Project:    task.Project,
		Bucket:     task.Bucket,
		Status:     report.StatusCancelled,
		StartedAt:  now,
		FinishedAt: now,
	}, p.logger.With(zap.String("bucket", task.Bucket)))
}

func (p *Processor) submit(outcome report.Outcome, logger *zap.Logger) {
	p.results.Submit(outcome)
	p.metrics.ObserveOutcome(string(outcome.Status), outcome.FinishedAt.Sub(outcome.StartedAt))
	p.saveCheckpoint(outcome, logger)

	switch outcome.Status {
	case report.StatusSucceeded:
		logger.Info("Bucket migrated",
			zap.Int("attempts", outcome.Attempts),
			zap.Duration("duration", outcome.FinishedAt.Sub(outcome.StartedAt)),
		)
	case report.StatusSkipped:
		logger.Info("Bucket skipped - already migrated")
	case report.StatusCancelled:
		logger.Info("Bucket cancelled")
	default:
		logger.Error("Bucket failed",
			zap.String("status", string(outcome.Status)),
			zap.Int("attempts", outcome.Attempts),
			zap.String("error", outcome.Err),
		)
	}
}

func (p *Processor) saveCheckpoint(outcome report.Outcome, logger *zap.Logger) {
	var status checkpoint.Status
	switch {
	case outcome.Status == report.StatusSucceeded || outcome.Status == report.StatusSkipped:
		status = checkpoint.StatusCompleted
	case outcome.Status.Failed():
		status = checkpoint.StatusFailed
	default:
		// Cancelled buckets stay unrecorded so a resumed run picks them up.
		return
	}

	record := &checkpoint.Record{
		Project:   outcome.Project,
		Bucket:    outcome.Bucket,
		Status:    status,
		Attempts:  outcome.Attempts,
		LastError: outcome.Err,
	}
	if err := p.checkpoint.Save(record); err != nil {
		logger.Error("Failed to save checkpoint record", zap.Error(err))
	}
}

// failureStatus maps a final error onto the outcome status.
func failureStatus(err error) report.Status {
	switch {
	case errors.Is(err, context.Canceled):
		return report.StatusCancelled
	case storage.IsTransient(err):
		return report.StatusFailedTransient
	default:
		return report.StatusFailedPermanent
	}
}
