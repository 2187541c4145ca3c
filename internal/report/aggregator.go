package report

import (
	"sync"

	"go.uber.org/zap"
)

// Aggregator is a thread-safe collector of per-bucket outcomes. Workers call
// Submit concurrently; Finalize is called once after the pool has joined and
// rebuilds the report in input order regardless of completion order.
type Aggregator struct {
	mu       sync.Mutex
	order    []string
	outcomes map[string]Outcome
	logger   *zap.Logger
}

// NewAggregator creates an aggregator for the given ordered bucket list.
func NewAggregator(buckets []string, logger *zap.Logger) *Aggregator {
	order := make([]string, len(buckets))
	copy(order, buckets)

	return &Aggregator{
		order:    order,
		outcomes: make(map[string]Outcome, len(buckets)),
		logger:   logger,
	}
}

// Submit records one outcome. Safe under concurrent calls. A second outcome
// for the same bucket is dropped; the first submission wins.
func (a *Aggregator) Submit(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.outcomes[o.Bucket]; dup {
		a.logger.Warn("Duplicate outcome dropped",
			zap.String("bucket", o.Bucket),
			zap.String("status", string(o.Status)),
		)
		return
	}

	a.outcomes[o.Bucket] = o
}

// Finalize produces the ordered report with aggregate counts. Callable only
// after all submissions have completed.
func (a *Aggregator) Finalize() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := Report{Outcomes: make([]Outcome, 0, len(a.order))}
	for _, bucket := range a.order {
		o, ok := a.outcomes[bucket]
		if !ok {
			r.Missing = append(r.Missing, bucket)
			continue
		}

		r.Outcomes = append(r.Outcomes, o)
		r.Summary.Total++
		switch {
		case o.Status == StatusSucceeded:
			r.Summary.Succeeded++
		case o.Status == StatusSkipped:
			r.Summary.Skipped++
		case o.Status == StatusCancelled:
			r.Summary.Cancelled++
		case o.Status.Failed():
			r.Summary.Failed++
		}
	}

	return r
}
