package report

import (
	"time"

	"gcs2autoclass/internal/storage"
)

// Status is the terminal result recorded for one bucket.
type Status string

const (
	// StatusSucceeded means both migration steps completed.
	StatusSucceeded Status = "Succeeded"

	// StatusSkipped means the bucket was already in Autoclass with the
	// requested terminal class, or was completed in a previous run.
	StatusSkipped Status = "Skipped"

	// StatusFailedTransient means retries were exhausted on a retryable error.
	StatusFailedTransient Status = "FailedTransient"

	// StatusFailedPermanent means the remote API returned a non-retryable error.
	StatusFailedPermanent Status = "FailedPermanent"

	// StatusCancelled means the run was stopped before the bucket was processed.
	StatusCancelled Status = "Cancelled"
)

// Failed reports whether the status is a failure.
func (s Status) Failed() bool {
	return s == StatusFailedTransient || s == StatusFailedPermanent
}

// Outcome is the immutable result of processing one bucket. It is created by
// a worker and owned by the aggregator after submission.
type Outcome struct {
	Project    string
	Bucket     string
	Status     Status
	Attempts   int
	Err        string
	Info       storage.BucketInfo
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary holds the aggregate counts of a run.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Cancelled int
}

// Report is the ordered collection of outcomes, one per input bucket.
type Report struct {
	Outcomes []Outcome
	Summary  Summary

	// Missing lists input buckets with no submitted outcome. Always empty
	// when the pool has joined; kept as an invariant check.
	Missing []string
}
