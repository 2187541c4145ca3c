package worker

import "time"

// Task identifies one bucket to migrate. Immutable once enqueued; consumed
// by exactly one worker.
type Task struct {
	Project string `json:"project"`
	Bucket  string `json:"bucket"`
}

// Config contains worker configuration.
type Config struct {
	// TerminalClass is the Autoclass terminal storage class to set.
	TerminalClass string

	// MaxAttempts, BaseBackoff, MaxBackoff and JitterFraction parameterize
	// the retry policy applied to each remote call.
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64

	// CallTimeout bounds each individual remote call. 0 means no timeout.
	CallTimeout time.Duration

	// SkipMigrated skips buckets that already have Autoclass enabled with
	// the requested terminal class.
	SkipMigrated bool

	// Resume skips buckets recorded as completed in the checkpoint store.
	Resume bool
}
