// Package retry wraps a single remote call with bounded retries and
// exponential backoff. Failures classified as permanent stop immediately;
// transient failures are retried until the attempt ceiling is reached.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gcs2autoclass/internal/storage"
)

// Policy controls how a remote call is retried.
type Policy struct {
	// MaxAttempts is the total number of calls made (first attempt included).
	// Values <= 0 are treated as 1.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry; each further retry
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. 0 means no cap.
	MaxDelay time.Duration

	// JitterFraction randomizes each backoff by +/- this fraction of the
	// delay, spreading retries across workers. 0 disables jitter.
	JitterFraction float64

	// Sleep and Rand are injection points for tests. When nil, a
	// context-aware timer sleep and math/rand are used.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64

	// Notify, when set, is called before each backoff sleep with the
	// attempt that just failed.
	Notify func(attempt int, delay time.Duration, err error)
}

// Default mirrors the retry behavior used against the GCS control plane:
// up to 5 attempts starting at 1s, capped at 30s, with +/-20% jitter.
var Default = Policy{
	MaxAttempts:    5,
	BaseDelay:      time.Second,
	MaxDelay:       30 * time.Second,
	JitterFraction: 0.2,
}

// Do runs fn up to MaxAttempts times and returns the number of attempts made
// together with the final error. The first nil error returns immediately.
// A permanent failure is returned without retrying; context cancellation
// during a backoff sleep aborts with ctx.Err().
//
// Do keeps all retry state local to the call; the only side effects are the
// wrapped operation and the sleep.
func (p Policy) Do(ctx context.Context, fn func() error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return attempt, nil
		}
		if !storage.IsTransient(err) {
			return attempt, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.backoff(attempt)
		if p.Notify != nil {
			p.Notify(attempt, delay, err)
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return attempt, sleepErr
		}
	}

	return maxAttempts, err
}

// backoff computes the jittered exponential delay after the given attempt,
// counting from 1.
func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.JitterFraction > 0 {
		// uniform in [-1, 1)
		u := p.rand()*2 - 1
		delay *= 1 + p.JitterFraction*u
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func (p Policy) rand() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
