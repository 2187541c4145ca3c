package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"gcs2autoclass/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transientErr() error {
	return &storage.RemoteError{
		Op:     "enable autoclass",
		Bucket: "b",
		Kind:   storage.KindTransient,
		Err:    errors.New("503 service unavailable"),
	}
}

func permanentErr() error {
	return &storage.RemoteError{
		Op:     "enable autoclass",
		Bucket: "b",
		Kind:   storage.KindPermanent,
		Err:    errors.New("404 not found"),
	}
}

// fakeSleeper records requested delays without sleeping.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func testPolicy(maxAttempts int, sleeper *fakeSleeper) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		Sleep:       sleeper.sleep,
		Rand:        func() float64 { return 0.5 }, // centers jitter at zero
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := testPolicy(5, sleeper)

	calls := 0
	attempts, err := policy.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDoPermanentNoRetry(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := testPolicy(5, sleeper)

	calls := 0
	attempts, err := policy.Do(context.Background(), func() error {
		calls++
		return permanentErr()
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
	assert.False(t, storage.IsTransient(err))
}

func TestDoTransientThenSuccess(t *testing.T) {
	const maxAttempts = 4
	sleeper := &fakeSleeper{}
	policy := testPolicy(maxAttempts, sleeper)

	calls := 0
	attempts, err := policy.Do(context.Background(), func() error {
		calls++
		if calls < maxAttempts {
			return transientErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, maxAttempts, attempts)
	assert.Len(t, sleeper.delays, maxAttempts-1)
}

func TestDoExhaustedBackoffDoubles(t *testing.T) {
	const maxAttempts = 4
	sleeper := &fakeSleeper{}
	policy := testPolicy(maxAttempts, sleeper)
	policy.JitterFraction = 0.2 // Rand is pinned to 0.5, so jitter cancels out

	attempts, err := policy.Do(context.Background(), func() error {
		return transientErr()
	})

	require.Error(t, err)
	assert.True(t, storage.IsTransient(err))
	assert.Equal(t, maxAttempts, attempts)

	require.Len(t, sleeper.delays, maxAttempts-1)
	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	assert.Equal(t, expected, sleeper.delays)

	for i := 1; i < len(sleeper.delays); i++ {
		assert.GreaterOrEqual(t, sleeper.delays[i], sleeper.delays[i-1])
	}
}

func TestDoJitterBounds(t *testing.T) {
	tests := []struct {
		name string
		rand float64
		want time.Duration
	}{
		{"lower bound", 0.0, 800 * time.Millisecond},
		{"center", 0.5, time.Second},
		{"upper bound", 0.99999, 1200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &fakeSleeper{}
			policy := Policy{
				MaxAttempts:    2,
				BaseDelay:      time.Second,
				JitterFraction: 0.2,
				Sleep:          sleeper.sleep,
				Rand:           func() float64 { return tt.rand },
			}

			_, err := policy.Do(context.Background(), func() error {
				return transientErr()
			})

			require.Error(t, err)
			require.Len(t, sleeper.delays, 1)
			assert.InDelta(t, float64(tt.want), float64(sleeper.delays[0]), float64(10*time.Millisecond))
		})
	}
}

func TestDoMaxDelayCap(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := testPolicy(6, sleeper)
	policy.MaxDelay = 3 * time.Second

	_, err := policy.Do(context.Background(), func() error {
		return transientErr()
	})

	require.Error(t, err)
	require.Len(t, sleeper.delays, 5)
	for _, d := range sleeper.delays {
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestDoContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Hour, // the cancelled context must win, not the timer
	}

	calls := 0
	cancel()
	attempts, err := policy.Do(ctx, func() error {
		calls++
		return transientErr()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoNotify(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := testPolicy(3, sleeper)

	var notified []int
	policy.Notify = func(attempt int, delay time.Duration, err error) {
		notified = append(notified, attempt)
		assert.Error(t, err)
	}

	_, err := policy.Do(context.Background(), func() error {
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDoZeroMaxAttempts(t *testing.T) {
	policy := Policy{Sleep: (&fakeSleeper{}).sleep}

	calls := 0
	attempts, err := policy.Do(context.Background(), func() error {
		calls++
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}
