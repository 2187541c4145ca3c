package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCounts(t *testing.T) {
	tracker := NewTracker()
	tracker.SetTotal(10)

	tracker.AddSucceeded()
	tracker.AddSucceeded()
	tracker.AddSkipped()
	tracker.AddFailed()
	tracker.AddCancelled()

	status := tracker.GetStatus()
	assert.Equal(t, int64(10), status.TotalBuckets)
	assert.Equal(t, int64(5), status.ProcessedBuckets)
	assert.Equal(t, int64(2), status.Succeeded)
	assert.Equal(t, int64(1), status.Skipped)
	assert.Equal(t, int64(1), status.Failed)
	assert.Equal(t, int64(1), status.Cancelled)

	assert.InDelta(t, 50.0, tracker.GetProgressPercent(), 0.01)
}

func TestTrackerConcurrentUpdates(t *testing.T) {
	tracker := NewTracker()
	tracker.SetTotal(400)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.AddSucceeded()
			}
		}()
	}
	wg.Wait()

	status := tracker.GetStatus()
	assert.Equal(t, int64(400), status.Succeeded)
	assert.Equal(t, int64(400), status.ProcessedBuckets)
}

func TestProgressPercentEmptyRun(t *testing.T) {
	tracker := NewTracker()
	assert.Zero(t, tracker.GetProgressPercent())
}
