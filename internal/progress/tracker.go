package progress

import (
	"fmt"
	"sync"
	"time"
)

// Status represents the current migration progress.
type Status struct {
	TotalBuckets     int64
	ProcessedBuckets int64
	Succeeded        int64
	Failed           int64
	Skipped          int64
	Cancelled        int64
	StartTime        time.Time
	LastUpdateTime   time.Time
	Rate             float64 // buckets/second since start
	ETA              time.Duration
}

// Tracker tracks migration progress. Safe for concurrent use by workers.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// NewTracker creates a new progress tracker.
func NewTracker() *Tracker {
	now := time.Now()
	return &Tracker{
		status: Status{
			StartTime:      now,
			LastUpdateTime: now,
		},
	}
}

// SetTotal sets the total number of buckets in the run.
func (t *Tracker) SetTotal(buckets int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.TotalBuckets = buckets
}

// AddSucceeded increments the succeeded bucket count.
func (t *Tracker) AddSucceeded() {
	t.add(func(s *Status) { s.Succeeded++ })
}

// AddFailed increments the failed bucket count.
func (t *Tracker) AddFailed() {
	t.add(func(s *Status) { s.Failed++ })
}

// AddSkipped increments the skipped bucket count.
func (t *Tracker) AddSkipped() {
	t.add(func(s *Status) { s.Skipped++ })
}

// AddCancelled increments the cancelled bucket count.
func (t *Tracker) AddCancelled() {
	t.add(func(s *Status) { s.Cancelled++ })
}

func (t *Tracker) add(apply func(*Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	apply(&t.status)
	t.status.ProcessedBuckets++
	t.recalc(time.Now())
}

// recalc updates rate and ETA. Must be called with the lock held.
func (t *Tracker) recalc(now time.Time) {
	elapsed := now.Sub(t.status.StartTime)
	if elapsed > 0 {
		t.status.Rate = float64(t.status.ProcessedBuckets) / elapsed.Seconds()
	}

	remaining := t.status.TotalBuckets - t.status.ProcessedBuckets
	if remaining > 0 && t.status.Rate > 0 {
		t.status.ETA = time.Duration(float64(remaining)/t.status.Rate) * time.Second
	} else {
		t.status.ETA = 0
	}

	t.status.LastUpdateTime = now
}

// GetStatus returns the current status.
func (t *Tracker) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}

// GetProgressPercent returns the progress percentage.
func (t *Tracker) GetProgressPercent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.status.TotalBuckets == 0 {
		return 0
	}

	return float64(t.status.ProcessedBuckets) / float64(t.status.TotalBuckets) * 100
}

// FormatDuration formats a duration in human readable form.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "estimating..."
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
