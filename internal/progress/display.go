package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Display periodically renders the tracker state to the terminal.
type Display struct {
	tracker  *Tracker
	interval time.Duration
	stopCh   chan struct{}
}

// NewDisplay creates a new progress display.
func NewDisplay(tracker *Tracker, interval time.Duration) *Display {
	return &Display{
		tracker:  tracker,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the display loop.
func (d *Display) Start() {
	go d.displayLoop()
}

// Stop stops the display and prints the final summary.
func (d *Display) Stop() {
	close(d.stopCh)
}

func (d *Display) displayLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.update()
		case <-d.stopCh:
			d.final()
			return
		}
	}
}

func (d *Display) update() {
	status := d.tracker.GetStatus()
	percent := d.tracker.GetProgressPercent()

	fmt.Printf("\r%s %d/%d buckets  ok:%d skip:%d fail:%d  %.1f/s  ETA %s   ",
		progressBar(percent, 30),
		status.ProcessedBuckets, status.TotalBuckets,
		status.Succeeded, status.Skipped, status.Failed,
		status.Rate,
		FormatDuration(status.ETA),
	)
}

func (d *Display) final() {
	status := d.tracker.GetStatus()
	elapsed := time.Since(status.StartTime)

	fmt.Println()
	fmt.Println("Migration finished")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("  processed: %d buckets\n", status.ProcessedBuckets)
	fmt.Printf("  succeeded: %d\n", status.Succeeded)
	fmt.Printf("  skipped:   %d\n", status.Skipped)
	fmt.Printf("  failed:    %d\n", status.Failed)
	if status.Cancelled > 0 {
		fmt.Printf("  cancelled: %d\n", status.Cancelled)
	}
	fmt.Printf("  elapsed:   %s\n", FormatDuration(elapsed))
}

func progressBar(percent float64, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width) / 100)
	bar := strings.Repeat("=", filled) + strings.Repeat("-", width-filled)

	return fmt.Sprintf("[%s] %5.1f%%", bar, percent)
}

// IsTerminalSupported checks whether stdout is a terminal.
func IsTerminalSupported() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
