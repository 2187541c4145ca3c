package metrics

import (
	"net/http"
	"time"

	"gcs2autoclass/internal/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes migration metrics.
type Collector struct {
	registry        *prometheus.Registry
	bucketsTotal    *prometheus.CounterVec
	retriesTotal    prometheus.Counter
	inflightWorkers prometheus.Gauge
	duration        prometheus.Histogram
	progressTracker *progress.Tracker
}

// New creates a new metrics collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		bucketsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoclass_buckets_total",
				Help: "Total number of buckets processed by terminal status",
			},
			[]string{"status"},
		),
		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autoclass_retries_total",
				Help: "Total number of retried remote call attempts",
			},
		),
		inflightWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autoclass_inflight_workers",
				Help: "Number of workers currently processing a bucket",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autoclass_bucket_duration_seconds",
				Help:    "Time taken to migrate one bucket",
				Buckets: prometheus.DefBuckets,
			},
		),
		progressTracker: progress.NewTracker(),
	}

	c.registry.MustRegister(c.bucketsTotal)
	c.registry.MustRegister(c.retriesTotal)
	c.registry.MustRegister(c.inflightWorkers)
	c.registry.MustRegister(c.duration)

	return c
}

// ObserveOutcome records one finished bucket.
func (c *Collector) ObserveOutcome(status string, duration time.Duration) {
	c.bucketsTotal.WithLabelValues(status).Inc()
	c.duration.Observe(duration.Seconds())

	switch status {
	case "Succeeded":
		c.progressTracker.AddSucceeded()
	case "Skipped":
		c.progressTracker.AddSkipped()
	case "Cancelled":
		c.progressTracker.AddCancelled()
	default:
		c.progressTracker.AddFailed()
	}
}

// IncRetry increments the retried attempt counter.
func (c *Collector) IncRetry() {
	c.retriesTotal.Inc()
}

// IncInflight increments the inflight worker gauge.
func (c *Collector) IncInflight() {
	c.inflightWorkers.Inc()
}

// DecInflight decrements the inflight worker gauge.
func (c *Collector) DecInflight() {
	c.inflightWorkers.Dec()
}

// StartServer starts the metrics HTTP server.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}

// GetProgressTracker returns the progress tracker.
func (c *Collector) GetProgressTracker() *progress.Tracker {
	return c.progressTracker
}

// SetTotal sets the total bucket count for progress tracking.
func (c *Collector) SetTotal(buckets int64) {
	c.progressTracker.SetTotal(buckets)
}
