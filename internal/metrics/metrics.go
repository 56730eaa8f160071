// Package metrics exposes Prometheus collectors for the pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidatesDiscoveredTotal   *prometheus.CounterVec
	candidatesDeduplicatedTotal *prometheus.CounterVec
	candidatesIgnoredTotal      *prometheus.CounterVec
	eventsPostedTotal           *prometheus.CounterVec
	candidatesFailedTotal       *prometheus.CounterVec
	publishDurationSeconds      prometheus.Histogram

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		candidatesDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventwire_candidates_discovered_total",
				Help: "Candidates discovered in source listings, labeled by source.",
			},
			[]string{"source"},
		)
		candidatesDeduplicatedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventwire_candidates_deduplicated_total",
				Help: "Candidates suppressed as cross-source duplicates, labeled by source.",
			},
			[]string{"source"},
		)
		candidatesIgnoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventwire_candidates_ignored_total",
				Help: "Candidates classified as not relevant, labeled by source.",
			},
			[]string{"source"},
		)
		eventsPostedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventwire_events_posted_total",
				Help: "Events published to the channel, labeled by source.",
			},
			[]string{"source"},
		)
		candidatesFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventwire_candidates_failed_total",
				Help: "Candidates skipped after a transient failure, labeled by source.",
			},
			[]string{"source"},
		)
		publishDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "eventwire_publish_duration_seconds",
				Help:    "Latency of a single channel publish.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// Recorder adapts the registered collectors to the pipeline's metrics
// interface.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

func (Recorder) Discovered(source string, n int) {
	candidatesDiscoveredTotal.WithLabelValues(source).Add(float64(n))
}

func (Recorder) Deduplicated(source string) {
	candidatesDeduplicatedTotal.WithLabelValues(source).Inc()
}

func (Recorder) Ignored(source string) {
	candidatesIgnoredTotal.WithLabelValues(source).Inc()
}

func (Recorder) Posted(source string) {
	eventsPostedTotal.WithLabelValues(source).Inc()
}

func (Recorder) Failed(source string) {
	candidatesFailedTotal.WithLabelValues(source).Inc()
}

func (Recorder) PublishDuration(d time.Duration) {
	publishDurationSeconds.Observe(d.Seconds())
}
