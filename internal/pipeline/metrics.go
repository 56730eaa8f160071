package pipeline

import "time"

// Metrics receives per-source pipeline counters. The production
// implementation lives in internal/metrics; NopMetrics serves tests and
// deployments without a scrape endpoint.
type Metrics interface {
	Discovered(source string, n int)
	Deduplicated(source string)
	Ignored(source string)
	Posted(source string)
	Failed(source string)
	PublishDuration(d time.Duration)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) Discovered(string, int)        {}
func (NopMetrics) Deduplicated(string)           {}
func (NopMetrics) Ignored(string)                {}
func (NopMetrics) Posted(string)                 {}
func (NopMetrics) Failed(string)                 {}
func (NopMetrics) PublishDuration(time.Duration) {}
