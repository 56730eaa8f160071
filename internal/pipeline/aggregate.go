// Package pipeline orchestrates one end-to-end run: discovery across
// sources, cross-source deduplication, enrichment, classification, and
// committed publication.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/similarity"
)

// SourceResult holds one source's discovered candidates. Slice order of
// results defines source priority: earlier sources win title conflicts.
type SourceResult struct {
	Tag        string
	Candidates []events.Candidate
}

// Aggregator merges per-source candidate lists into one work queue.
type Aggregator struct {
	ledger    events.Ledger
	threshold float64
	metrics   Metrics
	logger    *zap.Logger
}

// NewAggregator builds an Aggregator over the shared ledger.
func NewAggregator(ledger events.Ledger, threshold float64, metrics Metrics, logger *zap.Logger) *Aggregator {
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{ledger: ledger, threshold: threshold, metrics: metrics, logger: logger}
}

// Aggregate filters each source's candidates in priority order. A candidate
// survives when its URL is not in the ledger, its URL was not already
// accepted this run, and its title is not a fuzzy match of any candidate
// listed by a higher-priority source. The comparison set is each earlier
// source's full candidate list, not just its survivors: a title that was
// itself ledger-skipped or suppressed as a duplicate still shadows
// lower-priority copies, otherwise an already-posted event would be posted
// again from the second site. Title duplicates are written to the ledger
// immediately so the lower-priority copy stays suppressed even if the run
// aborts before persisting other state.
func (a *Aggregator) Aggregate(results []SourceResult) []events.Candidate {
	var accepted []events.Candidate
	var prior []events.Candidate
	seen := make(map[string]struct{})

	for _, result := range results {
		kept := 0
		for _, cand := range result.Candidates {
			if a.ledger.Contains(cand.URL) {
				continue
			}
			if _, ok := seen[cand.URL]; ok {
				continue
			}
			if match, ok := a.findSimilar(prior, cand); ok {
				a.logger.Info("duplicate event across sources",
					zap.String("source", cand.Source),
					zap.String("title", cand.Title),
					zap.String("matched_source", match.Source),
					zap.String("matched_title", match.Title),
				)
				a.ledger.Add(cand.URL)
				a.metrics.Deduplicated(cand.Source)
				continue
			}
			seen[cand.URL] = struct{}{}
			accepted = append(accepted, cand)
			kept++
		}
		prior = append(prior, result.Candidates...)
		a.logger.Info("aggregated source candidates",
			zap.String("source", result.Tag),
			zap.Int("discovered", len(result.Candidates)),
			zap.Int("kept", kept),
		)
	}
	return accepted
}

func (a *Aggregator) findSimilar(prior []events.Candidate, cand events.Candidate) (events.Candidate, bool) {
	for _, p := range prior {
		if p.Source == cand.Source {
			continue
		}
		if similarity.Similar(p.Title, cand.Title, a.threshold) {
			return p, true
		}
	}
	return events.Candidate{}, false
}
