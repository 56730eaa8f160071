package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizkazan/eventwire/internal/annotate"
	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/publish"
)

// DefaultPublishDelay is the pause after each publish within one run,
// keeping the channel from being flooded by a large backlog.
const DefaultPublishDelay = 3 * time.Second

// Config tunes one Runner.
type Config struct {
	SimilarityThreshold float64
	PublishDelay        time.Duration
}

// Deps bundles the collaborators a Runner orchestrates.
type Deps struct {
	Sources   []events.Source
	Fetcher   events.Fetcher
	Annotator events.Annotator
	Publisher events.Publisher
	Ledger    events.Ledger
	Store     events.Store
	Clock     events.Clock
	Metrics   Metrics
	Logger    *zap.Logger
}

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Discovered int
	Aggregated int
	Published  int
	Ignored    int
	Failed     int
}

// Runner executes the full pipeline once per Run call.
type Runner struct {
	cfg     Config
	deps    Deps
	logger  *zap.Logger
	metrics Metrics
}

// NewRunner validates dependencies and builds a Runner.
func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	switch {
	case len(deps.Sources) == 0:
		return nil, fmt.Errorf("at least one source is required")
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.Annotator == nil:
		return nil, fmt.Errorf("annotator is required")
	case deps.Publisher == nil:
		return nil, fmt.Errorf("publisher is required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.PublishDelay < 0 {
		cfg.PublishDelay = DefaultPublishDelay
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, deps: deps, logger: deps.Logger, metrics: deps.Metrics}, nil
}

// Run discovers, deduplicates, classifies, and publishes once. Candidate
// failures are contained: a failed candidate is skipped with no state
// change and stays eligible for the next run. The ledger is persisted at
// the end of the run regardless of per-candidate outcomes.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("pipeline run starting", zap.Int("sources", len(r.deps.Sources)))

	results := r.discover(ctx, logger)
	for _, res := range results {
		summary.Discovered += len(res.Candidates)
	}

	agg := NewAggregator(r.deps.Ledger, r.cfg.SimilarityThreshold, r.metrics, logger)
	candidates := agg.Aggregate(results)
	summary.Aggregated = len(candidates)

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled mid-queue", zap.Error(err))
			break
		}
		outcome, err := r.process(ctx, logger, cand)
		if err != nil {
			level := logger.Error
			if errors.Is(err, events.ErrTransient) {
				level = logger.Warn
			}
			level("candidate failed, will retry next run",
				zap.String("url", cand.URL),
				zap.String("source", cand.Source),
				zap.Error(err),
			)
			r.metrics.Failed(cand.Source)
			summary.Failed++
			continue
		}
		switch outcome {
		case outcomePublished:
			summary.Published++
		case outcomeIgnored:
			summary.Ignored++
		}
	}

	if err := r.deps.Ledger.Persist(ctx); err != nil {
		return summary, fmt.Errorf("persist ledger: %w", err)
	}
	logger.Info("pipeline run finished",
		zap.Int("discovered", summary.Discovered),
		zap.Int("aggregated", summary.Aggregated),
		zap.Int("published", summary.Published),
		zap.Int("ignored", summary.Ignored),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (r *Runner) discover(ctx context.Context, logger *zap.Logger) []SourceResult {
	results := make([]SourceResult, 0, len(r.deps.Sources))
	for _, src := range r.deps.Sources {
		cands, err := src.Discover(ctx)
		if err != nil {
			logger.Error("source discovery failed",
				zap.String("source", src.Tag()),
				zap.Error(err),
			)
			results = append(results, SourceResult{Tag: src.Tag()})
			continue
		}
		r.metrics.Discovered(src.Tag(), len(cands))
		results = append(results, SourceResult{Tag: src.Tag(), Candidates: cands})
	}
	return results
}

type outcome int

const (
	outcomeIgnored outcome = iota
	outcomePublished
)

// process carries one candidate through enrichment, classification, and
// commit. State is mutated only for terminal outcomes: an ignore marks
// the ledger, a successful publish marks the ledger and the store, and
// any error leaves everything untouched. A panicking collaborator is
// contained here too: the candidate fails as transient and the run moves
// on to the next one.
func (r *Runner) process(ctx context.Context, logger *zap.Logger, cand events.Candidate) (out outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: candidate processing panicked: %v", events.ErrTransient, rec)
		}
	}()

	enriched := r.enrich(ctx, logger, cand)

	verdict, err := r.deps.Annotator.Annotate(ctx, events.AnnotateInput{
		Source: enriched.Source,
		Title:  enriched.Title,
		URL:    enriched.URL,
		Text:   enriched.FullText,
	})
	if err != nil {
		return 0, fmt.Errorf("annotate: %w", err)
	}

	if verdict.Ignored() {
		r.deps.Ledger.Add(cand.URL)
		r.metrics.Ignored(cand.Source)
		logger.Info("candidate ignored",
			zap.String("url", cand.URL),
			zap.String("source", cand.Source),
		)
		return outcomeIgnored, nil
	}

	text := publish.TruncatePost(verdict.PostText)
	start := time.Now()
	if err := r.deps.Publisher.Publish(ctx, text); err != nil {
		return 0, fmt.Errorf("%w: %v", events.ErrPublish, err)
	}
	r.metrics.PublishDuration(time.Since(start))

	r.deps.Ledger.Add(cand.URL)
	if _, err := r.deps.Store.InsertIfAbsent(ctx, events.Stored{
		URL:       cand.URL,
		Title:     cand.Title,
		Date:      verdict.EventDate,
		Source:    cand.Source,
		CreatedAt: r.deps.Clock.Now().UTC(),
		PostText:  text,
	}); err != nil {
		// The post is already out; losing the record must not unmark
		// the URL or the next run would publish it again.
		logger.Error("store insert failed after publish",
			zap.String("url", cand.URL),
			zap.Error(err),
		)
	}
	r.metrics.Posted(cand.Source)
	logger.Info("candidate published",
		zap.String("url", cand.URL),
		zap.String("source", cand.Source),
		zap.String("event_date", verdict.EventDate),
	)
	// Pace the channel after every send. Cancellation during the pause
	// does not undo the commit; the post is already out.
	_ = sleepCtx(ctx, r.cfg.PublishDelay)
	return outcomePublished, nil
}

// enrich fetches the detail page. Fetch failures degrade to an empty body
// so classification can still run on the title.
func (r *Runner) enrich(ctx context.Context, logger *zap.Logger, cand events.Candidate) events.Enriched {
	text, err := r.deps.Fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		logger.Warn("detail page fetch failed, classifying from title",
			zap.String("url", cand.URL),
			zap.Error(err),
		)
		text = ""
	}
	return events.Enriched{
		Candidate: cand,
		FullText:  truncateRunes(text, annotate.MaxAnnotationText),
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
