// Package app initializes and holds long-lived application services,
// acting as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizkazan/eventwire/internal/annotate"
	"github.com/bizkazan/eventwire/internal/api"
	"github.com/bizkazan/eventwire/internal/clock"
	"github.com/bizkazan/eventwire/internal/config"
	"github.com/bizkazan/eventwire/internal/digest"
	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/fetch"
	"github.com/bizkazan/eventwire/internal/ledger"
	"github.com/bizkazan/eventwire/internal/logging"
	"github.com/bizkazan/eventwire/internal/metrics"
	"github.com/bizkazan/eventwire/internal/pipeline"
	"github.com/bizkazan/eventwire/internal/publish"
	"github.com/bizkazan/eventwire/internal/source"
	"github.com/bizkazan/eventwire/internal/state"
	"github.com/bizkazan/eventwire/internal/state/gcs"
	"github.com/bizkazan/eventwire/internal/state/local"
	"github.com/bizkazan/eventwire/internal/state/memory"
	"github.com/bizkazan/eventwire/internal/store"
)

// App holds the shared, long-lived services. It is built once per command
// invocation and closed by a Cobra hook afterwards.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	stateProvider state.Provider
	ledger        *ledger.Ledger
	store         events.Store
	sources       []events.Source
	fetcher       events.Fetcher
	annotator     events.Annotator

	closers []func()
}

// New builds every service the commands need, failing fast when a critical
// backend cannot be reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.initState(ctx); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	a.initFetchers()
	if err := a.initAnnotator(ctx); err != nil {
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("state_provider", cfg.State.Provider),
		zap.String("store_provider", cfg.Store.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
	)
	return a, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Runner assembles the pipeline for one run.
func (a *App) Runner(ctx context.Context) (*pipeline.Runner, error) {
	publisher, err := a.publisher(ctx, false)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(
		pipeline.Config{
			SimilarityThreshold: a.cfg.Pipeline.SimilarityThreshold,
			PublishDelay:        a.cfg.PublishDelay(),
		},
		pipeline.Deps{
			Sources:   a.sources,
			Fetcher:   a.fetcher,
			Annotator: a.annotator,
			Publisher: publisher,
			Ledger:    a.ledger,
			Store:     a.store,
			Clock:     clock.System{},
			Metrics:   metrics.NewRecorder(),
			Logger:    a.logger,
		},
	)
}

// Digest assembles the weekly digest compiler.
func (a *App) Digest(ctx context.Context) (*digest.Compiler, error) {
	publisher, err := a.publisher(ctx, true)
	if err != nil {
		return nil, err
	}
	return digest.NewCompiler(a.store, publisher, clock.System{}, a.logger)
}

// Server builds the operational HTTP server.
func (a *App) Server() *api.Server {
	ready := func(ctx context.Context) error {
		_, err := a.stateProvider.Get(ctx, ledger.DefaultName)
		if errors.Is(err, state.ErrNotFound) {
			return nil
		}
		return err
	}
	return api.NewServer(a.store, ready, a.logger)
}

// Close shuts down every service that holds external resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *App) initState(ctx context.Context) error {
	switch a.cfg.State.Provider {
	case "local":
		p, err := local.New(local.Config{BaseDir: a.cfg.State.LocalDir})
		if err != nil {
			return fmt.Errorf("init local state: %w", err)
		}
		a.stateProvider = p
	case "gcs":
		p, err := gcs.New(ctx, a.cfg.State.GCSBucket, a.cfg.State.GCSPrefix)
		if err != nil {
			return fmt.Errorf("init gcs state: %w", err)
		}
		a.stateProvider = p
		a.closers = append(a.closers, func() {
			if err := p.Close(); err != nil {
				a.logger.Warn("closing gcs state provider", zap.Error(err))
			}
		})
	case "memory":
		a.stateProvider = memory.New()
	default:
		return fmt.Errorf("unknown state provider: %s", a.cfg.State.Provider)
	}

	led, err := ledger.Load(ctx, a.stateProvider, ledger.DefaultName)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	a.ledger = led
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Store.Provider {
	case "file":
		a.store = store.NewFile(a.stateProvider, store.DefaultName)
	case "postgres":
		pg, err := store.NewPostgres(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init postgres store: %w", err)
		}
		a.store = pg
	case "memory":
		a.store = store.NewMemory()
	default:
		return fmt.Errorf("unknown store provider: %s", a.cfg.Store.Provider)
	}
	return nil
}

func (a *App) initFetchers() {
	static := fetch.NewColly(fetch.CollyConfig{
		UserAgent: a.cfg.Fetch.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	})

	var listingFetcher source.HTMLFetcher = static
	if a.cfg.Fetch.Rendered {
		rendered := fetch.NewRendered(fetch.RenderedConfig{
			UserAgent:         a.cfg.Fetch.UserAgent,
			NavigationTimeout: secs(a.cfg.Fetch.NavTimeoutSeconds),
			SettleDelay:       secs(a.cfg.Fetch.SettleDelaySeconds),
		})
		a.closers = append(a.closers, rendered.Close)
		listingFetcher = rendered
		a.fetcher = rendered
	} else {
		a.fetcher = static
	}

	a.sources = []events.Source{
		source.NewTimepad(listingFetcher, a.cfg.Sources.TimepadURL, a.logger),
		source.NewGorodzovet(listingFetcher, a.cfg.Sources.GorodzovetURL, a.logger),
	}
}

func (a *App) initAnnotator(ctx context.Context) error {
	gen, err := annotate.NewGemini(ctx, a.cfg.Gemini.APIKey)
	if err != nil {
		return fmt.Errorf("init gemini: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := gen.Close(); err != nil {
			a.logger.Warn("closing gemini client", zap.Error(err))
		}
	})

	ann, err := annotate.New(gen, a.cfg.Gemini.Models, a.logger)
	if err != nil {
		return err
	}
	a.annotator = ann
	return nil
}

// publisher builds the configured publisher. The digest variant renders
// HTML with link previews disabled.
func (a *App) publisher(ctx context.Context, forDigest bool) (events.Publisher, error) {
	switch a.cfg.Publisher.Provider {
	case "telegram":
		cfg := publish.TelegramConfig{
			Token:     a.cfg.Telegram.Token,
			ChannelID: a.cfg.Telegram.ChannelID,
			APIBase:   a.cfg.Telegram.APIBase,
		}
		if forDigest {
			cfg.ParseMode = "HTML"
			cfg.DisablePreview = true
		}
		return publish.NewTelegram(cfg, a.logger)
	case "pubsub":
		p, err := publish.NewPubSub(ctx, a.cfg.Publisher.ProjectID, a.cfg.Publisher.TopicID, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := p.Close(); err != nil {
				a.logger.Warn("closing pubsub publisher", zap.Error(err))
			}
		})
		return p, nil
	case "log":
		return publish.NewLog(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", a.cfg.Publisher.Provider)
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
