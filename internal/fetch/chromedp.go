package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// RenderedConfig controls the headless-browser fetcher.
type RenderedConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
}

// RenderedFetcher fetches pages that only produce their content in the
// post-render DOM (the listing sites are client-side rendered). It runs
// headless Chrome via chromedp and shares one exec allocator across
// fetches.
type RenderedFetcher struct {
	cfg         RenderedConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewRendered creates a headless fetcher backed by chromedp.
func NewRendered(cfg RenderedConfig) *RenderedFetcher {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 3 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &RenderedFetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context and its browser processes.
func (f *RenderedFetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a headless browser and returns the rendered page's
// visible text.
func (f *RenderedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	html, err := f.FetchHTML(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(html)
}

// FetchHTML navigates and returns the fully rendered document markup.
func (f *RenderedFetcher) FetchHTML(ctx context.Context, url string) ([]byte, error) {
	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	// Tie the browser task to the caller's context as well.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Give client-side frameworks time to hydrate the listing.
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if f.cfg.UserAgent != "" {
		actions = append([]chromedp.Action{
			chromedp.ActionFunc(func(ctx context.Context) error {
				if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
					return fmt.Errorf("set user-agent: %w", err)
				}
				return nil
			}),
		}, actions...)
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	return []byte(html), nil
}
