package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/bizkazan/eventwire/internal/events"
)

// GorodzovetTag identifies the GorodZovet adapter.
const GorodzovetTag = "gorodzovet"

// DefaultGorodzovetURL is the Kazan business section.
const DefaultGorodzovetURL = "https://gorodzovet.ru/kazan/biznes/"

// Gorodzovet discovers candidates from gorodzovet.ru. The site is
// server-rendered, so the static fetcher suffices. Event pages carry an
// "-event" marker in their path; everything else on the listing is a
// section link and must be skipped.
type Gorodzovet struct {
	fetcher    HTMLFetcher
	listingURL string
	logger     *zap.Logger
}

// NewGorodzovet builds the adapter.
func NewGorodzovet(fetcher HTMLFetcher, listingURL string, logger *zap.Logger) *Gorodzovet {
	if listingURL == "" {
		listingURL = DefaultGorodzovetURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gorodzovet{fetcher: fetcher, listingURL: listingURL, logger: logger}
}

// Tag returns the source tag.
func (g *Gorodzovet) Tag() string { return GorodzovetTag }

// Discover fetches the listing and extracts event-page anchors.
func (g *Gorodzovet) Discover(ctx context.Context) ([]events.Candidate, error) {
	html, err := g.fetcher.FetchHTML(ctx, g.listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch gorodzovet listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse gorodzovet listing: %w", err)
	}

	var out []events.Candidate
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "-event") {
			return
		}
		full := href
		if strings.HasPrefix(href, "/") {
			full = "https://gorodzovet.ru" + href
		}

		canonical, err := events.CanonicalURL(full)
		if err != nil {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if !usableTitle(title) {
			return
		}

		seen[canonical] = struct{}{}
		out = append(out, events.Candidate{
			URL:      canonical,
			Title:    title,
			Source:   GorodzovetTag,
			DateHint: dateHintUnknown,
		})
	})

	g.logger.Debug("gorodzovet discovery finished",
		zap.String("listing", g.listingURL),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}
