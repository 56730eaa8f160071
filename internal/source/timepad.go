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

// TimepadTag identifies the Timepad adapter in candidates and logs.
const TimepadTag = "timepad"

// DefaultTimepadURL is the Kazan business-events listing.
const DefaultTimepadURL = "https://afisha.timepad.ru/kazan/categories/biznes"

// dateHintUnknown is attached when the listing card carries no usable
// date; the annotator resolves it from the detail page instead.
const dateHintUnknown = "См. по ссылке"

// Timepad discovers candidates from the afisha.timepad.ru listing. The
// page is client-side rendered, so it must be fetched through the
// rendered fetcher.
type Timepad struct {
	fetcher    HTMLFetcher
	listingURL string
	logger     *zap.Logger
}

// NewTimepad builds the adapter. An empty listingURL falls back to the
// Kazan business category.
func NewTimepad(fetcher HTMLFetcher, listingURL string, logger *zap.Logger) *Timepad {
	if listingURL == "" {
		listingURL = DefaultTimepadURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timepad{fetcher: fetcher, listingURL: listingURL, logger: logger}
}

// Tag returns the source tag.
func (t *Timepad) Tag() string { return TimepadTag }

// Discover fetches the listing and extracts event anchors. Both the
// afisha layout and classic timepad.ru event links appear on the page,
// so any anchor whose target resolves to an /event/ page is a candidate.
func (t *Timepad) Discover(ctx context.Context) ([]events.Candidate, error) {
	html, err := t.fetcher.FetchHTML(ctx, t.listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch timepad listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse timepad listing: %w", err)
	}

	var out []events.Candidate
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		full, ok := t.eventURL(href)
		if !ok {
			return
		}

		canonical, err := events.CanonicalURL(full)
		if err != nil {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			// Image-wrapper anchors keep the title in attributes.
			title, _ = sel.Attr("title")
			if title == "" {
				title, _ = sel.Attr("aria-label")
			}
			title = strings.TrimSpace(title)
		}
		if !usableTitle(title) {
			return
		}

		seen[canonical] = struct{}{}
		out = append(out, events.Candidate{
			URL:      canonical,
			Title:    title,
			Source:   TimepadTag,
			DateHint: dateHintUnknown,
		})
	})

	t.logger.Debug("timepad discovery finished",
		zap.String("listing", t.listingURL),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

func (t *Timepad) eventURL(href string) (string, bool) {
	switch {
	case strings.Contains(href, "/event/") && strings.Contains(href, "timepad.ru"):
		return href, true
	case strings.HasPrefix(href, "/event/"):
		return "https://afisha.timepad.ru" + href, true
	default:
		return "", false
	}
}

// usableTitle filters out bare registration links and icon anchors.
func usableTitle(title string) bool {
	if len([]rune(title)) <= 5 {
		return false
	}
	return !strings.Contains(strings.ToLower(title), "регистраци")
}
