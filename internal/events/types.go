// Package events defines core types shared across the aggregation pipeline.
package events

import "time"

// Candidate is a raw listing discovered by a source adapter, before any
// enrichment or classification. URLs are canonical (see CanonicalURL).
type Candidate struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	DateHint string `json:"date_hint,omitempty"`
}

// Enriched is a candidate plus the extended page text fetched for it.
// FullText may be empty when the detail-page fetch failed; classification
// is still attempted from the title alone.
type Enriched struct {
	Candidate
	FullText string
}

// Decision is the classification outcome kind for a candidate.
type Decision string

// Verdict decision values.
const (
	DecisionIgnore  Decision = "ignore"
	DecisionPublish Decision = "publish"
)

// Verdict is the structured classification result for one candidate.
// Exactly one of the two variants holds: Ignore, or Publish with the
// accompanying metadata. An unparseable annotator response never becomes
// a Verdict; it is surfaced as an error instead.
type Verdict struct {
	Decision  Decision `json:"decision"`
	PostText  string   `json:"post_text,omitempty"`
	EventDate string   `json:"event_date,omitempty"` // YYYY-MM-DD, empty when unknown
	IsOnline  bool     `json:"is_online,omitempty"`
}

// Ignored reports whether the verdict is the ignore variant.
func (v Verdict) Ignored() bool {
	return v.Decision == DecisionIgnore
}

// Stored is the persisted record for one accepted, published event.
// Records are append-only and keyed by URL; a second insertion attempt
// for an existing URL is a no-op.
type Stored struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"` // YYYY-MM-DD, empty means unknown
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	PostText  string    `json:"post_text"`
}

// EventDate parses the record's date. ok is false when the date is absent
// or malformed; such records are excluded from date-scoped views.
func (s Stored) EventDate() (time.Time, bool) {
	if s.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
