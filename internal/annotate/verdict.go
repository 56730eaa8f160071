// Package annotate classifies enriched candidates into publish/ignore
// verdicts using a generative-text service.
package annotate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bizkazan/eventwire/internal/events"
)

// rawVerdict mirrors the JSON shape the model is instructed to return.
type rawVerdict struct {
	Decision  string  `json:"decision"`
	PostText  string  `json:"post_text"`
	EventDate *string `json:"event_date"`
	IsOnline  bool    `json:"is_online"`
}

// ParseVerdict decodes a model response into a Verdict. Responses that do
// not resolve to exactly one valid variant are rejected: a malformed reply
// is a failure to classify, never an implicit ignore.
func ParseVerdict(raw string) (events.Verdict, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return events.Verdict{}, fmt.Errorf("empty annotator response")
	}

	var rv rawVerdict
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rv); err != nil {
		return events.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	switch rv.Decision {
	case string(events.DecisionIgnore):
		return events.Verdict{Decision: events.DecisionIgnore}, nil
	case string(events.DecisionPublish):
		if strings.TrimSpace(rv.PostText) == "" {
			return events.Verdict{}, fmt.Errorf("publish verdict without post_text")
		}
		v := events.Verdict{
			Decision: events.DecisionPublish,
			PostText: strings.TrimSpace(rv.PostText),
			IsOnline: rv.IsOnline,
		}
		if rv.EventDate != nil && *rv.EventDate != "" {
			if _, err := time.Parse("2006-01-02", *rv.EventDate); err != nil {
				return events.Verdict{}, fmt.Errorf("invalid event_date %q: %w", *rv.EventDate, err)
			}
			v.EventDate = *rv.EventDate
		}
		return v, nil
	default:
		return events.Verdict{}, fmt.Errorf("unknown decision %q", rv.Decision)
	}
}

// stripCodeFence removes a markdown code block wrapper when the model
// adds one despite the JSON response mode.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
