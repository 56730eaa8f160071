package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bizkazan/eventwire/internal/events"
)

func cand(source, url, title string) events.Candidate {
	return events.Candidate{URL: url, Title: title, Source: source}
}

func TestAggregate_LedgeredURLsAreSkipped(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger("https://timepad.ru/event/1/")
	agg := NewAggregator(ledger, 0, nil, nil)

	got := agg.Aggregate([]SourceResult{{Tag: "timepad", Candidates: []events.Candidate{
		cand("timepad", "https://timepad.ru/event/1/", "Старое событие"),
		cand("timepad", "https://timepad.ru/event/2/", "Новое событие"),
	}}})

	require.Len(t, got, 1)
	require.Equal(t, "https://timepad.ru/event/2/", got[0].URL)
}

func TestAggregate_RepeatedURLWithinRunKeptOnce(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(newFakeLedger(), 0, nil, nil)
	got := agg.Aggregate([]SourceResult{
		{Tag: "timepad", Candidates: []events.Candidate{
			cand("timepad", "https://timepad.ru/event/1/", "Митап"),
		}},
		{Tag: "gorodzovet", Candidates: []events.Candidate{
			cand("gorodzovet", "https://timepad.ru/event/1/", "Митап (копия)"),
		}},
	})

	require.Len(t, got, 1)
	require.Equal(t, "timepad", got[0].Source)
}

func TestAggregate_SimilarTitleFromLowerPrioritySuppressed(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	agg := NewAggregator(ledger, 0, nil, nil)

	got := agg.Aggregate([]SourceResult{
		{Tag: "timepad", Candidates: []events.Candidate{
			cand("timepad", "https://timepad.ru/event/1/", "Networking Meetup Kazan"),
		}},
		{Tag: "gorodzovet", Candidates: []events.Candidate{
			cand("gorodzovet", "https://gorodzovet.ru/kazan/nm-event/", "Networking Meetup, Kazan"),
			cand("gorodzovet", "https://gorodzovet.ru/kazan/jazz-event/", "Джазовый концерт в саду"),
		}},
	})

	require.Len(t, got, 2)
	require.Equal(t, "https://timepad.ru/event/1/", got[0].URL)
	require.Equal(t, "https://gorodzovet.ru/kazan/jazz-event/", got[1].URL)

	// The duplicate's URL is terminal: it will not resurface even when the
	// winning copy is gone from listings next run.
	require.True(t, ledger.Contains("https://gorodzovet.ru/kazan/nm-event/"))
}

func TestAggregate_DuplicateOfPostedEventSuppressed(t *testing.T) {
	t.Parallel()

	// The timepad copy was posted on a previous run and sits in the ledger.
	// Its title must still shadow the freshly discovered gorodzovet copy,
	// or the same event would be published twice.
	ledger := newFakeLedger("https://timepad.ru/event/1/")
	agg := NewAggregator(ledger, 0, nil, nil)

	got := agg.Aggregate([]SourceResult{
		{Tag: "timepad", Candidates: []events.Candidate{
			cand("timepad", "https://timepad.ru/event/1/", "Networking Meetup Kazan"),
		}},
		{Tag: "gorodzovet", Candidates: []events.Candidate{
			cand("gorodzovet", "https://gorodzovet.ru/kazan/nm-event/", "Networking Meetup, Kazan"),
		}},
	})

	require.Empty(t, got)
	require.True(t, ledger.Contains("https://gorodzovet.ru/kazan/nm-event/"))
}

func TestAggregate_ChainedDuplicatesSuppressed(t *testing.T) {
	t.Parallel()

	// B duplicates A and is suppressed; C duplicates B but not A. C must
	// still be compared against B's title, not only against survivors.
	ledger := newFakeLedger()
	agg := NewAggregator(ledger, 0.75, nil, nil)

	got := agg.Aggregate([]SourceResult{
		{Tag: "one", Candidates: []events.Candidate{
			cand("one", "https://one.example/a", "xxxxxxxxxx"),
		}},
		{Tag: "two", Candidates: []events.Candidate{
			cand("two", "https://two.example/b", "xxxxxxxxyy"),
		}},
		{Tag: "three", Candidates: []events.Candidate{
			cand("three", "https://three.example/c", "xxxxxxyyyy"),
		}},
	})

	require.Len(t, got, 1)
	require.Equal(t, "https://one.example/a", got[0].URL)
	require.True(t, ledger.Contains("https://two.example/b"))
	require.True(t, ledger.Contains("https://three.example/c"))
}

func TestAggregate_SameSourceTitlesNotDeduplicated(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(newFakeLedger(), 0, nil, nil)
	got := agg.Aggregate([]SourceResult{{Tag: "timepad", Candidates: []events.Candidate{
		cand("timepad", "https://timepad.ru/event/1/", "Бизнес-завтрак 19 августа"),
		cand("timepad", "https://timepad.ru/event/2/", "Бизнес-завтрак 26 августа"),
	}}})

	require.Len(t, got, 2)
}

func TestAggregate_PriorityOrderIsPreserved(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(newFakeLedger(), 0, nil, nil)
	got := agg.Aggregate([]SourceResult{
		{Tag: "timepad", Candidates: []events.Candidate{
			cand("timepad", "https://timepad.ru/event/1/", "А"),
		}},
		{Tag: "gorodzovet", Candidates: []events.Candidate{
			cand("gorodzovet", "https://gorodzovet.ru/kazan/b-event/", "Б"),
		}},
	})

	require.Equal(t, []string{"timepad", "gorodzovet"}, []string{got[0].Source, got[1].Source})
}
