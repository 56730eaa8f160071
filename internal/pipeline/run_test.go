package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/publish"
)

type fakeSource struct {
	tag   string
	cands []events.Candidate
	err   error
}

func (f *fakeSource) Tag() string { return f.tag }

func (f *fakeSource) Discover(context.Context) ([]events.Candidate, error) {
	return f.cands, f.err
}

type fakeFetcher struct {
	texts map[string]string
	errs  map[string]error
	seen  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.seen = append(f.seen, url)
	if err := f.errs[url]; err != nil {
		return "", err
	}
	return f.texts[url], nil
}

type fakeAnnotator struct {
	verdicts map[string]events.Verdict
	errs     map[string]error
	inputs   []events.AnnotateInput
}

func (f *fakeAnnotator) Annotate(_ context.Context, in events.AnnotateInput) (events.Verdict, error) {
	f.inputs = append(f.inputs, in)
	if err := f.errs[in.URL]; err != nil {
		return events.Verdict{}, err
	}
	if v, ok := f.verdicts[in.URL]; ok {
		return v, nil
	}
	return events.Verdict{Decision: events.DecisionIgnore}, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	urls      map[string]struct{}
	persisted int
}

func newFakeLedger(urls ...string) *fakeLedger {
	l := &fakeLedger{urls: make(map[string]struct{})}
	for _, u := range urls {
		l.urls[u] = struct{}{}
	}
	return l
}

func (l *fakeLedger) Contains(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.urls[url]
	return ok
}

func (l *fakeLedger) Add(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls[url] = struct{}{}
}

func (l *fakeLedger) Persist(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persisted++
	return nil
}

type fakeStore struct {
	records []events.Stored
}

func (s *fakeStore) InsertIfAbsent(_ context.Context, rec events.Stored) (bool, error) {
	for _, r := range s.records {
		if r.URL == rec.URL {
			return false, nil
		}
	}
	s.records = append(s.records, rec)
	return true, nil
}

func (s *fakeStore) LoadAll(context.Context) ([]events.Stored, error) {
	return s.records, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func publishVerdict(text string) events.Verdict {
	return events.Verdict{Decision: events.DecisionPublish, PostText: text, EventDate: "2026-08-25"}
}

type harness struct {
	sources   []events.Source
	fetcher   *fakeFetcher
	annotator *fakeAnnotator
	publisher *publish.MemoryPublisher
	ledger    *fakeLedger
	store     *fakeStore
}

func newHarness(sources ...events.Source) *harness {
	return &harness{
		sources:   sources,
		fetcher:   &fakeFetcher{texts: map[string]string{}, errs: map[string]error{}},
		annotator: &fakeAnnotator{verdicts: map[string]events.Verdict{}, errs: map[string]error{}},
		publisher: publish.NewMemory(),
		ledger:    newFakeLedger(),
		store:     &fakeStore{},
	}
}

func (h *harness) runner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(Config{PublishDelay: 0}, Deps{
		Sources:   h.sources,
		Fetcher:   h.fetcher,
		Annotator: h.annotator,
		Publisher: h.publisher,
		Ledger:    h.ledger,
		Store:     h.store,
		Clock:     fixedClock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return r
}

func TestRun_PublishCommitsLedgerAndStore(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/1/", Title: "Бизнес-завтрак", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/1/"] = publishVerdict("пост о завтраке")

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Published)
	require.Equal(t, []string{"пост о завтраке"}, h.publisher.Messages())
	require.True(t, h.ledger.Contains("https://timepad.ru/event/1/"))
	require.Len(t, h.store.records, 1)
	require.Equal(t, "2026-08-25", h.store.records[0].Date)
	require.Equal(t, 1, h.ledger.persisted)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/1/", Title: "Бизнес-завтрак", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/1/"] = publishVerdict("пост")
	r := h.runner(t)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Zero(t, summary.Aggregated)
	require.Zero(t, summary.Published)
	require.Len(t, h.publisher.Messages(), 1)
}

func TestRun_IgnoreMarksLedgerWithoutPublishing(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/2/", Title: "Джазовый концерт", Source: "timepad"},
	}})

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Ignored)
	require.Empty(t, h.publisher.Messages())
	require.Empty(t, h.store.records)
	require.True(t, h.ledger.Contains("https://timepad.ru/event/2/"))
}

func TestRun_PublishFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/3/", Title: "Митап", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/3/"] = publishVerdict("пост")
	h.publisher.Err = errors.New("telegram down")

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.False(t, h.ledger.Contains("https://timepad.ru/event/3/"))
	require.Empty(t, h.store.records)

	// The failed candidate is re-attempted on the next run.
	h.publisher.Err = nil
	summary, err = h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Published)
}

func TestRun_TransientAnnotatorFailureSkips(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/4/", Title: "Лекция", Source: "timepad"},
	}})
	h.annotator.errs["https://timepad.ru/event/4/"] = fmt.Errorf("%w: all models failed", events.ErrTransient)

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.False(t, h.ledger.Contains("https://timepad.ru/event/4/"))
}

func TestRun_FetchFailureStillClassifies(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/5/", Title: "Форум", Source: "timepad"},
	}})
	h.fetcher.errs["https://timepad.ru/event/5/"] = errors.New("timeout")
	h.annotator.verdicts["https://timepad.ru/event/5/"] = publishVerdict("пост")

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Published)
	require.Len(t, h.annotator.inputs, 1)
	require.Empty(t, h.annotator.inputs[0].Text)
	require.Equal(t, "Форум", h.annotator.inputs[0].Title)
}

func TestRun_OversizedPostIsTruncated(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/6/", Title: "Конференция", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/6/"] = publishVerdict(strings.Repeat("ж", publish.MaxMessageLen+500))

	_, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	msgs := h.publisher.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, publish.MaxMessageLen, len([]rune(msgs[0])))
	require.True(t, strings.HasSuffix(msgs[0], "..."))
	require.Equal(t, msgs[0], h.store.records[0].PostText)
}

func TestRun_PageTextTruncatedBeforeAnnotation(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/7/", Title: "Семинар", Source: "timepad"},
	}})
	h.fetcher.texts["https://timepad.ru/event/7/"] = strings.Repeat("т", 6000)

	_, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.annotator.inputs, 1)
	require.Equal(t, 5000, len([]rune(h.annotator.inputs[0].Text)))
}

type panickingAnnotator struct {
	panicURL string
	inner    *fakeAnnotator
}

func (p *panickingAnnotator) Annotate(ctx context.Context, in events.AnnotateInput) (events.Verdict, error) {
	if in.URL == p.panicURL {
		panic("unexpected nil content in model response")
	}
	return p.inner.Annotate(ctx, in)
}

func TestRun_PanicInCandidateDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/1/", Title: "Сломанный анонс", Source: "timepad"},
		{URL: "https://timepad.ru/event/2/", Title: "Здоровый анонс", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/2/"] = publishVerdict("пост")
	r, err := NewRunner(Config{PublishDelay: 0}, Deps{
		Sources:   h.sources,
		Fetcher:   h.fetcher,
		Annotator: &panickingAnnotator{panicURL: "https://timepad.ru/event/1/", inner: h.annotator},
		Publisher: h.publisher,
		Ledger:    h.ledger,
		Store:     h.store,
		Clock:     fixedClock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Published)
	// The panicking candidate stays eligible for the next run, and the
	// ledger is still persisted at run end.
	require.False(t, h.ledger.Contains("https://timepad.ru/event/1/"))
	require.Equal(t, 1, h.ledger.persisted)
}

func TestRun_DelayFollowsEachPublish(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeSource{tag: "timepad", cands: []events.Candidate{
		{URL: "https://timepad.ru/event/1/", Title: "Завтрак", Source: "timepad"},
		{URL: "https://timepad.ru/event/2/", Title: "Митап", Source: "timepad"},
	}})
	h.annotator.verdicts["https://timepad.ru/event/1/"] = publishVerdict("пост один")
	h.annotator.verdicts["https://timepad.ru/event/2/"] = publishVerdict("пост два")

	const delay = 15 * time.Millisecond
	r, err := NewRunner(Config{PublishDelay: delay}, Deps{
		Sources:   h.sources,
		Fetcher:   h.fetcher,
		Annotator: h.annotator,
		Publisher: h.publisher,
		Ledger:    h.ledger,
		Store:     h.store,
		Clock:     fixedClock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	start := time.Now()
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Published)
	// One pause after each of the two sends, including the last.
	require.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestRun_SourceFailureDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	h := newHarness(
		&fakeSource{tag: "timepad", err: errors.New("fetch failed")},
		&fakeSource{tag: "gorodzovet", cands: []events.Candidate{
			{URL: "https://gorodzovet.ru/kazan/a-event/", Title: "Встреча", Source: "gorodzovet"},
		}},
	)
	h.annotator.verdicts["https://gorodzovet.ru/kazan/a-event/"] = publishVerdict("пост")

	summary, err := h.runner(t).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Published)
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(Config{}, Deps{})
	require.Error(t, err)
}
