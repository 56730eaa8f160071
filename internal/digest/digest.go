// Package digest compiles the weekly announcement summary from published
// event records.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bizkazan/eventwire/internal/events"
)

// MaxEntries caps the digest length; the week's earliest events win.
const MaxEntries = 10

// entryEmojis rotate across digest lines for visual variety.
var entryEmojis = []string{"🚀", "🎤", "💡", "🤝", "📈", "🔥", "🎓", "🧠"}

// ruWeekdays maps time.Weekday to the short Russian day name.
var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "Пн",
	time.Tuesday:   "Вт",
	time.Wednesday: "Ср",
	time.Thursday:  "Чт",
	time.Friday:    "Пт",
	time.Saturday:  "Сб",
	time.Sunday:    "Вс",
}

// Compiler builds and sends the weekly digest.
type Compiler struct {
	store     events.Store
	publisher events.Publisher
	clock     events.Clock
	logger    *zap.Logger
}

// NewCompiler wires the digest over the event store and a publisher that
// must be configured for HTML rendering with link previews disabled.
func NewCompiler(store events.Store, publisher events.Publisher, clock events.Clock, logger *zap.Logger) (*Compiler, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("store is required")
	case publisher == nil:
		return nil, fmt.Errorf("publisher is required")
	case clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{store: store, publisher: publisher, clock: clock, logger: logger}, nil
}

// Run compiles the digest for the current week and sends it. A week with
// no dated events produces no message; sent reports whether one went out.
func (c *Compiler) Run(ctx context.Context) (sent bool, err error) {
	monday, sunday := WeekWindow(c.clock.Now())

	records, err := c.store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load event records: %w", err)
	}
	entries := selectWeek(records, monday, sunday)
	if len(entries) == 0 {
		c.logger.Info("no events this week, skipping digest",
			zap.Time("week_start", monday),
			zap.Time("week_end", sunday),
		)
		return false, nil
	}

	text := render(entries, monday, sunday)
	if err := c.publisher.Publish(ctx, text); err != nil {
		return false, fmt.Errorf("send digest: %w", err)
	}
	c.logger.Info("weekly digest sent", zap.Int("events", len(entries)))
	return true, nil
}

// WeekWindow returns the Monday and Sunday (midnight, in now's location)
// of the calendar week containing now.
func WeekWindow(now time.Time) (monday, sunday time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday belongs to the week that started six days back
	}
	monday = day.AddDate(0, 0, -offset)
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

type entry struct {
	rec  events.Stored
	date time.Time
}

// selectWeek keeps dated records inside [monday, sunday], one per URL,
// sorted by date ascending and capped at MaxEntries.
func selectWeek(records []events.Stored, monday, sunday time.Time) []entry {
	seen := make(map[string]struct{})
	var entries []entry
	for _, rec := range records {
		date, ok := rec.EventDate()
		if !ok {
			continue
		}
		if date.Before(monday) || date.After(sunday) {
			continue
		}
		if _, dup := seen[rec.URL]; dup {
			continue
		}
		seen[rec.URL] = struct{}{}
		entries = append(entries, entry{rec: rec, date: date})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries
}

// render produces the HTML digest message.
func render(entries []entry, monday, sunday time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>Дайджест на неделю (%s - %s)</b>\n\n",
		monday.Format("02.01"), sunday.Format("02.01"))
	for i, e := range entries {
		emoji := entryEmojis[i%len(entryEmojis)]
		fmt.Fprintf(&b, "%d. %s <a href='%s'>%s</a> — %s, %s\n",
			i+1, emoji, e.rec.URL, e.rec.Title,
			ruWeekdays[e.date.Weekday()], e.date.Format("02.01"))
	}
	b.WriteString("\n#дайджест #бизнесКазань")
	return b.String()
}
