package digest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/publish"
	"github.com/bizkazan/eventwire/internal/store"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Wednesday 2026-08-19; its week runs Mon 17.08 through Sun 23.08.
var midweek = time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)

func rec(url, title, date string) events.Stored {
	return events.Stored{URL: url, Title: title, Date: date, Source: "timepad", CreatedAt: midweek}
}

func compiler(t *testing.T, now time.Time, records ...events.Stored) (*Compiler, *publish.MemoryPublisher) {
	t.Helper()
	st := store.NewMemory()
	for _, r := range records {
		_, err := st.InsertIfAbsent(context.Background(), r)
		require.NoError(t, err)
	}
	pub := publish.NewMemory()
	c, err := NewCompiler(st, pub, fixedClock{t: now}, nil)
	require.NoError(t, err)
	return c, pub
}

func TestWeekWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		now    time.Time
		monday string
		sunday string
	}{
		{"wednesday", midweek, "2026-08-17", "2026-08-23"},
		{"monday itself", time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), "2026-08-17", "2026-08-23"},
		{"sunday closes the week", time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC), "2026-08-17", "2026-08-23"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mon, sun := WeekWindow(tc.now)
			require.Equal(t, tc.monday, mon.Format("2006-01-02"))
			require.Equal(t, tc.sunday, sun.Format("2006-01-02"))
		})
	}
}

func TestRun_SelectsOnlyThisWeek(t *testing.T) {
	t.Parallel()

	c, pub := compiler(t, midweek,
		rec("https://timepad.ru/event/1/", "Митап в среду", "2026-08-19"),
		rec("https://timepad.ru/event/2/", "Завтрак в понедельник", "2026-08-17"),
		rec("https://timepad.ru/event/3/", "Форум в следующий понедельник", "2026-08-24"),
		rec("https://timepad.ru/event/4/", "Лекция на прошлой неделе", "2026-08-16"),
		rec("https://timepad.ru/event/5/", "Дата неизвестна", ""),
	)

	sent, err := c.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sent)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	text := msgs[0]
	require.Contains(t, text, "📅 <b>Дайджест на неделю (17.08 - 23.08)</b>")
	require.Contains(t, text, "1. 🚀 <a href='https://timepad.ru/event/2/'>Завтрак в понедельник</a> — Пн, 17.08")
	require.Contains(t, text, "2. 🎤 <a href='https://timepad.ru/event/1/'>Митап в среду</a> — Ср, 19.08")
	require.NotContains(t, text, "следующий понедельник")
	require.NotContains(t, text, "прошлой неделе")
	require.NotContains(t, text, "Дата неизвестна")
	require.True(t, strings.HasSuffix(text, "#дайджест #бизнесКазань"))
}

func TestRun_EmptyWeekSendsNothing(t *testing.T) {
	t.Parallel()

	c, pub := compiler(t, midweek,
		rec("https://timepad.ru/event/1/", "Старое событие", "2026-08-01"),
	)

	sent, err := c.Run(context.Background())
	require.NoError(t, err)
	require.False(t, sent)
	require.Empty(t, pub.Messages())
}

func TestRun_CapsAtTenEntries(t *testing.T) {
	t.Parallel()

	var records []events.Stored
	for i := 0; i < 14; i++ {
		day := 17 + i%7 // spread across the week
		records = append(records, rec(
			fmt.Sprintf("https://timepad.ru/event/%d/", i),
			fmt.Sprintf("Событие %d", i),
			fmt.Sprintf("2026-08-%02d", day),
		))
	}
	c, pub := compiler(t, midweek, records...)

	sent, err := c.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sent)

	text := pub.Messages()[0]
	require.Contains(t, text, "10. ")
	require.NotContains(t, text, "11. ")
}

func TestRun_EmojiRotationWraps(t *testing.T) {
	t.Parallel()

	var records []events.Stored
	for i := 0; i < 9; i++ {
		records = append(records, rec(
			fmt.Sprintf("https://timepad.ru/event/%d/", i),
			fmt.Sprintf("Событие %d", i),
			"2026-08-19",
		))
	}
	c, pub := compiler(t, midweek, records...)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Ninth entry reuses the first emoji.
	require.Contains(t, pub.Messages()[0], "9. 🚀 ")
}
