package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizkazan/eventwire/internal/events"
)

// PgxIface is the subset of pgxpool.Pool the store needs. pgxmock
// satisfies it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements events.Store over PostgreSQL, for deployments
// that outgrow the single JSON state file. Expected schema:
//
//	CREATE TABLE events (
//	    url        TEXT PRIMARY KEY,
//	    title      TEXT NOT NULL,
//	    event_date DATE,
//	    source     TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    post_text  TEXT NOT NULL
//	);
type PostgresStore struct {
	db   PgxIface
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and pings it to fail fast on bad DSNs.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool, pool: pool}, nil
}

// NewPostgresWithDB wraps an existing connection-like value (tests).
func NewPostgresWithDB(db PgxIface) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertEventSQL = `
	INSERT INTO events (url, title, event_date, source, created_at, post_text)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (url) DO NOTHING
`

const selectEventsSQL = `
	SELECT url, title, event_date, source, created_at, post_text
	FROM events
	ORDER BY created_at
`

// InsertIfAbsent inserts the record, relying on the URL primary key for
// the no-op-on-duplicate guarantee.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, rec events.Stored) (bool, error) {
	var eventDate any
	if d, ok := rec.EventDate(); ok {
		eventDate = d
	}
	tag, err := s.db.Exec(ctx, insertEventSQL,
		rec.URL, rec.Title, eventDate, rec.Source, rec.CreatedAt, rec.PostText,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// LoadAll returns every stored record ordered by acceptance time.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]events.Stored, error) {
	rows, err := s.db.Query(ctx, selectEventsSQL)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var all []events.Stored
	for rows.Next() {
		var (
			rec       events.Stored
			eventDate *time.Time
		)
		if err := rows.Scan(&rec.URL, &rec.Title, &eventDate, &rec.Source, &rec.CreatedAt, &rec.PostText); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if eventDate != nil {
			rec.Date = eventDate.Format("2006-01-02")
		}
		all = append(all, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return all, nil
}

// Close releases the connection pool when the store owns one.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
