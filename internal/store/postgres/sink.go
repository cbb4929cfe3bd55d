package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vilaca/event-monitor/internal/domain"
)

// Sink is a PostgreSQL-backed append-only event cache.
// Payloads are stored in a JSON (not JSONB) column so the text read back
// is exactly what was written.
type Sink struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// NewSink creates a Sink.
func NewSink(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// EnsureTable creates the cached_events table if it doesn't exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cached_events (
			seq        BIGSERIAL PRIMARY KEY,
			kind       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			payload    JSON NOT NULL,
			cached_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_cached_events_kind ON cached_events(kind)`)
	return err
}

// Append inserts events in one batch; seq preserves their order.
func (s *Sink) Append(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		if len(e.Raw) == 0 {
			return fmt.Errorf("event %q has no raw payload", e.Kind)
		}
		batch.Queue(`INSERT INTO cached_events (kind, created_at, payload) VALUES ($1, $2, $3::json)`,
			e.Kind, e.CreatedAt, string(e.Raw))
	}

	br := s.pool.SendBatch(ctx, batch)
	for i := range events {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return br.Close()
}

// ReadAll returns every cached event in insertion order.
func (s *Sink) ReadAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload::text FROM cached_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query cached events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached event: %w", err)
		}
		event, err := domain.DecodeEvent([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode cached event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Truncate removes every cached event.
func (s *Sink) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE cached_events`)
	return err
}
