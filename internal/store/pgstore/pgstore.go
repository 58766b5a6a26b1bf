// Package pgstore is a PostgreSQL-backed store.Backend for shared or
// hosted deployments.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Store keeps upkeep data in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Backend = (*Store)(nil)

// New creates a Store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id                TEXT PRIMARY KEY,
			property_id       TEXT NOT NULL,
			unit              TEXT NOT NULL DEFAULT '',
			batch_id          TEXT NOT NULL DEFAULT '',
			template_id       TEXT NOT NULL DEFAULT '',
			title             TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			system_type       TEXT NOT NULL DEFAULT '',
			priority          TEXT NOT NULL DEFAULT 'Medium',
			scope             TEXT NOT NULL DEFAULT 'property_wide',
			unit_count        INTEGER NOT NULL DEFAULT 0,
			status            TEXT NOT NULL DEFAULT 'Identified',
			scheduled_date    TIMESTAMPTZ,
			completion_date   TIMESTAMPTZ,
			execution_method  TEXT NOT NULL DEFAULT '',
			time_range        TEXT NOT NULL DEFAULT '',
			cascade_risk      DOUBLE PRECISION,
			risk_rationale    TEXT NOT NULL DEFAULT '',
			current_fix_cost  DOUBLE PRECISION,
			delayed_fix_cost  DOUBLE PRECISION,
			estimated_hours   DOUBLE PRECISION,
			diy_hours         DOUBLE PRECISION,
			actual_cost       DOUBLE PRECISION,
			photos            JSONB NOT NULL DEFAULT '[]',
			seasonal          BOOLEAN NOT NULL DEFAULT FALSE,
			seasonal_window   TEXT NOT NULL DEFAULT '',
			snoozed_until     TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_property ON tasks(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_batch ON tasks(batch_id) WHERE batch_id != ''`,
		`CREATE TABLE IF NOT EXISTS events (
			id          BIGSERIAL PRIMARY KEY,
			task_id     TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			content     TEXT NOT NULL DEFAULT '',
			timestamp   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS templates (
			id                 TEXT PRIMARY KEY,
			title              TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			system_type        TEXT NOT NULL DEFAULT '',
			default_priority   TEXT NOT NULL DEFAULT 'Medium',
			seasons            TEXT[] NOT NULL DEFAULT '{}',
			climate_zones      TEXT[] NOT NULL DEFAULT '{}',
			scope              TEXT NOT NULL DEFAULT 'property_wide',
			recurrence_months  INTEGER NOT NULL DEFAULT 0,
			estimated_hours    DOUBLE PRECISION,
			seasonal_window    TEXT NOT NULL DEFAULT '',
			usage_count        INTEGER NOT NULL DEFAULT 0,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS properties (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			door_count    INTEGER NOT NULL DEFAULT 1,
			climate_zone  TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS units (
			property_id  TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			id           TEXT NOT NULL,
			nickname     TEXT NOT NULL DEFAULT '',
			floor        INTEGER NOT NULL DEFAULT 0,
			occupancy    TEXT NOT NULL DEFAULT '',
			bedrooms     INTEGER NOT NULL DEFAULT 0,
			bathrooms    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (property_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS systems (
			id            TEXT PRIMARY KEY,
			property_id   TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
			type          TEXT NOT NULL,
			install_year  INTEGER,
			condition     TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddEvent records an audit event. Failures are ignored.
func (s *Store) AddEvent(ctx context.Context, taskID, eventType, content string) {
	s.pool.Exec(ctx,
		`INSERT INTO events (task_id, event_type, content, timestamp) VALUES ($1, $2, $3, $4)`,
		taskID, eventType, content, s.now())
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(ctx context.Context, taskID string) ([]store.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, event_type, content, timestamp FROM events WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []store.Event
	for rows.Next() {
		var e store.Event
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Type, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}

// placeholders returns "$from, $from+1, ..." for n arguments.
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return err
}
