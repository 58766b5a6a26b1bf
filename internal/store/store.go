package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides access to the upkeep SQLite database. It implements
// TaskStore, PropertyDirectory, TemplateStore and SystemStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at the given path.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	// One writer; concurrent bulk requests queue on the pool instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
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
		scheduled_date    DATETIME,
		completion_date   DATETIME,
		execution_method  TEXT NOT NULL DEFAULT '',
		time_range        TEXT NOT NULL DEFAULT '',
		cascade_risk      REAL,
		risk_rationale    TEXT NOT NULL DEFAULT '',
		current_fix_cost  REAL,
		delayed_fix_cost  REAL,
		estimated_hours   REAL,
		diy_hours         REAL,
		actual_cost       REAL,
		photos            TEXT NOT NULL DEFAULT '[]',
		seasonal          INTEGER NOT NULL DEFAULT 0,
		seasonal_window   TEXT NOT NULL DEFAULT '',
		snoozed_until     DATETIME,
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_property ON tasks(property_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_batch ON tasks(batch_id) WHERE batch_id != '';

	CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		content     TEXT DEFAULT '',
		timestamp   DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS templates (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		system_type        TEXT NOT NULL DEFAULT '',
		default_priority   TEXT NOT NULL DEFAULT 'Medium',
		seasons            TEXT NOT NULL DEFAULT '[]',
		climate_zones      TEXT NOT NULL DEFAULT '[]',
		scope              TEXT NOT NULL DEFAULT 'property_wide',
		recurrence_months  INTEGER NOT NULL DEFAULT 0,
		estimated_hours    REAL,
		seasonal_window    TEXT NOT NULL DEFAULT '',
		usage_count        INTEGER NOT NULL DEFAULT 0,
		created_at         DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS properties (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		door_count    INTEGER NOT NULL DEFAULT 1,
		climate_zone  TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		property_id  TEXT NOT NULL REFERENCES properties(id),
		position     INTEGER NOT NULL,
		id           TEXT NOT NULL,
		nickname     TEXT NOT NULL DEFAULT '',
		floor        INTEGER NOT NULL DEFAULT 0,
		occupancy    TEXT NOT NULL DEFAULT '',
		bedrooms     INTEGER NOT NULL DEFAULT 0,
		bathrooms    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (property_id, id)
	);

	CREATE TABLE IF NOT EXISTS systems (
		id            TEXT PRIMARY KEY,
		property_id   TEXT NOT NULL REFERENCES properties(id),
		type          TEXT NOT NULL,
		install_year  INTEGER,
		condition     TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Migrate databases created before reminders could be snoozed.
	s.addColumnIfMissing("tasks", "snoozed_until", "DATETIME")
	return nil
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return
		}
		if name == column {
			return
		}
	}

	s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef)
}

// AddEvent records an audit event for a task. Failures are ignored: the
// event log never blocks a mutation.
func (s *Store) AddEvent(ctx context.Context, taskID, eventType, content string) {
	s.db.ExecContext(ctx,
		`INSERT INTO events (task_id, event_type, content, timestamp) VALUES (?, ?, ?, ?)`,
		taskID, eventType, content, s.now(),
	)
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(ctx context.Context, taskID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, event_type, content, timestamp FROM events WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Type, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

var _ Backend = (*Store)(nil)
