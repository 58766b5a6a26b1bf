package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const templateColumns = `id, title, description, system_type, default_priority, seasons, climate_zones,
	scope, recurrence_months, estimated_hours, seasonal_window, usage_count`

// CreateTemplate inserts a template. An empty ID gets a new UUID.
func (s *Store) CreateTemplate(ctx context.Context, t *Template) (*Template, error) {
	if err := PrepareNewTemplate(t); err != nil {
		return nil, err
	}

	seasons, err := EncodeStrings(t.Seasons)
	if err != nil {
		return nil, fmt.Errorf("encode seasons: %w", err)
	}
	zones, err := EncodeStrings(t.ClimateZones)
	if err != nil {
		return nil, fmt.Errorf("encode climate zones: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (`+templateColumns+`, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.SystemType, string(t.DefaultPriority), seasons, zones,
		string(t.Scope), t.RecurrenceMonths, nullFloat(t.EstimatedHours), t.SeasonalWindow, t.UsageCount, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

// PrepareNewTemplate checks a template and fills its defaults.
func PrepareNewTemplate(t *Template) error {
	if t.Title == "" {
		return &FieldError{Field: "title"}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.DefaultPriority == "" {
		t.DefaultPriority = PriorityMedium
	}
	switch t.Scope {
	case "":
		t.Scope = ScopePropertyWide
	case ScopePropertyWide, ScopePerUnit:
	default:
		return fmt.Errorf("template scope %q must be property_wide or per_unit", t.Scope)
	}
	return nil
}

// GetTemplate returns a single template by ID.
func (s *Store) GetTemplate(ctx context.Context, id string) (*Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTemplates returns every template ordered by title.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// IncrementTemplateUsage bumps the usage counter after a successful fan-out.
func (s *Store) IncrementTemplateUsage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE templates SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanTemplate(row rowScanner) (*Template, error) {
	var t Template
	var priority, scope, seasons, zones string
	var est sql.NullFloat64
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.SystemType, &priority, &seasons, &zones,
		&scope, &t.RecurrenceMonths, &est, &t.SeasonalWindow, &t.UsageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	t.DefaultPriority = Priority(priority)
	t.Scope = Scope(scope)
	t.Seasons = DecodeStrings(seasons)
	t.ClimateZones = DecodeStrings(zones)
	t.EstimatedHours = floatPtr(est)
	return &t, nil
}
