package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

const templateColumns = `id, title, description, system_type, default_priority, seasons, climate_zones,
	scope, recurrence_months, estimated_hours, seasonal_window, usage_count`

// CreateTemplate inserts a template.
func (s *Store) CreateTemplate(ctx context.Context, t *store.Template) (*store.Template, error) {
	if err := store.PrepareNewTemplate(t); err != nil {
		return nil, err
	}
	seasons, zones := t.Seasons, t.ClimateZones
	if seasons == nil {
		seasons = []string{}
	}
	if zones == nil {
		zones = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO templates (`+templateColumns+`, created_at)
		VALUES (`+placeholders(1, 13)+`)`,
		t.ID, t.Title, t.Description, t.SystemType, string(t.DefaultPriority), seasons, zones,
		string(t.Scope), t.RecurrenceMonths, t.EstimatedHours, t.SeasonalWindow, t.UsageCount, s.now())
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

// GetTemplate retrieves a single template by ID.
func (s *Store) GetTemplate(ctx context.Context, id string) (*store.Template, error) {
	t, err := scanTemplate(s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	return t, nil
}

// ListTemplates returns every template ordered by title.
func (s *Store) ListTemplates(ctx context.Context) ([]store.Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Template, error) {
		t, err := scanTemplate(row)
		if err != nil {
			return store.Template{}, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return templates, nil
}

// IncrementTemplateUsage bumps the usage counter after a successful fan-out.
func (s *Store) IncrementTemplateUsage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func scanTemplate(row pgx.Row) (*store.Template, error) {
	var t store.Template
	var priority, scope string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.SystemType, &priority, &t.Seasons, &t.ClimateZones,
		&scope, &t.RecurrenceMonths, &t.EstimatedHours, &t.SeasonalWindow, &t.UsageCount)
	if err != nil {
		return nil, err
	}
	t.DefaultPriority = store.Priority(priority)
	t.Scope = store.Scope(scope)
	if len(t.Seasons) == 0 {
		t.Seasons = nil
	}
	if len(t.ClimateZones) == 0 {
		t.ClimateZones = nil
	}
	return &t, nil
}
