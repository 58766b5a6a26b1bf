package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

const taskColumns = `id, property_id, unit, batch_id, template_id, title, description, system_type,
	priority, scope, unit_count, status, scheduled_date, completion_date, execution_method, time_range,
	cascade_risk, risk_rationale, current_fix_cost, delayed_fix_cost, estimated_hours, diy_hours,
	actual_cost, photos, seasonal, seasonal_window, snoozed_until, created_at, updated_at`

// CreateTask validates and inserts a task.
func (s *Store) CreateTask(ctx context.Context, t *store.Task) (*store.Task, error) {
	store.PrepareNewTask(t, s.now())
	if err := t.Validate(); err != nil {
		return nil, err
	}
	photos, err := store.EncodeStrings(t.Photos)
	if err != nil {
		return nil, fmt.Errorf("encode photos: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (`+placeholders(1, 23)+`, $24::jsonb, $25, $26, $27, $28, $29)`,
		t.ID, t.PropertyID, t.Unit, t.BatchID, t.TemplateID, t.Title, t.Description, t.SystemType,
		string(t.Priority), string(t.Scope), t.UnitCount, string(t.Status),
		t.ScheduledDate, t.CompletionDate, string(t.ExecutionMethod), string(t.TimeRange),
		t.CascadeRisk, t.RiskRationale, t.CurrentFixCost, t.DelayedFixCost,
		t.EstimatedHours, t.DIYHours, t.ActualCost,
		photos, t.Seasonal, t.SeasonalWindow, t.SnoozedUntil, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	label := t.Title
	if t.Unit != "" {
		label += " [" + t.Unit + "]"
	}
	s.AddEvent(ctx, t.ID, "created", "Task created: "+label)
	return t, nil
}

// GetTask retrieves a single task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*store.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return t, nil
}

// ListTasks returns tasks matching the filter, oldest first.
func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]store.Task, error) {
	var where []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("property_id", f.PropertyID)
	add("status", string(f.Status))
	add("unit", f.Unit)
	add("batch_id", f.BatchID)
	add("template_id", f.TemplateID)

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial update keyed by column name and returns
// the stored result.
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]any) (*store.Task, error) {
	assignments, err := store.NormalizeUpdates(updates)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	setClauses := "updated_at = $1"
	args := []any{s.now()}
	cols := make([]string, 0, len(assignments))
	for _, a := range assignments {
		args = append(args, a.Value)
		cast := ""
		if a.Column == store.ColPhotos {
			cast = "::jsonb"
		}
		setClauses += fmt.Sprintf(", %s = $%d%s", a.Column, len(args), cast)
		cols = append(cols, a.Column)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", setClauses, len(args), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, notFound(err, "task", id))
	}

	if status, ok := updates[store.ColStatus]; ok {
		s.AddEvent(ctx, id, "status_changed", fmt.Sprintf("Status changed to %v", status))
	} else {
		s.AddEvent(ctx, id, "updated", "Updated "+strings.Join(cols, ", "))
	}
	return t, nil
}

// DeleteTask removes a task permanently. Its audit events are kept.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	s.AddEvent(ctx, id, "deleted", "Task deleted")
	return nil
}

func scanTask(row pgx.Row) (*store.Task, error) {
	var t store.Task
	var priority, scope, status, method, timeRange string
	var photos []byte
	err := row.Scan(
		&t.ID, &t.PropertyID, &t.Unit, &t.BatchID, &t.TemplateID, &t.Title, &t.Description, &t.SystemType,
		&priority, &scope, &t.UnitCount, &status, &t.ScheduledDate, &t.CompletionDate, &method, &timeRange,
		&t.CascadeRisk, &t.RiskRationale, &t.CurrentFixCost, &t.DelayedFixCost, &t.EstimatedHours, &t.DIYHours,
		&t.ActualCost, &photos, &t.Seasonal, &t.SeasonalWindow, &t.SnoozedUntil, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Priority = store.Priority(priority)
	t.Scope = store.Scope(scope)
	t.Status = store.TaskStatus(status)
	t.ExecutionMethod = store.ExecutionMethod(method)
	t.TimeRange = store.TimeRange(timeRange)
	t.Photos = store.DecodeStrings(string(photos))
	normalizeTimes(&t)
	return &t, nil
}

// normalizeTimes moves scanned timestamps to UTC. pgx decodes TIMESTAMPTZ
// into time.Local, and calendar dates are read in the value's location.
func normalizeTimes(t *store.Task) {
	for _, p := range []*time.Time{t.ScheduledDate, t.CompletionDate, t.SnoozedUntil} {
		if p != nil {
			*p = p.UTC()
		}
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
}
