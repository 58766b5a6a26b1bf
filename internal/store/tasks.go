package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// taskColumns is the standard column list for task queries.
const taskColumns = `id, property_id, unit, batch_id, template_id, title, description, system_type,
	priority, scope, unit_count, status, scheduled_date, completion_date, execution_method, time_range,
	cascade_risk, risk_rationale, current_fix_cost, delayed_fix_cost, estimated_hours, diy_hours,
	actual_cost, photos, seasonal, seasonal_window, snoozed_until, created_at, updated_at`

// CreateTask validates and inserts a task. Empty ID, status, priority and
// scope are filled with a new UUIDv7, Identified, Medium and property_wide.
func (s *Store) CreateTask(ctx context.Context, t *Task) (*Task, error) {
	PrepareNewTask(t, s.now())
	if err := t.Validate(); err != nil {
		return nil, err
	}

	photos, err := EncodeStrings(t.Photos)
	if err != nil {
		return nil, fmt.Errorf("encode photos: %w", err)
	}
	seasonal := 0
	if t.Seasonal {
		seasonal = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PropertyID, t.Unit, t.BatchID, t.TemplateID, t.Title, t.Description, t.SystemType,
		string(t.Priority), string(t.Scope), t.UnitCount, string(t.Status),
		nullTime(t.ScheduledDate), nullTime(t.CompletionDate), string(t.ExecutionMethod), string(t.TimeRange),
		nullFloat(t.CascadeRisk), t.RiskRationale, nullFloat(t.CurrentFixCost), nullFloat(t.DelayedFixCost),
		nullFloat(t.EstimatedHours), nullFloat(t.DIYHours), nullFloat(t.ActualCost),
		photos, seasonal, t.SeasonalWindow, nullTime(t.SnoozedUntil), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	label := t.Title
	if t.Unit != "" {
		label += " [" + t.Unit + "]"
	}
	s.AddEvent(ctx, t.ID, "created", "Task created: "+label)
	return t, nil
}

// PrepareNewTask fills the defaults every TaskStore applies on create.
func PrepareNewTask(t *Task, now time.Time) {
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	if t.Status == "" {
		t.Status = StatusIdentified
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Scope == "" {
		t.Scope = ScopePropertyWide
	}
	ts := now.UTC()
	t.CreatedAt = ts
	t.UpdatedAt = ts
}

// GetTask returns a single task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks returns tasks matching the filter, oldest first.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if f.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, f.PropertyID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Unit != "" {
		query += ` AND unit = ?`
		args = append(args, f.Unit)
	}
	if f.BatchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, f.BatchID)
	}
	if f.TemplateID != "" {
		query += ` AND template_id = ?`
		args = append(args, f.TemplateID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update and returns the stored result.
// Keys are column names (Col* constants); a nil value clears the column.
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	assignments, err := NormalizeUpdates(updates)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	sets := make([]string, 0, len(assignments)+1)
	args := make([]any, 0, len(assignments)+2)
	cols := make([]string, 0, len(assignments))
	for _, a := range assignments {
		sets = append(sets, a.Column+" = ?")
		args = append(args, a.Value)
		cols = append(cols, a.Column)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if status, ok := updates[ColStatus]; ok {
		s.AddEvent(ctx, id, "status_changed", fmt.Sprintf("Status changed to %v", status))
	} else {
		s.AddEvent(ctx, id, "updated", "Updated "+strings.Join(cols, ", "))
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task permanently. Its audit events are kept.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	s.AddEvent(ctx, id, "deleted", "Task deleted")
	return nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var (
		priority, scope, status, method, timeRange string
		scheduled, completed, snoozed              sql.NullTime
		risk, current, delayed, est, diy, actual   sql.NullFloat64
		photos                                     string
		seasonal                                   int
	)
	err := row.Scan(
		&t.ID, &t.PropertyID, &t.Unit, &t.BatchID, &t.TemplateID, &t.Title, &t.Description, &t.SystemType,
		&priority, &scope, &t.UnitCount, &status, &scheduled, &completed, &method, &timeRange,
		&risk, &t.RiskRationale, &current, &delayed, &est, &diy,
		&actual, &photos, &seasonal, &t.SeasonalWindow, &snoozed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Priority = Priority(priority)
	t.Scope = Scope(scope)
	t.Status = TaskStatus(status)
	t.ExecutionMethod = ExecutionMethod(method)
	t.TimeRange = TimeRange(timeRange)
	t.ScheduledDate = timePtr(scheduled)
	t.CompletionDate = timePtr(completed)
	t.SnoozedUntil = timePtr(snoozed)
	t.CascadeRisk = floatPtr(risk)
	t.CurrentFixCost = floatPtr(current)
	t.DelayedFixCost = floatPtr(delayed)
	t.EstimatedHours = floatPtr(est)
	t.DIYHours = floatPtr(diy)
	t.ActualCost = floatPtr(actual)
	t.Photos = DecodeStrings(photos)
	t.Seasonal = seasonal == 1
	return &t, nil
}
