package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TaskStore is the persistence contract the engine writes through.
// Creates and updates are assumed readable shortly after they return.
type TaskStore interface {
	CreateTask(ctx context.Context, t *Task) (*Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]any) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}

// PropertyDirectory is a read-only lookup of property topology.
// Returned properties already have their units normalized.
type PropertyDirectory interface {
	GetProperty(ctx context.Context, id string) (*Property, error)
}

// TemplateStore holds the task blueprints used by fan-out.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *Template) (*Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	IncrementTemplateUsage(ctx context.Context, id string) error
}

// SystemStore holds building systems for preservation analysis.
type SystemStore interface {
	CreateSystem(ctx context.Context, s *System) (*System, error)
	ListSystems(ctx context.Context, propertyID string) ([]System, error)
}

// Backend is the full database surface the command layers use. Both the
// SQLite Store and pgstore.Store implement it.
type Backend interface {
	TaskStore
	PropertyDirectory
	TemplateStore
	SystemStore
	CreateProperty(ctx context.Context, p *Property) (*Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	GetEvents(ctx context.Context, taskID string) ([]Event, error)
	Close() error
}

// Column names accepted by UpdateTask.
const (
	ColStatus          = "status"
	ColScheduledDate   = "scheduled_date"
	ColCompletionDate  = "completion_date"
	ColExecutionMethod = "execution_method"
	ColTimeRange       = "time_range"
	ColCascadeRisk     = "cascade_risk"
	ColRiskRationale   = "risk_rationale"
	ColCurrentFixCost  = "current_fix_cost"
	ColDelayedFixCost  = "delayed_fix_cost"
	ColEstimatedHours  = "estimated_hours"
	ColDIYHours        = "diy_hours"
	ColActualCost      = "actual_cost"
	ColPhotos          = "photos"
	ColSnoozedUntil    = "snoozed_until"
	ColTitle           = "title"
	ColDescription     = "description"
	ColPriority        = "priority"
	ColUnit            = "unit"
)

var updatableColumns = map[string]bool{
	ColStatus: true, ColScheduledDate: true, ColCompletionDate: true,
	ColExecutionMethod: true, ColTimeRange: true, ColCascadeRisk: true,
	ColRiskRationale: true, ColCurrentFixCost: true, ColDelayedFixCost: true,
	ColEstimatedHours: true, ColDIYHours: true, ColActualCost: true,
	ColPhotos: true, ColSnoozedUntil: true, ColTitle: true,
	ColDescription: true, ColPriority: true, ColUnit: true,
}

// Assignment is one normalized column update.
type Assignment struct {
	Column string
	Value  any
}

// NormalizeUpdates validates a partial update and converts its values to
// plain driver types, in column order. A nil value (or nil pointer) clears
// the column.
func NormalizeUpdates(updates map[string]any) ([]Assignment, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("empty update")
	}
	cols := make([]string, 0, len(updates))
	for c := range updates {
		if !updatableColumns[c] {
			return nil, fmt.Errorf("column %q is not updatable", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	out := make([]Assignment, 0, len(cols))
	for _, c := range cols {
		v, err := driverValue(updates[c])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		out = append(out, Assignment{Column: c, Value: v})
	}
	return out, nil
}

func driverValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, float64, int, int64, bool:
		return x, nil
	case TaskStatus:
		return string(x), nil
	case Priority:
		return string(x), nil
	case ExecutionMethod:
		return string(x), nil
	case TimeRange:
		return string(x), nil
	case time.Time:
		return x.UTC(), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC(), nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case []string:
		return EncodeStrings(x)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// EncodeStrings is the JSON text encoding used for list columns.
func EncodeStrings(ss []string) (string, error) {
	if len(ss) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeStrings reverses EncodeStrings; malformed input yields nil.
func DecodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
