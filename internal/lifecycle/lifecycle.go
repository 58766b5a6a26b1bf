// Package lifecycle moves tasks through their status table. It is the only
// writer of task status; presentation layers call it instead of updating
// the store directly.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/advisory"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Change is a requested status move plus the fields the target state needs.
type Change struct {
	To store.TaskStatus

	// Scheduled
	Date      *time.Time
	Method    store.ExecutionMethod
	TimeRange store.TimeRange

	// Completed
	CompletionDate *time.Time
	ActualCost     *float64
	Photos         []string
}

// Completion carries the evidence recorded when work is finished.
type Completion struct {
	Date       time.Time
	ActualCost *float64
	Photos     []string
}

// Options configures an Engine. All fields are optional.
type Options struct {
	Advisor    advisory.Advisor // consulted on Create when AutoEnrich is set
	AutoEnrich bool
	Logger     *slog.Logger
}

// Engine applies lifecycle operations through a TaskStore.
type Engine struct {
	store      store.TaskStore
	advisor    advisory.Advisor
	autoEnrich bool
	log        *slog.Logger
}

// New creates an engine writing through ts.
func New(ts store.TaskStore, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:      ts,
		advisor:    opts.Advisor,
		autoEnrich: opts.AutoEnrich,
		log:        log,
	}
}

// Store returns the underlying task store.
func (e *Engine) Store() store.TaskStore { return e.store }

// Transition validates and applies a status move. Fields already on the
// task are kept unless the move itself clears them (Scheduled back to
// Identified clears the date, method and time range).
func (e *Engine) Transition(ctx context.Context, id string, c Change) (*store.Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if !store.CanTransition(t.Status, c.To) {
		return nil, &store.TransitionError{TaskID: id, From: t.Status, To: c.To}
	}

	updates := map[string]any{store.ColStatus: c.To}

	switch c.To {
	case store.StatusScheduled:
		if c.Date == nil {
			return nil, &store.FieldError{Field: store.ColScheduledDate, Reason: "scheduling needs a date"}
		}
		updates[store.ColScheduledDate] = store.DateOnly(*c.Date)
		if c.Method != store.MethodUnset {
			updates[store.ColExecutionMethod] = c.Method
		}
		if c.TimeRange != store.RangeUnset {
			updates[store.ColTimeRange] = c.TimeRange
		}

	case store.StatusIdentified:
		if t.Status == store.StatusScheduled {
			updates[store.ColScheduledDate] = nil
			updates[store.ColExecutionMethod] = store.MethodUnset
			updates[store.ColTimeRange] = store.RangeUnset
		}

	case store.StatusCompleted:
		if c.CompletionDate == nil {
			return nil, &store.FieldError{Field: store.ColCompletionDate, Reason: "completion needs a date"}
		}
		updates[store.ColCompletionDate] = store.DateOnly(*c.CompletionDate)
		if c.ActualCost != nil {
			updates[store.ColActualCost] = *c.ActualCost
		}
		if len(c.Photos) > 0 {
			photos := make([]string, 0, len(t.Photos)+len(c.Photos))
			photos = append(photos, t.Photos...)
			photos = append(photos, c.Photos...)
			updates[store.ColPhotos] = photos
		}
	}

	updated, err := e.store.UpdateTask(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("transition task %s to %s: %w", id, c.To, err)
	}
	e.log.Debug("task transitioned", "id", id, "from", t.Status, "to", c.To)
	return updated, nil
}

// Schedule moves a task to Scheduled on date.
func (e *Engine) Schedule(ctx context.Context, id string, date time.Time, method store.ExecutionMethod) (*store.Task, error) {
	return e.Transition(ctx, id, Change{To: store.StatusScheduled, Date: &date, Method: method})
}

// SendBack returns a Scheduled task to Identified, clearing its date.
func (e *Engine) SendBack(ctx context.Context, id string) (*store.Task, error) {
	return e.Transition(ctx, id, Change{To: store.StatusIdentified})
}

// Start moves a Scheduled task to In Progress.
func (e *Engine) Start(ctx context.Context, id string) (*store.Task, error) {
	return e.Transition(ctx, id, Change{To: store.StatusInProgress})
}

// Complete records completion. Existing cost, photo and estimate fields are
// kept; new photos are appended.
func (e *Engine) Complete(ctx context.Context, id string, c Completion) (*store.Task, error) {
	var date *time.Time
	if !c.Date.IsZero() {
		date = &c.Date
	}
	return e.Transition(ctx, id, Change{
		To:             store.StatusCompleted,
		CompletionDate: date,
		ActualCost:     c.ActualCost,
		Photos:         c.Photos,
	})
}

// Defer parks an Identified task.
func (e *Engine) Defer(ctx context.Context, id string) (*store.Task, error) {
	return e.Transition(ctx, id, Change{To: store.StatusDeferred})
}

// Reactivate returns a Deferred task to Identified.
func (e *Engine) Reactivate(ctx context.Context, id string) (*store.Task, error) {
	return e.Transition(ctx, id, Change{To: store.StatusIdentified})
}

// Reschedule moves an already Scheduled task to a new date without a
// status change.
func (e *Engine) Reschedule(ctx context.Context, id string, date time.Time) (*store.Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.Status != store.StatusScheduled {
		return nil, &store.TransitionError{TaskID: id, From: t.Status, To: store.StatusScheduled}
	}
	if date.IsZero() {
		return nil, &store.FieldError{Field: store.ColScheduledDate, Reason: "rescheduling needs a date"}
	}

	updated, err := e.store.UpdateTask(ctx, id, map[string]any{store.ColScheduledDate: store.DateOnly(date)})
	if err != nil {
		return nil, fmt.Errorf("reschedule task %s: %w", id, err)
	}
	return updated, nil
}

// Snooze hides a task's seasonal reminder until the given time.
func (e *Engine) Snooze(ctx context.Context, id string, until time.Time) (*store.Task, error) {
	updated, err := e.store.UpdateTask(ctx, id, map[string]any{store.ColSnoozedUntil: until})
	if err != nil {
		return nil, fmt.Errorf("snooze task %s: %w", id, err)
	}
	return updated, nil
}

// Create adds a manually entered task. It always starts Identified. When
// auto-enrichment is on, the advisor fills any missing risk and cost
// fields first; its failure does not block creation.
func (e *Engine) Create(ctx context.Context, t *store.Task) (*store.Task, error) {
	t.Status = store.StatusIdentified
	t.ScheduledDate = nil
	t.CompletionDate = nil
	if t.Scope == "" {
		t.Scope = store.ScopePropertyWide
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if e.autoEnrich {
		advisory.Enrich(ctx, e.advisor, t, e.log)
	}

	created, err := e.store.CreateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

// Delete removes a task permanently.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
