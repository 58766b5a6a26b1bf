// Package schedule assigns tasks to calendar days and reports how loaded
// each day is.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

// Slot is where on the calendar a task lands.
type Slot struct {
	Date      time.Time
	Method    store.ExecutionMethod
	TimeRange store.TimeRange
}

// Scheduler moves tasks on and off the calendar through the lifecycle engine.
type Scheduler struct {
	engine *lifecycle.Engine
	pool   *worker.Pool
	log    *slog.Logger
}

// NewScheduler creates a scheduler. A nil pool uses the default size.
func NewScheduler(engine *lifecycle.Engine, pool *worker.Pool, log *slog.Logger) *Scheduler {
	if pool == nil {
		pool = worker.NewPool(0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{engine: engine, pool: pool, log: log}
}

// Assign puts a task on date and moves it to Scheduled.
func (s *Scheduler) Assign(ctx context.Context, id string, date time.Time, method store.ExecutionMethod) (*store.Task, error) {
	return s.AssignSlot(ctx, id, Slot{Date: date, Method: method})
}

// AssignSlot is Assign with a time-of-day tag.
func (s *Scheduler) AssignSlot(ctx context.Context, id string, slot Slot) (*store.Task, error) {
	if slot.Date.IsZero() {
		return nil, &store.FieldError{Field: store.ColScheduledDate, Reason: "assigning needs a date"}
	}
	return s.engine.Transition(ctx, id, lifecycle.Change{
		To:        store.StatusScheduled,
		Date:      &slot.Date,
		Method:    slot.Method,
		TimeRange: slot.TimeRange,
	})
}

// Unassign sends a task back to Identified and clears its date, method
// and time range.
func (s *Scheduler) Unassign(ctx context.Context, id string) (*store.Task, error) {
	return s.engine.SendBack(ctx, id)
}

// Move drops a task on a new date. An already scheduled task keeps its
// status and method; anything else is assigned.
func (s *Scheduler) Move(ctx context.Context, id string, date time.Time) (*store.Task, error) {
	t, err := s.engine.Store().GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.Status == store.StatusScheduled {
		return s.engine.Reschedule(ctx, id, date)
	}
	return s.Assign(ctx, id, date, store.MethodUnset)
}

// AssignAll assigns every id to the same slot as independent requests.
// Results come back in input order; failures do not undo successes.
func (s *Scheduler) AssignAll(ctx context.Context, ids []string, slot Slot) []worker.Result[*store.Task] {
	results := worker.Run(ctx, s.pool, ids, func(ctx context.Context, id string) (*store.Task, error) {
		return s.AssignSlot(ctx, id, slot)
	})
	if failed := worker.Failed(results); len(failed) > 0 {
		s.log.Warn("bulk assign partially failed", "failed", len(failed), "total", len(ids))
	}
	return results
}
