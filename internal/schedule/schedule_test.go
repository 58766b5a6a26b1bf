package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/slogtools"
	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

func testScheduler(t *testing.T) (*Scheduler, *lifecycle.Engine) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	e := lifecycle.New(s, lifecycle.Options{Logger: slogtools.Discard()})
	return NewScheduler(e, worker.NewPool(2), slogtools.Discard()), e
}

func createTask(t *testing.T, e *lifecycle.Engine, title string) *store.Task {
	t.Helper()
	task, err := e.Create(context.Background(), &store.Task{Title: title, PropertyID: "p1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

func TestAssignAndUnassign(t *testing.T) {
	sch, e := testScheduler(t)
	ctx := context.Background()
	task := createTask(t, e, "Service furnace")

	got, err := sch.AssignSlot(ctx, task.ID, Slot{Date: date(2026, 10, 5), Method: store.MethodDIY, TimeRange: store.RangeEvening})
	if err != nil {
		t.Fatalf("AssignSlot: %v", err)
	}
	if got.Status != store.StatusScheduled || got.TimeRange != store.RangeEvening || got.ExecutionMethod != store.MethodDIY {
		t.Fatalf("unexpected assigned task %+v", got)
	}

	got, err = sch.Unassign(ctx, task.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if got.Status != store.StatusIdentified || got.ScheduledDate != nil || got.ExecutionMethod != store.MethodUnset || got.TimeRange != store.RangeUnset {
		t.Errorf("expected cleared Identified task, got %+v", got)
	}
}

func TestAssign_RequiresDate(t *testing.T) {
	sch, e := testScheduler(t)
	task := createTask(t, e, "x")
	_, err := sch.Assign(context.Background(), task.ID, time.Time{}, store.MethodUnset)
	if !errors.Is(err, store.ErrMissingRequiredField) {
		t.Errorf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestMove(t *testing.T) {
	sch, e := testScheduler(t)
	ctx := context.Background()
	task := createTask(t, e, "Clean gutters")

	// Dropping an unscheduled task assigns it.
	got, err := sch.Move(ctx, task.ID, date(2026, 10, 5))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got.Status != store.StatusScheduled {
		t.Fatalf("expected Scheduled, got %s", got.Status)
	}

	if _, err := sch.Assign(ctx, task.ID, date(2026, 10, 5), store.MethodContractor); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("assigning a scheduled task again should be rejected, got %v", err)
	}

	// Dropping a scheduled task re-targets it without a status change.
	got, err = sch.Move(ctx, task.ID, time.Date(2026, 10, 9, 16, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Move scheduled: %v", err)
	}
	if !got.ScheduledDate.Equal(date(2026, 10, 9)) || got.Status != store.StatusScheduled {
		t.Errorf("expected moved to Oct 9, got %+v", got)
	}

	if _, err := e.Start(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := sch.Move(ctx, task.ID, date(2026, 10, 10)); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("in-progress tasks cannot be moved, got %v", err)
	}
}

func TestAssignAll(t *testing.T) {
	sch, e := testScheduler(t)
	ctx := context.Background()
	a := createTask(t, e, "a")
	b := createTask(t, e, "b")
	if _, err := e.Defer(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	results := sch.AssignAll(ctx, []string{a.ID, b.ID, "missing"}, Slot{Date: date(2026, 6, 1)})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Value.Status != store.StatusScheduled {
		t.Errorf("expected a scheduled, got %+v", results[0])
	}
	if !errors.Is(results[1].Err, store.ErrInvalidTransition) {
		t.Errorf("expected deferred task rejected, got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, store.ErrNotFound) {
		t.Errorf("expected missing task not found, got %v", results[2].Err)
	}
	if len(worker.Failed(results)) != 2 {
		t.Error("expected 2 failures")
	}
}
