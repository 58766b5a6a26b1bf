package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// testStore connects to UPKEEP_TEST_PG_DSN inside a fresh schema that is
// dropped when the test ends.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("UPKEEP_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("UPKEEP_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	schema := fmt.Sprintf("upkeep_test_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		admin.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	s := New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestTaskRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	hours := 2.5
	task, err := s.CreateTask(ctx, &store.Task{
		Title: "Flush water heater", PropertyID: "p1", Scope: store.ScopePerUnit, Unit: "Unit 2",
		EstimatedHours: &hours, Photos: []string{"before.jpg"}, Seasonal: true, SeasonalWindow: "Fall",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Unit != "Unit 2" || got.Status != store.StatusIdentified || *got.EstimatedHours != 2.5 || !got.Seasonal {
		t.Errorf("unexpected task %+v", got)
	}
	if len(got.Photos) != 1 || got.Photos[0] != "before.jpg" {
		t.Errorf("expected photos round trip, got %v", got.Photos)
	}
	if got.ScheduledDate != nil || got.CascadeRisk != nil {
		t.Error("expected unset nullable fields to stay nil")
	}

	day := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	updated, err := s.UpdateTask(ctx, task.ID, map[string]any{
		store.ColStatus:        store.StatusScheduled,
		store.ColScheduledDate: day,
		store.ColPhotos:        []string{"before.jpg", "after.jpg"},
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != store.StatusScheduled || updated.ScheduledDate == nil || !store.DateOnly(*updated.ScheduledDate).Equal(day) ||
		updated.ScheduledDate.Location() != time.UTC || len(updated.Photos) != 2 {
		t.Errorf("unexpected update result %+v", updated)
	}

	cleared, err := s.UpdateTask(ctx, task.ID, map[string]any{store.ColScheduledDate: nil})
	if err != nil {
		t.Fatalf("UpdateTask clear: %v", err)
	}
	if cleared.ScheduledDate != nil {
		t.Error("expected nil to clear the date")
	}

	events, _ := s.GetEvents(ctx, task.ID)
	if len(events) != 3 || events[1].Type != "status_changed" {
		t.Errorf("expected created, status_changed, updated events, got %+v", events)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.UpdateTask(ctx, task.ID, map[string]any{store.ColTitle: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, tk := range []store.Task{
		{Title: "a", PropertyID: "p1", BatchID: "b1"},
		{Title: "b", PropertyID: "p1", BatchID: "b1"},
		{Title: "c", PropertyID: "p2"},
	} {
		if _, err := s.CreateTask(ctx, &tk); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter store.TaskFilter
		want   int
	}{
		{"all", store.TaskFilter{}, 3},
		{"property", store.TaskFilter{PropertyID: "p1"}, 2},
		{"batch and property", store.TaskFilter{PropertyID: "p2", BatchID: "b1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTasks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTasks: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d, got %d", tt.want, len(got))
			}
		})
	}
}

func TestDirectory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	duplex, err := s.CreateProperty(ctx, &store.Property{Name: "Elm Duplex", Units: []store.Unit{{Nickname: "Upper"}, {Nickname: "Lower"}}})
	if err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	got, err := s.GetProperty(ctx, duplex.ID)
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if got.DoorCount != 2 || got.FlowType() != store.FlowDualUnit || got.Units[1].ID != "unit-2" {
		t.Errorf("unexpected property %+v", got)
	}
	if _, err := s.GetProperty(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	year := 2010
	if _, err := s.CreateSystem(ctx, &store.System{PropertyID: duplex.ID, Type: "HVAC", InstallYear: &year}); err != nil {
		t.Fatalf("CreateSystem: %v", err)
	}
	systems, _ := s.ListSystems(ctx, duplex.ID)
	if len(systems) != 1 || systems[0].InstallYear == nil || *systems[0].InstallYear != 2010 {
		t.Errorf("unexpected systems %+v", systems)
	}

	tmpl, err := s.CreateTemplate(ctx, &store.Template{Title: "Test smoke detectors", Scope: store.ScopePerUnit, Seasons: []string{"Spring"}})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if err := s.IncrementTemplateUsage(ctx, tmpl.ID); err != nil {
		t.Fatalf("IncrementTemplateUsage: %v", err)
	}
	gotTmpl, _ := s.GetTemplate(ctx, tmpl.ID)
	if gotTmpl.UsageCount != 1 || len(gotTmpl.Seasons) != 1 || gotTmpl.ClimateZones != nil {
		t.Errorf("unexpected template %+v", gotTmpl)
	}
}
