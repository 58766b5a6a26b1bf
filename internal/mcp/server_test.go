package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/360Method/360-method-app-sub002/internal/fanout"
	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/preserve"
	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/slogtools"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var testNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*server.MCPServer, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log := slogtools.Discard()
	engine := lifecycle.New(s, lifecycle.Options{Logger: log})
	d := Deps{
		Store:      s,
		Lifecycle:  engine,
		Scheduler:  schedule.NewScheduler(engine, nil, log),
		Planner:    fanout.NewPlanner(s, fanout.Options{Templates: s, Properties: s, Logger: log}),
		Preserve:   preserve.New(preserve.DefaultTables(), func() time.Time { return testNow }),
		Thresholds: schedule.DefaultThresholds(),
		Now:        func() time.Time { return testNow },
	}
	return NewServer(d, "test"), s
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("tool %s not found", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s handler failed: %v", name, err)
	}
	return result
}

func text(r *mcp.CallToolResult) string {
	return r.Content[0].(mcp.TextContent).Text
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool returned error: %s", text(r))
	}
	var v T
	if err := json.Unmarshal([]byte(text(r)), &v); err != nil {
		t.Fatalf("decode result: %v\n%s", err, text(r))
	}
	return v
}

func TestToolsRegistered(t *testing.T) {
	s, _ := testServer(t)
	for _, name := range []string{
		"list_tasks", "rank_tasks", "transition_task", "complete_task", "schedule_task",
		"unschedule_task", "workload", "fan_out", "available_templates", "seasonal_reminders",
		"preservation_portfolio",
	} {
		if s.GetTool(name) == nil {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestFanOutAndList(t *testing.T) {
	s, st := testServer(t)
	ctx := context.Background()
	tmpl, _ := st.CreateTemplate(ctx, &store.Template{Title: "Test smoke detectors", Scope: store.ScopePerUnit})
	prop, _ := st.CreateProperty(ctx, &store.Property{Name: "Oak", DoorCount: 3})

	res := decode[fanout.Result](t, call(t, s, "fan_out", map[string]any{
		"template_id": tmpl.ID, "property_id": prop.ID, "intent": "per_unit_selected", "units": "Unit 1, Unit 3",
	}))
	if len(res.Created) != 2 || res.BatchID == "" {
		t.Fatalf("expected 2 tasks in a batch, got %+v", res)
	}

	list := decode[struct{ Tasks []store.Task }](t, call(t, s, "list_tasks", map[string]any{"property_id": prop.ID}))
	if len(list.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(list.Tasks))
	}

	avail := decode[struct{ Templates []store.Template }](t, call(t, s, "available_templates", map[string]any{"property_id": prop.ID}))
	if len(avail.Templates) != 0 {
		t.Errorf("expected the used template to be unavailable, got %+v", avail.Templates)
	}

	again := call(t, s, "fan_out", map[string]any{"template_id": tmpl.ID, "property_id": prop.ID, "intent": "per_unit_all"})
	if !again.IsError || !strings.Contains(text(again), "already planned") {
		t.Errorf("expected already-planned refusal, got %s", text(again))
	}

	bad := call(t, s, "fan_out", map[string]any{"template_id": tmpl.ID, "property_id": prop.ID, "intent": "both", "force": true})
	if !bad.IsError || !strings.Contains(text(bad), "not applicable") {
		t.Errorf("expected intent error, got %s", text(bad))
	}
}

func TestScheduleCompleteFlow(t *testing.T) {
	s, st := testServer(t)
	task, _ := st.CreateTask(context.Background(), &store.Task{Title: "Clean gutters", PropertyID: "p1"})

	got := decode[store.Task](t, call(t, s, "schedule_task", map[string]any{
		"id": task.ID, "date": "2026-10-20", "method": "diy", "time_range": "afternoon",
	}))
	if got.Status != store.StatusScheduled || got.TimeRange != store.RangeAfternoon || got.ExecutionMethod != store.MethodDIY {
		t.Fatalf("unexpected scheduled task %+v", got)
	}

	got = decode[store.Task](t, call(t, s, "schedule_task", map[string]any{"id": task.ID, "date": "tomorrow"}))
	if want := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC); !got.ScheduledDate.Equal(want) || got.ExecutionMethod != store.MethodDIY {
		t.Errorf("expected move to %v keeping method, got %+v", want, got)
	}

	got = decode[store.Task](t, call(t, s, "complete_task", map[string]any{"id": task.ID, "actual_cost": 120.0, "photos": "a.jpg,b.jpg"}))
	if got.Status != store.StatusCompleted || got.ActualCost == nil || *got.ActualCost != 120 || len(got.Photos) != 2 {
		t.Errorf("unexpected completed task %+v", got)
	}
	if !got.CompletionDate.Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected completion today, got %v", got.CompletionDate)
	}

	again := call(t, s, "unschedule_task", map[string]any{"id": task.ID})
	if !again.IsError || !strings.Contains(text(again), "invalid transition") {
		t.Errorf("completed tasks cannot be unscheduled, got %s", text(again))
	}
}

func TestTransitionTask(t *testing.T) {
	s, st := testServer(t)
	task, _ := st.CreateTask(context.Background(), &store.Task{Title: "Seal deck", PropertyID: "p1"})

	got := decode[store.Task](t, call(t, s, "transition_task", map[string]any{"id": task.ID, "to": "deferred"}))
	if got.Status != store.StatusDeferred {
		t.Errorf("expected Deferred, got %s", got.Status)
	}

	r := call(t, s, "transition_task", map[string]any{"id": task.ID, "to": "in_progress"})
	if !r.IsError {
		t.Error("Deferred to In Progress should be rejected")
	}

	r = call(t, s, "transition_task", map[string]any{"id": task.ID, "to": "finished"})
	if !r.IsError {
		t.Error("unknown status should be rejected")
	}
}

func TestRankTasks(t *testing.T) {
	s, st := testServer(t)
	ctx := context.Background()
	for _, risk := range []float64{3, 9, 6} {
		r := risk
		st.CreateTask(ctx, &store.Task{Title: "t", PropertyID: "p1", CascadeRisk: &r})
	}

	got := decode[struct{ Tasks []store.Task }](t, call(t, s, "rank_tasks", map[string]any{"min_cascade": 5.0}))
	if len(got.Tasks) != 2 || *got.Tasks[0].CascadeRisk != 9 || *got.Tasks[1].CascadeRisk != 6 {
		t.Errorf("expected [9 6], got %+v", got.Tasks)
	}

	if r := call(t, s, "rank_tasks", map[string]any{"by": "age"}); !r.IsError {
		t.Error("unknown criterion should be rejected")
	}
}

func TestWorkload(t *testing.T) {
	s, st := testServer(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	for _, h := range []float64{3, 2, 2} {
		hours := h
		st.CreateTask(ctx, &store.Task{Title: "t", PropertyID: "p1", Status: store.StatusScheduled, ScheduledDate: &day, EstimatedHours: &hours})
	}

	type workloadResult struct {
		Days []struct {
			Date  string
			Hours float64
			Cell  string
		}
		Warnings []string
	}
	got := decode[workloadResult](t, call(t, s, "workload", map[string]any{"granularity": "week", "anchor": "2026-10-20"}))

	if len(got.Days) != 1 || got.Days[0].Hours != 7 || got.Days[0].Cell != "available" {
		t.Errorf("expected one available 7h day, got %+v", got.Days)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "2026-10-20" {
		t.Errorf("expected advisory warning for 2026-10-20, got %v", got.Warnings)
	}
}

func TestSeasonalReminders(t *testing.T) {
	s, st := testServer(t)
	ctx := context.Background()
	st.CreateTask(ctx, &store.Task{Title: "Winterize", PropertyID: "p1", Seasonal: true, SeasonalWindow: "Fall"})
	st.CreateTask(ctx, &store.Task{Title: "Open pool", PropertyID: "p1", Seasonal: true, SeasonalWindow: "May-June"})

	type remindersResult struct {
		Month string
		Tasks []store.Task
	}
	got := decode[remindersResult](t, call(t, s, "seasonal_reminders", map[string]any{}))
	if got.Month != "October" || len(got.Tasks) != 1 || got.Tasks[0].Title != "Winterize" {
		t.Errorf("expected only Winterize in October, got %+v", got)
	}

	got = decode[remindersResult](t, call(t, s, "seasonal_reminders", map[string]any{"date": "2026-05-10"}))
	if len(got.Tasks) != 1 || got.Tasks[0].Title != "Open pool" {
		t.Errorf("expected only Open pool in May, got %+v", got.Tasks)
	}
}

func TestPreservationPortfolio(t *testing.T) {
	s, st := testServer(t)
	ctx := context.Background()
	prop, _ := st.CreateProperty(ctx, &store.Property{Name: "Oak"})
	old, young := 2014, 2024
	st.CreateSystem(ctx, &store.System{PropertyID: prop.ID, Type: "HVAC", InstallYear: &old})
	st.CreateSystem(ctx, &store.System{PropertyID: prop.ID, Type: "Roof", InstallYear: &young})

	got := decode[preserve.Portfolio](t, call(t, s, "preservation_portfolio", map[string]any{"property_id": prop.ID}))
	if len(got.Opportunities) != 1 || got.Opportunities[0].System.Type != "HVAC" {
		t.Errorf("expected only the aging HVAC, got %+v", got.Opportunities)
	}
}
