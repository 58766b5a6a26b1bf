package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/slogtools"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

func testEngine(t *testing.T) (*store.Store, *lifecycle.Engine) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, lifecycle.New(s, lifecycle.Options{Logger: slogtools.Discard()})
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    store.Unit
		wantErr bool
	}{
		{in: "Upstairs", want: store.Unit{Nickname: "Upstairs"}},
		{in: "A:vacant", want: store.Unit{Nickname: "A", Occupancy: "vacant"}},
		{in: "B:occupied:2:1", want: store.Unit{Nickname: "B", Occupancy: "occupied", Bedrooms: 2, Bathrooms: 1}},
		{in: ":vacant", wantErr: true},
		{in: "C:owner:two", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseUnit(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseUnit(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseUnit(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseUnit(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestResolveTaskID(t *testing.T) {
	s, e := testEngine(t)
	ctx := context.Background()
	a, err := e.Create(ctx, &store.Task{Title: "a", PropertyID: "p1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := e.Create(ctx, &store.Task{Title: "b", PropertyID: "p1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got, err := resolveTaskID(ctx, s, a.ID); err != nil || got != a.ID {
		t.Errorf("full id: got %q, %v", got, err)
	}
	if got, err := resolveTaskID(ctx, s, shortID(b.ID)); err != nil || got != b.ID {
		t.Errorf("prefix: got %q, %v", got, err)
	}
	if _, err := resolveTaskID(ctx, s, "zzzz-none"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := resolveTaskID(ctx, s, ""); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("empty prefix should be ambiguous, got %v", err)
	}
}

func TestBulkActionFor(t *testing.T) {
	_, e := testEngine(t)
	ctx := context.Background()
	task, err := e.Create(ctx, &store.Task{Title: "Check smoke detectors", PropertyID: "p1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := time.Date(2026, 10, 7, 0, 0, 0, 0, time.UTC)
	complete, err := bulkActionFor("complete", done)
	if err != nil {
		t.Fatalf("bulkActionFor: %v", err)
	}
	got, err := complete(ctx, e, task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != store.StatusCompleted || got.CompletionDate == nil || !got.CompletionDate.Equal(done) {
		t.Errorf("unexpected completed task %+v", got)
	}

	del, err := bulkActionFor("delete", done)
	if err != nil {
		t.Fatalf("bulkActionFor: %v", err)
	}
	if got, err := del(ctx, e, task.ID); err != nil || got != nil {
		t.Errorf("delete: got %v, %v", got, err)
	}

	if _, err := bulkActionFor("archive", done); err == nil {
		t.Error("expected error for unknown action")
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("upkeep %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	t.Chdir(t.TempDir())

	if out := run(t, "init"); !strings.Contains(out, "Initialized upkeep") {
		t.Fatalf("unexpected init output:\n%s", out)
	}
	run(t, "property", "add", "12 Elm St", "--doors", "2")

	s, err := store.New(upkeepPath("upkeep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	props, err := s.ListProperties(context.Background())
	s.Close()
	if err != nil || len(props) != 1 {
		t.Fatalf("expected one property, got %d (%v)", len(props), err)
	}

	out := run(t, "task", "create", "Replace furnace filter", "--property", props[0].ID, "--hours", "3")
	if !strings.Contains(out, "Created task") {
		t.Fatalf("unexpected create output:\n%s", out)
	}

	s, err = store.New(upkeepPath("upkeep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tasks, err := s.ListTasks(context.Background(), store.TaskFilter{})
	s.Close()
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one task, got %d (%v)", len(tasks), err)
	}

	out = run(t, "calendar", "assign", shortID(tasks[0].ID), "--date", "2026-10-09")
	if !strings.Contains(out, "Scheduled") || !strings.Contains(out, "2026-10-09") {
		t.Errorf("unexpected assign output:\n%s", out)
	}

	out = run(t, "task", "list", "Scheduled")
	if !strings.Contains(out, "Replace furnace filter") {
		t.Errorf("scheduled task missing from list:\n%s", out)
	}
}
