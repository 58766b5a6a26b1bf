package gcal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/360Method/360-method-app-sub002/internal/slogtools"
	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

// fakeEvents keeps events in memory, keyed by task ID.
type fakeEvents struct {
	mu      sync.Mutex
	byTask  map[string]*calendar.Event
	patches int
	failFor string
}

func newFakeEvents() *fakeEvents { return &fakeEvents{byTask: make(map[string]*calendar.Event)} }

func (f *fakeEvents) FindByTaskID(_ context.Context, taskID string) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if taskID == f.failFor {
		return nil, errors.New("quota exceeded")
	}
	return f.byTask[taskID], nil
}

func (f *fakeEvents) Insert(_ context.Context, e *calendar.Event) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := e.ExtendedProperties.Private[TaskIDProperty]
	e.Id = "evt-" + id
	f.byTask[id] = e
	return e, nil
}

func (f *fakeEvents) Patch(_ context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches++
	for _, e := range f.byTask {
		if e.Id == eventID {
			if patch.Start != nil {
				e.Start, e.End = patch.Start, patch.End
			}
			if patch.Summary != "" {
				e.Summary = patch.Summary
			}
			return e, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeEvents) Delete(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.byTask {
		if e.Id == eventID {
			delete(f.byTask, id)
			return nil
		}
	}
	return errors.New("not found")
}

func TestSyncTask_Lifecycle(t *testing.T) {
	ev := newFakeEvents()
	s := NewSyncer(ev, time.UTC, nil, slogtools.Discard())
	ctx := context.Background()
	task := scheduledTask()

	steps := []struct {
		name   string
		mutate func(*store.Task)
		want   Action
	}{
		{"first sync inserts", func(*store.Task) {}, ActionCreated},
		{"second sync is a no-op", func(*store.Task) {}, ActionUnchanged},
		{"moved date patches", func(t *store.Task) {
			d := t.ScheduledDate.AddDate(0, 0, 2)
			t.ScheduledDate = &d
		}, ActionUpdated},
		{"sent back deletes", func(t *store.Task) {
			t.Status = store.StatusIdentified
			t.ScheduledDate = nil
		}, ActionDeleted},
		{"unscheduled without event skips", func(*store.Task) {}, ActionSkipped},
	}
	for _, st := range steps {
		st.mutate(&task)
		got, err := s.SyncTask(ctx, task)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if got != st.want {
			t.Errorf("%s: expected %s, got %s", st.name, st.want, got)
		}
	}
	if ev.patches != 1 {
		t.Errorf("expected exactly 1 patch, got %d", ev.patches)
	}
}

func TestSyncAll(t *testing.T) {
	ev := newFakeEvents()
	ev.failFor = "bad"
	s := NewSyncer(ev, time.UTC, worker.NewPool(3), slogtools.Discard())

	a := scheduledTask()
	b := scheduledTask()
	b.ID = "task-2"
	bad := scheduledTask()
	bad.ID = "bad"
	idle := store.Task{ID: "idle", Status: store.StatusIdentified}

	sum := s.SyncAll(context.Background(), []store.Task{a, b, bad, idle})
	if sum.Actions[ActionCreated] != 2 || sum.Actions[ActionSkipped] != 1 {
		t.Errorf("unexpected actions %v", sum.Actions)
	}
	if len(sum.Failed) != 1 || sum.Failed["bad"] == nil {
		t.Errorf("expected bad to fail, got %v", sum.Failed)
	}
}
