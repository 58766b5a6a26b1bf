package gcal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

// Events is the slice of the Calendar API that sync uses.
type Events interface {
	FindByTaskID(ctx context.Context, taskID string) (*calendar.Event, error)
	Insert(ctx context.Context, e *calendar.Event) (*calendar.Event, error)
	Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
}

// CalendarClient implements Events on one calendar of a Calendar service.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
}

// NewCalendarClient resolves name against the user's calendar list. An
// empty name or "primary" uses the primary calendar.
func NewCalendarClient(ctx context.Context, srv *calendar.Service, name string) (*CalendarClient, error) {
	if name == "" || name == "primary" {
		return &CalendarClient{srv: srv, calendarID: "primary"}, nil
	}
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return &CalendarClient{srv: srv, calendarID: item.Id}, nil
		}
	}
	return nil, fmt.Errorf("calendar %q not found", name)
}

// FindByTaskID returns the event linked to taskID, or nil.
func (c *CalendarClient) FindByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(TaskIDProperty + "=" + taskID).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func (c *CalendarClient) Insert(ctx context.Context, e *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Insert(c.calendarID, e).Context(ctx).Do()
}

func (c *CalendarClient) Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *CalendarClient) Delete(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// Action is what sync did for one task.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionDeleted   Action = "deleted"
	ActionSkipped   Action = "skipped"
)

// Syncer pushes task state to a calendar.
type Syncer struct {
	events Events
	loc    *time.Location
	pool   *worker.Pool
	log    *slog.Logger
}

// NewSyncer creates a syncer. Event times are built in loc.
func NewSyncer(events Events, loc *time.Location, pool *worker.Pool, log *slog.Logger) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{events: events, loc: loc, pool: pool, log: log}
}

// SyncTask makes the calendar agree with one task: a Scheduled task has
// exactly one current event, any other task has none.
func (s *Syncer) SyncTask(ctx context.Context, t store.Task) (Action, error) {
	existing, err := s.events.FindByTaskID(ctx, t.ID)
	if err != nil {
		return "", fmt.Errorf("find event for task %s: %w", t.ID, err)
	}

	if t.Status != store.StatusScheduled || t.ScheduledDate == nil {
		if existing == nil {
			return ActionSkipped, nil
		}
		if err := s.events.Delete(ctx, existing.Id); err != nil {
			return "", fmt.Errorf("delete event for task %s: %w", t.ID, err)
		}
		return ActionDeleted, nil
	}

	target, err := TaskToEvent(t, s.loc)
	if err != nil {
		return "", err
	}
	if existing == nil {
		if _, err := s.events.Insert(ctx, target); err != nil {
			return "", fmt.Errorf("insert event for task %s: %w", t.ID, err)
		}
		return ActionCreated, nil
	}

	patch := EventPatch(existing, target)
	if patch == nil {
		return ActionUnchanged, nil
	}
	if _, err := s.events.Patch(ctx, existing.Id, patch); err != nil {
		return "", fmt.Errorf("patch event for task %s: %w", t.ID, err)
	}
	return ActionUpdated, nil
}

// Summary counts sync actions.
type Summary struct {
	Actions map[Action]int
	Failed  map[string]error // keyed by task ID
}

// SyncAll syncs every task as an independent request. A failure is
// logged and counted; the rest continue.
func (s *Syncer) SyncAll(ctx context.Context, tasks []store.Task) Summary {
	results := worker.Run(ctx, s.pool, tasks, s.SyncTask)

	sum := Summary{Actions: make(map[Action]int), Failed: make(map[string]error)}
	for _, r := range results {
		if r.Err != nil {
			id := tasks[r.Index].ID
			sum.Failed[id] = r.Err
			s.log.Warn("calendar sync skipped task", "task", id, "err", r.Err)
			continue
		}
		sum.Actions[r.Value]++
	}
	return sum
}
