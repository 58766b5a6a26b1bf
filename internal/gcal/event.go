// Package gcal mirrors scheduled tasks onto a Google Calendar.
package gcal

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// TaskIDProperty is the private extended property linking an event to
// its task.
const TaskIDProperty = "upkeep_task_id"

// defaultDuration is used when a task has no hour estimate.
const defaultDuration = time.Hour

// priorityColors maps task priority to Calendar event color IDs.
var priorityColors = map[store.Priority]string{
	store.PriorityHigh:    "11", // tomato
	store.PriorityMedium:  "5",  // banana
	store.PriorityLow:     "2",  // sage
	store.PriorityRoutine: "8",  // graphite
}

// TaskToEvent converts a scheduled task into an event. The start is the
// scheduled day at the beginning of its time range in loc; the length is
// the estimated hours, or one hour.
func TaskToEvent(t store.Task, loc *time.Location) (*calendar.Event, error) {
	if t.ScheduledDate == nil {
		return nil, fmt.Errorf("task %s has no scheduled date", t.ID)
	}
	if loc == nil {
		loc = time.Local
	}

	y, m, d := t.ScheduledDate.Date()
	startHour, _ := t.TimeRange.Hours()
	start := time.Date(y, m, d, startHour, 0, 0, 0, loc)
	dur := defaultDuration
	if h := t.Hours(); h > 0 {
		dur = time.Duration(h * float64(time.Hour))
	}
	end := start.Add(dur)

	tz := loc.String()
	if tz == "Local" {
		tz = ""
	}

	summary := t.Title
	if t.Unit != "" {
		summary += " [" + t.Unit + "]"
	}

	return &calendar.Event{
		Summary:     summary,
		Description: describe(t),
		ColorId:     priorityColors[t.Priority],
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: t.ID},
		},
	}, nil
}

func describe(t store.Task) string {
	var lines []string
	if t.Description != "" {
		lines = append(lines, t.Description)
	}
	lines = append(lines, "Priority: "+string(t.Priority))
	if t.ExecutionMethod != store.MethodUnset {
		lines = append(lines, "Method: "+string(t.ExecutionMethod))
	}
	if t.CurrentFixCost != nil {
		lines = append(lines, fmt.Sprintf("Estimated cost: $%.0f", *t.CurrentFixCost))
	}
	if t.CascadeRisk != nil {
		lines = append(lines, fmt.Sprintf("Cascade risk: %.1f/10", *t.CascadeRisk))
	}
	return strings.Join(lines, "\n")
}

// EventPatch returns the fields of target that differ from existing, or
// nil when the event is already current.
func EventPatch(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	changed := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		changed = true
	}
	if !sameTime(existing.Start, target.Start) || !sameTime(existing.End, target.End) {
		patch.Start = target.Start
		patch.End = target.End
		changed = true
	}

	if !changed {
		return nil
	}
	return patch
}

func sameTime(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, errA := time.Parse(time.RFC3339, a.DateTime)
	tb, errB := time.Parse(time.RFC3339, b.DateTime)
	if errA != nil || errB != nil {
		return a.DateTime == b.DateTime
	}
	return ta.Equal(tb)
}
