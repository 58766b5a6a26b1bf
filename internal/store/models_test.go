package store

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{StatusIdentified, StatusScheduled, true},
		{StatusIdentified, StatusDeferred, true},
		{StatusIdentified, StatusCompleted, true},
		{StatusIdentified, StatusInProgress, false},
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusIdentified, true},
		{StatusScheduled, StatusDeferred, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusScheduled, false},
		{StatusDeferred, StatusIdentified, true},
		{StatusDeferred, StatusScheduled, false},
		{StatusCompleted, StatusIdentified, false},
		{StatusIdentified, StatusIdentified, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	risk := 11.0

	tests := []struct {
		name  string
		task  Task
		field string
		ok    bool
	}{
		{"valid", Task{Title: "x", PropertyID: "p", Scope: ScopePropertyWide, Status: StatusIdentified}, "", true},
		{"no title", Task{PropertyID: "p", Scope: ScopePropertyWide, Status: StatusIdentified}, "title", false},
		{"per unit without tag", Task{Title: "x", PropertyID: "p", Scope: ScopePerUnit, Status: StatusIdentified}, "unit", false},
		{"building wide without tag", Task{Title: "x", PropertyID: "p", Scope: ScopeBuildingWide, Status: StatusIdentified}, "", true},
		{"scheduled without date", Task{Title: "x", PropertyID: "p", Scope: ScopePropertyWide, Status: StatusScheduled}, "scheduled_date", false},
		{"scheduled with date", Task{Title: "x", PropertyID: "p", Scope: ScopePropertyWide, Status: StatusScheduled, ScheduledDate: &day}, "", true},
		{"completed without date", Task{Title: "x", PropertyID: "p", Scope: ScopePropertyWide, Status: StatusCompleted}, "completion_date", false},
		{"risk out of range", Task{Title: "x", PropertyID: "p", Scope: ScopePropertyWide, Status: StatusIdentified, CascadeRisk: &risk}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.field == "" {
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Errorf("expected field error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestPriorityParseAndWeight(t *testing.T) {
	p, err := ParsePriority("high")
	if err != nil || p != PriorityHigh {
		t.Fatalf("ParsePriority(high) = %v, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
	if !(PriorityHigh.Weight() > PriorityMedium.Weight() &&
		PriorityMedium.Weight() > PriorityLow.Weight() &&
		PriorityLow.Weight() > PriorityRoutine.Weight()) {
		t.Error("priority weights are not strictly ordered")
	}
}

func TestPropertyNormalizeUnits(t *testing.T) {
	tests := []struct {
		name  string
		prop  Property
		units int
		flow  FlowType
	}{
		{"single family", Property{DoorCount: 1}, 0, FlowSingleFamily},
		{"zero doors", Property{}, 0, FlowSingleFamily},
		{"duplex synthesized", Property{DoorCount: 2}, 2, FlowDualUnit},
		{"explicit wins", Property{DoorCount: 6, Units: []Unit{{ID: "A"}, {ID: "B"}, {ID: "C"}}}, 3, FlowMultiUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.prop
			p.NormalizeUnits()
			if len(p.Units) != tt.units {
				t.Errorf("expected %d units, got %d", tt.units, len(p.Units))
			}
			if p.FlowType() != tt.flow {
				t.Errorf("expected flow %s, got %s", tt.flow, p.FlowType())
			}
		})
	}
}

func TestTaskHours(t *testing.T) {
	est, diy := 3.0, 5.0
	if h := (&Task{EstimatedHours: &est, DIYHours: &diy}).Hours(); h != 3 {
		t.Errorf("expected estimated hours to win, got %v", h)
	}
	if h := (&Task{DIYHours: &diy}).Hours(); h != 5 {
		t.Errorf("expected DIY fallback, got %v", h)
	}
	if h := (&Task{}).Hours(); h != 0 {
		t.Errorf("expected 0, got %v", h)
	}
}

func TestNormalizeUpdates(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("x", 3600))
	var nilTime *time.Time

	got, err := NormalizeUpdates(map[string]any{
		ColTitle:          "t",
		ColScheduledDate:  &day,
		ColCompletionDate: nilTime,
		ColPhotos:         []string{"p.png"},
		ColStatus:         StatusScheduled,
	})
	if err != nil {
		t.Fatalf("NormalizeUpdates: %v", err)
	}
	wantCols := []string{ColCompletionDate, ColPhotos, ColScheduledDate, ColStatus, ColTitle}
	if len(got) != len(wantCols) {
		t.Fatalf("expected %d assignments, got %d", len(wantCols), len(got))
	}
	for i, c := range wantCols {
		if got[i].Column != c {
			t.Errorf("assignment %d: expected %s, got %s", i, c, got[i].Column)
		}
	}
	if got[0].Value != nil {
		t.Errorf("expected nil pointer to clear, got %v", got[0].Value)
	}
	if got[1].Value != `["p.png"]` {
		t.Errorf("expected encoded photos, got %v", got[1].Value)
	}
	if ts, ok := got[2].Value.(time.Time); !ok || ts.Location() != time.UTC {
		t.Errorf("expected UTC time, got %v", got[2].Value)
	}
	if got[3].Value != "Scheduled" {
		t.Errorf("expected plain string status, got %#v", got[3].Value)
	}

	if _, err := NormalizeUpdates(map[string]any{ColTitle: struct{}{}}); err == nil {
		t.Error("expected error for unsupported value type")
	}
}

func TestTimeRangeHours(t *testing.T) {
	tests := []struct {
		r          TimeRange
		start, end int
	}{
		{RangeUnset, 8, 12},
		{RangeMorning, 8, 12},
		{RangeAfternoon, 12, 17},
		{RangeEvening, 17, 21},
	}
	for _, tt := range tests {
		start, end := tt.r.Hours()
		if start != tt.start || end != tt.end {
			t.Errorf("%q: expected %d-%d, got %d-%d", tt.r, tt.start, tt.end, start, end)
		}
	}

	if r, err := ParseTimeRange("Evening"); err != nil || r != RangeEvening {
		t.Errorf("ParseTimeRange(Evening) = %q, %v", r, err)
	}
	if _, err := ParseTimeRange("noon"); err == nil {
		t.Error("expected error for unknown range")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TaskStatus
	}{
		{"identified", StatusIdentified},
		{"In Progress", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"in-progress", StatusInProgress},
		{"COMPLETED", StatusCompleted},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDuplicateUnitTag(t *testing.T) {
	tests := []struct {
		name  string
		units []Unit
		tag   string
		dup   bool
	}{
		{"none", nil, "", false},
		{"unique", []Unit{{ID: "a", Nickname: "Upper"}, {ID: "b", Nickname: "Lower"}}, "", false},
		{"same nickname", []Unit{{ID: "a", Nickname: "Upstairs"}, {ID: "b", Nickname: "Upstairs"}}, "Upstairs", true},
		{"nickname matches id", []Unit{{ID: "B"}, {ID: "c", Nickname: "B"}}, "B", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, dup := DuplicateUnitTag(tt.units)
			if tag != tt.tag || dup != tt.dup {
				t.Errorf("got (%q, %v), want (%q, %v)", tag, dup, tt.tag, tt.dup)
			}
		})
	}
}
