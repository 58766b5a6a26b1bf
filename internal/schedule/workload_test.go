package schedule

import (
	"testing"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

func hours(h float64) *float64 { return &h }

func on(day time.Time, est *float64) store.Task {
	return store.Task{Status: store.StatusScheduled, ScheduledDate: &day, EstimatedHours: est}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWorkload_TwoThresholds(t *testing.T) {
	day := time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)
	tasks := []store.Task{
		on(day, hours(3)),
		on(day.Add(2*time.Hour), hours(2)),
		on(day.Add(5*time.Hour), hours(2)),
	}

	loads := Workload(tasks)
	if len(loads) != 1 {
		t.Fatalf("expected 1 day, got %d", len(loads))
	}
	if loads[0].Hours != 7 {
		t.Fatalf("expected 7h, got %v", loads[0].Hours)
	}

	th := DefaultThresholds()
	if got := th.Cell(loads[0].Hours); got != CellAvailable {
		t.Errorf("expected cell available at 7h, got %s", got)
	}
	if warn := th.NeedsWarning(loads); len(warn) != 1 {
		t.Errorf("expected 7h day flagged by advisory threshold, got %v", warn)
	}
}

func TestThresholds_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	if th.Cell(7.99) != CellAvailable || th.Cell(8) != CellOverloaded {
		t.Error("cell threshold should flip at exactly 8h")
	}
	loads := []DayLoad{{Hours: 5.99}, {Hours: 6}}
	if warn := th.NeedsWarning(loads); len(warn) != 1 || warn[0].Hours != 6 {
		t.Errorf("advisory threshold should include exactly 6h, got %v", warn)
	}

	custom := Thresholds{CellOverload: 4, Advisory: 10}
	if custom.Cell(5) != CellOverloaded {
		t.Error("custom cell threshold not applied")
	}
	if len(custom.NeedsWarning(loads)) != 0 {
		t.Error("custom advisory threshold not applied")
	}
}

func TestWorkload_GroupsAndFallsBack(t *testing.T) {
	may4 := date(2026, time.May, 4)
	may1 := date(2026, time.May, 1)
	diy := on(may4, nil)
	diy.DIYHours = hours(1.5)

	tasks := []store.Task{
		on(may4, hours(2)),
		diy,
		on(may1, nil),
		{Title: "undated", EstimatedHours: hours(9)},
	}

	loads := Workload(tasks)
	if len(loads) != 2 {
		t.Fatalf("expected 2 days, got %d", len(loads))
	}
	if !loads[0].Date.Equal(may1) || loads[0].Hours != 0 {
		t.Errorf("expected May 1 with 0h first, got %v %v", loads[0].Date, loads[0].Hours)
	}
	if !loads[1].Date.Equal(may4) || loads[1].Hours != 3.5 || len(loads[1].Tasks) != 2 {
		t.Errorf("expected May 4 with 3.5h over 2 tasks, got %+v", loads[1])
	}
}

func TestDay(t *testing.T) {
	late := time.Date(2026, time.March, 3, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	if got := Day(late); !got.Equal(date(2026, time.March, 3)) {
		t.Errorf("expected local calendar date March 3, got %v", got)
	}
}

func TestWindow(t *testing.T) {
	// Wednesday.
	anchor := time.Date(2026, time.April, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		g          Granularity
		step       int
		start, end time.Time
	}{
		{"day", GranularityDay, 0, date(2026, 4, 15), date(2026, 4, 16)},
		{"next day", GranularityDay, 1, date(2026, 4, 16), date(2026, 4, 17)},
		{"week", GranularityWeek, 0, date(2026, 4, 12), date(2026, 4, 19)},
		{"previous week", GranularityWeek, -1, date(2026, 4, 5), date(2026, 4, 12)},
		{"month", GranularityMonth, 0, date(2026, 4, 1), date(2026, 5, 1)},
		{"month over year end", GranularityMonth, 9, date(2027, 1, 1), date(2027, 2, 1)},
		{"season", GranularitySeason, 0, date(2026, 4, 1), date(2026, 7, 1)},
		{"previous season", GranularitySeason, -2, date(2025, 10, 1), date(2026, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(anchor, tt.g, tt.step)
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("expected [%v, %v), got [%v, %v)", tt.start, tt.end, start, end)
			}
		})
	}
}

func TestWindow_SundayAnchor(t *testing.T) {
	start, _ := Window(date(2026, 4, 12), GranularityWeek, 0)
	if !start.Equal(date(2026, 4, 12)) {
		t.Errorf("a Sunday starts its own week, got %v", start)
	}
}

func TestDaysAndInWindow(t *testing.T) {
	start, end := Window(date(2026, 4, 15), GranularityWeek, 0)
	if days := Days(start, end); len(days) != 7 || days[0].Weekday() != time.Sunday {
		t.Fatalf("expected 7 days from Sunday, got %v", days)
	}

	tasks := []store.Task{
		on(date(2026, 4, 11), nil), // Saturday before
		on(date(2026, 4, 12), nil),
		on(date(2026, 4, 18), nil),
		on(date(2026, 4, 19), nil), // next Sunday, excluded
		{Title: "undated"},
	}
	if got := InWindow(tasks, start, end); len(got) != 2 {
		t.Errorf("expected 2 tasks in week, got %d", len(got))
	}
}

func TestUnscheduled(t *testing.T) {
	tasks := []store.Task{
		{ID: "a", Status: store.StatusIdentified},
		on(date(2026, 4, 1), nil),
		{ID: "c", Status: store.StatusDeferred},
	}
	got := Unscheduled(tasks)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only a, got %+v", got)
	}
}

func TestBucketByTimeOfDay(t *testing.T) {
	tasks := []store.Task{
		{ID: "untagged"},
		{ID: "am", TimeRange: store.RangeMorning},
		{ID: "pm", TimeRange: store.RangeAfternoon},
		{ID: "eve", TimeRange: store.RangeEvening},
	}
	b := BucketByTimeOfDay(tasks)
	if len(b[store.RangeMorning]) != 2 || b[store.RangeMorning][0].ID != "untagged" {
		t.Errorf("expected untagged task in morning, got %+v", b[store.RangeMorning])
	}
	if len(b[store.RangeAfternoon]) != 1 || len(b[store.RangeEvening]) != 1 {
		t.Errorf("unexpected buckets %+v", b)
	}
	if _, ok := b[store.RangeUnset]; ok {
		t.Error("no bucket should be keyed by the unset range")
	}
}

func TestParseGranularity(t *testing.T) {
	if g, err := ParseGranularity("season"); err != nil || g != GranularitySeason {
		t.Errorf("ParseGranularity(season) = %q, %v", g, err)
	}
	if _, err := ParseGranularity("year"); err == nil {
		t.Error("expected error for unknown granularity")
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, time.December, 31, 22, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-04-15", date(2026, 4, 15)},
		{"today", date(2026, 12, 31)},
		{"tomorrow", date(2027, 1, 1)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		if err != nil || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDate("04/15/2026", now); err == nil {
		t.Error("expected error for unsupported layout")
	}
}
