package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Default workload thresholds, in hours.
const (
	DefaultCellOverload = 8.0
	DefaultAdvisory     = 6.0
)

// Day returns the calendar date of t at UTC midnight, the same form the
// store keeps scheduled dates in.
func Day(t time.Time) time.Time {
	return store.DateOnly(t)
}

// DayLoad is the total estimated effort booked on one day.
type DayLoad struct {
	Date  time.Time    `json:"date"`
	Hours float64      `json:"hours"`
	Tasks []store.Task `json:"tasks"`
}

// Workload groups dated tasks by day and sums their hours. Days are
// returned in ascending order; undated tasks are ignored.
func Workload(tasks []store.Task) []DayLoad {
	byDay := make(map[time.Time]*DayLoad)
	for _, t := range tasks {
		if t.ScheduledDate == nil {
			continue
		}
		d := Day(*t.ScheduledDate)
		load, ok := byDay[d]
		if !ok {
			load = &DayLoad{Date: d}
			byDay[d] = load
		}
		load.Hours += t.Hours()
		load.Tasks = append(load.Tasks, t)
	}

	out := make([]DayLoad, 0, len(byDay))
	for _, l := range byDay {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CellState is the per-day calendar hint.
type CellState string

const (
	CellAvailable  CellState = "available"
	CellOverloaded CellState = "overloaded"
)

// Thresholds holds the two workload limits. CellOverload colours a
// single calendar cell; Advisory raises the list-level banner.
type Thresholds struct {
	CellOverload float64
	Advisory     float64
}

// DefaultThresholds returns 8h per cell and 6h for the banner.
func DefaultThresholds() Thresholds {
	return Thresholds{CellOverload: DefaultCellOverload, Advisory: DefaultAdvisory}
}

// Cell classifies a day's total hours.
func (th Thresholds) Cell(hours float64) CellState {
	if hours >= th.CellOverload {
		return CellOverloaded
	}
	return CellAvailable
}

// NeedsWarning returns the days at or above the advisory threshold.
func (th Thresholds) NeedsWarning(loads []DayLoad) []DayLoad {
	var out []DayLoad
	for _, l := range loads {
		if l.Hours >= th.Advisory {
			out = append(out, l)
		}
	}
	return out
}

// Granularity is a calendar view size.
type Granularity string

const (
	GranularityDay    Granularity = "day"
	GranularityWeek   Granularity = "week"
	GranularityMonth  Granularity = "month"
	GranularitySeason Granularity = "season"
)

// ParseGranularity validates a view name.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularitySeason:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q (day, week, month, season)", s)
}

// Window returns the half-open range [start, end) of the view containing
// anchor, moved by step views. Weeks start on Sunday; month and season
// views start on the first of the anchor's month, a season being three
// months.
func Window(anchor time.Time, g Granularity, step int) (start, end time.Time) {
	d := Day(anchor)
	switch g {
	case GranularityWeek:
		start = d.AddDate(0, 0, -int(d.Weekday())+7*step)
		return start, start.AddDate(0, 0, 7)
	case GranularityMonth:
		start = time.Date(d.Year(), d.Month()+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	case GranularitySeason:
		start = time.Date(d.Year(), d.Month()+time.Month(3*step), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0)
	default:
		start = d.AddDate(0, 0, step)
		return start, start.AddDate(0, 0, 1)
	}
}

// Days lists every day in [start, end).
func Days(start, end time.Time) []time.Time {
	var out []time.Time
	for d := Day(start); d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// InWindow returns the dated tasks whose day falls in [start, end).
func InWindow(tasks []store.Task, start, end time.Time) []store.Task {
	var out []store.Task
	for _, t := range tasks {
		if t.ScheduledDate == nil {
			continue
		}
		d := Day(*t.ScheduledDate)
		if !d.Before(start) && d.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// Unscheduled returns the tasks that can still be put on the calendar.
func Unscheduled(tasks []store.Task) []store.Task {
	var out []store.Task
	for _, t := range tasks {
		if t.Status == store.StatusIdentified && t.ScheduledDate == nil {
			out = append(out, t)
		}
	}
	return out
}

// TimeRanges is the display order of the day view.
var TimeRanges = []store.TimeRange{store.RangeMorning, store.RangeAfternoon, store.RangeEvening}

// BucketByTimeOfDay groups tasks by their time-range tag. Untagged tasks
// go to the morning.
func BucketByTimeOfDay(tasks []store.Task) map[store.TimeRange][]store.Task {
	out := make(map[store.TimeRange][]store.Task, len(TimeRanges))
	for _, t := range tasks {
		r := t.TimeRange
		if r == store.RangeUnset {
			r = store.RangeMorning
		}
		out[r] = append(out[r], t)
	}
	return out
}

// DateLayout is the accepted form of a calendar date.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD date, "today" or "tomorrow" relative to now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	switch s {
	case "today":
		return Day(now), nil
	case "tomorrow":
		return Day(now).AddDate(0, 0, 1), nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, today or tomorrow)", s)
	}
	return d, nil
}
