// Package season decides whether a seasonal window descriptor such as
// "September-November", "Spring", "Q1" or "every 6 months" is relevant in
// a given month.
package season

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Rule names the resolution step that matched a descriptor.
type Rule string

const (
	RuleRange     Rule = "range"
	RuleSeason    Rule = "season"
	RuleQuarter   Rule = "quarter"
	RuleEvery     Rule = "every"
	RuleMonthName Rule = "month"
)

// Window is the resolved set of months a descriptor covers.
type Window struct {
	Rule   Rule
	months [12]bool
}

// Contains reports whether m falls inside the window.
func (w Window) Contains(m time.Month) bool {
	if m < time.January || m > time.December {
		return false
	}
	return w.months[m-1]
}

// Months lists the covered months in calendar order.
func (w Window) Months() []time.Month {
	var out []time.Month
	for i, ok := range w.months {
		if ok {
			out = append(out, time.Month(i+1))
		}
	}
	return out
}

// String renders the window as abbreviated month names.
func (w Window) String() string {
	if w.Rule == RuleEvery {
		return "year-round"
	}
	ms := w.Months()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.String()[:3]
	}
	return strings.Join(names, " ")
}

var fold = cases.Fold()

var seasonBuckets = []struct {
	keyword string
	months  []time.Month
}{
	{"spring", []time.Month{time.March, time.April, time.May}},
	{"summer", []time.Month{time.June, time.July, time.August}},
	{"fall", []time.Month{time.September, time.October, time.November}},
	{"autumn", []time.Month{time.September, time.October, time.November}},
	{"winter", []time.Month{time.December, time.January, time.February}},
}

// IsInWindow reports whether descriptor is relevant in month. Descriptors
// that cannot be resolved are never relevant.
func IsInWindow(descriptor string, month time.Month) bool {
	w, ok := Resolve(descriptor)
	return ok && w.Contains(month)
}

// Resolve parses a descriptor. The first matching rule wins, in order:
// month range, season keyword, quarter code, "every", month names.
func Resolve(descriptor string) (Window, bool) {
	d := strings.TrimSpace(fold.String(descriptor))
	if d == "" {
		return Window{}, false
	}

	if w, ok := resolveRange(d); ok {
		return w, true
	}

	// Every keyword present contributes its bucket, so a template
	// descriptor like "Spring, Fall" covers both.
	w := Window{Rule: RuleSeason}
	found := false
	for _, b := range seasonBuckets {
		if strings.Contains(d, b.keyword) {
			found = true
			for _, m := range b.months {
				w.months[m-1] = true
			}
		}
	}
	if found {
		return w, true
	}

	if len(d) == 2 && d[0] == 'q' && d[1] >= '1' && d[1] <= '4' {
		w := Window{Rule: RuleQuarter}
		start := int(d[1]-'1') * 3
		for i := start; i < start+3; i++ {
			w.months[i] = true
		}
		return w, true
	}

	if strings.Contains(d, "every") {
		w := Window{Rule: RuleEvery}
		for i := range w.months {
			w.months[i] = true
		}
		return w, true
	}

	w = Window{Rule: RuleMonthName}
	for m := time.January; m <= time.December; m++ {
		if strings.Contains(d, fold.String(m.String())) {
			w.months[m-1] = true
			found = true
		}
	}
	if found {
		return w, true
	}
	return Window{}, false
}

// resolveRange handles "<month>-<month>". Wrapping ranges such as
// "November-February" cover the turn of the year.
func resolveRange(d string) (Window, bool) {
	left, right, ok := strings.Cut(d, "-")
	if !ok {
		return Window{}, false
	}
	start, ok := parseMonth(left)
	if !ok {
		return Window{}, false
	}
	end, ok := parseMonth(right)
	if !ok {
		return Window{}, false
	}

	w := Window{Rule: RuleRange}
	for m := time.January; m <= time.December; m++ {
		if start <= end {
			w.months[m-1] = m >= start && m <= end
		} else {
			w.months[m-1] = m >= start || m <= end
		}
	}
	return w, true
}

// parseMonth matches a folded token of at least three letters against the
// start of each full month name.
func parseMonth(token string) (time.Month, bool) {
	token = strings.TrimSpace(token)
	if len(token) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(fold.String(m.String()), token) {
			return m, true
		}
	}
	return 0, false
}

// ShouldShowReminder reports whether a seasonal reminder is due for t:
// seasonal, unscheduled, still Identified, not snoozed past now, and in
// window for now's month.
func ShouldShowReminder(t store.Task, now time.Time) bool {
	if !t.Seasonal || t.ScheduledDate != nil || t.Status != store.StatusIdentified {
		return false
	}
	if t.SnoozedUntil != nil && now.Before(*t.SnoozedUntil) {
		return false
	}
	return IsInWindow(t.SeasonalWindow, now.Month())
}

// Reminders returns the tasks with a due reminder, in input order.
func Reminders(tasks []store.Task, now time.Time) []store.Task {
	var out []store.Task
	for _, t := range tasks {
		if ShouldShowReminder(t, now) {
			out = append(out, t)
		}
	}
	return out
}
