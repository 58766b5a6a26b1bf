// Package rank orders tasks for display. It never mutates its input.
package rank

import (
	"fmt"
	"sort"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Criterion selects the sort key.
type Criterion string

const (
	ByCascadeRisk Criterion = "cascade_risk"
	ByCost        Criterion = "cost"
	ByPriority    Criterion = "priority"
)

// ParseCriterion validates a criterion name.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(s); c {
	case ByCascadeRisk, ByCost, ByPriority:
		return c, nil
	}
	return "", fmt.Errorf("unknown rank criterion %q (cascade_risk, cost, priority)", s)
}

// Filter narrows the candidate set before ranking. Zero fields match all.
type Filter struct {
	Unit       string
	Priority   store.Priority
	MinCascade *float64
}

func (f Filter) match(t store.Task) bool {
	if f.Unit != "" && t.Unit != f.Unit {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.MinCascade != nil && value(t.CascadeRisk) < *f.MinCascade {
		return false
	}
	return true
}

// Rank returns a copy of tasks sorted descending by the criterion. Ties
// keep input order. An unknown criterion returns the copy unsorted.
func Rank(tasks []store.Task, by Criterion) []store.Task {
	out := make([]store.Task, len(tasks))
	copy(out, tasks)

	key := keyFunc(by)
	if key == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) > key(out[j])
	})
	return out
}

// FilterAndRank applies f, then ranks what is left.
func FilterAndRank(tasks []store.Task, f Filter, by Criterion) []store.Task {
	var kept []store.Task
	for _, t := range tasks {
		if f.match(t) {
			kept = append(kept, t)
		}
	}
	return Rank(kept, by)
}

// Key returns the value a task is ranked by, or 0 for an unknown criterion.
func Key(t store.Task, by Criterion) float64 {
	if key := keyFunc(by); key != nil {
		return key(t)
	}
	return 0
}

func keyFunc(by Criterion) func(store.Task) float64 {
	switch by {
	case ByCascadeRisk:
		return func(t store.Task) float64 { return value(t.CascadeRisk) }
	case ByCost:
		return func(t store.Task) float64 { return value(t.CurrentFixCost) }
	case ByPriority:
		return func(t store.Task) float64 { return float64(t.Priority.Weight()) }
	}
	return nil
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
