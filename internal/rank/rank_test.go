package rank

import (
	"testing"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

func f(v float64) *float64 { return &v }

func ids(tasks []store.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sample() []store.Task {
	return []store.Task{
		{ID: "a", Priority: store.PriorityLow, CascadeRisk: f(3), CurrentFixCost: f(500), Unit: "Unit 1"},
		{ID: "b", Priority: store.PriorityHigh, CascadeRisk: f(9), Unit: "Unit 2"},
		{ID: "c", Priority: store.PriorityMedium, CurrentFixCost: f(1200), Unit: "Unit 1"},
		{ID: "d", Priority: store.PriorityHigh, CascadeRisk: f(9), CurrentFixCost: f(80), Unit: "Unit 1"},
		{ID: "e", Priority: store.PriorityRoutine},
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		by   Criterion
		want []string
	}{
		{ByCascadeRisk, []string{"b", "d", "a", "c", "e"}},
		{ByCost, []string{"c", "a", "d", "b", "e"}},
		{ByPriority, []string{"b", "d", "c", "a", "e"}},
		{"bogus", []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			if got := ids(Rank(sample(), tt.by)); !equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := sample()
	Rank(in, ByPriority)
	if got := ids(in); !equal(got, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestRank_PriorityNonIncreasingAndStable(t *testing.T) {
	tiers := []store.Priority{store.PriorityLow, store.PriorityHigh, store.PriorityRoutine, store.PriorityMedium}
	var tasks []store.Task
	for i := 0; i < 40; i++ {
		tasks = append(tasks, store.Task{ID: string(rune('A' + i)), Priority: tiers[(i*7)%len(tiers)]})
	}
	pos := make(map[string]int)
	for i, t := range tasks {
		pos[t.ID] = i
	}

	out := Rank(tasks, ByPriority)
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1].Priority.Weight(), out[i].Priority.Weight()
		if cur > prev {
			t.Fatalf("tier increased at %d: %d > %d", i, cur, prev)
		}
		if cur == prev && pos[out[i].ID] < pos[out[i-1].ID] {
			t.Fatalf("equal tiers out of input order at %d", i)
		}
	}
}

func TestFilterAndRank(t *testing.T) {
	got := FilterAndRank(sample(), Filter{Unit: "Unit 1", MinCascade: f(1)}, ByCascadeRisk)
	if gotIDs := ids(got); !equal(gotIDs, []string{"d", "a"}) {
		t.Errorf("expected [d a], got %v", gotIDs)
	}

	got = FilterAndRank(sample(), Filter{Priority: store.PriorityHigh}, ByCost)
	if gotIDs := ids(got); !equal(gotIDs, []string{"d", "b"}) {
		t.Errorf("expected [d b], got %v", gotIDs)
	}
}

func TestParseCriterion(t *testing.T) {
	if c, err := ParseCriterion("cost"); err != nil || c != ByCost {
		t.Errorf("ParseCriterion(cost) = %v, %v", c, err)
	}
	if _, err := ParseCriterion("age"); err == nil {
		t.Error("expected error for unknown criterion")
	}
}
