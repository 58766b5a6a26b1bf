package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_Defaults(t *testing.T) {
	if got := NewPool(0).Size(); got != DefaultWorkers {
		t.Errorf("expected default %d workers, got %d", DefaultWorkers, got)
	}
	if got := NewPool(3).Size(); got != 3 {
		t.Errorf("expected 3 workers, got %d", got)
	}
}

func TestRun_EmptyItems(t *testing.T) {
	results := Run(context.Background(), NewPool(4), []int{}, func(ctx context.Context, i int) (int, error) {
		return i, nil
	})
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty items, got %d", len(results))
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			results := Run(context.Background(), NewPool(workers), items, func(ctx context.Context, n int) (string, error) {
				time.Sleep(time.Duration(n) * time.Millisecond)
				return fmt.Sprintf("item-%d", n), nil
			})
			if len(results) != len(items) {
				t.Fatalf("expected %d results, got %d", len(items), len(results))
			}
			for i, r := range results {
				if r.Index != i {
					t.Errorf("result %d has index %d", i, r.Index)
				}
				if want := fmt.Sprintf("item-%d", items[i]); r.Value != want {
					t.Errorf("result %d: expected %s, got %s", i, want, r.Value)
				}
			}
		})
	}
}

func TestRun_IndependentFailures(t *testing.T) {
	boom := errors.New("boom")
	results := Run(context.Background(), NewPool(2), []string{"a", "bad", "c", "bad"}, func(ctx context.Context, s string) (string, error) {
		if s == "bad" {
			return "", boom
		}
		return s, nil
	})

	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failed))
	}
	if failed[0].Index != 1 || failed[1].Index != 3 {
		t.Errorf("unexpected failed indexes %d, %d", failed[0].Index, failed[1].Index)
	}
	if !errors.Is(failed[0].Err, boom) {
		t.Errorf("expected boom, got %v", failed[0].Err)
	}
	if results[2].Value != "c" || results[2].Err != nil {
		t.Errorf("sibling should succeed, got %+v", results[2])
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)

	Run(context.Background(), NewPool(3), items, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	if peak > 3 {
		t.Errorf("expected at most 3 concurrent calls, saw %d", peak)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Run(ctx, NewPool(1), []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return n, nil
	})
	if calls != 0 {
		t.Errorf("expected no calls after cancel, got %d", calls)
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", r.Err)
		}
	}
}
