// Package advisory asks an external estimator (an LLM behind an HTTP API
// or a local CLI) how risky and costly a maintenance issue is. Every use
// is best-effort: a missing or failing advisor never blocks task creation.
package advisory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/360Method/360-method-app-sub002/internal/config"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Request describes the issue to assess.
type Request struct {
	Title       string
	Description string
	SystemType  string
}

// Assessment is the advisor's estimate. Nil fields were not given.
type Assessment struct {
	CascadeRisk *float64 // 0-10
	Rationale   string
	CurrentCost *float64
	DelayedCost *float64
}

// Advisor is the interface all advisory adapters implement.
type Advisor interface {
	Assess(ctx context.Context, req Request) (*Assessment, error)
}

// New creates the advisor described by cfg, or nil when advisory is off.
func New(cfg config.Advisory) (Advisor, error) {
	switch cfg.Mode {
	case "":
		return nil, nil
	case "cli":
		return NewCLIAdvisor(cfg), nil
	case "api":
		a, err := NewAPIAdvisor(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown advisory mode: %s", cfg.Mode)
	}
}

// Enrich fills the unset risk and cost fields of t from the advisor.
// Failures are logged and leave the task unchanged.
func Enrich(ctx context.Context, a Advisor, t *store.Task, log *slog.Logger) {
	if a == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	if t.CascadeRisk != nil && t.CurrentFixCost != nil && t.DelayedFixCost != nil && t.RiskRationale != "" {
		return
	}

	res, err := a.Assess(ctx, Request{Title: t.Title, Description: t.Description, SystemType: t.SystemType})
	if err != nil {
		log.Warn("advisory assessment failed", "title", t.Title, "err", err)
		return
	}

	if t.CascadeRisk == nil && res.CascadeRisk != nil {
		v := clampRisk(*res.CascadeRisk)
		t.CascadeRisk = &v
	}
	if t.RiskRationale == "" {
		t.RiskRationale = res.Rationale
	}
	if t.CurrentFixCost == nil {
		t.CurrentFixCost = res.CurrentCost
	}
	if t.DelayedFixCost == nil {
		t.DelayedFixCost = res.DelayedCost
	}
	log.Debug("advisory assessment applied", "title", t.Title)
}

func clampRisk(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}
