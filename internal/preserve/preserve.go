// Package preserve finds systems where a preservation investment now beats
// replacing them later, and estimates the return.
package preserve

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	ErrUnknownAge            = errors.New("install year unknown")
	ErrOutsideWindow         = errors.New("outside preservation window")
	ErrNoPreservationBracket = errors.New("no preservation bracket")
)

// The preservation window as a percent of expected lifespan, inclusive.
const (
	MinLifePercent = 50.0
	MaxLifePercent = 95.0
	maxFailureRisk = 80.0
)

// Priority tiers for opportunities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

var conditionMultiplier = map[string]float64{
	"Excellent": 0.5,
	"Good":      1,
	"Fair":      1.5,
	"Poor":      2,
	"Urgent":    3,
}

// Opportunity is a recommended preservation bundle for one system.
type Opportunity struct {
	System          store.System   `json:"system"`
	Age             int            `json:"age"`
	Lifespan        int            `json:"lifespan"`
	PercentOfLife   float64        `json:"percent_of_life"`
	Interventions   []Intervention `json:"interventions"`
	Investment      float64        `json:"investment"`
	ExtensionYears  float64        `json:"extension_years"`
	ReplacementCost float64        `json:"replacement_cost"`
	AnnualSavings   float64        `json:"annual_savings"`
	ROI             float64        `json:"roi"`
	FailureRisk     float64        `json:"failure_risk"`
	Priority        string         `json:"priority"`
}

// Engine evaluates systems against a fixed set of tables.
type Engine struct {
	tables Tables
	now    func() time.Time
}

// New creates an engine. A nil clock uses time.Now.
func New(tables Tables, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{tables: tables, now: now}
}

// Assess computes the opportunity for sys, or the reason there is none.
func (e *Engine) Assess(sys store.System) (*Opportunity, error) {
	if sys.InstallYear == nil {
		return nil, ErrUnknownAge
	}
	age := e.now().Year() - *sys.InstallYear
	lifespan := e.tables.lifespan(sys.Type)
	pct := float64(age) * 100 / float64(lifespan)
	if pct < MinLifePercent || pct > MaxLifePercent {
		return nil, ErrOutsideWindow
	}

	bundle, ok := e.tables.bundleFor(sys.Type, age)
	if !ok || len(bundle) == 0 {
		return nil, ErrNoPreservationBracket
	}

	var investment, extension float64
	for _, iv := range bundle {
		investment += iv.Cost
		extension += iv.ExtensionYears
	}
	replacement := e.tables.replacementCost(sys.Type)

	var savings, roi float64
	if extension > 0 {
		savings = replacement / extension
	}
	if investment > 0 {
		roi = savings / investment
	}

	return &Opportunity{
		System:          sys,
		Age:             age,
		Lifespan:        lifespan,
		PercentOfLife:   pct,
		Interventions:   append([]Intervention(nil), bundle...),
		Investment:      investment,
		ExtensionYears:  extension,
		ReplacementCost: replacement,
		AnnualSavings:   round2(savings),
		ROI:             round2(roi),
		FailureRisk:     failureRisk(pct, sys.Condition),
		Priority:        priorityFor(pct),
	}, nil
}

// Evaluate is Assess without the reason: nil means no opportunity.
func (e *Engine) Evaluate(sys store.System) *Opportunity {
	o, err := e.Assess(sys)
	if err != nil {
		return nil
	}
	return o
}

func failureRisk(pct float64, condition string) float64 {
	var base float64
	switch {
	case pct < 60:
		base = 10
	case pct < 70:
		base = 15
	case pct < 80:
		base = 20
	case pct < 90:
		base = 30
	default:
		base = 40
	}
	mult, ok := conditionMultiplier[condition]
	if !ok {
		mult = 1
	}
	return math.Min(base*mult, maxFailureRisk)
}

func priorityFor(pct float64) string {
	switch {
	case pct > 75:
		return PriorityHigh
	case pct > 60:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func tierRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	}
	return 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Portfolio aggregates opportunities across systems.
type Portfolio struct {
	Opportunities    []Opportunity `json:"opportunities"`
	TotalInvestment  float64       `json:"total_investment"`
	TotalReplacement float64       `json:"total_replacement"`
	ROI              float64       `json:"roi"`
}

// Portfolio evaluates every system, drops those without an opportunity and
// orders the rest by tier, then by ROI descending.
func (e *Engine) Portfolio(systems []store.System) Portfolio {
	var p Portfolio
	for _, sys := range systems {
		if o := e.Evaluate(sys); o != nil {
			p.Opportunities = append(p.Opportunities, *o)
			p.TotalInvestment += o.Investment
			p.TotalReplacement += o.ReplacementCost
		}
	}
	sort.SliceStable(p.Opportunities, func(i, j int) bool {
		a, b := p.Opportunities[i], p.Opportunities[j]
		if ta, tb := tierRank(a.Priority), tierRank(b.Priority); ta != tb {
			return ta < tb
		}
		return a.ROI > b.ROI
	})
	if p.TotalInvestment > 0 {
		p.ROI = round2(p.TotalReplacement / p.TotalInvestment)
	}
	return p
}
