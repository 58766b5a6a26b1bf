// Package fanout turns one template into the right set of tasks for a
// property's topology, and creates them as independent store requests.
package fanout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Intent is the caller's choice of how to spread a template across units.
type Intent string

const (
	IntentSingle          Intent = "single"
	IntentBuildingWide    Intent = "building_wide"
	IntentPerUnitAll      Intent = "per_unit_all"
	IntentPerUnitSelected Intent = "per_unit_selected"
	IntentUnit1           Intent = "unit1"
	IntentUnit2           Intent = "unit2"
	IntentBoth            Intent = "both"
)

// CommonAreaTag marks property-wide work on a multi-door property.
const CommonAreaTag = "Common Area"

var (
	ErrUnknownUnit         = errors.New("unknown unit")
	ErrIntentNotApplicable = errors.New("intent not applicable to property")
	ErrUnknownIntent       = errors.New("unknown intent")
)

// Request is one fan-out call.
type Request struct {
	Template store.Template
	Property store.Property
	Intent   Intent
	Units    []string // unit tags, for IntentPerUnitSelected
}

// Batch is the planned set of drafts. ID is empty unless the batch holds
// at least two tasks.
type Batch struct {
	ID    string
	Tasks []store.Task
}

// Plan computes the drafts for req without touching any store.
func Plan(req Request) (Batch, error) {
	prop := req.Property
	prop.Units = append([]store.Unit(nil), req.Property.Units...)
	prop.NormalizeUnits()
	if tag, dup := store.DuplicateUnitTag(prop.Units); dup {
		return Batch{}, fmt.Errorf("%w: %q", store.ErrDuplicateUnit, tag)
	}
	flow := prop.FlowType()

	var drafts []store.Task
	switch {
	case flow == store.FlowSingleFamily:
		drafts = append(drafts, draft(req.Template, prop.ID, store.ScopePropertyWide, ""))

	case req.Template.Scope != store.ScopePerUnit:
		drafts = append(drafts, draft(req.Template, prop.ID, store.ScopePropertyWide, CommonAreaTag))

	default:
		var err error
		drafts, err = planUnits(req, prop, flow)
		if err != nil {
			return Batch{}, err
		}
	}

	b := Batch{Tasks: drafts}
	if len(drafts) >= 2 {
		b.ID = uuid.NewString()
		for i := range b.Tasks {
			b.Tasks[i].BatchID = b.ID
		}
	}
	return b, nil
}

func planUnits(req Request, prop store.Property, flow store.FlowType) ([]store.Task, error) {
	tmpl := req.Template
	units := prop.Units

	switch req.Intent {
	case IntentSingle:
		return []store.Task{draft(tmpl, prop.ID, store.ScopePropertyWide, "")}, nil

	case IntentBuildingWide:
		n := prop.UnitCount()
		d := draft(tmpl, prop.ID, store.ScopeBuildingWide, fmt.Sprintf("All Units (%d)", n))
		d.UnitCount = n
		return []store.Task{d}, nil

	case IntentPerUnitAll:
		out := make([]store.Task, 0, len(units))
		for _, u := range units {
			out = append(out, draft(tmpl, prop.ID, store.ScopePerUnit, u.Tag()))
		}
		return out, nil

	case IntentPerUnitSelected:
		if len(req.Units) == 0 {
			return nil, &store.FieldError{Field: "units", Reason: "select at least one unit"}
		}
		seen := make(map[string]bool)
		var out []store.Task
		for _, sel := range req.Units {
			u, ok := findUnit(units, sel)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, sel)
			}
			if seen[u.Tag()] {
				continue
			}
			seen[u.Tag()] = true
			out = append(out, draft(tmpl, prop.ID, store.ScopePerUnit, u.Tag()))
		}
		return out, nil

	case IntentUnit1, IntentUnit2, IntentBoth:
		if flow != store.FlowDualUnit {
			return nil, fmt.Errorf("%w: %s needs a two-unit property, got %s", ErrIntentNotApplicable, req.Intent, flow)
		}
		var picked []store.Unit
		switch req.Intent {
		case IntentUnit1:
			picked = units[:1]
		case IntentUnit2:
			picked = units[1:2]
		default:
			picked = units[:2]
		}
		out := make([]store.Task, 0, len(picked))
		for _, u := range picked {
			out = append(out, draft(tmpl, prop.ID, store.ScopePerUnit, u.Tag()))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, req.Intent)
}

// findUnit matches a selection against unit tags, then IDs.
func findUnit(units []store.Unit, sel string) (store.Unit, bool) {
	for _, u := range units {
		if u.Tag() == sel {
			return u, true
		}
	}
	for _, u := range units {
		if u.ID == sel {
			return u, true
		}
	}
	return store.Unit{}, false
}

func draft(tmpl store.Template, propertyID string, scope store.Scope, unit string) store.Task {
	priority := tmpl.DefaultPriority
	if priority == "" {
		priority = store.PriorityMedium
	}
	window := tmpl.SeasonalWindow
	if window == "" && len(tmpl.Seasons) > 0 {
		window = strings.Join(tmpl.Seasons, ", ")
	}

	t := store.Task{
		PropertyID:     propertyID,
		TemplateID:     tmpl.ID,
		Unit:           unit,
		Title:          tmpl.Title,
		Description:    tmpl.Description,
		SystemType:     tmpl.SystemType,
		Priority:       priority,
		Scope:          scope,
		Status:         store.StatusIdentified,
		Seasonal:       window != "",
		SeasonalWindow: window,
	}
	if tmpl.EstimatedHours != nil {
		h := *tmpl.EstimatedHours
		t.EstimatedHours = &h
	}
	return t
}

// AvailableTemplates drops templates that already have a task. Use it to
// keep a template from being fanned out twice.
func AvailableTemplates(templates []store.Template, existing []store.Task) []store.Template {
	used := make(map[string]bool)
	for _, t := range existing {
		if t.TemplateID != "" {
			used[t.TemplateID] = true
		}
	}
	var out []store.Template
	for _, tmpl := range templates {
		if !used[tmpl.ID] {
			out = append(out, tmpl)
		}
	}
	return out
}

// ParseIntent validates an intent name.
func ParseIntent(s string) (Intent, error) {
	switch i := Intent(s); i {
	case IntentSingle, IntentBuildingWide, IntentPerUnitAll, IntentPerUnitSelected, IntentUnit1, IntentUnit2, IntentBoth:
		return i, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntent, s)
}
