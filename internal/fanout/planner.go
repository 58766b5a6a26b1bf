package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

// ErrPartialFailure matches any *PartialFailureError.
var ErrPartialFailure = errors.New("fan-out partially failed")

// ErrAlreadyPlanned means the template already has tasks on the property.
var ErrAlreadyPlanned = errors.New("template already planned for property")

// PartialFailureError reports which unit-level creations failed. Tasks that
// were created stay created.
type PartialFailureError struct {
	Total   int
	Created int
	Failed  map[string]error // keyed by unit tag ("" for untagged)
}

func (e *PartialFailureError) Error() string {
	units := make([]string, 0, len(e.Failed))
	for u := range e.Failed {
		units = append(units, u)
	}
	sort.Strings(units)

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d tasks created; failed:", e.Created, e.Total)
	for _, u := range units {
		label := u
		if label == "" {
			label = "(property)"
		}
		fmt.Fprintf(&b, " %s (%v);", label, e.Failed[u])
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }

// Result is what a fan-out call created.
type Result struct {
	BatchID string
	Created []store.Task
}

// Options configures a Planner. All fields are optional.
type Options struct {
	Templates  store.TemplateStore     // usage counter and FanOutByID lookups
	Properties store.PropertyDirectory // FanOutByID lookups
	Pool       *worker.Pool
	Logger     *slog.Logger
}

// Planner creates planned drafts through a TaskStore.
type Planner struct {
	tasks      store.TaskStore
	templates  store.TemplateStore
	properties store.PropertyDirectory
	pool       *worker.Pool
	log        *slog.Logger
}

// NewPlanner creates a planner writing through ts.
func NewPlanner(ts store.TaskStore, opts Options) *Planner {
	p := &Planner{
		tasks:      ts,
		templates:  opts.Templates,
		properties: opts.Properties,
		pool:       opts.Pool,
		log:        opts.Logger,
	}
	if p.pool == nil {
		p.pool = worker.NewPool(0)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// FanOut plans req and creates every draft as an independent request.
// When some creations fail it returns the partial Result together with a
// *PartialFailureError; nothing is rolled back.
func (p *Planner) FanOut(ctx context.Context, req Request) (*Result, error) {
	batch, err := Plan(req)
	if err != nil {
		return nil, err
	}

	results := worker.Run(ctx, p.pool, batch.Tasks, func(ctx context.Context, d store.Task) (*store.Task, error) {
		return p.tasks.CreateTask(ctx, &d)
	})

	res := &Result{BatchID: batch.ID}
	failed := make(map[string]error)
	for _, r := range results {
		if r.Err != nil {
			failed[batch.Tasks[r.Index].Unit] = r.Err
			continue
		}
		res.Created = append(res.Created, *r.Value)
	}

	if len(failed) > 0 {
		p.log.Warn("fan-out partially failed",
			"template", req.Template.ID, "created", len(res.Created), "total", len(batch.Tasks))
		return res, &PartialFailureError{Total: len(batch.Tasks), Created: len(res.Created), Failed: failed}
	}

	if p.templates != nil && req.Template.ID != "" {
		if err := p.templates.IncrementTemplateUsage(ctx, req.Template.ID); err != nil {
			p.log.Warn("template usage not recorded", "template", req.Template.ID, "err", err)
		}
	}
	p.log.Debug("fan-out complete", "template", req.Template.ID, "tasks", len(res.Created), "batch", batch.ID)
	return res, nil
}

// IDRequest is a fan-out call by template and property ID.
type IDRequest struct {
	TemplateID string
	PropertyID string
	Intent     Intent
	Units      []string
	Force      bool // plan even if the template already has tasks on the property
}

// FanOutByID loads the template and property, then fans out. A template
// that already has tasks on the property is refused with ErrAlreadyPlanned
// unless Force is set.
func (p *Planner) FanOutByID(ctx context.Context, req IDRequest) (*Result, error) {
	if p.templates == nil || p.properties == nil {
		return nil, fmt.Errorf("fan-out by id needs template and property stores")
	}
	tmpl, err := p.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	prop, err := p.properties.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if !req.Force {
		existing, err := p.tasks.ListTasks(ctx, store.TaskFilter{PropertyID: prop.ID, TemplateID: tmpl.ID})
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		if len(AvailableTemplates([]store.Template{*tmpl}, existing)) == 0 {
			return nil, fmt.Errorf("%w: %s has %d task(s) from %q", ErrAlreadyPlanned, prop.Name, len(existing), tmpl.Title)
		}
	}
	return p.FanOut(ctx, Request{Template: *tmpl, Property: *prop, Intent: req.Intent, Units: req.Units})
}
