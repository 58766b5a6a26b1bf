// Package mcp exposes the maintenance engine as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/360Method/360-method-app-sub002/internal/fanout"
	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/preserve"
	"github.com/360Method/360-method-app-sub002/internal/rank"
	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/season"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

// Deps is what the tools act on.
type Deps struct {
	Store      store.Backend
	Lifecycle  *lifecycle.Engine
	Scheduler  *schedule.Scheduler
	Planner    *fanout.Planner
	Preserve   *preserve.Engine
	Thresholds schedule.Thresholds
	Now        func() time.Time
}

// NewServer creates the MCP server with every tool registered.
func NewServer(d Deps, version string) *server.MCPServer {
	if d.Now == nil {
		d.Now = time.Now
	}
	s := server.NewMCPServer("upkeep", version)

	// Tasks
	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List maintenance tasks with optional filters."),
		mcp.WithString("property_id", mcp.Description("Filter by property")),
		mcp.WithString("status", mcp.Description("Filter by status (Identified|Scheduled|In Progress|Deferred|Completed)")),
		mcp.WithString("unit", mcp.Description("Filter by unit tag")),
	), listTasksHandler(d))

	s.AddTool(mcp.NewTool("rank_tasks",
		mcp.WithDescription("Rank tasks descending by cascade risk, cost or priority."),
		mcp.WithString("by", mcp.Description("cascade_risk (default), cost or priority")),
		mcp.WithString("property_id", mcp.Description("Filter by property")),
		mcp.WithString("unit", mcp.Description("Filter by unit tag")),
		mcp.WithString("priority", mcp.Description("Filter by priority tier")),
		mcp.WithNumber("min_cascade", mcp.Description("Minimum cascade risk (0-10)")),
	), rankTasksHandler(d))

	s.AddTool(mcp.NewTool("transition_task",
		mcp.WithDescription("Move a task to another status. Scheduled needs date; Completed needs completion_date (defaults to today)."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("to", mcp.Description("Target status"), mcp.Required()),
		mcp.WithString("date", mcp.Description("Scheduled date, YYYY-MM-DD")),
		mcp.WithString("completion_date", mcp.Description("Completion date, YYYY-MM-DD")),
	), transitionTaskHandler(d))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Record a task as completed. Existing fields are kept; photos are appended."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("Completion date, YYYY-MM-DD (defaults to today)")),
		mcp.WithNumber("actual_cost", mcp.Description("What the work cost")),
		mcp.WithString("photos", mcp.Description("Comma-separated photo references")),
	), completeTaskHandler(d))

	// Calendar
	s.AddTool(mcp.NewTool("schedule_task",
		mcp.WithDescription("Put a task on the calendar. An already scheduled task is moved to the new date."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD, today or tomorrow"), mcp.Required()),
		mcp.WithString("method", mcp.Description("DIY, Contractor or Operator")),
		mcp.WithString("time_range", mcp.Description("morning, afternoon or evening")),
	), scheduleTaskHandler(d))

	s.AddTool(mcp.NewTool("unschedule_task",
		mcp.WithDescription("Take a task off the calendar and send it back to Identified."),
		mcp.WithString("id", mcp.Description("Task ID"), mcp.Required()),
	), unscheduleTaskHandler(d))

	s.AddTool(mcp.NewTool("workload",
		mcp.WithDescription("Hours booked per day, with the per-cell state and the advisory warning days."),
		mcp.WithString("property_id", mcp.Description("Filter by property")),
		mcp.WithString("anchor", mcp.Description("Date inside the window, YYYY-MM-DD (defaults to today)")),
		mcp.WithString("granularity", mcp.Description("day, week, month (default) or season")),
	), workloadHandler(d))

	// Planning
	s.AddTool(mcp.NewTool("fan_out",
		mcp.WithDescription("Create tasks from a template across a property's units."),
		mcp.WithString("template_id", mcp.Description("Template ID"), mcp.Required()),
		mcp.WithString("property_id", mcp.Description("Property ID"), mcp.Required()),
		mcp.WithString("intent", mcp.Description("single|building_wide|per_unit_all|per_unit_selected|unit1|unit2|both"), mcp.Required()),
		mcp.WithString("units", mcp.Description("Comma-separated unit tags for per_unit_selected")),
		mcp.WithBoolean("force", mcp.Description("Plan even if the template already has tasks on the property")),
	), fanOutHandler(d))

	s.AddTool(mcp.NewTool("available_templates",
		mcp.WithDescription("Templates that have not been used for a property yet."),
		mcp.WithString("property_id", mcp.Description("Property ID"), mcp.Required()),
	), availableTemplatesHandler(d))

	s.AddTool(mcp.NewTool("seasonal_reminders",
		mcp.WithDescription("Unscheduled seasonal tasks whose window includes the given month."),
		mcp.WithString("property_id", mcp.Description("Filter by property")),
		mcp.WithString("date", mcp.Description("Reference date, YYYY-MM-DD (defaults to today)")),
	), seasonalRemindersHandler(d))

	s.AddTool(mcp.NewTool("preservation_portfolio",
		mcp.WithDescription("Life-extension opportunities for a property's building systems, by tier and ROI."),
		mcp.WithString("property_id", mcp.Description("Property ID (empty for all)")),
	), preservationHandler(d))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// optionalDate parses key, falling back to today when it is empty.
func optionalDate(d Deps, req mcp.CallToolRequest, key string) (time.Time, error) {
	s := mcp.ParseString(req, key, "")
	if s == "" {
		return schedule.Day(d.Now()), nil
	}
	return schedule.ParseDate(s, d.Now())
}

func listTasksHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := store.TaskFilter{
			PropertyID: mcp.ParseString(req, "property_id", ""),
			Unit:       mcp.ParseString(req, "unit", ""),
		}
		if s := mcp.ParseString(req, "status", ""); s != "" {
			st, err := store.ParseStatus(s)
			if err != nil {
				return errorResult(err)
			}
			f.Status = st
		}
		tasks, err := d.Store.ListTasks(ctx, f)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"tasks": nonNil(tasks)})
	}
}

func rankTasksHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		by, err := rank.ParseCriterion(mcp.ParseString(req, "by", string(rank.ByCascadeRisk)))
		if err != nil {
			return errorResult(err)
		}
		var f rank.Filter
		f.Unit = mcp.ParseString(req, "unit", "")
		if p := mcp.ParseString(req, "priority", ""); p != "" {
			if f.Priority, err = store.ParsePriority(p); err != nil {
				return errorResult(err)
			}
		}
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if _, set := args["min_cascade"]; set {
				minRisk := mcp.ParseFloat64(req, "min_cascade", 0)
				f.MinCascade = &minRisk
			}
		}

		tasks, err := d.Store.ListTasks(ctx, store.TaskFilter{PropertyID: mcp.ParseString(req, "property_id", "")})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"by": by, "tasks": nonNil(rank.FilterAndRank(tasks, f, by))})
	}
}

func transitionTaskHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		to, err := store.ParseStatus(mcp.ParseString(req, "to", ""))
		if err != nil {
			return errorResult(err)
		}
		c := lifecycle.Change{To: to}
		if s := mcp.ParseString(req, "date", ""); s != "" {
			date, err := schedule.ParseDate(s, d.Now())
			if err != nil {
				return errorResult(err)
			}
			c.Date = &date
		}
		if to == store.StatusCompleted {
			date, err := optionalDate(d, req, "completion_date")
			if err != nil {
				return errorResult(err)
			}
			c.CompletionDate = &date
		}

		t, err := d.Lifecycle.Transition(ctx, mcp.ParseString(req, "id", ""), c)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(t)
	}
}

func completeTaskHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := optionalDate(d, req, "date")
		if err != nil {
			return errorResult(err)
		}
		c := lifecycle.Completion{Date: date, Photos: splitList(mcp.ParseString(req, "photos", ""))}
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if _, set := args["actual_cost"]; set {
				cost := mcp.ParseFloat64(req, "actual_cost", 0)
				c.ActualCost = &cost
			}
		}

		t, err := d.Lifecycle.Complete(ctx, mcp.ParseString(req, "id", ""), c)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(t)
	}
}

func scheduleTaskHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(req, "id", "")
		date, err := schedule.ParseDate(mcp.ParseString(req, "date", ""), d.Now())
		if err != nil {
			return errorResult(err)
		}
		method, err := store.ParseExecutionMethod(mcp.ParseString(req, "method", ""))
		if err != nil {
			return errorResult(err)
		}
		tr, err := store.ParseTimeRange(mcp.ParseString(req, "time_range", ""))
		if err != nil {
			return errorResult(err)
		}

		current, err := d.Store.GetTask(ctx, id)
		if err != nil {
			return errorResult(err)
		}
		var t *store.Task
		if current.Status == store.StatusScheduled {
			t, err = d.Scheduler.Move(ctx, id, date)
		} else {
			t, err = d.Scheduler.AssignSlot(ctx, id, schedule.Slot{Date: date, Method: method, TimeRange: tr})
		}
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(t)
	}
}

func unscheduleTaskHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := d.Scheduler.Unassign(ctx, mcp.ParseString(req, "id", ""))
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(t)
	}
}

type dayReport struct {
	Date  string             `json:"date"`
	Hours float64            `json:"hours"`
	Cell  schedule.CellState `json:"cell"`
	Tasks []string           `json:"tasks"`
}

func workloadHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		anchor, err := optionalDate(d, req, "anchor")
		if err != nil {
			return errorResult(err)
		}
		g, err := schedule.ParseGranularity(mcp.ParseString(req, "granularity", string(schedule.GranularityMonth)))
		if err != nil {
			return errorResult(err)
		}
		tasks, err := d.Store.ListTasks(ctx, store.TaskFilter{PropertyID: mcp.ParseString(req, "property_id", "")})
		if err != nil {
			return errorResult(err)
		}

		start, end := schedule.Window(anchor, g, 0)
		loads := schedule.Workload(schedule.InWindow(tasks, start, end))
		days := make([]dayReport, 0, len(loads))
		for _, l := range loads {
			r := dayReport{Date: l.Date.Format(schedule.DateLayout), Hours: l.Hours, Cell: d.Thresholds.Cell(l.Hours)}
			for _, t := range l.Tasks {
				r.Tasks = append(r.Tasks, t.ID)
			}
			days = append(days, r)
		}
		var warnings []string
		for _, l := range d.Thresholds.NeedsWarning(loads) {
			warnings = append(warnings, l.Date.Format(schedule.DateLayout))
		}
		return jsonResult(map[string]any{
			"start":    start.Format(schedule.DateLayout),
			"end":      end.Format(schedule.DateLayout),
			"days":     days,
			"warnings": nonNil(warnings),
		})
	}
}

func fanOutHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		intent, err := fanout.ParseIntent(mcp.ParseString(req, "intent", ""))
		if err != nil {
			return errorResult(err)
		}
		res, err := d.Planner.FanOutByID(ctx, fanout.IDRequest{
			TemplateID: mcp.ParseString(req, "template_id", ""),
			PropertyID: mcp.ParseString(req, "property_id", ""),
			Intent:     intent,
			Units:      splitList(mcp.ParseString(req, "units", "")),
			Force:      mcp.ParseBoolean(req, "force", false),
		})
		var pf *fanout.PartialFailureError
		if errors.As(err, &pf) {
			return mcp.NewToolResultError(fmt.Sprintf("%v; created: %s", err, strings.Join(taskIDs(res.Created), ", "))), nil
		}
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(res)
	}
}

func availableTemplatesHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		templates, err := d.Store.ListTemplates(ctx)
		if err != nil {
			return errorResult(err)
		}
		tasks, err := d.Store.ListTasks(ctx, store.TaskFilter{PropertyID: mcp.ParseString(req, "property_id", "")})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"templates": nonNil(fanout.AvailableTemplates(templates, tasks))})
	}
}

func seasonalRemindersHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		now := d.Now()
		if s := mcp.ParseString(req, "date", ""); s != "" {
			date, err := schedule.ParseDate(s, now)
			if err != nil {
				return errorResult(err)
			}
			now = date
		}
		tasks, err := d.Store.ListTasks(ctx, store.TaskFilter{
			PropertyID: mcp.ParseString(req, "property_id", ""),
			Status:     store.StatusIdentified,
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(map[string]any{"month": now.Month().String(), "tasks": nonNil(season.Reminders(tasks, now))})
	}
}

func preservationHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		systems, err := d.Store.ListSystems(ctx, mcp.ParseString(req, "property_id", ""))
		if err != nil {
			return errorResult(err)
		}
		p := d.Preserve.Portfolio(systems)
		if p.Opportunities == nil {
			p.Opportunities = []preserve.Opportunity{}
		}
		return jsonResult(p)
	}
}

func taskIDs(tasks []store.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// nonNil keeps empty lists encoding as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
