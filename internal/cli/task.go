package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	taskProperty    string
	taskPriority    string
	taskDescription string
	taskSystem      string
	taskUnit        string
	taskScope       string
	taskHours       float64
	taskCost        float64
	taskDelayedCost float64
	taskRisk        float64
	taskWindow      string

	taskListProperty string
	taskListUnit     string
	taskListBatch    string

	completeDate   string
	completeCost   float64
	completePhotos []string

	snoozeUntil string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage maintenance tasks",
	Long:  "Create tasks by hand and move them through Identified, Scheduled, In Progress, Deferred and Completed.",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a task by hand",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List tasks, optionally filtered by status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details and its event log",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Mark a scheduled task as in progress",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner(lifecycleStart),
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete [id]",
	Short: "Record a task as completed",
	Long:  "Marks a task Completed. Cost, photo, date and estimate fields already on the task are kept; photos are appended.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

var taskDeferCmd = &cobra.Command{
	Use:   "defer [id]",
	Short: "Defer an identified task",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner(lifecycleDefer),
}

var taskReactivateCmd = &cobra.Command{
	Use:   "reactivate [id]",
	Short: "Bring a deferred task back to identified",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner(lifecycleReactivate),
}

var taskSendBackCmd = &cobra.Command{
	Use:   "send-back [id]",
	Short: "Take a task off the calendar, back to identified",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner(lifecycleSendBack),
}

var taskSnoozeCmd = &cobra.Command{
	Use:   "snooze [id]",
	Short: "Hide a task's seasonal reminder until a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSnooze,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

func init() {
	f := taskCreateCmd.Flags()
	f.StringVar(&taskProperty, "property", "", "Property ID (required)")
	f.StringVarP(&taskPriority, "priority", "p", "Medium", "Priority: High, Medium, Low, Routine")
	f.StringVarP(&taskDescription, "desc", "d", "", "Task description")
	f.StringVar(&taskSystem, "system", "", "System type, e.g. HVAC, Roof")
	f.StringVar(&taskUnit, "unit", "", "Unit tag for per-unit work")
	f.StringVar(&taskScope, "scope", "", "Scope: property_wide, building_wide, per_unit (default per_unit when --unit is set)")
	f.Float64Var(&taskHours, "hours", 0, "Estimated hours")
	f.Float64Var(&taskCost, "cost", 0, "Current fix cost")
	f.Float64Var(&taskDelayedCost, "delayed-cost", 0, "Cost if the fix is delayed")
	f.Float64Var(&taskRisk, "risk", 0, "Cascade risk 0-10")
	f.StringVar(&taskWindow, "window", "", "Seasonal window, e.g. \"Fall\" or \"Mar-May\"")
	taskCreateCmd.MarkFlagRequired("property")

	taskListCmd.Flags().StringVar(&taskListProperty, "property", "", "Filter by property ID")
	taskListCmd.Flags().StringVar(&taskListUnit, "unit", "", "Filter by unit tag")
	taskListCmd.Flags().StringVar(&taskListBatch, "batch", "", "Filter by fan-out batch ID")

	taskCompleteCmd.Flags().StringVar(&completeDate, "date", "today", "Completion date: today, tomorrow or YYYY-MM-DD")
	taskCompleteCmd.Flags().Float64Var(&completeCost, "cost", 0, "Actual cost")
	taskCompleteCmd.Flags().StringSliceVar(&completePhotos, "photo", nil, "Photo reference (repeatable)")

	taskSnoozeCmd.Flags().StringVar(&snoozeUntil, "until", "", "Snooze until: tomorrow or YYYY-MM-DD (required)")
	taskSnoozeCmd.MarkFlagRequired("until")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskDeferCmd)
	taskCmd.AddCommand(taskReactivateCmd)
	taskCmd.AddCommand(taskSendBackCmd)
	taskCmd.AddCommand(taskSnoozeCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

// optionalFloat returns a pointer to v only when the flag was given.
func optionalFloat(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	priority, err := store.ParsePriority(taskPriority)
	if err != nil {
		return err
	}
	scope := store.Scope(taskScope)
	if scope == "" && taskUnit != "" {
		scope = store.ScopePerUnit
	}

	t := &store.Task{
		PropertyID:     taskProperty,
		Title:          strings.Join(args, " "),
		Description:    taskDescription,
		SystemType:     taskSystem,
		Priority:       priority,
		Scope:          scope,
		Unit:           taskUnit,
		EstimatedHours: optionalFloat(cmd, "hours", taskHours),
		CurrentFixCost: optionalFloat(cmd, "cost", taskCost),
		DelayedFixCost: optionalFloat(cmd, "delayed-cost", taskDelayedCost),
		CascadeRisk:    optionalFloat(cmd, "risk", taskRisk),
		Seasonal:       taskWindow != "",
		SeasonalWindow: taskWindow,
	}
	created, err := a.lifecycle.Create(cmd.Context(), t)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s%s [%s]\n",
		cyan(shortID(created.ID)), created.Title, unitLabel(*created), priorityColor(created.Priority)(created.Priority))
	if created.CascadeRisk != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  Risk:     %.1f/10 %s\n", *created.CascadeRisk, dim(created.RiskRationale))
	}
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	filter := store.TaskFilter{
		PropertyID: taskListProperty,
		Unit:       taskListUnit,
		BatchID:    taskListBatch,
	}
	if len(args) > 0 {
		if filter.Status, err = store.ParseStatus(args[0]); err != nil {
			return err
		}
	}

	tasks, err := a.store.ListTasks(cmd.Context(), filter)
	if err != nil {
		return err
	}
	printTasks(cmd, tasks)
	return nil
}

func printTasks(cmd *cobra.Command, tasks []store.Task) {
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return
	}
	for _, t := range tasks {
		date := ""
		if t.ScheduledDate != nil {
			date = " " + dim(formatDate(t.ScheduledDate))
		}
		fmt.Fprintf(out, "%s %-12s %-8s %s%s%s\n",
			cyan(shortID(t.ID)),
			statusColor(t.Status)(t.Status),
			priorityColor(t.Priority)(t.Priority),
			t.Title, unitLabel(t), date)
	}
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveTaskID(ctx, a.store, args[0])
	if err != nil {
		return err
	}
	t, err := a.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", bold("Task"), t.ID)
	fmt.Fprintf(out, "  Title:    %s\n", t.Title)
	fmt.Fprintf(out, "  Property: %s\n", t.PropertyID)
	if t.Unit != "" {
		fmt.Fprintf(out, "  Unit:     %s\n", t.Unit)
	}
	fmt.Fprintf(out, "  Scope:    %s\n", t.Scope)
	fmt.Fprintf(out, "  Status:   %s\n", statusColor(t.Status)(t.Status))
	fmt.Fprintf(out, "  Priority: %s\n", priorityColor(t.Priority)(t.Priority))
	if t.Description != "" {
		fmt.Fprintf(out, "  Desc:     %s\n", t.Description)
	}
	if t.SystemType != "" {
		fmt.Fprintf(out, "  System:   %s\n", t.SystemType)
	}
	if t.BatchID != "" {
		fmt.Fprintf(out, "  Batch:    %s\n", t.BatchID)
	}
	if t.ScheduledDate != nil {
		fmt.Fprintf(out, "  Date:     %s %s %s\n", formatDate(t.ScheduledDate), t.TimeRange, t.ExecutionMethod)
	}
	if t.CompletionDate != nil {
		fmt.Fprintf(out, "  Done:     %s\n", formatDate(t.CompletionDate))
	}
	fmt.Fprintf(out, "  Hours:    %s\n", formatFloat(t.EstimatedHours, "%.1f"))
	fmt.Fprintf(out, "  Risk:     %s %s\n", formatFloat(t.CascadeRisk, "%.1f/10"), dim(t.RiskRationale))
	fmt.Fprintf(out, "  Cost:     now %s, delayed %s, actual %s\n",
		formatFloat(t.CurrentFixCost, "$%.0f"), formatFloat(t.DelayedFixCost, "$%.0f"), formatFloat(t.ActualCost, "$%.0f"))
	if t.Seasonal {
		fmt.Fprintf(out, "  Window:   %s\n", t.SeasonalWindow)
	}
	if t.SnoozedUntil != nil {
		fmt.Fprintf(out, "  Snoozed:  until %s\n", formatDate(t.SnoozedUntil))
	}
	if len(t.Photos) > 0 {
		fmt.Fprintf(out, "  Photos:   %s\n", strings.Join(t.Photos, ", "))
	}
	fmt.Fprintf(out, "  Created:  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  Updated:  %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))

	events, err := a.store.GetEvents(ctx, id)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Fprintln(out, "\n  Events:")
		for _, e := range events {
			fmt.Fprintf(out, "    %s %s: %s\n", e.Timestamp.Local().Format("01-02 15:04"), e.Type, e.Content)
		}
	}
	return nil
}

type transitionFunc func(e *lifecycle.Engine, cmd *cobra.Command, id string) (*store.Task, error)

func lifecycleStart(e *lifecycle.Engine, cmd *cobra.Command, id string) (*store.Task, error) {
	return e.Start(cmd.Context(), id)
}

func lifecycleDefer(e *lifecycle.Engine, cmd *cobra.Command, id string) (*store.Task, error) {
	return e.Defer(cmd.Context(), id)
}

func lifecycleReactivate(e *lifecycle.Engine, cmd *cobra.Command, id string) (*store.Task, error) {
	return e.Reactivate(cmd.Context(), id)
}

func lifecycleSendBack(e *lifecycle.Engine, cmd *cobra.Command, id string) (*store.Task, error) {
	return e.SendBack(cmd.Context(), id)
}

// transitionRunner wraps a single-id lifecycle call as a RunE.
func transitionRunner(fn transitionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveTaskID(cmd.Context(), a.store, args[0])
		if err != nil {
			return err
		}
		t, err := fn(a.lifecycle, cmd, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s -> %s\n", cyan(shortID(t.ID)), t.Title, statusColor(t.Status)(t.Status))
		return nil
	}
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveTaskID(ctx, a.store, args[0])
	if err != nil {
		return err
	}
	date, err := schedule.ParseDate(completeDate, time.Now())
	if err != nil {
		return err
	}
	t, err := a.lifecycle.Complete(ctx, id, lifecycle.Completion{
		Date:       date,
		ActualCost: optionalFloat(cmd, "cost", completeCost),
		Photos:     completePhotos,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %s completed on %s: %s\n", cyan(shortID(t.ID)), formatDate(t.CompletionDate), t.Title)
	return nil
}

func runTaskSnooze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveTaskID(ctx, a.store, args[0])
	if err != nil {
		return err
	}
	until, err := schedule.ParseDate(snoozeUntil, time.Now())
	if err != nil {
		return err
	}
	t, err := a.lifecycle.Snooze(ctx, id, until)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reminder for %s snoozed until %s\n", cyan(shortID(t.ID)), formatDate(t.SnoozedUntil))
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveTaskID(ctx, a.store, args[0])
	if err != nil {
		return err
	}
	if err := a.lifecycle.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", cyan(shortID(id)))
	return nil
}
