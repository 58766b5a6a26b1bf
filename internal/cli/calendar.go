package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/season"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	assignDate   string
	assignMethod string
	assignRange  string

	moveDate string
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Put tasks on the calendar and review it",
}

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a day, week, month or season of scheduled work",
	Args:  cobra.NoArgs,
	RunE:  runCalendarShow,
}

var calendarAssignCmd = &cobra.Command{
	Use:   "assign [id...]",
	Short: "Schedule one or more identified tasks on a date",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCalendarAssign,
}

var calendarUnassignCmd = &cobra.Command{
	Use:   "unassign [id]",
	Short: "Take a task off the calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarUnassign,
}

var calendarMoveCmd = &cobra.Command{
	Use:   "move [id]",
	Short: "Drop a task on a new date",
	Long:  "Moves a scheduled task to another date keeping its method, or schedules an identified one.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarMove,
}

var workloadCmd = &cobra.Command{
	Use:   "workload",
	Short: "Show hours booked per day and flag heavy days",
	Args:  cobra.NoArgs,
	RunE:  runWorkload,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "List seasonal tasks whose window is open",
	Args:  cobra.NoArgs,
	RunE:  runRemind,
}

// addWindowFlags registers the view flags. They are read back with
// viewWindow since several commands share the names with different
// defaults.
func addWindowFlags(cmd *cobra.Command, defView string) {
	cmd.Flags().String("view", defView, "View: day, week, month, season")
	cmd.Flags().String("date", "today", "Anchor date: today, tomorrow or YYYY-MM-DD")
	cmd.Flags().Int("step", 0, "Move the view forward (or back, if negative) this many views")
	cmd.Flags().String("property", "", "Only this property")
}

func init() {
	addWindowFlags(calendarShowCmd, "week")
	addWindowFlags(workloadCmd, "month")

	calendarAssignCmd.Flags().StringVar(&assignDate, "date", "", "Date: today, tomorrow or YYYY-MM-DD (required)")
	calendarAssignCmd.Flags().StringVar(&assignMethod, "method", "", "Execution method: DIY, Contractor, Operator")
	calendarAssignCmd.Flags().StringVar(&assignRange, "range", "", "Time of day: morning, afternoon, evening")
	calendarAssignCmd.MarkFlagRequired("date")

	calendarMoveCmd.Flags().StringVar(&moveDate, "date", "", "New date (required)")
	calendarMoveCmd.MarkFlagRequired("date")

	remindCmd.Flags().String("date", "today", "Check reminders as of this date")
	remindCmd.Flags().String("property", "", "Only this property")

	calendarCmd.AddCommand(calendarShowCmd)
	calendarCmd.AddCommand(calendarAssignCmd)
	calendarCmd.AddCommand(calendarUnassignCmd)
	calendarCmd.AddCommand(calendarMoveCmd)
}

// viewWindow resolves the window flags of cmd.
func viewWindow(cmd *cobra.Command) (g schedule.Granularity, start, end time.Time, err error) {
	view, _ := cmd.Flags().GetString("view")
	date, _ := cmd.Flags().GetString("date")
	step, _ := cmd.Flags().GetInt("step")

	if g, err = schedule.ParseGranularity(view); err != nil {
		return
	}
	anchor, err := schedule.ParseDate(date, time.Now())
	if err != nil {
		return
	}
	start, end = schedule.Window(anchor, g, step)
	return
}

func runCalendarShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	g, start, end, err := viewWindow(cmd)
	if err != nil {
		return err
	}
	property, _ := cmd.Flags().GetString("property")

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: property})
	if err != nil {
		return err
	}
	inView := schedule.InWindow(all, start, end)
	byDay := make(map[time.Time]schedule.DayLoad)
	for _, l := range schedule.Workload(inView) {
		byDay[l.Date] = l
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s - %s\n\n", bold(titleCase(string(g))), start.Format("Mon Jan 2"), end.AddDate(0, 0, -1).Format("Mon Jan 2 2006"))

	if g == schedule.GranularityDay {
		buckets := schedule.BucketByTimeOfDay(inView)
		for _, r := range schedule.TimeRanges {
			from, to := r.Hours()
			fmt.Fprintf(out, "%s %s\n", bold(titleCase(string(r))), dim(fmt.Sprintf("%02d:00-%02d:00", from, to)))
			for _, t := range buckets[r] {
				printCalendarTask(out, t)
			}
		}
	} else {
		for _, d := range schedule.Days(start, end) {
			l, ok := byDay[d]
			if !ok && g != schedule.GranularityWeek {
				continue
			}
			fmt.Fprintf(out, "%s  %s\n", d.Format("Mon 01-02"), cellLabel(a.thresholds, l.Hours))
			for _, t := range l.Tasks {
				printCalendarTask(out, t)
			}
		}
	}

	printAdvisory(cmd, a.thresholds, schedule.Workload(inView))
	if n := len(schedule.Unscheduled(all)); n > 0 {
		fmt.Fprintf(out, "\n%s\n", dim(fmt.Sprintf("%d identified task(s) not on the calendar", n)))
	}
	return nil
}

func printCalendarTask(out io.Writer, t store.Task) {
	method := ""
	if t.ExecutionMethod != store.MethodUnset {
		method = " " + dim(t.ExecutionMethod)
	}
	fmt.Fprintf(out, "    %s %s%s %s%s\n", cyan(shortID(t.ID)), t.Title, unitLabel(t),
		dim(fmt.Sprintf("%.1fh", t.Hours())), method)
}

func cellLabel(th schedule.Thresholds, hours float64) string {
	label := fmt.Sprintf("%.1fh", hours)
	if th.Cell(hours) == schedule.CellOverloaded {
		return red(label + " overloaded")
	}
	return green(label)
}

func printAdvisory(cmd *cobra.Command, th schedule.Thresholds, loads []schedule.DayLoad) {
	heavy := th.NeedsWarning(loads)
	if len(heavy) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", warn(fmt.Sprintf("Heavy days (%.0fh or more):", th.Advisory)))
	for _, l := range heavy {
		fmt.Fprintf(out, "  %s  %.1fh across %d task(s)\n", l.Date.Format("Mon 2006-01-02"), l.Hours, len(l.Tasks))
	}
}

func runCalendarAssign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := schedule.ParseDate(assignDate, time.Now())
	if err != nil {
		return err
	}
	method, err := store.ParseExecutionMethod(assignMethod)
	if err != nil {
		return err
	}
	var tr store.TimeRange
	if assignRange != "" {
		if tr, err = store.ParseTimeRange(assignRange); err != nil {
			return err
		}
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := resolveTaskIDs(ctx, a.store, args)
	if err != nil {
		return err
	}
	slot := schedule.Slot{Date: date, Method: method, TimeRange: tr}
	out := cmd.OutOrStdout()

	if len(ids) == 1 {
		t, err := a.scheduler.AssignSlot(ctx, ids[0], slot)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Scheduled %s on %s: %s\n", cyan(shortID(t.ID)), formatDate(t.ScheduledDate), t.Title)
		return printDayLoad(cmd, a, date)
	}

	results := a.scheduler.AssignAll(ctx, ids, slot)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  %s %s: %v\n", red("failed"), shortID(ids[r.Index]), r.Err)
			continue
		}
		fmt.Fprintf(out, "  %s %s %s\n", green("scheduled"), cyan(shortID(r.Value.ID)), r.Value.Title)
	}
	fmt.Fprintf(out, "%d of %d tasks scheduled on %s\n", len(ids)-failed, len(ids), date.Format(schedule.DateLayout))
	if err := printDayLoad(cmd, a, date); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d task(s) could not be scheduled", failed)
	}
	return nil
}

// printDayLoad reports the total hours on date after a change.
func printDayLoad(cmd *cobra.Command, a *app, date time.Time) error {
	tasks, err := a.store.ListTasks(cmd.Context(), store.TaskFilter{})
	if err != nil {
		return err
	}
	start := schedule.Day(date)
	loads := schedule.Workload(schedule.InWindow(tasks, start, start.AddDate(0, 0, 1)))
	if len(loads) == 0 {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  Day total: %s\n", cellLabel(a.thresholds, loads[0].Hours))
	printAdvisory(cmd, a.thresholds, loads)
	return nil
}

func runCalendarUnassign(cmd *cobra.Command, args []string) error {
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
	t, err := a.scheduler.Unassign(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unscheduled %s: %s\n", cyan(shortID(t.ID)), t.Title)
	return nil
}

func runCalendarMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := schedule.ParseDate(moveDate, time.Now())
	if err != nil {
		return err
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := resolveTaskID(ctx, a.store, args[0])
	if err != nil {
		return err
	}
	t, err := a.scheduler.Move(ctx, id, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s: %s\n", cyan(shortID(t.ID)), formatDate(t.ScheduledDate), t.Title)
	return printDayLoad(cmd, a, date)
}

func runWorkload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, start, end, err := viewWindow(cmd)
	if err != nil {
		return err
	}
	property, _ := cmd.Flags().GetString("property")

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: property})
	if err != nil {
		return err
	}
	loads := schedule.Workload(schedule.InWindow(tasks, start, end))

	out := cmd.OutOrStdout()
	if len(loads) == 0 {
		fmt.Fprintf(out, "Nothing scheduled %s - %s\n", start.Format(schedule.DateLayout), end.AddDate(0, 0, -1).Format(schedule.DateLayout))
		return nil
	}
	var total float64
	for _, l := range loads {
		total += l.Hours
		fmt.Fprintf(out, "%s  %-24s %d task(s)\n", l.Date.Format("Mon 2006-01-02"), cellLabel(a.thresholds, l.Hours), len(l.Tasks))
	}
	fmt.Fprintf(out, "%s %.1fh over %d day(s)\n", bold("Total:"), total, len(loads))
	printAdvisory(cmd, a.thresholds, loads)
	return nil
}

func runRemind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, _ := cmd.Flags().GetString("date")
	property, _ := cmd.Flags().GetString("property")
	now, err := schedule.ParseDate(date, time.Now())
	if err != nil {
		return err
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: property, Status: store.StatusIdentified})
	if err != nil {
		return err
	}
	due := season.Reminders(tasks, now)

	out := cmd.OutOrStdout()
	if len(due) == 0 {
		fmt.Fprintf(out, "No seasonal reminders for %s.\n", now.Format("January"))
		return nil
	}
	fmt.Fprintf(out, "%s\n", bold(fmt.Sprintf("%d seasonal task(s) in window for %s:", len(due), now.Format("January"))))
	for _, t := range due {
		window := t.SeasonalWindow
		if w, ok := season.Resolve(window); ok {
			window = w.String()
		}
		fmt.Fprintf(out, "  %s %s%s %s\n", cyan(shortID(t.ID)), t.Title, unitLabel(t), dim(window))
	}
	fmt.Fprintln(out, dim("Schedule with: upkeep calendar assign <id> --date YYYY-MM-DD, or snooze with: upkeep task snooze <id> --until YYYY-MM-DD"))
	return nil
}
