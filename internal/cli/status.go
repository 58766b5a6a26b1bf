package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/season"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick status overview",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintf(out, "No tasks. Run: %s\n", cyan("upkeep plan <template> <property>"))
		return nil
	}

	counts := map[store.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}

	fmt.Fprintln(out, bold(fmt.Sprintf("Tasks: %d total", len(tasks))))
	for _, s := range boardColumns {
		fmt.Fprintf(out, "  %-14s %s\n", string(s)+":", statusColor(s)(counts[s]))
	}

	now := time.Now()
	start, end := schedule.Window(now, schedule.GranularityWeek, 0)
	heavy := a.thresholds.NeedsWarning(schedule.Workload(schedule.InWindow(tasks, start, end)))
	if len(heavy) > 0 {
		fmt.Fprintf(out, "\n%s\n", warn("Heavy days this week:"))
		for _, l := range heavy {
			fmt.Fprintf(out, "  %s  %.1fh\n", l.Date.Format("Mon 01-02"), l.Hours)
		}
	}

	if due := season.Reminders(tasks, now); len(due) > 0 {
		fmt.Fprintf(out, "\n%s %d seasonal task(s) in window. Run: %s\n", yellow("Reminders:"), len(due), cyan("upkeep remind"))
	}
	return nil
}
