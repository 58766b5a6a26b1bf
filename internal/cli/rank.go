package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/rank"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	rankBy         string
	rankProperty   string
	rankUnit       string
	rankPriority   string
	rankMinCascade float64
	rankAll        bool
	rankLimit      int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank open tasks by cascade risk, cost or priority",
	Long:  "Orders tasks highest first. Tasks with no value for the criterion rank as zero; ties keep creation order.",
	Args:  cobra.NoArgs,
	RunE:  runRank,
}

func init() {
	f := rankCmd.Flags()
	f.StringVar(&rankBy, "by", string(rank.ByCascadeRisk), "Criterion: cascade_risk, cost, priority")
	f.StringVar(&rankProperty, "property", "", "Only this property")
	f.StringVar(&rankUnit, "unit", "", "Only this unit tag")
	f.StringVar(&rankPriority, "priority", "", "Only this priority tier")
	f.Float64Var(&rankMinCascade, "min-cascade", 0, "Minimum cascade risk")
	f.BoolVar(&rankAll, "all", false, "Include completed tasks")
	f.IntVarP(&rankLimit, "limit", "n", 0, "Show at most n tasks")
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	by, err := rank.ParseCriterion(rankBy)
	if err != nil {
		return err
	}
	filter := rank.Filter{
		Unit:       rankUnit,
		MinCascade: optionalFloat(cmd, "min-cascade", rankMinCascade),
	}
	if rankPriority != "" {
		if filter.Priority, err = store.ParsePriority(rankPriority); err != nil {
			return err
		}
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: rankProperty})
	if err != nil {
		return err
	}
	if !rankAll {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.Status.IsTerminal() {
				open = append(open, t)
			}
		}
		tasks = open
	}

	ranked := rank.FilterAndRank(tasks, filter, by)
	if rankLimit > 0 && len(ranked) > rankLimit {
		ranked = ranked[:rankLimit]
	}

	out := cmd.OutOrStdout()
	if len(ranked) == 0 {
		fmt.Fprintln(out, "No tasks match.")
		return nil
	}
	for i, t := range ranked {
		fmt.Fprintf(out, "%3d. %s %-10s %-8s %s%s\n", i+1, cyan(shortID(t.ID)),
			rankValue(t, by), priorityColor(t.Priority)(t.Priority), t.Title, unitLabel(t))
	}
	return nil
}

func rankValue(t store.Task, by rank.Criterion) string {
	switch by {
	case rank.ByCascadeRisk:
		return formatFloat(t.CascadeRisk, "risk %.1f")
	case rank.ByCost:
		return formatFloat(t.CurrentFixCost, "$%.0f")
	}
	return string(t.Priority)
}
