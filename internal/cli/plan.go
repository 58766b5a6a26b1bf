package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/fanout"
)

var (
	planIntent string
	planUnits  []string
	planForce  bool
)

var planCmd = &cobra.Command{
	Use:   "plan [template-id] [property-id]",
	Short: "Fan a template out into tasks for a property",
	Long: `Creates tasks from a template according to the property's topology.

Intents:
  single             one task (single-family, or property-wide work)
  building_wide      one task covering every unit
  per_unit_all       one task per unit
  per_unit_selected  one task per --unit
  unit1, unit2, both duplex shortcuts

Each task is created independently. If some fail, the rest stay created.
A template that already has tasks on the property is refused unless --force is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planIntent, "intent", "i", "single", "Fan-out intent")
	planCmd.Flags().StringSliceVarP(&planUnits, "unit", "u", nil, "Unit tags for per_unit_selected")
	planCmd.Flags().BoolVar(&planForce, "force", false, "Plan even if the template already has tasks on the property")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	intent, err := fanout.ParseIntent(planIntent)
	if err != nil {
		return err
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.planner.FanOutByID(ctx, fanout.IDRequest{
		TemplateID: args[0],
		PropertyID: args[1],
		Intent:     intent,
		Units:      planUnits,
		Force:      planForce,
	})

	out := cmd.OutOrStdout()
	var pf *fanout.PartialFailureError
	if errors.As(err, &pf) {
		fmt.Fprintf(out, "%s %d of %d tasks created\n", warn("Partial fan-out:"), pf.Created, pf.Total)
		units := make([]string, 0, len(pf.Failed))
		for u := range pf.Failed {
			units = append(units, u)
		}
		sort.Strings(units)
		for _, u := range units {
			label := u
			if label == "" {
				label = "(property)"
			}
			fmt.Fprintf(out, "  %s %s: %v\n", red("failed"), label, pf.Failed[u])
		}
		printTasks(cmd, res.Created)
		return err
	}
	if errors.Is(err, fanout.ErrAlreadyPlanned) {
		return fmt.Errorf("%w (use --force to plan again)", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created %d task(s)", len(res.Created))
	if res.BatchID != "" {
		fmt.Fprintf(out, " in batch %s", dim(res.BatchID))
	}
	fmt.Fprintln(out)
	printTasks(cmd, res.Created)
	return nil
}
