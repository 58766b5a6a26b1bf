package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/preserve"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	systemInstalled int
	systemCondition string
	preserveAll     bool
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Register building systems for preservation analysis",
}

var systemAddCmd = &cobra.Command{
	Use:   "add [property-id] [type]",
	Short: "Add a system, e.g. HVAC, Roof, Water Heater",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSystemAdd,
}

var systemListCmd = &cobra.Command{
	Use:   "list [property-id]",
	Short: "List systems with their age",
	Args:  cobra.ExactArgs(1),
	RunE:  runSystemList,
}

var preserveCmd = &cobra.Command{
	Use:   "preserve [property-id]",
	Short: "Find systems worth preserving now instead of replacing later",
	Long: "Evaluates each system against its expected lifespan. Systems between 50% and 95% of\n" +
		"their life get a preservation bundle, its cost, the years it buys and the return.",
	Args: cobra.ExactArgs(1),
	RunE: runPreserve,
}

func init() {
	systemAddCmd.Flags().IntVar(&systemInstalled, "installed", 0, "Install year")
	systemAddCmd.Flags().StringVar(&systemCondition, "condition", "", "Condition: Excellent, Good, Fair, Poor, Urgent")

	preserveCmd.Flags().BoolVar(&preserveAll, "all", false, "Also explain systems without an opportunity")

	systemCmd.AddCommand(systemAddCmd)
	systemCmd.AddCommand(systemListCmd)
}

func runSystemAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.GetProperty(ctx, args[0]); err != nil {
		return err
	}
	sys := &store.System{
		PropertyID: args[0],
		Type:       strings.Join(args[1:], " "),
		Condition:  titleCase(systemCondition),
	}
	if cmd.Flags().Changed("installed") {
		year := systemInstalled
		sys.InstallYear = &year
	}

	created, err := a.store.CreateSystem(ctx, sys)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added system %s: %s\n", cyan(shortID(created.ID)), created.Type)
	return nil
}

func runSystemList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	systems, err := a.store.ListSystems(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(systems) == 0 {
		fmt.Fprintln(out, "No systems. Run: upkeep system add <property> <type> --installed YEAR")
		return nil
	}
	for _, s := range systems {
		installed := "unknown"
		if s.InstallYear != nil {
			installed = fmt.Sprint(*s.InstallYear)
		}
		fmt.Fprintf(out, "%s  %-16s installed %-8s %s\n", cyan(shortID(s.ID)), s.Type, installed, dim(s.Condition))
	}
	return nil
}

func runPreserve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	systems, err := a.store.ListSystems(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	p := a.preserve.Portfolio(systems)
	if len(p.Opportunities) == 0 {
		fmt.Fprintln(out, "No preservation opportunities.")
	}
	for _, o := range p.Opportunities {
		fmt.Fprintf(out, "%s %s  %d/%d years (%.0f%% of life)\n",
			tierColor(o.Priority)(o.Priority), bold(o.System.Type), o.Age, o.Lifespan, o.PercentOfLife)
		for _, iv := range o.Interventions {
			fmt.Fprintf(out, "    %-36s $%-7.0f +%.1f yr\n", iv.Name, iv.Cost, iv.ExtensionYears)
		}
		fmt.Fprintf(out, "    invest $%.0f, extends %.1f yr, replacement $%.0f, saves $%.0f/yr, ROI %.2fx, failure risk %.0f%%\n",
			o.Investment, o.ExtensionYears, o.ReplacementCost, o.AnnualSavings, o.ROI, o.FailureRisk)
	}
	if len(p.Opportunities) > 0 {
		fmt.Fprintf(out, "\n%s invest $%.0f against $%.0f of replacements (%.2fx)\n",
			bold("Portfolio:"), p.TotalInvestment, p.TotalReplacement, p.ROI)
	}

	if preserveAll {
		for _, sys := range systems {
			_, err := a.preserve.Assess(sys)
			if err == nil {
				continue
			}
			reason := err.Error()
			if errors.Is(err, preserve.ErrOutsideWindow) {
				reason = "outside the 50-95% preservation window"
			}
			fmt.Fprintf(out, "%s %s: %s\n", dim("skip"), sys.Type, dim(reason))
		}
	}
	return nil
}

func tierColor(p string) func(a ...any) string {
	switch p {
	case preserve.PriorityHigh:
		return red
	case preserve.PriorityMedium:
		return yellow
	}
	return green
}
