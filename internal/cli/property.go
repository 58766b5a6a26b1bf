package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	propertyDoors   int
	propertyClimate string
	propertyUnits   []string
)

var propertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Manage properties and their units",
}

var propertyAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a property",
	Long: "Adds a property. Without --unit, a multi-door property gets units named Unit 1..N.\n" +
		"Each --unit takes nickname[:occupancy[:bedrooms[:bathrooms]]].",
	Args: cobra.MinimumNArgs(1),
	RunE: runPropertyAdd,
}

var propertyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List properties",
	Args:  cobra.NoArgs,
	RunE:  runPropertyList,
}

var propertyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a property with its units and task counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPropertyShow,
}

func init() {
	propertyAddCmd.Flags().IntVar(&propertyDoors, "doors", 1, "Number of doors (units)")
	propertyAddCmd.Flags().StringVar(&propertyClimate, "climate", "", "Climate zone")
	propertyAddCmd.Flags().StringArrayVar(&propertyUnits, "unit", nil, "Unit definition (repeatable)")

	propertyCmd.AddCommand(propertyAddCmd)
	propertyCmd.AddCommand(propertyListCmd)
	propertyCmd.AddCommand(propertyShowCmd)
}

// parseUnit decodes nickname[:occupancy[:bedrooms[:bathrooms]]].
func parseUnit(s string) (store.Unit, error) {
	parts := strings.Split(s, ":")
	u := store.Unit{Nickname: strings.TrimSpace(parts[0])}
	if u.Nickname == "" {
		return u, fmt.Errorf("unit %q: nickname is empty", s)
	}
	if len(parts) > 1 {
		u.Occupancy = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		if _, err := fmt.Sscanf(parts[2], "%d", &u.Bedrooms); err != nil {
			return u, fmt.Errorf("unit %q: bad bedrooms", s)
		}
	}
	if len(parts) > 3 {
		if _, err := fmt.Sscanf(parts[3], "%d", &u.Bathrooms); err != nil {
			return u, fmt.Errorf("unit %q: bad bathrooms", s)
		}
	}
	return u, nil
}

func runPropertyAdd(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p := &store.Property{
		Name:        strings.Join(args, " "),
		DoorCount:   propertyDoors,
		ClimateZone: propertyClimate,
	}
	for _, def := range propertyUnits {
		u, err := parseUnit(def)
		if err != nil {
			return err
		}
		p.Units = append(p.Units, u)
	}

	created, err := a.store.CreateProperty(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added property %s: %s (%d doors, %s)\n",
		cyan(created.ID), created.Name, created.UnitCount(), created.FlowType())
	return nil
}

func runPropertyList(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	props, err := a.store.ListProperties(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(props) == 0 {
		fmt.Fprintln(out, "No properties. Run: upkeep property add \"name\"")
		return nil
	}
	for _, p := range props {
		fmt.Fprintf(out, "%s  %-30s %d doors  %s\n", cyan(p.ID), p.Name, p.UnitCount(), dim(p.FlowType()))
	}
	return nil
}

func runPropertyShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.GetProperty(ctx, args[0])
	if err != nil {
		return err
	}
	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: p.ID})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", bold("Property"), p.ID)
	fmt.Fprintf(out, "  Name:    %s\n", p.Name)
	fmt.Fprintf(out, "  Doors:   %d (%s)\n", p.UnitCount(), p.FlowType())
	if p.ClimateZone != "" {
		fmt.Fprintf(out, "  Climate: %s\n", p.ClimateZone)
	}

	open := make(map[string]int)
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			open[t.Unit]++
		}
	}
	if len(p.Units) > 0 {
		fmt.Fprintln(out, "\n  Units:")
		for _, u := range p.Units {
			detail := u.Occupancy
			if u.Bedrooms > 0 || u.Bathrooms > 0 {
				detail = strings.TrimSpace(fmt.Sprintf("%s %dbd/%dba", detail, u.Bedrooms, u.Bathrooms))
			}
			fmt.Fprintf(out, "    %-14s %-18s %d open\n", u.Tag(), dim(detail), open[u.Tag()])
		}
	}
	fmt.Fprintf(out, "\n  Open tasks: %d", len(tasks)-countStatus(tasks, store.StatusCompleted))
	if n := open[""]; n > 0 {
		fmt.Fprintf(out, " (%d property-wide)", n)
	}
	fmt.Fprintln(out)
	return nil
}

func countStatus(tasks []store.Task, s store.TaskStatus) int {
	n := 0
	for _, t := range tasks {
		if t.Status == s {
			n++
		}
	}
	return n
}
