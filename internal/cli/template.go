package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/360Method/360-method-app-sub002/internal/fanout"
	"github.com/360Method/360-method-app-sub002/internal/season"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var (
	tmplDescription string
	tmplSystem      string
	tmplPriority    string
	tmplSeasons     []string
	tmplZones       []string
	tmplScope       string
	tmplRecurrence  int
	tmplHours       float64
	tmplWindow      string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage seasonal task templates",
}

var templateAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a template",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTemplateAdd,
}

var templateImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Add every template listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateImport,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateAvailableCmd = &cobra.Command{
	Use:   "available [property-id]",
	Short: "List templates not yet planned for a property",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateAvailable,
}

func init() {
	f := templateAddCmd.Flags()
	f.StringVarP(&tmplDescription, "desc", "d", "", "Description")
	f.StringVar(&tmplSystem, "system", "", "System type")
	f.StringVarP(&tmplPriority, "priority", "p", "Medium", "Default priority")
	f.StringSliceVar(&tmplSeasons, "seasons", nil, "Seasons, e.g. Spring,Fall")
	f.StringSliceVar(&tmplZones, "zones", nil, "Climate zones")
	f.StringVar(&tmplScope, "scope", "property_wide", "Scope: property_wide or per_unit")
	f.IntVar(&tmplRecurrence, "recur", 0, "Recurrence interval in months")
	f.Float64Var(&tmplHours, "hours", 0, "Estimated hours")
	f.StringVar(&tmplWindow, "window", "", "Seasonal window, e.g. \"Oct-Nov\"")

	templateCmd.AddCommand(templateAddCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateAvailableCmd)
}

func runTemplateAdd(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	priority, err := store.ParsePriority(tmplPriority)
	if err != nil {
		return err
	}
	t := &store.Template{
		Title:            strings.Join(args, " "),
		Description:      tmplDescription,
		SystemType:       tmplSystem,
		DefaultPriority:  priority,
		Seasons:          tmplSeasons,
		ClimateZones:     tmplZones,
		Scope:            store.Scope(tmplScope),
		RecurrenceMonths: tmplRecurrence,
		EstimatedHours:   optionalFloat(cmd, "hours", tmplHours),
		SeasonalWindow:   tmplWindow,
	}
	warnUnresolvable(cmd, t)

	created, err := a.store.CreateTemplate(cmd.Context(), t)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added template %s: %s\n", cyan(created.ID), created.Title)
	return nil
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	var templates []store.Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	for i := range templates {
		t := &templates[i]
		warnUnresolvable(cmd, t)
		created, err := a.store.CreateTemplate(cmd.Context(), t)
		if err != nil {
			return fmt.Errorf("template %d (%s): %w", i+1, t.Title, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added template %s: %s\n", cyan(created.ID), created.Title)
	}
	return nil
}

// warnUnresolvable flags a seasonal window that would never match a month.
func warnUnresolvable(cmd *cobra.Command, t *store.Template) {
	if t.SeasonalWindow == "" {
		return
	}
	if _, ok := season.Resolve(t.SeasonalWindow); !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s seasonal window %q is not recognized; reminders will not show\n",
			yellow("warning:"), t.SeasonalWindow)
	}
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	templates, err := a.store.ListTemplates(cmd.Context())
	if err != nil {
		return err
	}
	printTemplates(cmd, templates)
	return nil
}

func printTemplates(cmd *cobra.Command, templates []store.Template) {
	out := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintln(out, "No templates.")
		return
	}
	for _, t := range templates {
		window := t.SeasonalWindow
		if w, ok := season.Resolve(window); ok {
			window = w.String()
		}
		fmt.Fprintf(out, "%s  %-32s %-13s %-7s used %d  %s\n",
			cyan(shortID(t.ID)), truncate(t.Title, 32), t.Scope, t.DefaultPriority, t.UsageCount, dim(window))
	}
}

func runTemplateAvailable(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.GetProperty(ctx, args[0]); err != nil {
		return err
	}
	templates, err := a.store.ListTemplates(ctx)
	if err != nil {
		return err
	}
	existing, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: args[0]})
	if err != nil {
		return err
	}
	printTemplates(cmd, fanout.AvailableTemplates(templates, existing))
	return nil
}
