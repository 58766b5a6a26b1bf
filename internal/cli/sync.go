package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/gcal"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

var syncProperty string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push scheduled tasks to Google Calendar",
	Long: `Creates or updates one calendar event per scheduled task and removes events
of tasks that are no longer scheduled. Configure calendar.google in
.upkeep/config.yaml; the first run opens a browser to authorize access.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncProperty, "property", "", "Only this property")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	gc := a.cfg.Calendar.Google
	if gc.Credentials == "" {
		return fmt.Errorf("calendar.google.credentials is not set in %s", upkeepPath("config.yaml"))
	}
	if !filepath.IsAbs(gc.Credentials) {
		gc.Credentials = upkeepPath(gc.Credentials)
	}
	if gc.Token == "" {
		gc.Token = "google-token.json"
	}
	if !filepath.IsAbs(gc.Token) {
		gc.Token = upkeepPath(gc.Token)
	}

	srv, err := gcal.NewService(ctx, gc, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	client, err := gcal.NewCalendarClient(ctx, srv, gc.Calendar)
	if err != nil {
		return err
	}

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: syncProperty})
	if err != nil {
		return err
	}
	sum := gcal.NewSyncer(client, nil, a.pool, a.log).SyncAll(ctx, tasks)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Synced %d task(s): %d created, %d updated, %d unchanged, %d deleted\n",
		len(tasks)-len(sum.Failed),
		sum.Actions[gcal.ActionCreated], sum.Actions[gcal.ActionUpdated],
		sum.Actions[gcal.ActionUnchanged], sum.Actions[gcal.ActionDeleted])
	for id, err := range sum.Failed {
		fmt.Fprintf(out, "  %s %s: %v\n", red("failed"), shortID(id), err)
	}
	if len(sum.Failed) > 0 {
		return fmt.Errorf("%d task(s) not synced", len(sum.Failed))
	}
	return nil
}
