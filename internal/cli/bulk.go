package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

var bulkDate string

var bulkCmd = &cobra.Command{
	Use:   "bulk [action] [id...]",
	Short: "Apply one lifecycle action to many tasks",
	Long: `Runs the action for every task as an independent request.
Failures are reported per task and do not undo the others.

Actions: start, complete, defer, reactivate, send-back, delete`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBulk,
}

func init() {
	bulkCmd.Flags().StringVar(&bulkDate, "date", "today", "Completion date for the complete action")
}

type bulkAction func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error)

func bulkActionFor(name string, completed time.Time) (bulkAction, error) {
	switch name {
	case "start":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) { return e.Start(ctx, id) }, nil
	case "defer":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) { return e.Defer(ctx, id) }, nil
	case "reactivate":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) { return e.Reactivate(ctx, id) }, nil
	case "send-back":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) { return e.SendBack(ctx, id) }, nil
	case "complete":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) {
			return e.Complete(ctx, id, lifecycle.Completion{Date: completed})
		}, nil
	case "delete":
		return func(ctx context.Context, e *lifecycle.Engine, id string) (*store.Task, error) {
			return nil, e.Delete(ctx, id)
		}, nil
	}
	return nil, fmt.Errorf("unknown bulk action %q (start, complete, defer, reactivate, send-back, delete)", name)
}

func runBulk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	completed, err := schedule.ParseDate(bulkDate, time.Now())
	if err != nil {
		return err
	}
	action, err := bulkActionFor(args[0], completed)
	if err != nil {
		return err
	}

	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := resolveTaskIDs(ctx, a.store, args[1:])
	if err != nil {
		return err
	}
	results := worker.Run(ctx, a.pool, ids, func(ctx context.Context, id string) (*store.Task, error) {
		return action(ctx, a.lifecycle, id)
	})

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "  %s %s: %v\n", red("failed"), shortID(ids[r.Index]), r.Err)
			continue
		}
		if r.Value == nil {
			fmt.Fprintf(out, "  %s %s deleted\n", green("ok"), cyan(shortID(ids[r.Index])))
			continue
		}
		fmt.Fprintf(out, "  %s %s %s -> %s\n", green("ok"), cyan(shortID(ids[r.Index])), r.Value.Title, statusColor(r.Value.Status)(r.Value.Status))
	}

	failed := worker.Failed(results)
	fmt.Fprintf(out, "%s: %d of %d succeeded\n", args[0], len(ids)-len(failed), len(ids))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d %s requests failed", len(failed), len(ids), args[0])
	}
	return nil
}
