package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Show the audit log for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
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
	events, err := a.store.GetEvents(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintf(out, "No events for task %s\n", shortID(id))
		return nil
	}
	fmt.Fprintf(out, "Events for task %s:\n\n", shortID(id))
	for _, e := range events {
		fmt.Fprintf(out, "  %s  %-14s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type, e.Content)
	}
	return nil
}
