package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/store"
)

var boardProperty string

// boardColumns is the left-to-right lifecycle order.
var boardColumns = []store.TaskStatus{
	store.StatusIdentified,
	store.StatusScheduled,
	store.StatusInProgress,
	store.StatusDeferred,
	store.StatusCompleted,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show tasks in lifecycle columns",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

func init() {
	boardCmd.Flags().StringVar(&boardProperty, "property", "", "Only this property")
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := mustApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.store.ListTasks(ctx, store.TaskFilter{PropertyID: boardProperty})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintf(out, "%s Plan some work: %s\n", dim("Board is empty."), cyan("upkeep plan <template> <property>"))
		return nil
	}

	columns := make(map[store.TaskStatus][]store.Task)
	for _, t := range tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}

	const colWidth = 24
	var header, sep strings.Builder
	maxRows := 0
	for _, s := range boardColumns {
		n := len(columns[s])
		label := fmt.Sprintf(" %s (%d)", strings.ToUpper(string(s)), n)
		// Pad on the visible length; colour codes add bytes.
		header.WriteString(bold(statusColor(s)(label)))
		header.WriteString(strings.Repeat(" ", max(colWidth-len(label), 0)))
		sep.WriteString(strings.Repeat("─", colWidth))
		maxRows = max(maxRows, n)
	}
	fmt.Fprintln(out, header.String())
	fmt.Fprintln(out, dim(sep.String()))

	for i := 0; i < maxRows; i++ {
		var line strings.Builder
		for _, s := range boardColumns {
			col := columns[s]
			if i >= len(col) {
				line.WriteString(strings.Repeat(" ", colWidth))
				continue
			}
			t := col[i]
			id := shortID(t.ID)[:4]
			title := truncate(t.Title+unitLabel(t), colWidth-len(id)-3)
			card := fmt.Sprintf(" %s %s", id, title)
			line.WriteString(" " + priorityColor(t.Priority)(id) + " " + title)
			line.WriteString(strings.Repeat(" ", max(colWidth-len([]rune(card)), 0)))
		}
		fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
	}
	return nil
}
