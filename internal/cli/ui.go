package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open interactive calendar dashboard",
	Long:  "Opens a calendar dashboard with day, week, month and season views, the unscheduled backlog and overload highlighting.",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	model := tui.New(a.store, a.scheduler, tui.Options{Thresholds: a.thresholds})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
