package cli

import (
	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/mcp"
	"github.com/360Method/360-method-app-sub002/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	Long:  "Starts an MCP server on stdin/stdout so an assistant can list, rank, plan and schedule tasks.",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("mcp server starting", "version", version.String())
	s := mcp.NewServer(mcp.Deps{
		Store:      a.store,
		Lifecycle:  a.lifecycle,
		Scheduler:  a.scheduler,
		Planner:    a.planner,
		Preserve:   a.preserve,
		Thresholds: a.thresholds,
	}, version.String())
	return mcp.Serve(s)
}
