package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/config"
	"github.com/360Method/360-method-app-sub002/internal/slogtools"
	"github.com/360Method/360-method-app-sub002/internal/version"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "upkeep",
	Short: "Maintenance orchestration for rental properties",
	Long: "upkeep tracks maintenance tasks through their lifecycle, fans templates out across units,\n" +
		"ranks competing work and packs it onto a calendar without overloading a day.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if level == "" {
			if cfg, err := config.Load(upkeepPath("config.yaml")); err == nil {
				level = cfg.Log.Level
			}
		}
		slogtools.SetupGlobalLogger(slogtools.ParseLogLevel(level), os.Stderr)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(propertyCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(workloadCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(preserveCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(uiCmd)
}
