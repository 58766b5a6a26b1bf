package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/360Method/360-method-app-sub002/internal/config"
)

var initDriver string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize upkeep in the current directory",
	Long:  "Creates a .upkeep/ directory with default config and database.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDriver, "driver", "sqlite", "Store backend: sqlite or postgres")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(upkeepDirName); err == nil {
		return fmt.Errorf("upkeep already initialized in this directory (%s/ exists)", upkeepDirName)
	}
	if err := os.MkdirAll(upkeepDirName, 0755); err != nil {
		return fmt.Errorf("create %s: %w", upkeepDirName, err)
	}

	cfg := config.DefaultConfig()
	cfg.Database.Driver = initDriver
	cfgPath := filepath.Join(upkeepDirName, "config.yaml")
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening the store runs the schema migration.
	s, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	s.Close()

	fmt.Fprintf(out, "Initialized upkeep in %s/\n", upkeepDirName)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Run: upkeep property add \"123 Main St\" --doors 4")
	fmt.Fprintln(out, "  2. Run: upkeep template add \"Clean gutters\" --seasons Fall --hours 2")
	fmt.Fprintln(out, "  3. Run: upkeep plan <template> <property> --intent per_unit_all")
	fmt.Fprintln(out, "  4. Run: upkeep ui")
	return nil
}
