package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for an upkeep workspace.
type Config struct {
	Version      int          `yaml:"version"`
	Database     Database     `yaml:"database"`
	Log          Log          `yaml:"log"`
	Workload     Workload     `yaml:"workload"`
	Workers      int          `yaml:"workers,omitempty"` // Concurrent store requests for bulk work (0 = default 4)
	Advisory     Advisory     `yaml:"advisory"`
	Calendar     Calendar     `yaml:"calendar,omitempty"`
	Preservation Preservation `yaml:"preservation,omitempty"`
}

// Database selects the task store backend.
type Database struct {
	Driver string `yaml:"driver"`            // "sqlite" or "postgres"
	Path   string `yaml:"path,omitempty"`    // SQLite file, relative to the workspace
	DSNEnv string `yaml:"dsn_env,omitempty"` // Env var holding the postgres DSN
}

// Log controls the slog level.
type Log struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// Workload holds the two independent day thresholds.
type Workload struct {
	CellOverloadHours float64 `yaml:"cell_overload_hours"` // Per-cell "overloaded" hint
	AdvisoryHours     float64 `yaml:"advisory_hours"`      // List-level warning banner
}

// Advisory describes the optional risk and cost estimator and how to
// reach it.
type Advisory struct {
	Mode       string   `yaml:"mode,omitempty"`        // "", "cli" or "api"
	Cmd        string   `yaml:"cmd,omitempty"`         // CLI command to spawn
	Args       []string `yaml:"args,omitempty"`        // CLI arguments
	Provider   string   `yaml:"provider,omitempty"`    // API provider: openai, anthropic
	Model      string   `yaml:"model,omitempty"`       // Model name for API mode
	APIKeyEnv  string   `yaml:"api_key_env,omitempty"` // Env var name containing API key
	TimeoutSec int      `yaml:"timeout_sec,omitempty"` // Timeout in seconds (0 = default 60)
	AutoEnrich bool     `yaml:"auto_enrich,omitempty"` // Assess every manually created task
}

// Enabled reports whether an advisory backend is configured.
func (a Advisory) Enabled() bool { return a.Mode != "" }

// EffectiveArgs returns the final args for a CLI advisor, injecting the
// non-interactive flag for known tools.
func (a Advisory) EffectiveArgs() []string {
	if a.Mode != "cli" {
		return a.Args
	}

	args := make([]string, len(a.Args))
	copy(args, a.Args)

	switch a.Cmd {
	case "claude":
		if !containsAny(args, "-p", "--print") {
			args = appendFront(args, "--print")
		}
	case "codex":
		if !containsAny(args, "exec") {
			args = appendFront(args, "exec")
		}
	}
	return args
}

// DefaultTimeout returns the effective timeout for the advisor.
func (a Advisory) DefaultTimeout() int {
	if a.TimeoutSec > 0 {
		return a.TimeoutSec
	}
	return 60
}

// Calendar configures external calendar sync.
type Calendar struct {
	Google GoogleCalendar `yaml:"google,omitempty"`
}

// GoogleCalendar locates the OAuth files and the target calendar.
type GoogleCalendar struct {
	Calendar    string `yaml:"calendar,omitempty"`    // Calendar summary; "" means primary
	Credentials string `yaml:"credentials,omitempty"` // OAuth client JSON
	Token       string `yaml:"token,omitempty"`       // Cached token file
}

// Preservation points at optional table overrides.
type Preservation struct {
	TablesFile string `yaml:"tables_file,omitempty"`
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config: SQLite, no advisor, the
// standard workload thresholds.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Database: Database{
			Driver: "sqlite",
			Path:   "upkeep.db",
			DSNEnv: "UPKEEP_DATABASE_URL",
		},
		Log: Log{Level: "info"},
		Workload: Workload{
			CellOverloadHours: 8,
			AdvisoryHours:     6,
		},
		Workers: 4,
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: driver must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSNEnv == "" {
		return fmt.Errorf("database: dsn_env is required for postgres")
	}
	if c.Workload.CellOverloadHours <= 0 || c.Workload.AdvisoryHours <= 0 {
		return fmt.Errorf("workload: thresholds must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers: must not be negative, got %d", c.Workers)
	}

	a := c.Advisory
	switch a.Mode {
	case "":
	case "cli":
		if a.Cmd == "" {
			return fmt.Errorf("advisory: cmd is required for cli mode")
		}
	case "api":
		if a.Provider == "" {
			return fmt.Errorf("advisory: provider is required for api mode")
		}
	default:
		return fmt.Errorf("advisory: mode must be 'cli' or 'api', got %q", a.Mode)
	}
	return nil
}

// containsAny checks if any of the targets exist in the slice.
func containsAny(slice []string, targets ...string) bool {
	for _, s := range slice {
		for _, t := range targets {
			if s == t {
				return true
			}
		}
	}
	return false
}

// appendFront inserts a value at the beginning of a slice.
func appendFront(slice []string, val string) []string {
	return append([]string{val}, slice...)
}
