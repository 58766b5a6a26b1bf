package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- EffectiveArgs tests ---

func TestEffectiveArgs_APIMode_ReturnsArgsUnchanged(t *testing.T) {
	a := Advisory{
		Mode: "api",
		Args: []string{"--some-flag"},
	}
	got := a.EffectiveArgs()
	if len(got) != 1 || got[0] != "--some-flag" {
		t.Fatalf("expected original args for api mode, got %v", got)
	}
}

func TestEffectiveArgs_Claude_AddsNonInteractive(t *testing.T) {
	a := Advisory{
		Mode: "cli",
		Cmd:  "claude",
		Args: []string{"--model", "sonnet"},
	}
	got := a.EffectiveArgs()
	if len(got) != 3 || got[0] != "--print" {
		t.Fatalf("expected --print prepended, got %v", got)
	}
}

func TestEffectiveArgs_Claude_ShortPrintFlag(t *testing.T) {
	a := Advisory{
		Mode: "cli",
		Cmd:  "claude",
		Args: []string{"-p"},
	}
	got := a.EffectiveArgs()
	if containsAny(got, "--print") {
		t.Fatalf("should not add --print when -p is present, got %v", got)
	}
}

func TestEffectiveArgs_Codex_Exec(t *testing.T) {
	a := Advisory{Mode: "cli", Cmd: "codex"}
	got := a.EffectiveArgs()
	if len(got) != 1 || got[0] != "exec" {
		t.Fatalf("expected [exec], got %v", got)
	}
}

func TestEffectiveArgs_UnknownCLI_ReturnsArgsUnchanged(t *testing.T) {
	a := Advisory{
		Mode: "cli",
		Cmd:  "my-estimator",
		Args: []string{"--verbose"},
	}
	got := a.EffectiveArgs()
	if len(got) != 1 || got[0] != "--verbose" {
		t.Fatalf("expected unchanged args for unknown CLI, got %v", got)
	}
}

func TestEffectiveArgs_DoesNotMutateOriginal(t *testing.T) {
	original := []string{"--model", "sonnet"}
	a := Advisory{
		Mode: "cli",
		Cmd:  "claude",
		Args: original,
	}
	_ = a.EffectiveArgs()
	if len(original) != 2 || original[0] != "--model" || original[1] != "sonnet" {
		t.Fatalf("EffectiveArgs mutated original args: %v", original)
	}
}

// --- DefaultTimeout tests ---

func TestDefaultTimeout(t *testing.T) {
	if got := (Advisory{TimeoutSec: 120}).DefaultTimeout(); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := (Advisory{}).DefaultTimeout(); got != 60 {
		t.Fatalf("expected default 60, got %d", got)
	}
}

// --- containsAny / appendFront tests ---

func TestContainsAny(t *testing.T) {
	if !containsAny([]string{"a", "b", "c"}, "b") {
		t.Fatal("expected true")
	}
	if containsAny([]string{"a", "b", "c"}, "d", "e") {
		t.Fatal("expected false")
	}
	if containsAny([]string{}, "a") {
		t.Fatal("expected false for empty slice")
	}
}

func TestAppendFront(t *testing.T) {
	got := appendFront([]string{"b", "c"}, "a")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected [a b c], got %v", got)
	}
}

// --- Load / Save / Validate tests ---

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Valid(t *testing.T) {
	p := writeConfig(t, `version: 1
database:
  driver: postgres
  dsn_env: PG_DSN
log:
  level: debug
workload:
  cell_overload_hours: 10
  advisory_hours: 7
workers: 8
advisory:
  mode: api
  provider: anthropic
  model: claude-sonnet-4-5
  api_key_env: ANTHROPIC_API_KEY
  auto_enrich: true
calendar:
  google:
    calendar: Maintenance
    credentials: credentials.json
    token: token.json
preservation:
  tables_file: tables.yaml
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSNEnv != "PG_DSN" {
		t.Fatalf("unexpected database section %+v", cfg.Database)
	}
	if cfg.Workload.CellOverloadHours != 10 || cfg.Workload.AdvisoryHours != 7 {
		t.Fatalf("unexpected workload %+v", cfg.Workload)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Workers)
	}
	if !cfg.Advisory.Enabled() || !cfg.Advisory.AutoEnrich {
		t.Fatal("expected advisory enabled with auto_enrich")
	}
	if cfg.Calendar.Google.Calendar != "Maintenance" {
		t.Fatalf("expected calendar Maintenance, got %q", cfg.Calendar.Google.Calendar)
	}
	if cfg.Preservation.TablesFile != "tables.yaml" {
		t.Fatalf("expected tables file, got %q", cfg.Preservation.TablesFile)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	p := writeConfig(t, "version: 1\nworkers: 2\n")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "upkeep.db" {
		t.Fatalf("expected sqlite defaults, got %+v", cfg.Database)
	}
	if cfg.Workload.CellOverloadHours != 8 || cfg.Workload.AdvisoryHours != 6 {
		t.Fatalf("expected default thresholds, got %+v", cfg.Workload)
	}
	if cfg.Advisory.Enabled() {
		t.Fatal("advisory should be off by default")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"postgres without dsn env", "database:\n  driver: postgres\n  dsn_env: \"\"\n"},
		{"zero threshold", "workload:\n  cell_overload_hours: 0\n  advisory_hours: 6\n"},
		{"negative workers", "workers: -1\n"},
		{"cli without cmd", "advisory:\n  mode: cli\n"},
		{"api without provider", "advisory:\n  mode: api\n"},
		{"unknown mode", "advisory:\n  mode: grpc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.data)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSave_And_Reload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Advisory = Advisory{
		Mode:       "cli",
		Cmd:        "claude",
		Args:       []string{"--model", "haiku"},
		TimeoutSec: 90,
	}

	if err := Save(p, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(p)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Advisory.Cmd != "claude" || loaded.Advisory.TimeoutSec != 90 {
		t.Fatalf("advisory not round-tripped: %+v", loaded.Advisory)
	}
	if len(loaded.Advisory.Args) != 2 {
		t.Fatalf("expected 2 args, got %v", loaded.Advisory.Args)
	}
	if loaded.Database.Driver != "sqlite" {
		t.Fatalf("expected sqlite, got %q", loaded.Database.Driver)
	}
}
