package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/360Method/360-method-app-sub002/internal/advisory"
	"github.com/360Method/360-method-app-sub002/internal/config"
	"github.com/360Method/360-method-app-sub002/internal/fanout"
	"github.com/360Method/360-method-app-sub002/internal/lifecycle"
	"github.com/360Method/360-method-app-sub002/internal/preserve"
	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/store"
	"github.com/360Method/360-method-app-sub002/internal/store/pgstore"
	"github.com/360Method/360-method-app-sub002/internal/worker"
)

const upkeepDirName = ".upkeep"

// upkeepPath returns the path to a file inside .upkeep/.
func upkeepPath(parts ...string) string {
	elems := append([]string{upkeepDirName}, parts...)
	return filepath.Join(elems...)
}

// loadConfig reads .upkeep/config.yaml, returning an error if upkeep is
// not initialized.
func loadConfig() (*config.Config, error) {
	path := upkeepPath("config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("upkeep not initialized. Run: upkeep init")
	}
	return config.Load(path)
}

// openBackend opens the store selected by the config.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Database.Driver {
	case "postgres":
		dsn := os.Getenv(cfg.Database.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("database: %s is not set", cfg.Database.DSNEnv)
		}
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		path := cfg.Database.Path
		if !filepath.IsAbs(path) {
			path = upkeepPath(path)
		}
		s, err := store.New(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// app is one command's view of the engine, wired from config.
type app struct {
	cfg        *config.Config
	store      store.Backend
	pool       *worker.Pool
	lifecycle  *lifecycle.Engine
	scheduler  *schedule.Scheduler
	planner    *fanout.Planner
	preserve   *preserve.Engine
	thresholds schedule.Thresholds
	log        *slog.Logger
}

// mustApp loads the config and opens the store. Callers defer Close.
func mustApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	log := slog.Default()
	adv, err := advisory.New(cfg.Advisory)
	if err != nil {
		log.Warn("advisory disabled", "err", err)
		adv = nil
	} else if cfg.Advisory.Mode == "cli" && !advisory.CLIAvailable(cfg.Advisory.Cmd) {
		log.Warn("advisory disabled: command not in PATH", "cmd", cfg.Advisory.Cmd)
		adv = nil
	}

	tables := preserve.DefaultTables()
	if f := cfg.Preservation.TablesFile; f != "" {
		if !filepath.IsAbs(f) {
			f = upkeepPath(f)
		}
		if tables, err = preserve.LoadTables(f); err != nil {
			s.Close()
			return nil, err
		}
	}

	pool := worker.NewPool(cfg.Workers)
	engine := lifecycle.New(s, lifecycle.Options{
		Advisor:    adv,
		AutoEnrich: cfg.Advisory.AutoEnrich,
		Logger:     log,
	})
	return &app{
		cfg:       cfg,
		store:     s,
		pool:      pool,
		lifecycle: engine,
		scheduler: schedule.NewScheduler(engine, pool, log),
		planner: fanout.NewPlanner(s, fanout.Options{
			Templates:  s,
			Properties: s,
			Pool:       pool,
			Logger:     log,
		}),
		preserve: preserve.New(tables, nil),
		thresholds: schedule.Thresholds{
			CellOverload: cfg.Workload.CellOverloadHours,
			Advisory:     cfg.Workload.AdvisoryHours,
		},
		log: log,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "err", err)
	}
}

// resolveTaskID accepts a full task ID or a unique prefix of one.
func resolveTaskID(ctx context.Context, ts store.TaskStore, arg string) (string, error) {
	if _, err := ts.GetTask(ctx, arg); err == nil {
		return arg, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	tasks, err := ts.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("task %s: %w", arg, store.ErrNotFound)
	}
	return match, nil
}

// resolveTaskIDs resolves every argument, stopping at the first failure.
func resolveTaskIDs(ctx context.Context, ts store.TaskStore, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, a := range args {
		id, err := resolveTaskID(ctx, ts, a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// shortID is the display form of a task ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(schedule.DateLayout)
}

func formatFloat(p *float64, format string) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf(format, *p)
}

func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	if len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	blue    = color.New(color.FgBlue).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	white   = color.New(color.FgWhite).SprintFunc()
	warn    = color.New(color.FgRed, color.Bold).SprintFunc()
)

func statusColor(s store.TaskStatus) func(a ...any) string {
	switch s {
	case store.StatusScheduled:
		return blue
	case store.StatusInProgress:
		return magenta
	case store.StatusDeferred:
		return dim
	case store.StatusCompleted:
		return green
	}
	return white
}

func priorityColor(p store.Priority) func(a ...any) string {
	switch p {
	case store.PriorityHigh:
		return red
	case store.PriorityMedium:
		return yellow
	case store.PriorityLow:
		return green
	}
	return dim
}

func unitLabel(t store.Task) string {
	if t.Unit == "" {
		return ""
	}
	return fmt.Sprintf(" [%s]", t.Unit)
}

var title = cases.Title(language.English)

func titleCase(s string) string {
	return title.String(s)
}
