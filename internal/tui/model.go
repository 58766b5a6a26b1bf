// Package tui is the interactive calendar dashboard.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

// screen is which full-screen view is showing.
type screen int

const (
	screenCalendar screen = iota
	screenDetail
)

// popup is the modal on top of the current screen.
type popup int

const (
	popupNone popup = iota
	popupAssign
)

// pane is which list the j/k keys move in.
type pane int

const (
	paneBacklog pane = iota // identified tasks not on the calendar
	paneDay                 // tasks on the focused day
)

// Options configures the dashboard. Zero fields get defaults.
type Options struct {
	Thresholds schedule.Thresholds
	Now        func() time.Time
}

// Model is the top-level bubbletea model.
type Model struct {
	store      store.TaskStore
	scheduler  *schedule.Scheduler
	thresholds schedule.Thresholds
	now        func() time.Time

	width  int
	height int

	screen screen
	popup  popup
	pane   pane

	granularity schedule.Granularity
	focus       time.Time // focused day, UTC midnight

	tasks      []store.Task
	backlog    []store.Task
	cursor     int // in backlog
	dayCursor  int // in focused day
	detailTask *store.Task

	dateInput textinput.Model

	statusMsg  string
	statusTime time.Time
	refreshing bool
	quitting   bool
}

// New creates the dashboard over ts, scheduling through sched.
func New(ts store.TaskStore, sched *schedule.Scheduler, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Thresholds == (schedule.Thresholds{}) {
		opts.Thresholds = schedule.DefaultThresholds()
	}

	di := textinput.New()
	di.Placeholder = schedule.DateLayout
	di.CharLimit = 10
	di.Width = 20

	return Model{
		store:       ts,
		scheduler:   sched,
		thresholds:  opts.Thresholds,
		now:         opts.Now,
		granularity: schedule.GranularityWeek,
		focus:       schedule.Day(opts.Now()),
		dateInput:   di,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTasks(), tickCmd())
}

type tasksLoadedMsg struct {
	tasks []store.Task
	err   error
}

type taskChangedMsg struct {
	task *store.Task
	verb string
	err  error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.ListTasks(context.Background(), store.TaskFilter{})
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) assign(id string, date time.Time) tea.Cmd {
	return func() tea.Msg {
		t, err := m.scheduler.Assign(context.Background(), id, date, store.MethodUnset)
		return taskChangedMsg{task: t, verb: "Scheduled", err: err}
	}
}

func (m Model) unassign(id string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.scheduler.Unassign(context.Background(), id)
		return taskChangedMsg{task: t, verb: "Unscheduled", err: err}
	}
}

func (m Model) move(id string, date time.Time) tea.Cmd {
	return func() tea.Msg {
		t, err := m.scheduler.Move(context.Background(), id, date)
		return taskChangedMsg{task: t, verb: "Moved", err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusTime = m.now()
}

// window is the date range of the current view.
func (m Model) window() (start, end time.Time) {
	return schedule.Window(m.focus, m.granularity, 0)
}

// viewTasks are the dated tasks inside the current view.
func (m Model) viewTasks() []store.Task {
	start, end := m.window()
	return schedule.InWindow(m.tasks, start, end)
}

// dayTasks are the tasks on the focused day.
func (m Model) dayTasks() []store.Task {
	return schedule.InWindow(m.tasks, m.focus, m.focus.AddDate(0, 0, 1))
}

// loads indexes the workload of the current view by day.
func (m Model) loads() map[time.Time]schedule.DayLoad {
	out := make(map[time.Time]schedule.DayLoad)
	for _, l := range schedule.Workload(m.viewTasks()) {
		out[l.Date] = l
	}
	return out
}

func (m *Model) clampCursors() {
	m.cursor = clamp(m.cursor, len(m.backlog))
	m.dayCursor = clamp(m.dayCursor, len(m.dayTasks()))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m Model) selectedBacklog() *store.Task {
	if m.cursor < len(m.backlog) {
		t := m.backlog[m.cursor]
		return &t
	}
	return nil
}

func (m Model) selectedDayTask() *store.Task {
	day := m.dayTasks()
	if m.dayCursor < len(day) {
		t := day[m.dayCursor]
		return &t
	}
	return nil
}

// monthGrid lays the days of [start, end) out in Sunday-first weeks.
// Days outside the range are zero.
func monthGrid(start, end time.Time) [][]time.Time {
	first := start.AddDate(0, 0, -int(start.Weekday()))
	var weeks [][]time.Time
	for d := first; d.Before(end); {
		week := make([]time.Time, 7)
		for i := range week {
			if !d.Before(start) && d.Before(end) {
				week[i] = d
			}
			d = d.AddDate(0, 0, 1)
		}
		weeks = append(weeks, week)
	}
	return weeks
}
