package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/360Method/360-method-app-sub002/internal/schedule"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksLoadedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.setStatus("Failed to load tasks: " + msg.err.Error())
			return m, nil
		}
		m.tasks = msg.tasks
		m.backlog = schedule.Unscheduled(msg.tasks)
		m.clampCursors()
		if m.detailTask != nil {
			for i := range m.tasks {
				if m.tasks[i].ID == m.detailTask.ID {
					t := m.tasks[i]
					m.detailTask = &t
					break
				}
			}
		}
		return m, nil

	case taskChangedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error())
			return m, nil
		}
		m.setStatus(msg.verb + ": " + msg.task.Title)
		return m, m.loadTasks()

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if m.statusMsg != "" && m.now().Sub(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, m.loadTasks())
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.screen == screenCalendar {
			m.quitting = true
			return m, tea.Quit
		}
		return m.goBack()
	case "esc":
		return m.goBack()
	}

	if m.screen == screenDetail {
		return m, nil
	}
	return m.handleCalendarKey(msg)
}

func (m Model) goBack() (tea.Model, tea.Cmd) {
	if m.screen == screenDetail {
		m.screen = screenCalendar
		m.detailTask = nil
	}
	return m, nil
}

// --- Calendar keys ---

func (m Model) handleCalendarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	// Views.
	case "d":
		m.granularity = schedule.GranularityDay
	case "w":
		m.granularity = schedule.GranularityWeek
	case "m":
		m.granularity = schedule.GranularityMonth
	case "s":
		m.granularity = schedule.GranularitySeason

	// Focus.
	case "h", "left":
		m.focus = m.focus.AddDate(0, 0, -1)
		m.dayCursor = 0
	case "l", "right":
		m.focus = m.focus.AddDate(0, 0, 1)
		m.dayCursor = 0
	case "[":
		m.focus, _ = schedule.Window(m.focus, m.granularity, -1)
		m.dayCursor = 0
	case "]":
		m.focus, _ = schedule.Window(m.focus, m.granularity, 1)
		m.dayCursor = 0
	case "t":
		m.focus = schedule.Day(m.now())
		m.dayCursor = 0

	// Lists.
	case "tab":
		if m.pane == paneBacklog {
			m.pane = paneDay
		} else {
			m.pane = paneBacklog
		}
	case "j", "down":
		if m.pane == paneBacklog {
			m.cursor++
		} else {
			m.dayCursor++
		}
	case "k", "up":
		if m.pane == paneBacklog {
			m.cursor--
		} else {
			m.dayCursor--
		}

	// Actions.
	case "a":
		if t := m.selectedBacklog(); t != nil {
			m.popup = popupAssign
			m.dateInput.SetValue(m.focus.Format(schedule.DateLayout))
			m.dateInput.CursorEnd()
			m.dateInput.Focus()
			return m, nil
		}
		m.setStatus("No unscheduled task selected")
	case "enter":
		if m.pane == paneBacklog {
			if t := m.selectedBacklog(); t != nil {
				return m, m.assign(t.ID, m.focus)
			}
		} else if t := m.selectedDayTask(); t != nil {
			m.detailTask = t
			m.screen = screenDetail
		}
	case "x":
		if t := m.selectedDayTask(); t != nil && m.pane == paneDay {
			return m, m.unassign(t.ID)
		}
	case "<", ">":
		if t := m.selectedDayTask(); t != nil && m.pane == paneDay {
			days := 1
			if msg.String() == "<" {
				days = -1
			}
			return m, m.move(t.ID, m.focus.AddDate(0, 0, days))
		}
	case "r":
		if !m.refreshing {
			m.refreshing = true
			return m, m.loadTasks()
		}
	}

	m.clampCursors()
	return m, nil
}

// --- Popup keys ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.popup == popupAssign {
		return m.handleAssignPopup(msg)
	}
	return m, nil
}

func (m Model) handleAssignPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		m.dateInput.Blur()
		return m, nil
	case "enter":
		date, err := schedule.ParseDate(m.dateInput.Value(), m.now())
		if err != nil {
			m.setStatus(err.Error())
			return m, nil
		}
		t := m.selectedBacklog()
		m.popup = popupNone
		m.dateInput.Blur()
		if t == nil {
			return m, nil
		}
		m.focus = date
		return m, m.assign(t.ID, date)
	}

	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}
