package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/360Method/360-method-app-sub002/internal/schedule"
	"github.com/360Method/360-method-app-sub002/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrWhite     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrGreen).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Foreground(clrRed).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(clrRed).
			PaddingLeft(1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.screen {
	case screenCalendar:
		content = m.viewCalendar()
	case screenDetail:
		content = m.viewDetail()
	}

	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

// ════════════════════════════════════════════════
// CALENDAR VIEW
// ════════════════════════════════════════════════

func (m Model) viewCalendar() string {
	var b strings.Builder

	start, end := m.window()
	header := titleStyle.Render("upkeep calendar")
	header += dimStyle.Render(fmt.Sprintf(" · %s · %s to %s", m.granularity,
		start.Format("Jan 2"), end.AddDate(0, 0, -1).Format("Jan 2 2006")))
	b.WriteString(header + "  " + m.granularityTabs() + "\n\n")

	if banner := m.advisoryBanner(); banner != "" {
		b.WriteString(banner + "\n\n")
	}

	switch m.granularity {
	case schedule.GranularityDay:
		b.WriteString(m.viewDay())
	case schedule.GranularityWeek:
		b.WriteString(m.viewWeek())
	case schedule.GranularityMonth:
		b.WriteString(m.viewMonth(start, end))
	case schedule.GranularitySeason:
		b.WriteString(m.viewSeason(start, end))
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewBacklog(),
		"  ",
		m.viewFocusedDay(),
	))
	b.WriteString("\n\n")

	if m.statusMsg != "" {
		b.WriteString("  " + statusStyle.Render(m.statusMsg) + "\n")
	}
	b.WriteString(renderFooter([]struct{ key, desc string }{
		{"d/w/m/s", "view"},
		{"h/l", "day"},
		{"[/]", "page"},
		{"t", "today"},
		{"tab", "pane"},
		{"a", "assign"},
		{"enter", "here/open"},
		{"x", "unassign"},
		{"</>", "move"},
		{"q", "quit"},
	}))
	return b.String()
}

func (m Model) granularityTabs() string {
	var parts []string
	for _, g := range []schedule.Granularity{schedule.GranularityDay, schedule.GranularityWeek, schedule.GranularityMonth, schedule.GranularitySeason} {
		label := string(g)
		if g == m.granularity {
			parts = append(parts, footerKeyStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, subtleStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// advisoryBanner warns about days in view at or over the advisory limit.
func (m Model) advisoryBanner() string {
	heavy := m.thresholds.NeedsWarning(schedule.Workload(m.viewTasks()))
	if len(heavy) == 0 {
		return ""
	}
	days := make([]string, 0, len(heavy))
	for _, l := range heavy {
		days = append(days, fmt.Sprintf("%s %.1fh", l.Date.Format("Mon 01-02"), l.Hours))
	}
	return bannerStyle.Render(fmt.Sprintf("Heavy days (%.0fh+): %s", m.thresholds.Advisory, strings.Join(days, ", ")))
}

// cellBorder colours a day by the cell threshold; the focused day is
// highlighted instead.
func (m Model) cellBorder(day time.Time, hours float64) lipgloss.Style {
	s := cellStyle
	if m.thresholds.Cell(hours) == schedule.CellOverloaded {
		s = s.BorderForeground(clrRed)
	}
	if day.Equal(m.focus) {
		s = s.BorderForeground(clrHighlight).Bold(true)
	}
	return s
}

func hoursLabel(th schedule.Thresholds, hours float64) string {
	label := fmt.Sprintf("%.1fh", hours)
	switch {
	case hours == 0:
		return dimStyle.Render(label)
	case th.Cell(hours) == schedule.CellOverloaded:
		return lipgloss.NewStyle().Foreground(clrRed).Bold(true).Render(label)
	}
	return lipgloss.NewStyle().Foreground(clrGreen).Render(label)
}

func (m Model) viewDay() string {
	var b strings.Builder
	loads := m.loads()
	fmt.Fprintf(&b, "  %s  %s\n", titleStyle.Render(m.focus.Format("Monday, January 2")),
		hoursLabel(m.thresholds, loads[m.focus].Hours))

	buckets := schedule.BucketByTimeOfDay(m.dayTasks())
	for _, r := range schedule.TimeRanges {
		from, to := r.Hours()
		fmt.Fprintf(&b, "\n  %s %s\n", lipgloss.NewStyle().Bold(true).Render(strings.ToUpper(string(r))),
			dimStyle.Render(fmt.Sprintf("%02d:00-%02d:00", from, to)))
		if len(buckets[r]) == 0 {
			b.WriteString(dimStyle.Render("    nothing booked") + "\n")
		}
		for _, t := range buckets[r] {
			b.WriteString("    " + m.renderTaskLine(t, false, 60) + "\n")
		}
	}
	return b.String()
}

func (m Model) cellWidth(cols int) int {
	w := 18
	if m.width > 0 {
		w = m.width/cols - 4
	}
	return max(w, 10)
}

func (m Model) viewWeek() string {
	start, end := m.window()
	loads := m.loads()
	w := m.cellWidth(7)

	var cells []string
	for _, d := range schedule.Days(start, end) {
		l := loads[d]
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(d.Format("Mon 2")) + " " + hoursLabel(m.thresholds, l.Hours) + "\n")
		for i, t := range l.Tasks {
			if i == 5 {
				b.WriteString(dimStyle.Render(fmt.Sprintf("+%d more", len(l.Tasks)-5)) + "\n")
				break
			}
			b.WriteString(truncate(t.Title, w) + "\n")
		}
		cells = append(cells, m.cellBorder(d, l.Hours).Width(w).Height(7).Render(strings.TrimRight(b.String(), "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n"
}

func (m Model) viewMonth(start, end time.Time) string {
	loads := m.loads()
	w := m.cellWidth(7)

	var b strings.Builder
	var heads []string
	for _, name := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		heads = append(heads, lipgloss.NewStyle().Width(w+4).Align(lipgloss.Center).Render(dimStyle.Render(name)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, heads...) + "\n")

	for _, week := range monthGrid(start, end) {
		var cells []string
		for _, d := range week {
			if d.IsZero() {
				cells = append(cells, lipgloss.NewStyle().Width(w+4).Height(4).Render(""))
				continue
			}
			l := loads[d]
			body := fmt.Sprintf("%d\n%s", d.Day(), hoursLabel(m.thresholds, l.Hours))
			if n := len(l.Tasks); n > 0 {
				body += "\n" + dimStyle.Render(fmt.Sprintf("%d task(s)", n))
			}
			cells = append(cells, m.cellBorder(d, l.Hours).Width(w).Height(2).Render(body))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}
	return b.String()
}

// viewSeason summarizes three months as one row per week.
func (m Model) viewSeason(start, end time.Time) string {
	loads := m.loads()

	var b strings.Builder
	for _, week := range monthGrid(start, end) {
		var first time.Time
		var hours, peak float64
		var tasks int
		focused := false
		for _, d := range week {
			if d.IsZero() {
				continue
			}
			if first.IsZero() {
				first = d
			}
			l := loads[d]
			hours += l.Hours
			peak = max(peak, l.Hours)
			tasks += len(l.Tasks)
			focused = focused || d.Equal(m.focus)
		}

		marker := "  "
		if focused {
			marker = footerKeyStyle.Render("▸ ")
		}
		line := fmt.Sprintf("%sweek of %s  %-8s %s", marker, first.Format("Jan 02"),
			fmt.Sprintf("%.1fh", hours), dimStyle.Render(fmt.Sprintf("%d task(s)", tasks)))
		if m.thresholds.Cell(peak) == schedule.CellOverloaded {
			line += "  " + lipgloss.NewStyle().Foreground(clrRed).Render(fmt.Sprintf("peak %.1fh", peak))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) viewBacklog() string {
	var b strings.Builder
	title := "Unscheduled"
	if m.pane == paneBacklog {
		title = "▸ " + title
	}
	b.WriteString(titleStyle.Render(title) + dimStyle.Render(fmt.Sprintf(" (%d)", len(m.backlog))) + "\n")
	if len(m.backlog) == 0 {
		b.WriteString(dimStyle.Render("  nothing waiting") + "\n")
	}
	for i, t := range m.backlog {
		if i >= 12 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d more", len(m.backlog)-i)) + "\n")
			break
		}
		b.WriteString(m.renderTaskLine(t, m.pane == paneBacklog && i == m.cursor, 40) + "\n")
	}
	return lipgloss.NewStyle().Width(48).Render(b.String())
}

func (m Model) viewFocusedDay() string {
	var b strings.Builder
	title := m.focus.Format("Mon Jan 2")
	if m.pane == paneDay {
		title = "▸ " + title
	}
	day := m.dayTasks()
	var hours float64
	for _, t := range day {
		hours += t.Hours()
	}
	b.WriteString(titleStyle.Render(title) + " " + hoursLabel(m.thresholds, hours) + "\n")
	if len(day) == 0 {
		b.WriteString(dimStyle.Render("  nothing booked") + "\n")
	}
	for i, t := range day {
		b.WriteString(m.renderTaskLine(t, m.pane == paneDay && i == m.dayCursor, 40) + "\n")
	}
	return b.String()
}

func (m Model) renderTaskLine(t store.Task, selected bool, width int) string {
	cursor := "  "
	if selected {
		cursor = footerKeyStyle.Render("> ")
	}
	title := t.Title
	if t.Unit != "" {
		title += " [" + t.Unit + "]"
	}
	line := cursor + priorityStyle(t.Priority).Render("●") + " " + truncate(title, width)
	if h := t.Hours(); h > 0 {
		line += " " + dimStyle.Render(fmt.Sprintf("%.1fh", h))
	}
	if selected {
		return lipgloss.NewStyle().Bold(true).Render(line)
	}
	return line
}

func priorityStyle(p store.Priority) lipgloss.Style {
	switch p {
	case store.PriorityHigh:
		return lipgloss.NewStyle().Foreground(clrRed)
	case store.PriorityMedium:
		return lipgloss.NewStyle().Foreground(clrYellow)
	case store.PriorityLow:
		return lipgloss.NewStyle().Foreground(clrBlue)
	}
	return lipgloss.NewStyle().Foreground(clrSubtle)
}

// ════════════════════════════════════════════════
// DETAIL VIEW
// ════════════════════════════════════════════════

func (m Model) viewDetail() string {
	t := m.detailTask
	if t == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title) + "\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "  %s %s\n", subtleStyle.Render(fmt.Sprintf("%-10s", label)), value)
	}
	row("Status", string(t.Status))
	row("Priority", priorityStyle(t.Priority).Render(string(t.Priority)))
	row("Unit", t.Unit)
	row("System", t.SystemType)
	if t.ScheduledDate != nil {
		row("Date", t.ScheduledDate.Format(schedule.DateLayout)+" "+string(t.TimeRange))
	}
	row("Method", string(t.ExecutionMethod))
	if h := t.Hours(); h > 0 {
		row("Hours", fmt.Sprintf("%.1f", h))
	}
	if t.CascadeRisk != nil {
		row("Risk", fmt.Sprintf("%.1f/10 %s", *t.CascadeRisk, dimStyle.Render(t.RiskRationale)))
	}
	if t.CurrentFixCost != nil {
		row("Cost now", fmt.Sprintf("$%.0f", *t.CurrentFixCost))
	}
	if t.DelayedFixCost != nil {
		row("Delayed", fmt.Sprintf("$%.0f", *t.DelayedFixCost))
	}
	row("Window", t.SeasonalWindow)
	if t.Description != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(clrWhite).Width(72).Render(t.Description) + "\n")
	}

	b.WriteString("\n" + renderFooter([]struct{ key, desc string }{{"esc", "back"}, {"q", "back"}}))
	return b.String()
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string
	switch m.popup {
	case popupAssign:
		popup = m.viewAssignPopup()
	default:
		return bg
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewAssignPopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render("Schedule Task")
	b.WriteString(title + "\n\n")

	if t := m.selectedBacklog(); t != nil {
		b.WriteString(m.renderTaskLine(*t, false, 48) + "\n\n")
	}
	b.WriteString("Date (YYYY-MM-DD, today, tomorrow):\n")
	b.WriteString(m.dateInput.View() + "\n\n")
	b.WriteString(footerDescStyle.Render("enter schedule • esc cancel"))

	return popupStyle.Render(b.String())
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
