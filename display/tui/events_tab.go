package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/internal/format"
)

// categoryStyles colors each event category in the feed.
var categoryStyles = map[eventlog.Category]lipgloss.Style{
	eventlog.CategoryStatus:       lipgloss.NewStyle().Foreground(colorSuccess),
	eventlog.CategoryAlarmTrigger: lipgloss.NewStyle().Foreground(colorDanger),
	eventlog.CategoryUserAction:   lipgloss.NewStyle().Foreground(colorSecondary),
	eventlog.CategoryError:        lipgloss.NewStyle().Foreground(colorWarning),
}

// renderEventsContent renders the Events tab: the recent event feed,
// newest at the bottom, scrolled back by the cursor keys.
func (m Model) renderEventsContent(width, height int) string {
	var sections []string
	sections = append(sections, styleTitle.Render("Event Feed"))
	sections = append(sections, "")

	if len(m.entries) == 0 {
		sections = append(sections, "No events recorded yet.")
		return strings.Join(sections, "\n")
	}

	visible := height - 2
	if visible < 1 {
		visible = 1
	}

	// scroll counts lines back from the newest entry.
	end := len(m.entries) - m.scroll
	if end < 1 {
		end = 1
	}
	start := end - visible
	if start < 0 {
		start = 0
	}

	for _, e := range m.entries[start:end] {
		line := e.Line()
		if width > 8 {
			line = format.TruncateWithEllipsis(line, width-4)
		}
		if style, ok := categoryStyles[e.Category]; ok {
			line = style.Render(line)
		}
		sections = append(sections, line)
	}

	return clampLines(strings.Join(sections, "\n"), height)
}
