package tui

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/resmon/internal/format"
)

// renderAlarmsContent renders the Alarms tab: the configured alarm
// list with the selection cursor, and the add form when open.
func (m Model) renderAlarmsContent(width, height int) string {
	var sections []string
	sections = append(sections, styleTitle.Render("Threshold Alarms"))
	sections = append(sections, "")

	if len(m.alarms) == 0 {
		sections = append(sections, "No alarms configured. Press 'a' to add one.")
	}

	for i, a := range m.alarms {
		line := fmt.Sprintf("%3d  %-6s  %3d%%  %-10s  %s",
			a.ID, a.Resource, a.Threshold, a.Period,
			format.TruncateWithEllipsis(a.Name, width-36))
		if i == m.cursor && !m.adding {
			line = styleSelected.Render("> " + line)
		} else {
			line = "  " + line
		}
		sections = append(sections, line)
	}

	if m.adding {
		sections = append(sections, "")
		sections = append(sections, styleTitle.Render("New alarm"))
		sections = append(sections, m.input.View())
	}
	if m.formErr != "" {
		sections = append(sections, "")
		sections = append(sections, styleError.Render(m.formErr))
	}

	return clampLines(strings.Join(sections, "\n"), height)
}
