package tui

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/resmon/display/widgets"
	"gitlab.com/tinyland/lab/resmon/internal/format"
	"gitlab.com/tinyland/lab/resmon/metrics"
)

// renderSystemContent renders the System tab: one gauge and sparkline
// per resource, plus capacity totals.
func (m Model) renderSystemContent(width, height int) string {
	if !m.haveSample {
		return "Waiting for the first sample..."
	}

	gaugeWidth := width / 3
	if gaugeWidth < 10 {
		gaugeWidth = 10
	}
	if gaugeWidth > 40 {
		gaugeWidth = 40
	}

	var sections []string
	sections = append(sections, styleTitle.Render("Resource Utilization"))
	sections = append(sections, "")

	for _, r := range metrics.Resources {
		value := m.sample.Value(r)
		sections = append(sections, widgets.RenderGauge(widgets.GaugeConfig{
			Width:       gaugeWidth,
			Percent:     value,
			Label:       fmt.Sprintf("%-6s", r),
			ShowPercent: true,
			Threshold:   m.lowestThreshold(r),
		}))

		if h := m.history[r]; len(h) > 1 {
			spark := widgets.RenderUsageSparkline(h, gaugeWidth)
			sections = append(sections, "       "+spark)
		}
		sections = append(sections, "")
	}

	sections = append(sections,
		fmt.Sprintf("Memory total: %s    Disk total: %s",
			format.Gigabytes(m.sample.MemoryTotalGB),
			format.Gigabytes(m.sample.DiskTotalGB)))
	sections = append(sections,
		fmt.Sprintf("Sampled: %s", format.FormatTimeSince(m.sample.Timestamp)))

	return clampLines(strings.Join(sections, "\n"), height)
}

// lowestThreshold returns the lowest configured alarm threshold for a
// resource, the first point where a breach starts. Zero means no alarm.
func (m Model) lowestThreshold(r metrics.Resource) int {
	lowest := 0
	for _, a := range m.alarms {
		if a.Resource != r {
			continue
		}
		if lowest == 0 || a.Threshold < lowest {
			lowest = a.Threshold
		}
	}
	return lowest
}

// clampLines truncates rendered content to at most height lines.
func clampLines(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= height {
		return s
	}
	return strings.Join(lines[:height], "\n")
}
