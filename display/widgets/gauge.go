package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GaugeConfig controls the appearance of a horizontal utilization gauge.
type GaugeConfig struct {
	// Width is the total character width of the bar.
	Width int
	// Percent is the utilization from 0 to 100.
	Percent float64
	// Label is optional text shown to the left of the bar.
	Label string
	// ShowPercent controls whether "XX%" is shown to the right.
	ShowPercent bool
	// Threshold is the alarm threshold to mark on the bar. Zero means
	// no marker.
	Threshold int
	// FilledChar is the character for the filled portion (default: "█").
	FilledChar string
	// EmptyChar is the character for the empty portion (default: "░").
	EmptyChar string
}

// DefaultGaugeConfig returns a GaugeConfig with sensible defaults.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Width:       20,
		ShowPercent: true,
		FilledChar:  "█",
		EmptyChar:   "░",
	}
}

// gaugeColor picks the bar color relative to the alarm threshold. With
// no threshold the usual 70/90 bands apply.
func gaugeColor(percent float64, threshold int) lipgloss.Color {
	warning, danger := 70.0, 90.0
	if threshold > 0 {
		danger = float64(threshold)
		warning = danger - 10
	}
	switch {
	case percent >= danger:
		return lipgloss.Color("#EF4444")
	case percent >= warning:
		return lipgloss.Color("#EAB308")
	default:
		return lipgloss.Color("#22C55E")
	}
}

// RenderGauge renders a horizontal utilization bar with an optional
// alarm threshold marker.
// Format: [Label] [████████│░░░] [XX%]
func RenderGauge(cfg GaugeConfig) string {
	percent := math.Max(0, math.Min(100, cfg.Percent))

	filledChar := cfg.FilledChar
	if filledChar == "" {
		filledChar = "█"
	}
	emptyChar := cfg.EmptyChar
	if emptyChar == "" {
		emptyChar = "░"
	}

	width := cfg.Width
	if width <= 0 {
		width = 20
	}

	filledCount := int(math.Round(percent / 100.0 * float64(width)))

	cells := make([]string, width)
	for i := range cells {
		if i < filledCount {
			cells[i] = filledChar
		} else {
			cells[i] = emptyChar
		}
	}

	// Drop the threshold marker onto its cell so the breach point is
	// visible at a glance.
	if cfg.Threshold > 0 && cfg.Threshold <= 100 {
		pos := int(math.Round(float64(cfg.Threshold) / 100.0 * float64(width)))
		if pos >= width {
			pos = width - 1
		}
		cells[pos] = "│"
	}

	style := lipgloss.NewStyle().Foreground(gaugeColor(percent, cfg.Threshold))
	bar := style.Render(strings.Join(cells[:filledCount], "")) + strings.Join(cells[filledCount:], "")

	var sb strings.Builder
	if cfg.Label != "" {
		sb.WriteString(cfg.Label)
		sb.WriteString(" ")
	}
	sb.WriteString(bar)
	if cfg.ShowPercent {
		sb.WriteString(fmt.Sprintf(" %5.1f%%", percent))
	}
	return sb.String()
}

// RenderMiniGauge renders a compact bar with no label or percentage
// text.
func RenderMiniGauge(percent float64, width int) string {
	return RenderGauge(GaugeConfig{
		Width:      width,
		Percent:    percent,
		FilledChar: "█",
		EmptyChar:  "░",
	})
}
