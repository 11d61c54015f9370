package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks contains 8 unicode block characters for sparkline
// rendering, ordered from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineConfig controls the appearance of a utilization sparkline.
type SparklineConfig struct {
	// Data points to render, oldest first.
	Data []float64
	// Width is the number of characters to render. If 0, uses len(Data).
	Width int
	// Min and Max fix the scale. If Min == Max the chart auto-scales,
	// which is rarely what a percentage series wants; pass 0 and 100.
	Min float64
	Max float64
	// Label is optional text shown before the sparkline.
	Label string
	// Color is the lipgloss color for the sparkline characters.
	Color lipgloss.Color
}

// RenderSparkline renders a unicode sparkline chart.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Data) == 0 {
		return ""
	}

	data := cfg.Data

	width := cfg.Width
	if width <= 0 {
		width = len(data)
	}
	if width < len(data) {
		data = data[len(data)-width:]
	}

	minVal, maxVal := cfg.Min, cfg.Max
	if minVal == maxVal {
		minVal, maxVal = data[0], data[0]
		for _, v := range data {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}

	var runes []rune
	for _, v := range data {
		if minVal == maxVal {
			runes = append(runes, sparkBlocks[len(sparkBlocks)/2])
			continue
		}
		normalized := (v - minVal) / (maxVal - minVal)
		normalized = math.Max(0, math.Min(1, normalized))
		idx := int(normalized * float64(len(sparkBlocks)-1))
		runes = append(runes, sparkBlocks[idx])
	}

	// Left-pad so a partially filled history still right-aligns with
	// the most recent sample.
	sparkStr := string(runes)
	if width > len(data) {
		sparkStr = strings.Repeat(" ", width-len(data)) + sparkStr
	}

	if cfg.Color != "" {
		sparkStr = lipgloss.NewStyle().Foreground(cfg.Color).Render(sparkStr)
	}
	if cfg.Label != "" {
		sparkStr = cfg.Label + " " + sparkStr
	}
	return sparkStr
}

// RenderUsageSparkline renders a percentage series on a fixed 0-100
// scale, colored by the most recent value.
func RenderUsageSparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	latest := data[len(data)-1]
	return RenderSparkline(SparklineConfig{
		Data:  data,
		Width: width,
		Min:   0,
		Max:   100,
		Color: gaugeColor(latest, 0),
	})
}
