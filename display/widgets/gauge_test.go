package widgets

import (
	"strings"
	"testing"
)

func TestRenderGauge_DefaultConfig(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 50

	result := RenderGauge(cfg)

	if !strings.Contains(result, "50.0%") {
		t.Errorf("expected percentage text '50.0%%' in output, got: %q", result)
	}
	filledCount := strings.Count(result, "█")
	emptyCount := strings.Count(result, "░")
	if filledCount != 10 {
		t.Errorf("expected 10 filled chars at 50%%, got %d", filledCount)
	}
	if emptyCount != 10 {
		t.Errorf("expected 10 empty chars at 50%%, got %d", emptyCount)
	}
}

func TestRenderGauge_ZeroPercent(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 0

	result := RenderGauge(cfg)

	if got := strings.Count(result, "█"); got != 0 {
		t.Errorf("expected 0 filled chars at 0%%, got %d", got)
	}
	if got := strings.Count(result, "░"); got != 20 {
		t.Errorf("expected 20 empty chars at 0%%, got %d", got)
	}
	if !strings.Contains(result, "0.0%") {
		t.Errorf("expected '0.0%%' in output, got: %q", result)
	}
}

func TestRenderGauge_Clamping(t *testing.T) {
	tests := []struct {
		name       string
		percent    float64
		wantFilled int
		wantText   string
	}{
		{"over hundred", 150, 20, "100.0%"},
		{"negative", -25, 0, "0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGaugeConfig()
			cfg.Percent = tt.percent
			result := RenderGauge(cfg)

			if got := strings.Count(result, "█"); got != tt.wantFilled {
				t.Errorf("expected %d filled chars, got %d", tt.wantFilled, got)
			}
			if !strings.Contains(result, tt.wantText) {
				t.Errorf("expected %q in output, got: %q", tt.wantText, result)
			}
		})
	}
}

func TestRenderGauge_WithLabel(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 50
	cfg.Label = "cpu"

	result := RenderGauge(cfg)

	if !strings.HasPrefix(result, "cpu ") {
		t.Errorf("expected output to start with 'cpu ', got: %q", result)
	}
}

func TestRenderGauge_NoPercent(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 50
	cfg.ShowPercent = false

	result := RenderGauge(cfg)

	if strings.Contains(result, "%") {
		t.Errorf("expected no percentage text when ShowPercent=false, got: %q", result)
	}
}

func TestRenderGauge_ThresholdMarker(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 20
	cfg.Threshold = 80
	cfg.ShowPercent = false

	result := RenderGauge(cfg)

	if !strings.Contains(result, "│") {
		t.Errorf("expected threshold marker in output, got: %q", result)
	}
	// The marker replaces one empty cell on a 20-wide bar.
	if got := strings.Count(result, "░"); got != 15 {
		t.Errorf("expected 15 empty chars with a marker at 80%%, got %d", got)
	}
}

func TestRenderGauge_NoMarkerWithoutThreshold(t *testing.T) {
	cfg := DefaultGaugeConfig()
	cfg.Percent = 20

	result := RenderGauge(cfg)

	if strings.Contains(result, "│") {
		t.Errorf("expected no marker without a threshold, got: %q", result)
	}
}

func TestGaugeColor(t *testing.T) {
	tests := []struct {
		name      string
		percent   float64
		threshold int
		want      string
	}{
		{"normal band", 30, 0, "#22C55E"},
		{"warning band", 75, 0, "#EAB308"},
		{"danger band", 95, 0, "#EF4444"},
		{"below alarm threshold", 60, 80, "#22C55E"},
		{"approaching alarm threshold", 72, 80, "#EAB308"},
		{"alarm threshold breached", 85, 80, "#EF4444"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeColor(tt.percent, tt.threshold); string(got) != tt.want {
				t.Errorf("gaugeColor(%v, %d) = %s, want %s", tt.percent, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestRenderMiniGauge(t *testing.T) {
	result := RenderMiniGauge(50, 10)

	if got := strings.Count(result, "█"); got != 5 {
		t.Errorf("expected 5 filled chars in mini gauge at 50%%, got %d", got)
	}
	if got := strings.Count(result, "░"); got != 5 {
		t.Errorf("expected 5 empty chars in mini gauge at 50%%, got %d", got)
	}
	if strings.Contains(result, "%") {
		t.Errorf("mini gauge should not contain '%%', got: %q", result)
	}
}

func TestDefaultGaugeConfig(t *testing.T) {
	cfg := DefaultGaugeConfig()

	if cfg.Width != 20 {
		t.Errorf("expected default Width=20, got %d", cfg.Width)
	}
	if !cfg.ShowPercent {
		t.Error("expected default ShowPercent=true")
	}
	if cfg.Threshold != 0 {
		t.Errorf("expected no default threshold, got %d", cfg.Threshold)
	}
	if cfg.FilledChar != "█" {
		t.Errorf("expected default FilledChar='█', got %q", cfg.FilledChar)
	}
	if cfg.EmptyChar != "░" {
		t.Errorf("expected default EmptyChar='░', got %q", cfg.EmptyChar)
	}
}
