package alarm

import (
	"errors"
	"testing"

	"gitlab.com/tinyland/lab/resmon/metrics"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Spec
	}{
		{"minimal", "cpu:90", Spec{Resource: metrics.ResourceCPU, Threshold: 90, Period: PeriodAlways}},
		{"with period", "memory:80:office", Spec{Resource: metrics.ResourceMemory, Threshold: 80, Period: PeriodOffice}},
		{"empty period and name", "disk:95::Root volume", Spec{Resource: metrics.ResourceDisk, Threshold: 95, Period: PeriodAlways, Name: "Root volume"}},
		{"name with colon", "cpu:70:night:build box: primary", Spec{Resource: metrics.ResourceCPU, Threshold: 70, Period: PeriodNight, Name: "build box: primary"}},
		{"spaces tolerated", " cpu : 90 ", Spec{Resource: metrics.ResourceCPU, Threshold: 90, Period: PeriodAlways}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.input)
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSpec(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSpecErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no threshold", "cpu"},
		{"empty", ""},
		{"unknown resource", "gpu:90"},
		{"non-numeric threshold", "cpu:hot"},
		{"unknown period", "cpu:90:weekends"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSpec(tt.input); err == nil {
				t.Errorf("ParseSpec(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestParseSpecThresholdRange(t *testing.T) {
	for _, input := range []string{"cpu:0", "cpu:101", "cpu:-5"} {
		if _, err := ParseSpec(input); !errors.Is(err, ErrThresholdRange) {
			t.Errorf("ParseSpec(%q) err = %v, want ErrThresholdRange", input, err)
		}
	}
}
