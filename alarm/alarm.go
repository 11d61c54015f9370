// Package alarm owns the threshold alarm definitions: validation,
// durable storage of the full set, and the selection policy used by
// the monitoring loop.
package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/resmon/metrics"
)

// Validation errors, surfaced synchronously to the caller. No state is
// mutated when one of these is returned.
var (
	ErrThresholdRange = errors.New("threshold must be between 1 and 100")
	ErrNotFound       = errors.New("alarm not found")
	ErrInvalidPeriod  = errors.New("unknown active period")
)

// Period restricts when an alarm is eligible to fire.
type Period string

const (
	PeriodAlways    Period = "always"
	PeriodDay       Period = "day"       // 06:00-21:59
	PeriodNight     Period = "night"     // 22:00-05:59
	PeriodOffice    Period = "office"    // 09:00-17:59
	PeriodNonOffice Period = "non-office"
)

// ParsePeriod converts a wire/CLI string into a Period. The empty
// string means always.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodAlways, nil
	case PeriodAlways, PeriodDay, PeriodNight, PeriodOffice, PeriodNonOffice:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// ActiveAt reports whether the period covers the given time.
func (p Period) ActiveAt(t time.Time) bool {
	hour := t.Hour()
	switch p {
	case PeriodDay:
		return hour >= 6 && hour <= 21
	case PeriodNight:
		return hour < 6 || hour > 21
	case PeriodOffice:
		return hour >= 9 && hour <= 17
	case PeriodNonOffice:
		return hour < 9 || hour > 17
	default:
		return true
	}
}

// Alarm is one persisted threshold rule. IDs are assigned monotonically
// by the store and never reused within the persisted set.
type Alarm struct {
	ID        int              `json:"id"`
	Resource  metrics.Resource `json:"resource"`
	Threshold int              `json:"threshold"`
	Name      string           `json:"name"`
	Period    Period           `json:"active_period,omitempty"`
}

// Spec is a parsed colon-separated alarm definition as accepted by the
// CLI and the dashboard form.
type Spec struct {
	Resource  metrics.Resource
	Threshold int
	Period    Period
	Name      string
}

// ParseSpec parses "resource:threshold[:period[:name]]", e.g.
// "cpu:90", "memory:80:office" or "disk:95::Root volume". An empty
// period field falls back to always; the name may contain colons.
func ParseSpec(s string) (Spec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 2 {
		return Spec{}, fmt.Errorf("alarm spec %q: want resource:threshold[:period[:name]]", s)
	}

	resource, err := metrics.ParseResource(strings.TrimSpace(parts[0]))
	if err != nil {
		return Spec{}, err
	}

	threshold, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Spec{}, fmt.Errorf("alarm spec %q: threshold: %w", s, err)
	}
	if threshold < 1 || threshold > 100 {
		return Spec{}, ErrThresholdRange
	}

	spec := Spec{Resource: resource, Threshold: threshold, Period: PeriodAlways}
	if len(parts) > 2 {
		spec.Period, err = ParsePeriod(strings.TrimSpace(parts[2]))
		if err != nil {
			return Spec{}, err
		}
	}
	if len(parts) > 3 {
		spec.Name = strings.TrimSpace(parts[3])
	}
	return spec, nil
}

// DefaultName returns the label used when an alarm is created without
// one, e.g. "CPU alarm 90%".
func DefaultName(resource metrics.Resource, threshold int) string {
	label := map[metrics.Resource]string{
		metrics.ResourceCPU:    "CPU",
		metrics.ResourceMemory: "Memory",
		metrics.ResourceDisk:   "Disk",
	}[resource]
	return fmt.Sprintf("%s alarm %d%%", label, threshold)
}
