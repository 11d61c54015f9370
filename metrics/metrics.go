// Package metrics defines the resource/sample model and the metric
// source abstraction used by the monitoring loop. The real source reads
// point-in-time utilization through gopsutil; tests and demo mode use
// the scripted mock instead.
package metrics

import (
	"fmt"
	"time"
)

// Resource identifies one monitored utilization dimension.
type Resource string

const (
	ResourceCPU    Resource = "cpu"
	ResourceMemory Resource = "memory"
	ResourceDisk   Resource = "disk"
)

// Resources lists all monitored resources in evaluation and display order.
var Resources = []Resource{ResourceCPU, ResourceMemory, ResourceDisk}

// ParseResource converts a wire/CLI string into a Resource.
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case ResourceCPU, ResourceMemory, ResourceDisk:
		return Resource(s), nil
	}
	return "", fmt.Errorf("unknown resource %q (want cpu, memory, or disk)", s)
}

// String returns the wire name of the resource.
func (r Resource) String() string { return string(r) }

// Sample is one point-in-time reading of all monitored resources.
// Percentages are in [0,100]; the source is trusted to supply the range.
type Sample struct {
	CPU    float64
	Memory float64
	Disk   float64

	// Totals in GB, for display only.
	MemoryTotalGB float64
	DiskTotalGB   float64

	Timestamp time.Time
}

// Value returns the utilization percentage for a single resource.
func (s Sample) Value(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return s.CPU
	case ResourceMemory:
		return s.Memory
	case ResourceDisk:
		return s.Disk
	}
	return 0
}
