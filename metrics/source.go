package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const bytesPerGB = 1 << 30

// Source supplies point-in-time utilization readings. A failed call is
// treated by the monitoring loop as a skipped tick, never as fatal.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// SystemSource reads live utilization through gopsutil. CPU percentage
// is computed against the previous call (interval 0), so the first
// sample after startup reports the usage since process start.
type SystemSource struct {
	// DiskPath is the mount point measured for disk utilization.
	DiskPath string

	// Probe functions, overridable in tests.
	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	diskUsage     func(path string) (*disk.UsageStat, error)
}

// NewSystemSource creates a SystemSource measuring disk usage at diskPath
// (defaults to "/" when empty).
func NewSystemSource(diskPath string) *SystemSource {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemSource{
		DiskPath:      diskPath,
		cpuPercent:    cpu.Percent,
		virtualMemory: mem.VirtualMemory,
		diskUsage:     disk.Usage,
	}
}

// Sample gathers CPU, memory, and disk utilization. Any probe failure
// fails the whole sample; partial readings are never returned.
func (s *SystemSource) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	cpuPcts, err := s.cpuPercent(0, false)
	if err != nil {
		return Sample{}, fmt.Errorf("cpu probe: %w", err)
	}
	if len(cpuPcts) == 0 {
		return Sample{}, fmt.Errorf("cpu probe: no readings")
	}

	vm, err := s.virtualMemory()
	if err != nil {
		return Sample{}, fmt.Errorf("memory probe: %w", err)
	}

	du, err := s.diskUsage(s.DiskPath)
	if err != nil {
		return Sample{}, fmt.Errorf("disk probe %s: %w", s.DiskPath, err)
	}

	return Sample{
		CPU:           cpuPcts[0],
		Memory:        vm.UsedPercent,
		Disk:          du.UsedPercent,
		MemoryTotalGB: float64(vm.Total) / bytesPerGB,
		DiskTotalGB:   float64(du.Total) / bytesPerGB,
		Timestamp:     time.Now(),
	}, nil
}
