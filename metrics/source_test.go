package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

func TestParseResource(t *testing.T) {
	cases := []struct {
		in      string
		want    Resource
		wantErr bool
	}{
		{"cpu", ResourceCPU, false},
		{"memory", ResourceMemory, false},
		{"disk", ResourceDisk, false},
		{"ram", "", true},
		{"", "", true},
		{"CPU", "", true},
	}
	for _, tc := range cases {
		got, err := ParseResource(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseResource(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseResource(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseResource(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSampleValue(t *testing.T) {
	s := Sample{CPU: 12.5, Memory: 60, Disk: 91}
	if got := s.Value(ResourceCPU); got != 12.5 {
		t.Errorf("Value(cpu) = %v, want 12.5", got)
	}
	if got := s.Value(ResourceMemory); got != 60 {
		t.Errorf("Value(memory) = %v, want 60", got)
	}
	if got := s.Value(ResourceDisk); got != 91 {
		t.Errorf("Value(disk) = %v, want 91", got)
	}
}

func newFakeSystemSource() *SystemSource {
	s := NewSystemSource("/")
	s.cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return []float64{42.0}, nil
	}
	s.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 55.5, Total: 16 * bytesPerGB}, nil
	}
	s.diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{UsedPercent: 73.0, Total: 500 * bytesPerGB}, nil
	}
	return s
}

func TestSystemSourceSample(t *testing.T) {
	s := newFakeSystemSource()

	got, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got.CPU != 42.0 {
		t.Errorf("CPU = %v, want 42.0", got.CPU)
	}
	if got.Memory != 55.5 {
		t.Errorf("Memory = %v, want 55.5", got.Memory)
	}
	if got.Disk != 73.0 {
		t.Errorf("Disk = %v, want 73.0", got.Disk)
	}
	if got.MemoryTotalGB != 16 {
		t.Errorf("MemoryTotalGB = %v, want 16", got.MemoryTotalGB)
	}
	if got.DiskTotalGB != 500 {
		t.Errorf("DiskTotalGB = %v, want 500", got.DiskTotalGB)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestSystemSourceProbeFailure(t *testing.T) {
	probeErr := errors.New("probe down")

	s := newFakeSystemSource()
	s.cpuPercent = func(time.Duration, bool) ([]float64, error) { return nil, probeErr }
	if _, err := s.Sample(context.Background()); !errors.Is(err, probeErr) {
		t.Errorf("cpu failure: err = %v, want wrapped %v", err, probeErr)
	}

	s = newFakeSystemSource()
	s.virtualMemory = func() (*mem.VirtualMemoryStat, error) { return nil, probeErr }
	if _, err := s.Sample(context.Background()); !errors.Is(err, probeErr) {
		t.Errorf("memory failure: err = %v, want wrapped %v", err, probeErr)
	}

	s = newFakeSystemSource()
	s.diskUsage = func(string) (*disk.UsageStat, error) { return nil, probeErr }
	if _, err := s.Sample(context.Background()); !errors.Is(err, probeErr) {
		t.Errorf("disk failure: err = %v, want wrapped %v", err, probeErr)
	}
}

func TestSystemSourceCancelledContext(t *testing.T) {
	s := newFakeSystemSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMockSourceScript(t *testing.T) {
	bang := errors.New("bang")
	m := NewMockSource().Add(10, 20, 30).AddErr(bang).Add(90, 20, 30)
	ctx := context.Background()

	s, err := m.Sample(ctx)
	if err != nil || s.CPU != 10 {
		t.Fatalf("step 1: sample %+v err %v", s, err)
	}
	if _, err := m.Sample(ctx); !errors.Is(err, bang) {
		t.Fatalf("step 2: err = %v, want bang", err)
	}
	// Last step repeats once the script is exhausted.
	for i := 0; i < 3; i++ {
		s, err := m.Sample(ctx)
		if err != nil || s.CPU != 90 {
			t.Fatalf("step 3+%d: sample %+v err %v", i, s, err)
		}
	}
}
