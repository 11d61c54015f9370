package monitor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/resmon/alarm"
	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/metrics"
)

type fixture struct {
	monitor *Monitor
	source  *metrics.MockSource
	store   *alarm.Store
	events  *eventlog.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	events := eventlog.New(filepath.Join(dir, "logs"), logger)
	store := alarm.NewStore(filepath.Join(dir, "alarms.json"), events, logger)
	source := metrics.NewMockSource()
	m := New(source, store, events, nil, 10*time.Millisecond, logger)
	return &fixture{monitor: m, source: source, store: store, events: events}
}

func triggerEntries(events *eventlog.Log) []eventlog.Entry {
	var out []eventlog.Entry
	for _, e := range events.Recent(-1) {
		if e.Category == eventlog.CategoryAlarmTrigger {
			out = append(out, e)
		}
	}
	return out
}

func TestSnapshotBeforeAndAfterFirstTick(t *testing.T) {
	f := newFixture(t)

	if _, ok := f.monitor.Current(); ok {
		t.Fatal("Current reported a sample before the first tick")
	}

	f.source.Add(10, 20, 30)
	f.monitor.tick(context.Background())

	s, ok := f.monitor.Current()
	if !ok {
		t.Fatal("Current reported no sample after a tick")
	}
	if s.CPU != 10 || s.Memory != 20 || s.Disk != 30 {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestSnapshotOverwriteLatest(t *testing.T) {
	f := newFixture(t)
	f.source.Add(10, 20, 30).Add(40, 50, 60)

	ctx := context.Background()
	f.monitor.tick(ctx)
	f.monitor.tick(ctx)

	s, _ := f.monitor.Current()
	if s.CPU != 40 {
		t.Errorf("snapshot CPU = %v, want latest sample 40", s.CPU)
	}

	h := f.monitor.History(metrics.ResourceCPU)
	if len(h) != 2 || h[0] != 10 || h[1] != 40 {
		t.Errorf("cpu history = %v, want [10 40]", h)
	}
}

func TestEdgeTriggeredFiring(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Create(metrics.ResourceCPU, 80, "", alarm.PeriodAlways); err != nil {
		t.Fatal(err)
	}

	// Sustained breach fires once, resets on the drop, refires on the
	// next breach.
	for _, cpu := range []float64{85, 87, 90, 60, 85} {
		f.source.Add(cpu, 0, 0)
	}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.monitor.tick(ctx)
	}

	got := triggerEntries(f.events)
	if len(got) != 2 {
		t.Fatalf("got %d ALARM_TRIGGER entries, want 2: %+v", len(got), got)
	}
}

func TestEscalationToHigherThresholdFires(t *testing.T) {
	f := newFixture(t)
	f.store.Create(metrics.ResourceCPU, 50, "", alarm.PeriodAlways)
	f.store.Create(metrics.ResourceCPU, 80, "", alarm.PeriodAlways)

	// 60 fires the 50 alarm; 85 escalates to the 80 alarm even though
	// the 50 alarm is still breached; dropping back to 60 re-selects
	// the 50 alarm, which differs from the last-fired and fires again.
	for _, cpu := range []float64{60, 85, 85, 60} {
		f.source.Add(cpu, 0, 0)
	}
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.monitor.tick(ctx)
	}

	got := triggerEntries(f.events)
	if len(got) != 3 {
		t.Fatalf("got %d ALARM_TRIGGER entries, want 3: %+v", len(got), got)
	}
}

func TestOnlyHighestBreachedAlarmFiresPerTick(t *testing.T) {
	f := newFixture(t)
	f.store.Create(metrics.ResourceCPU, 50, "", alarm.PeriodAlways)
	high, _ := f.store.Create(metrics.ResourceCPU, 80, "", alarm.PeriodAlways)

	f.source.Add(95, 0, 0)
	f.monitor.tick(context.Background())

	got := triggerEntries(f.events)
	if len(got) != 1 {
		t.Fatalf("got %d triggers, want exactly 1", len(got))
	}

	select {
	case tr := <-f.monitor.Notifications():
		if tr.Alarm.ID != high.ID {
			t.Errorf("fired alarm id %d, want highest threshold id %d", tr.Alarm.ID, high.ID)
		}
	default:
		t.Error("no trigger surfaced on the notifications channel")
	}
}

func TestSourceFailureSkipsTick(t *testing.T) {
	f := newFixture(t)
	f.store.Create(metrics.ResourceCPU, 80, "", alarm.PeriodAlways)
	f.source.Add(90, 0, 0).AddErr(errors.New("probe down")).Add(90, 0, 0)

	ctx := context.Background()
	f.monitor.tick(ctx) // fires
	f.monitor.tick(ctx) // skipped, breach state retained
	f.monitor.tick(ctx) // still the same alarm, no refire

	if got := triggerEntries(f.events); len(got) != 1 {
		t.Errorf("got %d triggers, want 1 (skip must not reset edge state)", len(got))
	}

	errCount := 0
	for _, e := range f.events.Recent(-1) {
		if e.Category == eventlog.CategoryError {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("got %d ERROR entries, want 1 for the failed sample", errCount)
	}

	// The snapshot still holds the last good sample.
	if s, ok := f.monitor.Current(); !ok || s.CPU != 90 {
		t.Errorf("snapshot after failure = %+v, ok=%v", s, ok)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.source.Add(10, 10, 10)

	ctx := context.Background()
	f.monitor.Start(ctx)
	defer f.monitor.Stop()
	f.monitor.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := f.monitor.Current(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("monitor never produced a sample")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ignored := 0
	for _, e := range f.events.Recent(-1) {
		if e.Category == eventlog.CategoryStatus && e.Message == "monitoring already running, start ignored" {
			ignored++
		}
	}
	if ignored != 1 {
		t.Errorf("second Start logged %d no-op entries, want 1", ignored)
	}
}

func TestStopHaltsLoop(t *testing.T) {
	f := newFixture(t)
	f.source.Add(10, 10, 10)

	f.monitor.Start(context.Background())
	if !f.monitor.Running() {
		t.Fatal("monitor not running after Start")
	}

	done := make(chan struct{})
	go func() {
		f.monitor.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return within a second")
	}
	if f.monitor.Running() {
		t.Error("monitor still running after Stop")
	}

	// Stopping again is a no-op.
	f.monitor.Stop()
}

func TestContextCancelStopsLoopAndAllowsRestart(t *testing.T) {
	f := newFixture(t)
	f.source.Add(10, 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	f.monitor.Start(ctx)
	if !f.monitor.Running() {
		t.Fatal("monitor not running after Start")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for f.monitor.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Running still true after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A fresh Start must not be refused as already running.
	f.monitor.Start(context.Background())
	defer f.monitor.Stop()
	if !f.monitor.Running() {
		t.Fatal("monitor did not restart after context cancellation")
	}
	for _, e := range f.events.Recent(-1) {
		if e.Message == "monitoring already running, start ignored" {
			t.Error("restart was refused after the loop had exited")
		}
	}
}

func TestHistoryRingBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < historySize+10; i++ {
		f.source.Add(float64(i), 0, 0)
		f.monitor.tick(ctx)
	}

	h := f.monitor.History(metrics.ResourceCPU)
	if len(h) != historySize {
		t.Fatalf("history length = %d, want %d", len(h), historySize)
	}
	// Oldest entries evicted, newest retained.
	if h[len(h)-1] != float64(historySize+10-1) {
		t.Errorf("newest history value = %v", h[len(h)-1])
	}
}

func TestConcurrentReadersWhileTicking(t *testing.T) {
	f := newFixture(t)
	f.store.Create(metrics.ResourceCPU, 50, "", alarm.PeriodAlways)
	for i := 0; i < 50; i++ {
		f.source.Add(float64(40+i%30), 30, 20)
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				f.monitor.Current()
				f.monitor.History(metrics.ResourceCPU)
				f.store.List()
			}
		}
	}()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		f.monitor.tick(ctx)
	}
	close(stop)
}
