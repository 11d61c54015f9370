// Package monitor runs the background sampling loop: every tick it
// pulls a sample from the metric source, publishes it to the snapshot,
// evaluates the alarm set, and emits trigger events. It is the only
// writer of the snapshot; any number of foreground readers may query
// it concurrently.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/resmon/alarm"
	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/metrics"
	"gitlab.com/tinyland/lab/resmon/notify"
)

// DefaultInterval is the tick interval used when none is configured.
const DefaultInterval = 2 * time.Second

// historySize bounds the per-resource utilization ring kept for the
// TUI sparklines.
const historySize = 60

// Trigger is one alarm firing, surfaced to the foreground.
type Trigger struct {
	Alarm alarm.Alarm
	Value float64
	At    time.Time
}

// Monitor owns the sampling loop and the latest-sample snapshot.
type Monitor struct {
	interval time.Duration
	source   metrics.Source
	store    *alarm.Store
	events   *eventlog.Log
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	// snap holds the most recent sample; pointer swap keeps readers
	// from ever observing a torn sample.
	snap atomic.Pointer[metrics.Sample]

	notifs chan Trigger

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	lastFired map[metrics.Resource]int
	history   map[metrics.Resource][]float64

	wg sync.WaitGroup // in-flight mail deliveries
}

// New creates a stopped Monitor. notifier may be nil to disable alert
// delivery; interval <= 0 selects DefaultInterval.
func New(source metrics.Source, store *alarm.Store, events *eventlog.Log, notifier notify.Notifier, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		interval:  interval,
		source:    source,
		store:     store,
		events:    events,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		notifs:    make(chan Trigger, 16),
		lastFired: make(map[metrics.Resource]int),
		history:   make(map[metrics.Resource][]float64),
	}
}

// Start launches the background loop. Calling Start while already
// running is a logged no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.events.Append(eventlog.CategoryStatus, "monitoring already running, start ignored")
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.events.Append(eventlog.CategoryStatus,
		fmt.Sprintf("monitoring started (interval %s)", m.interval))

	go m.run(ctx, stop, done)
}

// Stop halts the loop. The in-flight tick finishes its side effects
// first; Stop returns once the loop has exited. Stopping a stopped
// monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	m.wg.Wait()
	m.events.Append(eventlog.CategoryStatus, "monitoring stopped")
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Immediate first tick so the snapshot is populated right away.
	m.tick(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			// Context cancellation ends the loop without a Stop call;
			// mark it stopped so Running reports the truth and a later
			// Start is not refused.
			m.mu.Lock()
			wasRunning := m.running
			m.running = false
			m.mu.Unlock()
			if wasRunning {
				m.events.Append(eventlog.CategoryStatus, "monitoring stopped")
			}
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick performs one sample-publish-evaluate cycle. A source failure is
// recorded and the tick skipped; it is never fatal to the loop.
func (m *Monitor) tick(ctx context.Context) {
	sample, err := m.source.Sample(ctx)
	if err != nil {
		m.logger.Warn("sample failed, skipping tick", "error", err)
		m.events.Append(eventlog.CategoryError, fmt.Sprintf("metric sample failed: %v", err))
		return
	}

	m.publish(sample)
	m.evaluate(sample)
}

// publish overwrites the snapshot and appends to the history rings.
func (m *Monitor) publish(sample metrics.Sample) {
	s := sample
	m.snap.Store(&s)

	m.mu.Lock()
	for _, r := range metrics.Resources {
		h := append(m.history[r], sample.Value(r))
		if len(h) > historySize {
			h = h[len(h)-historySize:]
		}
		m.history[r] = h
	}
	m.mu.Unlock()
}

// evaluate checks every resource against the alarm set. Firing is
// edge-triggered: the selected alarm fires only when it differs from
// the alarm fired on the previous tick, and the per-resource state
// resets as soon as the breach clears.
func (m *Monitor) evaluate(sample metrics.Sample) {
	now := m.now()
	for _, r := range metrics.Resources {
		value := sample.Value(r)
		selected, ok := m.store.SelectActive(r, value, now)

		m.mu.Lock()
		last, hadLast := m.lastFired[r]
		if !ok {
			delete(m.lastFired, r)
			m.mu.Unlock()
			continue
		}
		if hadLast && last == selected.ID {
			m.mu.Unlock()
			continue
		}
		m.lastFired[r] = selected.ID
		m.mu.Unlock()

		m.fire(Trigger{Alarm: selected, Value: value, At: now})
	}
}

// fire records the trigger, surfaces it to the foreground channel, and
// dispatches the alert mail without blocking the loop.
func (m *Monitor) fire(t Trigger) {
	msg := fmt.Sprintf("%s usage alarm triggered: %.1f%% >= %d%% (%s, id %d)",
		t.Alarm.Resource, t.Value, t.Alarm.Threshold, t.Alarm.Name, t.Alarm.ID)
	m.events.Append(eventlog.CategoryAlarmTrigger, msg)
	m.logger.Info("alarm triggered",
		"resource", t.Alarm.Resource.String(),
		"value", t.Value,
		"threshold", t.Alarm.Threshold,
		"id", t.Alarm.ID,
	)

	// Drop rather than block when the foreground is not draining.
	select {
	case m.notifs <- t:
	default:
	}

	if m.notifier == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		subject := fmt.Sprintf("ALERT: %s alarm triggered", t.Alarm.Resource)
		body := fmt.Sprintf("Alarm %q (id %d) triggered.\nResource: %s\nCurrent value: %.1f%%\nThreshold: %d%%\nTime: %s\n",
			t.Alarm.Name, t.Alarm.ID, t.Alarm.Resource, t.Value, t.Alarm.Threshold, t.At.Format(time.RFC3339))
		if err := m.notifier.Notify(context.Background(), subject, body); err != nil {
			m.logger.Warn("alert delivery failed", "error", err)
			m.events.Append(eventlog.CategoryError, fmt.Sprintf("alert delivery failed: %v", err))
		}
	}()
}

// Current returns the most recent sample. ok is false before the
// first successful tick.
func (m *Monitor) Current() (metrics.Sample, bool) {
	p := m.snap.Load()
	if p == nil {
		return metrics.Sample{}, false
	}
	return *p, true
}

// History returns a copy of the recent utilization ring for a resource,
// oldest first.
func (m *Monitor) History(r metrics.Resource) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.history[r]))
	copy(out, m.history[r])
	return out
}

// Notifications returns the channel on which triggers are surfaced to
// the foreground. Triggers are dropped when the channel is full.
func (m *Monitor) Notifications() <-chan Trigger {
	return m.notifs
}
