package alarm

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/metrics"
)

// Store holds the alarm set and its durable copy. The whole set is the
// unit of persistence: every mutation rewrites the file. Durable
// read/write failures are non-fatal; the store keeps working in memory
// and records an ERROR event.
type Store struct {
	path   string
	events *eventlog.Log
	logger *slog.Logger

	mu     sync.Mutex
	alarms []Alarm
}

// NewStore loads the alarm set from path. A missing or unreadable file
// initializes an empty set instead of failing startup.
func NewStore(path string, events *eventlog.Log, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{path: path, events: events, logger: logger}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("alarm file unreadable, starting empty", "path", s.path, "error", err)
			s.events.Append(eventlog.CategoryError, fmt.Sprintf("alarm file unreadable: %v", err))
		}
		return
	}

	var alarms []Alarm
	if err := json.Unmarshal(data, &alarms); err != nil {
		s.logger.Warn("alarm file malformed, starting empty", "path", s.path, "error", err)
		s.events.Append(eventlog.CategoryError, fmt.Sprintf("alarm file malformed: %v", err))
		return
	}
	for i := range alarms {
		if alarms[i].Period == "" {
			alarms[i].Period = PeriodAlways
		}
	}
	s.alarms = alarms
	s.logger.Info("loaded alarms", "path", s.path, "count", len(alarms))
}

// Create validates and adds a new alarm, assigns the next unused id,
// rewrites the durable set, and records a USER_ACTION event. An empty
// name gets a generated label; an empty period means always.
func (s *Store) Create(resource metrics.Resource, threshold int, name string, period Period) (Alarm, error) {
	if _, err := metrics.ParseResource(resource.String()); err != nil {
		return Alarm{}, err
	}
	if threshold < 1 || threshold > 100 {
		return Alarm{}, fmt.Errorf("%w: got %d", ErrThresholdRange, threshold)
	}
	if period == "" {
		period = PeriodAlways
	}
	if _, err := ParsePeriod(string(period)); err != nil {
		return Alarm{}, err
	}
	if name == "" {
		name = DefaultName(resource, threshold)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := Alarm{
		ID:        s.nextIDLocked(),
		Resource:  resource,
		Threshold: threshold,
		Name:      name,
		Period:    period,
	}
	s.alarms = append(s.alarms, a)
	s.persistLocked()

	s.events.Append(eventlog.CategoryUserAction,
		fmt.Sprintf("alarm added: %s (%s >= %d%%, id %d)", a.Name, a.Resource, a.Threshold, a.ID))
	return a, nil
}

// Remove deletes the alarm with the given id, rewrites the durable set,
// and records a USER_ACTION event. Returns ErrNotFound for unknown ids
// and leaves the set unchanged.
func (s *Store) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, a := range s.alarms {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	removed := s.alarms[idx]
	s.alarms = append(s.alarms[:idx], s.alarms[idx+1:]...)
	s.persistLocked()

	s.events.Append(eventlog.CategoryUserAction,
		fmt.Sprintf("alarm removed: %s (id %d)", removed.Name, removed.ID))
	return nil
}

// List returns all alarms ordered by resource (cpu, memory, disk) then
// ascending threshold.
func (s *Store) List() []Alarm {
	s.mu.Lock()
	out := make([]Alarm, len(s.alarms))
	copy(out, s.alarms)
	s.mu.Unlock()

	order := map[metrics.Resource]int{
		metrics.ResourceCPU:    0,
		metrics.ResourceMemory: 1,
		metrics.ResourceDisk:   2,
	}
	sort.Slice(out, func(i, j int) bool {
		if order[out[i].Resource] != order[out[j].Resource] {
			return order[out[i].Resource] < order[out[j].Resource]
		}
		if out[i].Threshold != out[j].Threshold {
			return out[i].Threshold < out[j].Threshold
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListFor returns the alarms for one resource, ascending threshold.
func (s *Store) ListFor(resource metrics.Resource) []Alarm {
	s.mu.Lock()
	var out []Alarm
	for _, a := range s.alarms {
		if a.Resource == resource {
			out = append(out, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Threshold != out[j].Threshold {
			return out[i].Threshold < out[j].Threshold
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SelectActive returns the single most relevant breached alarm for the
// resource at the given value: among alarms whose threshold <= value
// and whose period covers now, the one with the highest threshold wins;
// equal thresholds break toward the lowest id. With several thresholds
// breached at once only that one alarm fires, which keeps a spike from
// producing one trigger per configured threshold.
func (s *Store) SelectActive(resource metrics.Resource, value float64, now time.Time) (Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best Alarm
	found := false
	for _, a := range s.alarms {
		if a.Resource != resource || float64(a.Threshold) > value || !a.Period.ActiveAt(now) {
			continue
		}
		if !found || a.Threshold > best.Threshold ||
			(a.Threshold == best.Threshold && a.ID < best.ID) {
			best = a
			found = true
		}
	}
	return best, found
}

// nextIDLocked returns max existing id + 1, or 1 for an empty set.
func (s *Store) nextIDLocked() int {
	next := 1
	for _, a := range s.alarms {
		if a.ID >= next {
			next = a.ID + 1
		}
	}
	return next
}

// persistLocked rewrites the full alarm set with an atomic replace
// (temp file, fsync, rename). Failure degrades to in-memory operation
// and records an ERROR event; the mutation itself stands.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.alarms, "", "  ")
	if err != nil {
		s.persistFailed(err)
		return
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.persistFailed(err)
		return
	}

	tmp, err := os.CreateTemp(dir, ".tmp-alarms-*.json")
	if err != nil {
		s.persistFailed(err)
		return
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = tmp.Close()
		s.persistFailed(err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		s.persistFailed(err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		s.persistFailed(err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.persistFailed(err)
		return
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		s.persistFailed(err)
		return
	}
	success = true
}

func (s *Store) persistFailed(err error) {
	s.logger.Error("alarm persist failed, continuing in memory", "path", s.path, "error", err)
	s.events.Append(eventlog.CategoryError, fmt.Sprintf("alarm persist failed: %v", err))
}
