// Package eventlog implements the append-only event record shared by
// every component of the monitor. Entries are written one per line to
// per-day text files so they can be filtered by substring and date
// range without a database engine.
package eventlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category tags the kind of event an entry records.
type Category string

const (
	CategoryStatus       Category = "STATUS"
	CategoryAlarmTrigger Category = "ALARM_TRIGGER"
	CategoryUserAction   Category = "USER_ACTION"
	CategoryError        Category = "ERROR"
)

// Entry is one immutable event record.
type Entry struct {
	Timestamp time.Time
	Category  Category
	Message   string
}

// Line renders the entry in its on-disk form.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp.Format(timeLayout), e.Category, e.Message)
}

const (
	timeLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"

	filePrefix   = "events-"
	fileSuffix   = ".log"
	fallbackName = "events-fallback.log"

	// ringCapacity bounds the in-memory fallback buffer used when file
	// appends fail.
	ringCapacity = 256
)

// Log is the append-only event log. Appends are serialized; a failed
// append falls back to an in-memory ring (and a best-effort fallback
// file) so logging never fails the caller.
type Log struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	ring []Entry
}

// New creates a log writing to per-day files under dir. The directory
// is created if missing; creation failure degrades the log to the
// in-memory ring instead of failing.
func New(dir string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.Error("event log directory unavailable, running in-memory", "dir", dir, "error", err)
	}
	return &Log{dir: dir, logger: logger, now: time.Now}
}

// Append records an event. It never returns an error: on write failure
// the entry is kept in the ring buffer and a fallback file write is
// attempted, then the failure is dropped.
func (l *Log) Append(category Category, message string) {
	// Newlines would break the one-entry-per-line format.
	message = strings.ReplaceAll(message, "\n", " ")

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Timestamp: l.now(), Category: category, Message: message}
	line := entry.Line() + "\n"

	// Older ring entries must reach disk before this one, or a later
	// recovery would leave files and ring interleaved out of order.
	l.flushRingLocked()

	if len(l.ring) == 0 {
		path := filepath.Join(l.dir, filePrefix+entry.Timestamp.Format(dayLayout)+fileSuffix)
		err := appendLine(path, line)
		if err == nil {
			return
		}
		l.logger.Error("event log append failed", "path", path, "error", err)
	}

	l.ring = append(l.ring, entry)
	if len(l.ring) > ringCapacity {
		l.ring = l.ring[len(l.ring)-ringCapacity:]
	}
	if err := appendLine(filepath.Join(l.dir, fallbackName), line); err != nil {
		l.logger.Error("event log fallback append failed", "error", err)
	}
}

// flushRingLocked drains ring entries to their day files, oldest first,
// stopping at the first write failure.
func (l *Log) flushRingLocked() {
	for len(l.ring) > 0 {
		e := l.ring[0]
		path := filepath.Join(l.dir, filePrefix+e.Timestamp.Format(dayLayout)+fileSuffix)
		if err := appendLine(path, e.Line()+"\n"); err != nil {
			return
		}
		l.ring = l.ring[1:]
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Recent returns the last n entries in chronological order. When fewer
// than n exist, all are returned.
func (l *Log) Recent(n int) []Entry {
	entries := l.all()
	if n >= 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// Search returns all entries whose message contains substring,
// case-insensitive, in chronological order.
func (l *Log) Search(substring string) []Entry {
	needle := strings.ToLower(substring)
	var out []Entry
	for _, e := range l.all() {
		if strings.Contains(strings.ToLower(e.Message), needle) {
			out = append(out, e)
		}
	}
	return out
}

// InRange returns entries with start <= timestamp <= end in
// chronological order.
func (l *Log) InRange(start, end time.Time) []Entry {
	var out []Entry
	for _, e := range l.allBetweenDays(start, end) {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// all reads every persisted entry plus any ring-buffered entries that
// never reached disk.
func (l *Log) all() []Entry {
	return l.allBetweenDays(time.Time{}, time.Time{})
}

// allBetweenDays reads entries from the per-day files, skipping files
// whose day falls wholly outside [start, end] when bounds are set.
func (l *Log) allBetweenDays(start, end time.Time) []Entry {
	var entries []Entry
	for _, path := range l.dayFiles(start, end) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if e, ok := ParseLine(line); ok {
				entries = append(entries, e)
			}
		}
	}

	l.mu.Lock()
	entries = append(entries, l.ring...)
	l.mu.Unlock()

	// Files are read in name (= day) order and entries within a file
	// are in insertion order; the stable sort keeps insertion order for
	// equal stamps while restoring chronology across files and ring.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries
}

func (l *Log) dayFiles(start, end time.Time) []string {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		dayStr := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		day, err := time.ParseInLocation(dayLayout, dayStr, time.Local)
		if err != nil {
			continue
		}
		if !start.IsZero() && day.AddDate(0, 0, 1).Add(-time.Nanosecond).Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		paths = append(paths, filepath.Join(l.dir, name))
	}
	sort.Strings(paths)
	return paths
}

// ParseLine parses one on-disk log line. Lines that do not match the
// format are skipped by queries.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return Entry{}, false
	}
	tsEnd := strings.Index(line, "]")
	if tsEnd < 0 {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, line[1:tsEnd], time.Local)
	if err != nil {
		return Entry{}, false
	}

	rest := strings.TrimSpace(line[tsEnd+1:])
	if !strings.HasPrefix(rest, "[") {
		return Entry{}, false
	}
	catEnd := strings.Index(rest, "]")
	if catEnd < 0 {
		return Entry{}, false
	}
	category := Category(rest[1:catEnd])
	message := strings.TrimSpace(rest[catEnd+1:])

	return Entry{Timestamp: ts, Category: category, Message: message}, true
}
