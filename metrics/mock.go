package metrics

import (
	"context"
	"sync"
	"time"
)

// MockSource replays a scripted sequence of samples and errors.
// Once the script is exhausted it keeps returning the last step.
// Safe for concurrent use.
type MockSource struct {
	mu    sync.Mutex
	steps []mockStep
	pos   int
}

type mockStep struct {
	sample Sample
	err    error
}

// NewMockSource returns an empty mock; use Add/AddErr to script it.
func NewMockSource() *MockSource { return &MockSource{} }

// Add appends a successful sample step with the given percentages.
func (m *MockSource) Add(cpu, memory, disk float64) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{sample: Sample{
		CPU:       cpu,
		Memory:    memory,
		Disk:      disk,
		Timestamp: time.Now(),
	}})
	return m
}

// AddErr appends a failing step.
func (m *MockSource) AddErr(err error) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
	return m
}

// Sample returns the next scripted step.
func (m *MockSource) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.steps) == 0 {
		return Sample{Timestamp: time.Now()}, nil
	}
	step := m.steps[m.pos]
	if m.pos < len(m.steps)-1 {
		m.pos++
	}
	if step.err != nil {
		return Sample{}, step.err
	}
	s := step.sample
	s.Timestamp = time.Now()
	return s, nil
}
