package profiling

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Clock abstracts time so that tests can measure exact durations.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Total is the accumulated timing of one name.
type Total struct {
	Name     string
	Count    int
	Duration time.Duration
}

// Timings accumulates the durations of named, possibly overlapping,
// operations. Each name tracks at most one running measurement; a second
// StartTiming restarts it.
//
// Thread-safety: Timings is safe for concurrent use.
type Timings struct {
	clock Clock

	mu      sync.Mutex
	running map[string]time.Time
	totals  map[string]*Total
}

// NewTimings creates an empty recorder. A nil clock uses SystemClock.
func NewTimings(clock Clock) *Timings {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timings{
		clock:   clock,
		running: make(map[string]time.Time),
		totals:  make(map[string]*Total),
	}
}

// StartTiming starts measuring name.
func (t *Timings) StartTiming(name string) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running[name] = now
}

// StopTiming stops measuring name and adds the elapsed time to its total.
// Stopping a name that is not running is ignored.
func (t *Timings) StopTiming(name string) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.running[name]
	if !ok {
		return
	}
	delete(t.running, name)

	total := t.totals[name]
	if total == nil {
		total = &Total{Name: name}
		t.totals[name] = total
	}
	total.Count++
	total.Duration += now.Sub(start)
}

// Totals returns the accumulated totals ordered by name.
func (t *Timings) Totals() []Total {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Total, 0, len(t.totals))
	for _, total := range t.totals {
		out = append(out, *total)
	}
	slices.SortFunc(out, func(a, b Total) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// SerializersProfiler times container serialization per container type.
type SerializersProfiler struct {
	*Timings
}

// NewSerializersProfiler creates a serializers profiler.
func NewSerializersProfiler(clock Clock) *SerializersProfiler {
	return &SerializersProfiler{Timings: NewTimings(clock)}
}
