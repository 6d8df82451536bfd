package store

// sequenceManager hands out per-type sequence numbers.
//
// Each container type has its own counter, starting at 0 so that the first
// identifier is 1. Counters are seeded from MAX(_identifier) of the table,
// at open for referenced types and on first use for the others, so that
// identifiers continue across sessions.
//
// The store is single-writer; the manager needs no synchronization.
type sequenceManager struct {
	seq map[string]int64
}

func newSequenceManager() *sequenceManager {
	return &sequenceManager{seq: make(map[string]int64)}
}

// set seeds the counter of a container type.
func (m *sequenceManager) set(containerType string, n int64) {
	m.seq[containerType] = n
}

// initialized reports whether the counter of a container type was seeded.
func (m *sequenceManager) initialized(containerType string) bool {
	_, ok := m.seq[containerType]
	return ok
}

// next returns the next sequence number and increments the counter.
func (m *sequenceManager) next(containerType string) int64 {
	m.seq[containerType]++
	return m.seq[containerType]
}

// current returns the last sequence number handed out, or 0.
func (m *sequenceManager) current(containerType string) int64 {
	return m.seq[containerType]
}
