package athena

import "sync"

const defaultLedgerCapacity = 100

// Ledger is a fixed-capacity ring buffer of decisions. When full, appending
// evicts the oldest entry first.
type Ledger struct {
	mu       sync.RWMutex
	entries  []*Decision
	start    int
	size     int
	capacity int
}

// NewLedger creates a ledger holding at most capacity decisions.
// Non-positive capacities fall back to the default.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &Ledger{
		entries:  make([]*Decision, capacity),
		capacity: capacity,
	}
}

// Append adds a decision, evicting the oldest when the ledger is full.
func (l *Ledger) Append(d *Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == l.capacity {
		l.entries[l.start] = d
		l.start = (l.start + 1) % l.capacity
		return
	}
	l.entries[(l.start+l.size)%l.capacity] = d
	l.size++
}

// Get returns the ledger entry with the given id, or nil.
func (l *Ledger) Get(id string) *Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 0; i < l.size; i++ {
		d := l.entries[(l.start+i)%l.capacity]
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Recent returns up to limit decisions, most recent first, as copies.
// limit <= 0 returns everything retained.
func (l *Ledger) Recent(limit int) []Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > l.size {
		limit = l.size
	}

	out := make([]Decision, 0, limit)
	for i := l.size - 1; i >= l.size-limit; i-- {
		out = append(out, *l.entries[(l.start+i)%l.capacity])
	}
	return out
}

// Len returns the number of retained decisions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity returns the configured maximum size.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		l.entries[i] = nil
	}
	l.start = 0
	l.size = 0
}
