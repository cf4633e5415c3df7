package journal

import (
	"iter"
	"sync"
)

// MemoryHistory keeps entries in memory. With a positive capacity it
// behaves as a ring: once full, the oldest entry is dropped for each Add.
type MemoryHistory struct {
	mu       sync.RWMutex
	buf      []HistoryEntry
	head     int // index of the oldest entry once the ring is full
	capacity int
	dropped  uint64
}

// NewMemoryHistory returns an unbounded history when capacity <= 0.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryHistory{capacity: capacity}
}

func (h *MemoryHistory) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.capacity == 0 || len(h.buf) < h.capacity {
		h.buf = append(h.buf, e)
		return
	}
	h.buf[h.head] = e
	h.head = (h.head + 1) % h.capacity
	h.dropped++
}

func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buf)
}

// Dropped counts entries evicted by the capacity bound.
func (h *MemoryHistory) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *MemoryHistory) Entries() iter.Seq[HistoryEntry] {
	return func(yield func(HistoryEntry) bool) {
		for _, e := range h.snapshot() {
			if !yield(e) {
				return
			}
		}
	}
}

// snapshot copies the ring out in insertion order.
func (h *MemoryHistory) snapshot() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, 0, len(h.buf))
	out = append(out, h.buf[h.head:]...)
	out = append(out, h.buf[:h.head]...)
	return out
}
