package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue decouples publishers from a slow subscriber. Events are handed to
// next by a single goroutine (Run), so arrival order is delivery order.
// Notify blocks while the buffer is full; once Run has exited further events
// are dropped and counted.
type Queue struct {
	next Bus
	ch   chan Record

	mu     sync.RWMutex
	closed bool

	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func NewQueue(next Bus, size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{
		next: next,
		ch:   make(chan Record, size),
		done: make(chan struct{}),
	}
}

func (q *Queue) Notify(sender string, ev Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- Record{Sender: sender, Event: ev}:
	case <-q.done:
		q.dropped.Add(1)
	}
}

// Run delivers queued events until the queue is closed and drained, or ctx
// is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	defer q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-q.ch:
			if !ok {
				return nil
			}
			q.next.Notify(rec.Sender, rec.Event)
		}
	}
}

// Close stops accepting events. Run returns after delivering what is
// already buffered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
