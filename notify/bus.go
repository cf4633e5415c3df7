package notify

import (
	"log/slog"
	"sync"
)

// Bus receives engine notifications. Notify is fire-and-forget: it has no
// error to return and publishers never retry.
type Bus interface {
	Notify(sender string, ev Event)
}

type BusFunc func(sender string, ev Event)

func (f BusFunc) Notify(sender string, ev Event) { f(sender, ev) }

// Nop drops every event.
var Nop Bus = BusFunc(func(string, Event) {})

// Fanout delivers each event to every subscriber in registration order. A
// panicking subscriber is logged and skipped so it cannot take the
// publisher down with it.
type Fanout struct {
	mu     sync.RWMutex
	subs   []Bus
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger, subs ...Bus) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{subs: subs, logger: logger}
}

func (f *Fanout) Subscribe(b Bus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, b)
}

func (f *Fanout) Notify(sender string, ev Event) {
	f.mu.RLock()
	subs := f.subs
	f.mu.RUnlock()

	for _, s := range subs {
		f.deliver(s, sender, ev)
	}
}

func (f *Fanout) deliver(s Bus, sender string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("notify subscriber panicked",
				slog.String("kind", ev.Kind().String()),
				slog.String("sender", sender),
				slog.Any("panic", r))
		}
	}()
	s.Notify(sender, ev)
}

// Record is one delivered notification.
type Record struct {
	Sender string
	Event  Event
}

// Recorder keeps every notification it receives, in arrival order.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Notify(sender string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Sender: sender, Event: ev})
}

func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Recorder) Events() []Event {
	recs := r.Records()
	out := make([]Event, len(recs))
	for i, rec := range recs {
		out[i] = rec.Event
	}
	return out
}

func (r *Recorder) Kinds() []Kind {
	recs := r.Records()
	out := make([]Kind, len(recs))
	for i, rec := range recs {
		out[i] = rec.Event.Kind()
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
