// journal/journal.go
package journal

import (
	"iter"
	"time"

	"github.com/rustyeddy/papertrader/broker"
)

// HistoryEntry is the audit record of one Open or Close. It is built once
// and never mutated.
type HistoryEntry struct {
	Order           broker.Order // snapshot after execution
	ExecPrice       float64
	Balance         float64
	MarginBalance   float64
	PriceDeltaPips  float64
	GainLossRate    float64
	GainLoss        float64 // quote currency
	GainLossAccount float64 // account currency
	Time            time.Time
}

// IsClose reports whether the entry records a position close.
func (e HistoryEntry) IsClose() bool {
	return e.Order.CloseOnly
}

// MarketSnapshot is the quote a trader saw at a point in time.
type MarketSnapshot struct {
	Symbol           string
	Time             time.Time
	Bid              float64
	Ask              float64
	BaseExchangeRate float64
}

// History is the append-only audit trail. Add never fails; capacity bounds
// are an implementation concern.
type History interface {
	Add(HistoryEntry)
	// Entries yields entries in insertion order. Each call starts a fresh
	// pass, so the sequence can be ranged over again.
	Entries() iter.Seq[HistoryEntry]
	Len() int
}

// Recorder persists history and market snapshots outside the process.
type Recorder interface {
	RecordHistory(HistoryEntry) error
	RecordMarket(MarketSnapshot) error
	Close() error
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) RecordHistory(HistoryEntry) error  { return nil }
func (discard) RecordMarket(MarketSnapshot) error { return nil }
func (discard) Close() error                      { return nil }
