package market

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/papertrader/broker"
)

// Provider hands out Market descriptors by symbol.
type Provider interface {
	Market(symbol string) (Market, error)
}

// Registry is an in-memory Provider that watchers can update concurrently
// with engine reads.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]Market
}

func NewRegistry(markets ...Market) *Registry {
	r := &Registry{markets: make(map[string]Market, len(markets))}
	for _, m := range markets {
		r.markets[m.Symbol] = m
	}
	return r
}

// DefaultRegistry is seeded from Instruments.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range Instruments {
		r.markets[m.Symbol] = m
	}
	return r
}

func (r *Registry) Market(symbol string) (Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[symbol]
	if !ok {
		return Market{}, fmt.Errorf("%w: unknown market %q", broker.ErrInvalidMarketData, symbol)
	}
	return m, nil
}

func (r *Registry) Set(m Market) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.Symbol] = m
	return nil
}

func (r *Registry) SetBaseExchangeRate(symbol string, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[symbol]
	if !ok {
		return fmt.Errorf("%w: unknown market %q", broker.ErrInvalidMarketData, symbol)
	}
	m.BaseExchangeRate = rate
	if err := m.Validate(); err != nil {
		return err
	}
	r.markets[symbol] = m
	return nil
}

func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.markets))
	for s := range r.markets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
