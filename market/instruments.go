// market/instruments.go
package market

import (
	"fmt"
	"math"

	"github.com/rustyeddy/papertrader/broker"
)

// Market describes how an instrument converts order quantity into notional,
// margin and profit. Watchers keep BaseExchangeRate current; the engine only
// reads it.
type Market struct {
	Symbol           string  `json:"symbol" yaml:"symbol"`
	Base             string  `json:"base" yaml:"base"`
	Quote            string  `json:"quote" yaml:"quote"`
	LotSize          float64 `json:"lot_size" yaml:"lot_size"`
	ContractSize     float64 `json:"contract_size" yaml:"contract_size"`
	MarginFactor     float64 `json:"margin_factor" yaml:"margin_factor"`
	BaseExchangeRate float64 `json:"base_exchange_rate" yaml:"base_exchange_rate"`
	OnePipMeans      float64 `json:"one_pip_means" yaml:"one_pip_means"`
	ValuePerPip      float64 `json:"value_per_pip" yaml:"value_per_pip"`
	Precision        int32   `json:"precision" yaml:"precision"` // price decimals
}

// Validate guards the engine against descriptors that would put NaN or
// Inf into the ledger.
func (m Market) Validate() error {
	if m.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", broker.ErrInvalidMarketData)
	}
	checks := []struct {
		name string
		v    float64
		zero bool // zero allowed
	}{
		{"lot_size", m.LotSize, false},
		{"contract_size", m.ContractSize, false},
		{"margin_factor", m.MarginFactor, true},
		{"base_exchange_rate", m.BaseExchangeRate, false},
		{"one_pip_means", m.OnePipMeans, false},
		{"value_per_pip", m.ValuePerPip, true},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v < 0 || (c.v == 0 && !c.zero) {
			return fmt.Errorf("%w: %s %s=%v", broker.ErrInvalidMarketData, m.Symbol, c.name, c.v)
		}
	}
	return nil
}

// RealizedCost is the base currency notional of quantity.
func (m Market) RealizedCost(quantity float64) float64 {
	return quantity * (m.LotSize * m.ContractSize)
}

// MarginCost is the margin locked by quantity, in account currency.
func (m Market) MarginCost(quantity float64) float64 {
	return m.RealizedCost(quantity) * m.MarginFactor / m.BaseExchangeRate
}

// OpenExecPrice: longs open on the offer, shorts on the bid.
func (m Market) OpenExecPrice(d broker.Direction, t Tick) float64 {
	if d == broker.Short {
		return t.Bid
	}
	return t.Ask
}

// CloseExecPrice: longs close on the bid, shorts on the offer.
func (m Market) CloseExecPrice(d broker.Direction, t Tick) float64 {
	if d == broker.Short {
		return t.Ask
	}
	return t.Bid
}

// Instruments are the descriptors a fresh Registry starts with. Values are
// per unit of quantity for a USD account.
var Instruments = map[string]Market{
	"EUR_USD": {
		Symbol:           "EUR_USD",
		Base:             "EUR",
		Quote:            "USD",
		LotSize:          1,
		ContractSize:     10000,
		MarginFactor:     0.02,
		BaseExchangeRate: 1,
		OnePipMeans:      0.0001,
		ValuePerPip:      1,
		Precision:        5,
	},
	"USD_JPY": {
		Symbol:           "USD_JPY",
		Base:             "USD",
		Quote:            "JPY",
		LotSize:          1,
		ContractSize:     10000,
		MarginFactor:     0.02,
		BaseExchangeRate: 150,
		OnePipMeans:      0.01,
		ValuePerPip:      100,
		Precision:        3,
	},
}
