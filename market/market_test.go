package market

import (
	"math"
	"testing"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleMarket() Market {
	return Market{
		Symbol:           "EUR_USD",
		Base:             "EUR",
		Quote:            "USD",
		LotSize:          1,
		ContractSize:     1,
		MarginFactor:     0.01,
		BaseExchangeRate: 1,
		OnePipMeans:      0.0001,
		ValuePerPip:      10,
		Precision:        4,
	}
}

func TestInstrumentsValid(t *testing.T) {
	t.Parallel()

	for sym, m := range Instruments {
		assert.Equal(t, sym, m.Symbol)
		assert.NoError(t, m.Validate(), sym)
	}
}

func TestMarketValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(m *Market)
	}{
		{"no symbol", func(m *Market) { m.Symbol = "" }},
		{"zero base rate", func(m *Market) { m.BaseExchangeRate = 0 }},
		{"nan base rate", func(m *Market) { m.BaseExchangeRate = math.NaN() }},
		{"zero lot size", func(m *Market) { m.LotSize = 0 }},
		{"negative contract size", func(m *Market) { m.ContractSize = -1 }},
		{"inf margin factor", func(m *Market) { m.MarginFactor = math.Inf(1) }},
		{"zero pip", func(m *Market) { m.OnePipMeans = 0 }},
		{"nan value per pip", func(m *Market) { m.ValuePerPip = math.NaN() }},
	}

	require.NoError(t, exampleMarket().Validate())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := exampleMarket()
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), broker.ErrInvalidMarketData)
		})
	}
}

func TestMarketCosts(t *testing.T) {
	t.Parallel()

	m := exampleMarket()
	assert.Equal(t, 1.0, m.RealizedCost(1))
	assert.InDelta(t, 0.01, m.MarginCost(1), 1e-12)

	m.ContractSize = 10000
	m.BaseExchangeRate = 2
	assert.Equal(t, 30000.0, m.RealizedCost(3))
	assert.InDelta(t, 150.0, m.MarginCost(3), 1e-9)
}

func TestExecPrices(t *testing.T) {
	t.Parallel()

	m := exampleMarket()
	tick := Tick{Symbol: "EUR_USD", Bid: 1.1000, Ask: 1.1002}

	assert.Equal(t, 1.1002, m.OpenExecPrice(broker.Long, tick))
	assert.Equal(t, 1.1000, m.OpenExecPrice(broker.Short, tick))
	assert.Equal(t, 1.1000, m.CloseExecPrice(broker.Long, tick))
	assert.Equal(t, 1.1002, m.CloseExecPrice(broker.Short, tick))
	assert.InDelta(t, 1.1001, tick.Mid(), 1e-12)
	assert.InDelta(t, 0.0002, tick.Spread(), 1e-12)
}

func TestRoundAndFormatPrice(t *testing.T) {
	t.Parallel()

	m := exampleMarket()
	assert.Equal(t, 1.2346, m.RoundPrice(1.23456))
	assert.Equal(t, "1.2000", m.FormatPrice(1.2))
	assert.Equal(t, "1.2346", m.FormatPrice(1.23456))
	assert.InDelta(t, 50.0, m.Pips(0.0050), 1e-9)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(exampleMarket())
	m, err := r.Market("EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.ValuePerPip)

	_, err = r.Market("XAU_USD")
	assert.ErrorIs(t, err, broker.ErrInvalidMarketData)

	require.NoError(t, r.SetBaseExchangeRate("EUR_USD", 1.25))
	m, _ = r.Market("EUR_USD")
	assert.Equal(t, 1.25, m.BaseExchangeRate)

	assert.ErrorIs(t, r.SetBaseExchangeRate("EUR_USD", 0), broker.ErrInvalidMarketData)
	m, _ = r.Market("EUR_USD")
	assert.Equal(t, 1.25, m.BaseExchangeRate, "invalid update must not stick")

	bad := exampleMarket()
	bad.Symbol = "BAD"
	bad.LotSize = 0
	assert.Error(t, r.Set(bad))

	assert.Equal(t, []string{"EUR_USD", "USD_JPY"}, DefaultRegistry().Symbols())
}

func TestTickStore(t *testing.T) {
	t.Parallel()

	ts := NewTickStore()
	_, err := ts.Get("EUR_USD")
	assert.Error(t, err)

	ts.Set(Tick{Symbol: "EUR_USD", Bid: 1.1, Ask: 1.2})
	got, err := ts.Get("EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, 1.2, got.Ask)
}
