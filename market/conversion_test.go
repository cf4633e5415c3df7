package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTickSource struct {
	tick       Tick
	err        error
	called     int
	lastSymbol string
}

func (f *fakeTickSource) GetTick(ctx context.Context, symbol string) (Tick, error) {
	f.called++
	f.lastSymbol = symbol
	return f.tick, f.err
}

func TestExchangeRate_QuoteEqualsAccount(t *testing.T) {
	t.Parallel()

	ts := &fakeTickSource{}
	rate, err := ExchangeRate(context.Background(), Instruments["EUR_USD"], "USD", ts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Equal(t, 0, ts.called, "no tick needed when quote is the account currency")
}

func TestExchangeRate_BaseEqualsAccount(t *testing.T) {
	t.Parallel()

	ts := &fakeTickSource{tick: Tick{Symbol: "USD_JPY", Bid: 150.00, Ask: 150.02}}
	rate, err := ExchangeRate(context.Background(), Instruments["USD_JPY"], "USD", ts)
	require.NoError(t, err)
	assert.InDelta(t, 150.01, rate, 1e-9)
	assert.Equal(t, "USD_JPY", ts.lastSymbol)
}

func TestExchangeRate_TickError(t *testing.T) {
	t.Parallel()

	ts := &fakeTickSource{err: errors.New("boom")}
	_, err := ExchangeRate(context.Background(), Instruments["USD_JPY"], "USD", ts)
	assert.Error(t, err)
}

func TestExchangeRate_Cross(t *testing.T) {
	t.Parallel()

	m := Market{Symbol: "EUR_GBP", Base: "EUR", Quote: "GBP"}
	_, err := ExchangeRate(context.Background(), m, "USD", &fakeTickSource{})
	assert.ErrorContains(t, err, "cross conversion")
}
