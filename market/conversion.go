package market

import (
	"context"
	"fmt"
)

// ExchangeRate derives the BaseExchangeRate for m from the latest tick:
// the number of quote units per account currency unit, so that quote
// currency amounts divide by it into the account currency.
func ExchangeRate(ctx context.Context, m Market, accountCurrency string, ticks TickSource) (float64, error) {
	// Case 1: quote currency == account currency (EUR_USD, GBP_USD, etc.)
	if m.Quote == accountCurrency {
		return 1.0, nil
	}

	// Case 2: account currency is base (USD_JPY, USD_CHF, etc.)
	if m.Base == accountCurrency {
		t, err := ticks.GetTick(ctx, m.Symbol)
		if err != nil {
			return 0, err
		}
		mid := t.Mid()
		if mid <= 0 {
			return 0, fmt.Errorf("non-positive mid %v for %s", mid, m.Symbol)
		}
		// USD_JPY mid gives JPY per USD
		return mid, nil
	}

	// Case 3: cross currency, e.g. EUR_GBP with a USD account
	return 0, fmt.Errorf(
		"cross conversion not implemented for %s → %s",
		m.Quote,
		accountCurrency,
	)
}
