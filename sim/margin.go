package sim

import (
	"fmt"
	"math"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/market"
)

// checkMargin must be called with the engine lock held.
func checkMargin(acct broker.Account, symbol string, cost float64) error {
	if acct.HasMargin(cost) {
		return nil
	}
	return &broker.MarginError{Symbol: symbol, Need: cost, Have: acct.MarginBalance()}
}

// validateExecution rejects market data that would corrupt the ledger.
func validateExecution(m market.Market, execPrice float64) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if math.IsNaN(execPrice) || math.IsInf(execPrice, 0) || execPrice <= 0 {
		return fmt.Errorf("%w: %s exec price %v", broker.ErrInvalidMarketData, m.Symbol, execPrice)
	}
	return nil
}
