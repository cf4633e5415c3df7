// Package risk sizes orders from a fixed fraction of the account.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/papertrader/market"
)

var ErrNoStop = errors.New("risk: stop equals entry")

// Sizing is the result of a fixed-fraction calculation.
type Sizing struct {
	Quantity   float64 // lots, rounded down to 0.01
	StopPips   float64
	RiskAmount float64 // account currency
	LossAtStop float64 // account currency, for Quantity
}

// Size returns the lot quantity whose loss at stop is at most riskPct of
// equity. The loss per lot follows the engine's profit and loss formula,
// converted with the market's base exchange rate.
func Size(m market.Market, equity, riskPct, entry, stop float64) (Sizing, error) {
	if equity <= 0 {
		return Sizing{}, fmt.Errorf("risk: equity %v must be positive", equity)
	}
	if riskPct <= 0 || riskPct > 1 {
		return Sizing{}, fmt.Errorf("risk: fraction %v out of range (0, 1]", riskPct)
	}
	if err := m.Validate(); err != nil {
		return Sizing{}, err
	}

	pips := math.Round(math.Abs(entry-stop)/m.OnePipMeans*1e6) / 1e6
	if pips == 0 {
		return Sizing{}, ErrNoStop
	}
	perLot := pips * m.ValuePerPip / m.BaseExchangeRate
	if perLot == 0 {
		return Sizing{}, fmt.Errorf("risk: %s has no pip value", m.Symbol)
	}
	amount := equity * riskPct
	// The epsilon keeps exact multiples from flooring one step short.
	qty := math.Floor(amount/perLot*100+1e-9) / 100

	return Sizing{
		Quantity:   qty,
		StopPips:   pips,
		RiskAmount: amount,
		LossAtStop: qty * perLot,
	}, nil
}

// RR is the reward to risk ratio of a bracket. It is zero when stop equals
// entry.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}
