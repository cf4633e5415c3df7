package sim

import "github.com/rustyeddy/papertrader/broker"

// triggered returns the close order type for a position whose stop-loss or
// take-profit is crossed by mark. Stop-loss wins when both are.
func triggered(p broker.Position, mark float64) (broker.OrderType, bool) {
	switch {
	case p.StopLossHit(mark):
		return broker.OrderStop, true
	case p.TakeProfitHit(mark):
		return broker.OrderTakeProfit, true
	}
	return "", false
}
