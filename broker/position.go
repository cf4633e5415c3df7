package broker

import (
	"time"

	"github.com/rustyeddy/papertrader/internal/id"
)

// Position is the exposure on one symbol. Only the engine mutates
// positions; everyone else sees copies.
type Position struct {
	ID         id.PositionID
	Symbol     string
	Direction  Direction
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	Leverage   float64
	StopLoss   float64
	TakeProfit float64

	// Realized. Maker and taker figures are identical in the paper model.
	ProfitLoss           float64
	ProfitLossRate       float64
	ProfitLossMarket     float64
	ProfitLossMarketRate float64

	CreatedTime time.Time
	ClosedTime  time.Time
}

func (p Position) IsOpen() bool {
	return p.Quantity > 0
}

func (p Position) CloseDirection() Direction {
	return p.Direction.Opposite()
}

// StopLossHit reports whether mark crosses the stop-loss. A zero stop-loss
// is unset.
func (p Position) StopLossHit(mark float64) bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Direction == Long {
		return mark <= p.StopLoss
	}
	return mark >= p.StopLoss
}

func (p Position) TakeProfitHit(mark float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Direction == Long {
		return mark >= p.TakeProfit
	}
	return mark <= p.TakeProfit
}
