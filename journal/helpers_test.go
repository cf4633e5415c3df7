package journal

import (
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
)

var (
	t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

// roundTrip is a winning EUR_USD long: open at 1.2000, close at 1.2050.
func roundTrip() (open, close HistoryEntry) {
	pid, err := id.NewPositionID()
	if err != nil {
		panic(err)
	}
	open = HistoryEntry{
		Order: broker.Order{
			ID:               "O1",
			RefID:            "strategy-1",
			Symbol:           "EUR_USD",
			Direction:        broker.Long,
			Type:             broker.OrderMarket,
			Quantity:         1,
			Leverage:         1,
			PositionID:       pid,
			ExecutedQuantity: 1,
			TransactTime:     t0,
		},
		ExecPrice:     1.2000,
		Balance:       10000,
		MarginBalance: 9999.99,
		Time:          t0,
	}
	close = HistoryEntry{
		Order: broker.Order{
			ID:               "O2",
			Symbol:           "EUR_USD",
			Direction:        broker.Short,
			Type:             broker.OrderLimit,
			Price:            1.2050,
			Quantity:         1,
			Leverage:         1,
			CloseOnly:        true,
			ReduceOnly:       true,
			PositionID:       pid,
			ExecutedQuantity: 1,
			TransactTime:     t1,
		},
		ExecPrice:       1.2050,
		Balance:         10500,
		MarginBalance:   10500,
		PriceDeltaPips:  50,
		GainLossRate:    500,
		GainLoss:        500,
		GainLossAccount: 500,
		Time:            t1,
	}
	return open, close
}
