package journal

import (
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
)

// HistoryRow is the flat on-disk shape of a HistoryEntry shared by the
// SQLite, CSV and Parquet sinks.
type HistoryRow struct {
	Time             int64   `parquet:"time,timestamp(millisecond)"` // Unix ms
	OrderID          string  `parquet:"order_id"`
	RefOrderID       string  `parquet:"ref_order_id"`
	PositionID       string  `parquet:"position_id"`
	Symbol           string  `parquet:"symbol"`
	Direction        string  `parquet:"direction"`
	OrderType        string  `parquet:"order_type"`
	Quantity         float64 `parquet:"quantity"`
	ExecutedQuantity float64 `parquet:"executed_quantity"`
	Leverage         float64 `parquet:"leverage"`
	CloseOnly        bool    `parquet:"close_only"`
	ExecPrice        float64 `parquet:"exec_price"`
	Balance          float64 `parquet:"balance"`
	MarginBalance    float64 `parquet:"margin_balance"`
	PriceDeltaPips   float64 `parquet:"price_delta_pips"`
	GainLossRate     float64 `parquet:"gain_loss_rate"`
	GainLoss         float64 `parquet:"gain_loss"`
	GainLossAccount  float64 `parquet:"gain_loss_account"`
}

func ToRow(e HistoryEntry) HistoryRow {
	return HistoryRow{
		Time:             e.Time.UnixMilli(),
		OrderID:          e.Order.ID,
		RefOrderID:       e.Order.RefID,
		PositionID:       e.Order.PositionID.String(),
		Symbol:           e.Order.Symbol,
		Direction:        e.Order.Direction.String(),
		OrderType:        string(e.Order.Type),
		Quantity:         e.Order.Quantity,
		ExecutedQuantity: e.Order.ExecutedQuantity,
		Leverage:         e.Order.Leverage,
		CloseOnly:        e.Order.CloseOnly,
		ExecPrice:        e.ExecPrice,
		Balance:          e.Balance,
		MarginBalance:    e.MarginBalance,
		PriceDeltaPips:   e.PriceDeltaPips,
		GainLossRate:     e.GainLossRate,
		GainLoss:         e.GainLoss,
		GainLossAccount:  e.GainLossAccount,
	}
}

// Entry rebuilds the HistoryEntry. Order fields that are not persisted
// (stop prices, time in force) come back zero.
func (r HistoryRow) Entry() (HistoryEntry, error) {
	dir, err := broker.ParseDirection(r.Direction)
	if err != nil {
		return HistoryEntry{}, err
	}
	pid, err := id.ParsePositionID(r.PositionID)
	if err != nil {
		return HistoryEntry{}, err
	}
	t := time.UnixMilli(r.Time).UTC()
	return HistoryEntry{
		Order: broker.Order{
			ID:               r.OrderID,
			RefID:            r.RefOrderID,
			Symbol:           r.Symbol,
			Direction:        dir,
			Type:             broker.OrderType(r.OrderType),
			Quantity:         r.Quantity,
			Leverage:         r.Leverage,
			CloseOnly:        r.CloseOnly,
			ReduceOnly:       r.CloseOnly,
			PositionID:       pid,
			ExecutedQuantity: r.ExecutedQuantity,
			TransactTime:     t,
		},
		ExecPrice:       r.ExecPrice,
		Balance:         r.Balance,
		MarginBalance:   r.MarginBalance,
		PriceDeltaPips:  r.PriceDeltaPips,
		GainLossRate:    r.GainLossRate,
		GainLoss:        r.GainLoss,
		GainLossAccount: r.GainLossAccount,
		Time:            t,
	}, nil
}
