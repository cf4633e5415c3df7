package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const historyColumns = `time, order_id, ref_order_id, position_id, symbol, direction, order_type,
	quantity, executed_quantity, leverage, close_only, exec_price, balance,
	margin_balance, price_delta_pips, gain_loss_rate, gain_loss, gain_loss_account`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(s rowScanner) (HistoryEntry, error) {
	var (
		r  HistoryRow
		tm time.Time
	)
	err := s.Scan(
		&tm,
		&r.OrderID,
		&r.RefOrderID,
		&r.PositionID,
		&r.Symbol,
		&r.Direction,
		&r.OrderType,
		&r.Quantity,
		&r.ExecutedQuantity,
		&r.Leverage,
		&r.CloseOnly,
		&r.ExecPrice,
		&r.Balance,
		&r.MarginBalance,
		&r.PriceDeltaPips,
		&r.GainLossRate,
		&r.GainLoss,
		&r.GainLossAccount,
	)
	if err != nil {
		return HistoryEntry{}, err
	}
	r.Time = tm.UnixMilli()
	return r.Entry()
}

// GetOrder returns the history entry recorded for an order id.
func (j *SQLite) GetOrder(orderID string) (HistoryEntry, error) {
	row := j.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE order_id = ?`, orderID)
	e, err := scanHistory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return HistoryEntry{}, fmt.Errorf("order %q not found", orderID)
		}
		return HistoryEntry{}, err
	}
	return e, nil
}

// ListPosition returns the open and close entries of one position.
func (j *SQLite) ListPosition(positionID string) ([]HistoryEntry, error) {
	return j.listHistory(`SELECT `+historyColumns+` FROM history WHERE position_id = ? ORDER BY seq ASC`, positionID)
}

// ListHistoryBetween returns entries whose time is within [start, end) in
// insertion order.
func (j *SQLite) ListHistoryBetween(start, end time.Time) ([]HistoryEntry, error) {
	return j.listHistory(`SELECT `+historyColumns+` FROM history
		WHERE time >= ? AND time < ?
		ORDER BY seq ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) listHistory(query string, args ...any) ([]HistoryEntry, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) ListMarketBetween(symbol string, start, end time.Time) ([]MarketSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, symbol, bid, ask, base_exchange_rate
		FROM market
		WHERE symbol = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, symbol, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarketSnapshot
	for rows.Next() {
		var m MarketSnapshot
		if err := rows.Scan(&m.Time, &m.Symbol, &m.Bid, &m.Ask, &m.BaseExchangeRate); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
