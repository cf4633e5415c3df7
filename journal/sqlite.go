package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Engine recorders are called concurrently; one connection keeps
	// sqlite from returning "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordHistory(e HistoryEntry) error {
	r := ToRow(e)
	_, err := j.db.Exec(`
		INSERT INTO history
		(time, order_id, ref_order_id, position_id, symbol, direction, order_type,
		 quantity, executed_quantity, leverage, close_only, exec_price, balance,
		 margin_balance, price_delta_pips, gain_loss_rate, gain_loss, gain_loss_account)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), r.OrderID, r.RefOrderID, r.PositionID, r.Symbol, r.Direction, r.OrderType,
		r.Quantity, r.ExecutedQuantity, r.Leverage, r.CloseOnly, r.ExecPrice, r.Balance,
		r.MarginBalance, r.PriceDeltaPips, r.GainLossRate, r.GainLoss, r.GainLossAccount,
	)
	return err
}

func (j *SQLite) RecordMarket(m MarketSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO market
		(time, symbol, bid, ask, base_exchange_rate)
		VALUES (?, ?, ?, ?, ?)`,
		m.Time.UTC(), m.Symbol, m.Bid, m.Ask, m.BaseExchangeRate,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
