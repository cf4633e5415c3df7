// journal/csv.go
package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	historyHeader = []string{"time", "order_id", "ref_order_id", "position_id", "symbol", "direction", "order_type", "quantity", "executed_quantity", "leverage", "close_only", "exec_price", "balance", "margin_balance", "price_delta_pips", "gain_loss_rate", "gain_loss", "gain_loss_account"}
	marketHeader  = []string{"time", "symbol", "bid", "ask", "base_exchange_rate"}
)

type CSVJournal struct {
	mu      sync.Mutex
	history *csv.Writer
	market  *csv.Writer
	hf, mf  io.Closer
}

func NewCSV(historyPath, marketPath string) (*CSVJournal, error) {
	hf, err := os.Create(historyPath)
	if err != nil {
		return nil, err
	}
	mf, err := os.Create(marketPath)
	if err != nil {
		hf.Close()
		return nil, err
	}
	return newCSVJournal(hf, mf)
}

// newCSVJournal writes both headers. Both files are closed if that fails.
func newCSVJournal(hf, mf io.WriteCloser) (*CSVJournal, error) {
	j := &CSVJournal{history: csv.NewWriter(hf), market: csv.NewWriter(mf), hf: hf, mf: mf}
	if err := j.writeHeaders(); err != nil {
		return nil, errors.Join(fmt.Errorf("csv journal headers: %w", err), hf.Close(), mf.Close())
	}
	return j, nil
}

func (j *CSVJournal) writeHeaders() error {
	if err := j.history.Write(historyHeader); err != nil {
		return err
	}
	if err := j.market.Write(marketHeader); err != nil {
		return err
	}
	j.history.Flush()
	if err := j.history.Error(); err != nil {
		return err
	}
	j.market.Flush()
	return j.market.Error()
}

func (j *CSVJournal) RecordHistory(e HistoryEntry) error {
	r := ToRow(e)

	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.history.Write([]string{
		e.Time.UTC().Format(time.RFC3339Nano),
		r.OrderID,
		r.RefOrderID,
		r.PositionID,
		r.Symbol,
		r.Direction,
		r.OrderType,
		f(r.Quantity),
		f(r.ExecutedQuantity),
		f(r.Leverage),
		strconv.FormatBool(r.CloseOnly),
		f(r.ExecPrice),
		f(r.Balance),
		f(r.MarginBalance),
		f(r.PriceDeltaPips),
		f(r.GainLossRate),
		f(r.GainLoss),
		f(r.GainLossAccount),
	})
	if err != nil {
		return err
	}
	j.history.Flush()
	return j.history.Error()
}

func (j *CSVJournal) RecordMarket(m MarketSnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.market.Write([]string{
		m.Time.UTC().Format(time.RFC3339Nano),
		m.Symbol,
		f(m.Bid),
		f(m.Ask),
		f(m.BaseExchangeRate),
	})
	if err != nil {
		return err
	}

	j.market.Flush()
	return j.market.Error()
}

// Close flushes both writers and closes both files, even when a flush
// fails.
func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.history.Flush()
	j.market.Flush()
	return errors.Join(j.history.Error(), j.market.Error(), j.hf.Close(), j.mf.Close())
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
