package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
)

// Trader drives an Engine from market data. It keeps the latest tick per
// symbol, prices market orders off it and closes positions whose
// stop-loss or take-profit is crossed.
type Trader struct {
	engine  *Engine
	markets *market.Registry
	ticks   *market.TickStore
}

var _ broker.Broker = (*Trader)(nil)

func NewTrader(e *Engine, markets *market.Registry) *Trader {
	return &Trader{
		engine:  e,
		markets: markets,
		ticks:   market.NewTickStore(),
	}
}

func (t *Trader) Engine() *Engine { return t.engine }

func (t *Trader) Ticks() *market.TickStore { return t.ticks }

func (t *Trader) GetAccount(ctx context.Context) (broker.Account, error) {
	if err := ctx.Err(); err != nil {
		return broker.Account{}, err
	}
	return t.engine.Account(), nil
}

// UpdatePrice stores tick, refreshes the symbol's exchange rate and closes
// triggered positions. Longs are marked on the bid and shorts on the ask.
// It returns the positions it closed. A failed close does not stop the
// remaining ones; the failures are returned joined.
func (t *Trader) UpdatePrice(ctx context.Context, tick market.Tick) ([]broker.Position, error) {
	if err := validateTick(tick); err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}
	m, err := t.markets.Market(tick.Symbol)
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}
	t.ticks.Set(tick)

	log := t.engine.logger
	rate, err := market.ExchangeRate(ctx, m, t.engine.Account().Currency, t.ticks)
	switch {
	case err != nil:
		log.Debug("keeping static exchange rate", slog.String("symbol", m.Symbol), slog.Any("error", err))
	case rate != m.BaseExchangeRate:
		if err := t.markets.SetBaseExchangeRate(m.Symbol, rate); err != nil {
			log.Warn("set exchange rate", slog.String("symbol", m.Symbol), slog.Any("error", err))
		} else {
			m.BaseExchangeRate = rate
		}
	}

	snap := journal.MarketSnapshot{
		Symbol:           tick.Symbol,
		Time:             tick.Time,
		Bid:              tick.Bid,
		Ask:              tick.Ask,
		BaseExchangeRate: m.BaseExchangeRate,
	}
	if err := t.engine.recorder.RecordMarket(snap); err != nil {
		log.Error("record market", slog.String("symbol", tick.Symbol), slog.Any("error", err))
	}

	var (
		closed []broker.Position
		errs   []error
	)
	for _, p := range t.engine.Positions() {
		if p.Symbol != tick.Symbol {
			continue
		}
		c, ok, err := t.closeTriggered(ctx, p, m, tick)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("update price: %w", err))
		case ok:
			closed = append(closed, c)
		}
	}
	return closed, errors.Join(errs...)
}

// closeTriggered closes p if tick crosses one of its triggers. A position
// closed by someone else in the meantime is not an error.
func (t *Trader) closeTriggered(ctx context.Context, p broker.Position, m market.Market, tick market.Tick) (broker.Position, bool, error) {
	mark := m.CloseExecPrice(p.Direction, tick)
	orderType, hit := triggered(p, mark)
	if !hit {
		return broker.Position{}, false, nil
	}

	c, err := t.engine.Close(ctx, p.ID, m, mark, orderType)
	if errors.Is(err, broker.ErrPositionNotOpen) {
		return broker.Position{}, false, nil
	}
	if err != nil {
		return broker.Position{}, false, err
	}
	t.engine.logger.Info("position triggered",
		slog.String("symbol", c.Symbol),
		slog.String("position_id", c.ID.String()),
		slog.String("type", string(orderType)),
		slog.Float64("exec_price", mark))
	return c, true, nil
}

// OpenMarket fills order at the current quote: longs on the ask, shorts on
// the bid.
func (t *Trader) OpenMarket(ctx context.Context, order broker.Order) (broker.Position, error) {
	m, tick, err := t.quote(order.Symbol)
	if err != nil {
		return broker.Position{}, fmt.Errorf("open market: %w", err)
	}
	if order.Type == "" {
		order.Type = broker.OrderMarket
	}
	return t.engine.Open(ctx, order, m, m.OpenExecPrice(order.Direction, tick))
}

func (t *Trader) ClosePosition(ctx context.Context, pid id.PositionID, orderType broker.OrderType) (broker.Position, error) {
	p, ok := t.engine.Position(pid)
	if !ok || !p.IsOpen() {
		return broker.Position{}, fmt.Errorf("close position %s: %w", pid, broker.ErrPositionNotOpen)
	}
	m, tick, err := t.quote(p.Symbol)
	if err != nil {
		return broker.Position{}, fmt.Errorf("close position %s: %w", pid, err)
	}
	return t.engine.Close(ctx, pid, m, m.CloseExecPrice(p.Direction, tick), orderType)
}

// CloseAll closes every open position at market. It keeps going past
// failures and returns them joined.
func (t *Trader) CloseAll(ctx context.Context) ([]broker.Position, error) {
	var (
		closed []broker.Position
		errs   []error
	)
	for _, p := range t.engine.Positions() {
		c, err := t.ClosePosition(ctx, p.ID, broker.OrderMarket)
		switch {
		case errors.Is(err, broker.ErrPositionNotOpen):
		case err != nil:
			errs = append(errs, err)
		default:
			closed = append(closed, c)
		}
	}
	return closed, errors.Join(errs...)
}

func (t *Trader) quote(symbol string) (market.Market, market.Tick, error) {
	m, err := t.markets.Market(symbol)
	if err != nil {
		return market.Market{}, market.Tick{}, err
	}
	tick, err := t.ticks.Get(symbol)
	if err != nil {
		return market.Market{}, market.Tick{}, fmt.Errorf("%w: %v", broker.ErrInvalidMarketData, err)
	}
	return m, tick, nil
}

func validateTick(tick market.Tick) error {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 }
	if tick.Symbol == "" || bad(tick.Bid) || bad(tick.Ask) || tick.Ask < tick.Bid {
		return fmt.Errorf("%w: tick %s bid=%v ask=%v", broker.ErrInvalidMarketData, tick.Symbol, tick.Bid, tick.Ask)
	}
	return nil
}
