package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/risk"
)

// pacer waits between price steps. A nil pacer runs the steps back to back
// on simulated time.
type pacer func(ctx context.Context, d time.Duration) error

func sleepPacer(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// simulate opens the configured order on the first tick, walks the price
// steps and closes whatever is still open at the end.
func (s *session) simulate(ctx context.Context, out io.Writer, start time.Time, pace pacer) (journal.Report, error) {
	sc := s.cfg.Simulation
	m, err := s.markets.Market(sc.Symbol)
	if err != nil {
		return journal.Report{}, err
	}

	first := market.Tick{Symbol: sc.Symbol, Time: start, Bid: sc.InitialBid, Ask: sc.InitialAsk}
	if _, err := s.trader.UpdatePrice(ctx, first); err != nil {
		return journal.Report{}, err
	}

	order, err := s.buildOrder(m, first)
	if err != nil {
		return journal.Report{}, err
	}
	pos, err := s.trader.OpenMarket(ctx, order)
	if err != nil {
		return journal.Report{}, fmt.Errorf("open: %w", err)
	}
	fmt.Fprintln(out, renderOpen(m, pos))

	now := start
	for i, step := range sc.PriceSteps {
		delay, err := step.ParseDuration()
		if err != nil {
			return journal.Report{}, fmt.Errorf("invalid delay in step %d: %w", i, err)
		}
		if pace != nil {
			if err := pace(ctx, delay); err != nil {
				return journal.Report{}, err
			}
		}
		now = now.Add(delay)

		closed, err := s.trader.UpdatePrice(ctx, market.Tick{Symbol: sc.Symbol, Time: now, Bid: step.Bid, Ask: step.Ask})
		if err != nil {
			return journal.Report{}, err
		}
		fmt.Fprintln(out, renderStep(m, step.Bid, step.Ask, now))
		for _, c := range closed {
			fmt.Fprintln(out, renderClose(m, c))
		}
	}

	closed, err := s.trader.CloseAll(ctx)
	for _, c := range closed {
		fmt.Fprintln(out, renderClose(m, c))
	}
	if err != nil {
		return journal.Report{}, fmt.Errorf("close all: %w", err)
	}

	if path := s.cfg.Journal.ParquetFile; path != "" {
		if err := journal.WriteParquet(path, s.engine.History().Entries()); err != nil {
			return journal.Report{}, err
		}
		s.logger.Info("history exported", "path", path)
	}

	return journal.Summarize(s.engine.History().Entries()), nil
}

// buildOrder turns the configured pip distances into stop-loss and
// take-profit prices around the expected fill.
func (s *session) buildOrder(m market.Market, t market.Tick) (broker.Order, error) {
	oc := s.cfg.Simulation.Order
	dir, err := oc.ParseDirection()
	if err != nil {
		return broker.Order{}, err
	}

	entry := m.OpenExecPrice(dir, t)
	order := broker.Order{
		Symbol:    m.Symbol,
		Direction: dir,
		Type:      broker.OrderMarket,
		Quantity:  oc.Quantity,
		Leverage:  oc.Leverage,
	}
	sign := float64(dir)
	if oc.StopPips > 0 {
		order.StopLoss = m.RoundPrice(entry - sign*oc.StopPips*m.OnePipMeans)
	}
	if oc.TargetPips > 0 {
		order.TakeProfit = m.RoundPrice(entry + sign*oc.TargetPips*m.OnePipMeans)
	}

	if oc.RiskPct > 0 {
		sz, err := risk.Size(m, s.engine.Account().MarginBalance(), oc.RiskPct, entry, order.StopLoss)
		if err != nil {
			return broker.Order{}, err
		}
		if sz.Quantity <= 0 {
			return broker.Order{}, fmt.Errorf("risk %.2f%% is below one hundredth of a lot", 100*oc.RiskPct)
		}
		order.Quantity = sz.Quantity
		s.logger.Info("order sized",
			"symbol", m.Symbol,
			"quantity", sz.Quantity,
			"stop_pips", sz.StopPips,
			"risk", sz.RiskAmount,
			"rr", risk.RR(entry, order.StopLoss, order.TakeProfit))
	}
	return order, nil
}
