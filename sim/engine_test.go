package sim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/notify"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// eurusd is a one-unit EUR/USD market: 10 USD per pip, 1% margin.
func eurusd() market.Market {
	return market.Market{
		Symbol:           "EUR_USD",
		Base:             "EUR",
		Quote:            "USD",
		LotSize:          1,
		ContractSize:     1,
		MarginFactor:     0.01,
		BaseExchangeRate: 1,
		OnePipMeans:      0.0001,
		ValuePerPip:      10,
		Precision:        5,
	}
}

// unitMarket locks exactly one unit of margin per unit of quantity.
func unitMarket() market.Market {
	m := eurusd()
	m.MarginFactor = 1
	return m
}

func stepClock() func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return t0.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newEngine(t *testing.T, balance float64, opts ...Option) (*Engine, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	acct := broker.Account{ID: "acct-1", Currency: "USD", Balance: balance}
	opts = append([]Option{WithBus(rec), WithClock(stepClock())}, opts...)
	return NewEngine(acct, opts...), rec
}

func longOrder(qty float64) broker.Order {
	return broker.Order{Symbol: "EUR_USD", Direction: broker.Long, Quantity: qty}
}

func TestWorkedExample(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()

	pos, err := e.Open(ctx, longOrder(1), eurusd(), 1.2000)
	require.NoError(t, err)
	assert.True(t, pos.IsOpen())
	assert.Equal(t, 1.2000, pos.EntryPrice)
	assert.Equal(t, 1.0, pos.Leverage)

	acct := e.Account()
	assert.InDelta(t, 0.01, acct.UsedMargin, 1e-12)
	assert.Equal(t, 10000.0, acct.Balance)

	closed, err := e.Close(ctx, pos.ID, eurusd(), 1.2050, broker.OrderMarket)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, 1.2050, closed.ExitPrice)
	assert.InDelta(t, 500, closed.ProfitLoss, 1e-6)
	assert.InDelta(t, 500, closed.ProfitLossMarket, 1e-6)
	assert.InDelta(t, 500, closed.ProfitLossRate, 1e-6)
	assert.Equal(t, closed.ProfitLossRate, closed.ProfitLossMarketRate)

	acct = e.Account()
	assert.InDelta(t, 10500, acct.Balance, 1e-6)
	assert.InDelta(t, 500, acct.ProfitLoss, 1e-6)
	assert.InDelta(t, 0, acct.UsedMargin, 1e-12)
	assert.Empty(t, e.Positions())
}

func TestUSDJPYConvertsToAccountCurrency(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()
	m := market.Instruments["USD_JPY"]

	pos, err := e.Open(ctx, broker.Order{Symbol: "USD_JPY", Direction: broker.Long, Quantity: 1}, m, 150.00)
	require.NoError(t, err)
	assert.InDelta(t, 10000*0.02/150, e.Account().UsedMargin, 1e-9)

	closed, err := e.Close(ctx, pos.ID, m, 150.50, broker.OrderMarket)
	require.NoError(t, err)
	assert.InDelta(t, 5000, closed.ProfitLoss, 1e-6)
	assert.InDelta(t, 10000+5000.0/150, e.Account().Balance, 1e-6)
}

func TestProfitLossSign(t *testing.T) {
	tests := []struct {
		name      string
		direction broker.Direction
		entry     float64
		exit      float64
		want      float64
	}{
		{"long up", broker.Long, 1.2000, 1.2010, 100},
		{"long down", broker.Long, 1.2000, 1.1990, -100},
		{"short down", broker.Short, 1.2000, 1.1990, 100},
		{"short up", broker.Short, 1.2000, 1.2010, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, 10000)
			ctx := context.Background()

			order := longOrder(1)
			order.Direction = tt.direction
			pos, err := e.Open(ctx, order, eurusd(), tt.entry)
			require.NoError(t, err)

			closed, err := e.Close(ctx, pos.ID, eurusd(), tt.exit, broker.OrderMarket)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, closed.ProfitLoss, 1e-6)
			assert.InDelta(t, 10000+tt.want, e.Account().Balance, 1e-6)
		})
	}
}

func TestFlatCloseBooksNothing(t *testing.T) {
	e, rec := newEngine(t, 10000)
	ctx := context.Background()

	pos, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
	require.NoError(t, err)
	closed, err := e.Close(ctx, pos.ID, eurusd(), 1.2, broker.OrderMarket)
	require.NoError(t, err)

	assert.Zero(t, closed.ProfitLoss)
	assert.Zero(t, closed.ProfitLossRate)
	assert.Equal(t, 10000.0, e.Account().Balance)
	assert.Len(t, rec.Events(), 8)
}

func TestMarginConservation(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()
	m := eurusd()

	var ids []id.PositionID
	for _, qty := range []float64{1, 2, 4, 8} {
		pos, err := e.Open(ctx, longOrder(qty), m, 1.2)
		require.NoError(t, err)
		ids = append(ids, pos.ID)
	}
	assert.InDelta(t, m.MarginCost(15), e.Account().UsedMargin, 1e-12)

	for _, pid := range ids {
		_, err := e.Close(ctx, pid, m, 1.2, broker.OrderMarket)
		require.NoError(t, err)
	}
	acct := e.Account()
	assert.InDelta(t, 0, acct.UsedMargin, 1e-12)
	assert.Equal(t, acct.Balance, acct.MarginBalance())
}

func TestOpenRejectedLeavesNoTrace(t *testing.T) {
	e, rec := newEngine(t, 0.5)
	before := e.Account()

	order := longOrder(1)
	order.RefID = "strategy-7"
	_, err := e.Open(context.Background(), order, unitMarket(), 1.2)

	require.Error(t, err)
	assert.True(t, errors.Is(err, broker.ErrInsufficientMargin))
	var merr *broker.MarginError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 1.0, merr.Need)
	assert.Equal(t, 0.5, merr.Have)

	assert.Equal(t, before, e.Account())
	assert.Empty(t, e.Positions())
	assert.Zero(t, e.History().Len())

	events := rec.Events()
	require.Len(t, events, 1)
	rej, ok := events[0].(notify.OrderRejected)
	require.True(t, ok)
	assert.Equal(t, "EUR_USD", rej.Symbol)
	assert.Equal(t, "strategy-7", rej.RefOrderID)
}

func TestRejectionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e, _ := newEngine(t, 0, WithLogger(logger))

	_, err := e.Open(context.Background(), longOrder(1), unitMarket(), 1.2)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "order rejected")
}

func TestExactMarginIsEnough(t *testing.T) {
	e, _ := newEngine(t, 2)
	_, err := e.Open(context.Background(), longOrder(2), unitMarket(), 1.2)
	require.NoError(t, err)
	assert.Zero(t, e.Account().MarginBalance())
}

func TestDoubleClose(t *testing.T) {
	e, rec := newEngine(t, 10000)
	ctx := context.Background()

	pos, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
	require.NoError(t, err)
	_, err = e.Close(ctx, pos.ID, eurusd(), 1.21, broker.OrderMarket)
	require.NoError(t, err)

	after := e.Account()
	n := len(rec.Events())

	_, err = e.Close(ctx, pos.ID, eurusd(), 1.3, broker.OrderMarket)
	assert.ErrorIs(t, err, broker.ErrPositionNotOpen)
	assert.Equal(t, after, e.Account())
	assert.Len(t, rec.Events(), n)
	assert.Equal(t, 2, e.History().Len())

	p, ok := e.Position(pos.ID)
	require.True(t, ok)
	assert.Zero(t, p.Quantity)
}

func TestCloseUnknownPosition(t *testing.T) {
	e, rec := newEngine(t, 10000)
	pid, err := id.NewPositionID()
	require.NoError(t, err)

	_, err = e.Close(context.Background(), pid, eurusd(), 1.2, broker.OrderMarket)
	assert.ErrorIs(t, err, broker.ErrPositionNotOpen)
	assert.Empty(t, rec.Events())
}

func TestEventOrder(t *testing.T) {
	e, rec := newEngine(t, 10000, WithName("paper-1"))
	ctx := context.Background()

	order := longOrder(1)
	order.RefID = "ref-1"
	order.StopLoss = 1.19
	pos, err := e.Open(ctx, order, eurusd(), 1.2)
	require.NoError(t, err)
	assert.Equal(t, []notify.Kind{
		notify.KindOrderOpened,
		notify.KindOrderTraded,
		notify.KindPositionOpened,
		notify.KindOrderDeleted,
	}, rec.Kinds())

	for _, r := range rec.Records() {
		assert.Equal(t, "paper-1", r.Sender)
		assert.Equal(t, "EUR_USD", r.Event.Head().Symbol)
	}
	events := rec.Events()
	assert.Equal(t, "ref-1", events[0].Head().RefOrderID)
	opened := events[2].(notify.PositionOpened)
	assert.Equal(t, pos.ID, opened.ID)
	assert.Equal(t, 1.19, opened.StopLoss)
	assert.Equal(t, "USD", opened.ProfitLossCurrency)
	traded := events[1].(notify.OrderTraded)
	assert.Equal(t, 1.0, traded.Filled)
	assert.Equal(t, 1.0, traded.QuoteTransacted)
	assert.Equal(t, "USD", traded.CommissionAsset)
	openDone := events[3].(notify.OrderDeleted)
	assert.NotEmpty(t, openDone.ID)
	assert.Equal(t, traded.ID, openDone.ID)
	assert.Empty(t, openDone.Reason)

	rec.Reset()
	_, err = e.Close(ctx, pos.ID, eurusd(), 1.21, broker.OrderMarket)
	require.NoError(t, err)
	assert.Equal(t, []notify.Kind{
		notify.KindOrderOpened,
		notify.KindOrderTraded,
		notify.KindPositionDeleted,
		notify.KindOrderDeleted,
	}, rec.Kinds())

	deleted := rec.Events()[2].(notify.PositionDeleted)
	assert.Zero(t, deleted.Quantity)
	assert.Equal(t, 1.21, deleted.AvgExitPrice)
	assert.Equal(t, 1.2, deleted.AvgEntryPrice)
	assert.InDelta(t, 1000, deleted.ProfitLoss, 1e-6)
	closeOpened := rec.Events()[0].(notify.OrderOpened)
	assert.Equal(t, broker.Short, closeOpened.Direction)
	closeDone := rec.Events()[3].(notify.OrderDeleted)
	assert.Equal(t, closeOpened.ID, closeDone.ID)
	assert.Empty(t, closeDone.Reason)
}

func TestCloseOrder(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()

	order := longOrder(3)
	order.Leverage = 20
	pos, err := e.Open(ctx, order, eurusd(), 1.2)
	require.NoError(t, err)
	_, err = e.Close(ctx, pos.ID, eurusd(), 1.19, broker.OrderLimit)
	require.NoError(t, err)

	var entries []journal.HistoryEntry
	for entry := range e.History().Entries() {
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)

	open, cls := entries[0], entries[1]
	assert.False(t, open.IsClose())
	assert.Equal(t, pos.ID, open.Order.PositionID)
	assert.Equal(t, 3.0, open.Order.ExecutedQuantity)
	assert.False(t, open.Order.TransactTime.IsZero())

	assert.True(t, cls.IsClose())
	assert.True(t, cls.Order.ReduceOnly)
	assert.Equal(t, broker.Short, cls.Order.Direction)
	assert.Equal(t, 3.0, cls.Order.Quantity)
	assert.Equal(t, 20.0, cls.Order.Leverage)
	assert.Equal(t, broker.OrderLimit, cls.Order.Type)
	assert.Equal(t, 1.19, cls.Order.Price)
	assert.InDelta(t, -100, cls.PriceDeltaPips, 1e-9)
	assert.InDelta(t, -3000, cls.GainLoss, 1e-6)
	assert.InDelta(t, -3000, cls.GainLossAccount, 1e-6)
	assert.InDelta(t, -1000, cls.GainLossRate, 1e-6)
	assert.InDelta(t, 7000, cls.Balance, 1e-6)
	assert.True(t, cls.Time.After(open.Time))
}

func TestMarketCloseHasNoPrice(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()

	pos, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
	require.NoError(t, err)
	_, err = e.Close(ctx, pos.ID, eurusd(), 1.21, "")
	require.NoError(t, err)

	var last journal.HistoryEntry
	for entry := range e.History().Entries() {
		last = entry
	}
	assert.Equal(t, broker.OrderMarket, last.Order.Type)
	assert.Zero(t, last.Order.Price)
}

func TestInvalidOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*broker.Order)
	}{
		{"no symbol", func(o *broker.Order) { o.Symbol = "" }},
		{"no direction", func(o *broker.Order) { o.Direction = 0 }},
		{"zero quantity", func(o *broker.Order) { o.Quantity = 0 }},
		{"negative quantity", func(o *broker.Order) { o.Quantity = -1 }},
		{"nan quantity", func(o *broker.Order) { o.Quantity = math.NaN() }},
		{"negative leverage", func(o *broker.Order) { o.Leverage = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newEngine(t, 10000)
			order := longOrder(1)
			tt.mutate(&order)

			_, err := e.Open(context.Background(), order, eurusd(), 1.2)
			assert.ErrorIs(t, err, broker.ErrInvalidOrder)
			assert.Empty(t, rec.Events())
			assert.Equal(t, 10000.0, e.Account().Balance)
			assert.Zero(t, e.History().Len())
		})
	}
}

func TestInvalidMarketData(t *testing.T) {
	tests := []struct {
		name  string
		m     func() market.Market
		price float64
	}{
		{"zero exchange rate", func() market.Market { m := eurusd(); m.BaseExchangeRate = 0; return m }, 1.2},
		{"zero pip size", func() market.Market { m := eurusd(); m.OnePipMeans = 0; return m }, 1.2},
		{"nan margin factor", func() market.Market { m := eurusd(); m.MarginFactor = math.NaN(); return m }, 1.2},
		{"other symbol", func() market.Market { m := eurusd(); m.Symbol = "GBP_USD"; return m }, 1.2},
		{"zero price", eurusd, 0},
		{"inf price", eurusd, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newEngine(t, 10000)
			_, err := e.Open(context.Background(), longOrder(1), tt.m(), tt.price)
			assert.ErrorIs(t, err, broker.ErrInvalidMarketData)
			assert.Empty(t, rec.Events())
			assert.Empty(t, e.Positions())
		})
	}

	t.Run("close", func(t *testing.T) {
		e, _ := newEngine(t, 10000)
		pos, err := e.Open(context.Background(), longOrder(1), eurusd(), 1.2)
		require.NoError(t, err)

		_, err = e.Close(context.Background(), pos.ID, eurusd(), math.NaN(), broker.OrderMarket)
		assert.ErrorIs(t, err, broker.ErrInvalidMarketData)
		p, _ := e.Position(pos.ID)
		assert.True(t, p.IsOpen())
	})
}

func TestCancelledContext(t *testing.T) {
	e, rec := newEngine(t, 10000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Events())
}

type failingRecorder struct {
	journal.Recorder
}

func (failingRecorder) RecordHistory(journal.HistoryEntry) error {
	return errors.New("disk full")
}

func TestRecorderFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e, rec := newEngine(t, 10000, WithLogger(logger), WithRecorder(failingRecorder{journal.Discard}))

	_, err := e.Open(context.Background(), longOrder(1), eurusd(), 1.2)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "disk full")
	assert.Equal(t, 1, e.History().Len())
	assert.Len(t, rec.Events(), 4)
}

func TestPositionsSnapshot(t *testing.T) {
	e, _ := newEngine(t, 10000)
	ctx := context.Background()

	a, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
	require.NoError(t, err)
	b, err := e.Open(ctx, longOrder(2), eurusd(), 1.3)
	require.NoError(t, err)

	open := e.Positions()
	require.Len(t, open, 2)
	assert.Equal(t, a.ID, open[0].ID)
	assert.Equal(t, b.ID, open[1].ID)

	open[0].Quantity = 99
	p, _ := e.Position(a.ID)
	assert.Equal(t, 1.0, p.Quantity)
}

func TestConcurrentOpensRespectMargin(t *testing.T) {
	const (
		budget  = 8
		callers = 32
	)
	e, rec := newEngine(t, budget)
	ctx := context.Background()

	var ok, rejected atomic.Int64
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := e.Open(ctx, longOrder(1), unitMarket(), 1.2)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, broker.ErrInsufficientMargin):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(budget), ok.Load())
	assert.Equal(t, int64(callers-budget), rejected.Load())

	acct := e.Account()
	assert.Equal(t, float64(budget), acct.UsedMargin)
	assert.Zero(t, acct.MarginBalance())
	assert.Len(t, e.Positions(), budget)
	assert.Equal(t, budget, e.History().Len())
	assert.Len(t, rec.Events(), budget*4+(callers-budget))
}

func TestConcurrentOpenClose(t *testing.T) {
	e, _ := newEngine(t, 1024)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			for j := 0; j < 8; j++ {
				pos, err := e.Open(ctx, longOrder(1), unitMarket(), 1.2)
				if err != nil {
					return err
				}
				if _, err := e.Close(ctx, pos.ID, unitMarket(), 1.2001, broker.OrderMarket); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	acct := e.Account()
	assert.InDelta(t, 0, acct.UsedMargin, 1e-9)
	assert.InDelta(t, 1024+128*10.0, acct.Balance, 1e-6)
	assert.Equal(t, 256, e.History().Len())
}

// orderBus records the order id of every OrderOpened, in arrival order.
type orderBus struct {
	mu  sync.Mutex
	ids []string
	all []notify.Event
}

func (b *orderBus) Notify(_ string, ev notify.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, ev)
	if o, ok := ev.(notify.OrderOpened); ok {
		b.ids = append(b.ids, o.ID)
	}
}

func TestSerialPublishMatchesMutationOrder(t *testing.T) {
	bus := &orderBus{}
	e := NewEngine(broker.Account{Currency: "USD", Balance: 1 << 20},
		WithBus(bus), WithSerialPublish())
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			for j := 0; j < 16; j++ {
				pos, err := e.Open(ctx, longOrder(1), unitMarket(), 1.2)
				if err != nil {
					return err
				}
				if _, err := e.Close(ctx, pos.ID, unitMarket(), 1.2, broker.OrderMarket); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var historyIDs []string
	for entry := range e.History().Entries() {
		historyIDs = append(historyIDs, entry.Order.ID)
	}
	assert.Equal(t, historyIDs, bus.ids)

	// Every call's four events stay contiguous.
	require.Len(t, bus.all, 512*4)
	for i := 0; i < len(bus.all); i += 4 {
		oid := bus.all[i].(notify.OrderOpened).ID
		assert.Equal(t, oid, bus.all[i+1].(notify.OrderTraded).ID)
		assert.Equal(t, oid, bus.all[i+3].(notify.OrderDeleted).ID)
	}
}

func TestBoundedHistory(t *testing.T) {
	h := journal.NewMemoryHistory(2)
	e, _ := newEngine(t, 10000, WithHistory(h))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.Open(ctx, longOrder(1), eurusd(), 1.2)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, e.History().Len())
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestDefaults(t *testing.T) {
	e := NewEngine(broker.Account{Balance: 1})
	assert.Equal(t, DefaultName, e.Name())
	assert.NotNil(t, e.History())
	assert.Zero(t, e.History().Len())
}
