package sim

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/notify"
)

const DefaultName = "papertrader"

// Engine executes orders against a margin account. One mutex guards the
// account, the position table and the in-memory history; notifications
// and the persistent recorder run after it is released.
type Engine struct {
	mu        sync.Mutex
	acct      broker.Account
	positions map[id.PositionID]*broker.Position
	history   journal.History

	recorder journal.Recorder
	bus      notify.Bus
	logger   *slog.Logger
	now      func() time.Time
	name     string

	serial bool
	seq    sequencer
}

type Option func(*Engine)

func WithBus(b notify.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

func WithHistory(h journal.History) Option {
	return func(e *Engine) { e.history = h }
}

func WithRecorder(r journal.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithName sets the sender id attached to every notification.
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// WithSerialPublish makes the order of notifications across calls match the
// order in which the calls mutated the account. Without it only the order
// within one call is fixed. A subscriber must not call Open or Close
// synchronously while this is on; hand events to a notify.Queue instead.
func WithSerialPublish() Option {
	return func(e *Engine) { e.serial = true }
}

func NewEngine(acct broker.Account, opts ...Option) *Engine {
	e := &Engine{
		acct:      acct,
		positions: make(map[id.PositionID]*broker.Position),
		recorder:  journal.Discard,
		bus:       notify.Nop,
		logger:    slog.Default(),
		now:       time.Now,
		name:      DefaultName,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.history == nil {
		e.history = journal.NewMemoryHistory(0)
	}
	e.seq.init()
	return e
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) History() journal.History { return e.history }

func (e *Engine) Account() broker.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct
}

// Position returns a copy of the position, open or closed.
func (e *Engine) Position(pid id.PositionID) (broker.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[pid]
	if !ok {
		return broker.Position{}, false
	}
	return *p, true
}

// Positions returns copies of the open positions, oldest first.
func (e *Engine) Positions() []broker.Position {
	e.mu.Lock()
	out := make([]broker.Position, 0, len(e.positions))
	for _, p := range e.positions {
		if p.IsOpen() {
			out = append(out, *p)
		}
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b broker.Position) int {
		if c := a.CreatedTime.Compare(b.CreatedTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// Open fills order in full at execPrice and opens a new position. The
// account is untouched unless the whole operation succeeds.
func (e *Engine) Open(ctx context.Context, order broker.Order, m market.Market, execPrice float64) (broker.Position, error) {
	if err := ctx.Err(); err != nil {
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}
	if err := order.Validate(); err != nil {
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}
	if err := validateExecution(m, execPrice); err != nil {
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}
	if order.Symbol != m.Symbol {
		return broker.Position{}, fmt.Errorf("open position: %w: order for %s priced on %s",
			broker.ErrInvalidMarketData, order.Symbol, m.Symbol)
	}

	pid, err := id.NewPositionID()
	if err != nil {
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}

	now := e.now()
	if order.ID == "" {
		if order.ID, err = id.New(); err != nil {
			return broker.Position{}, fmt.Errorf("open position: %w", err)
		}
	}
	if order.Type == "" {
		order.Type = broker.OrderMarket
	}
	if order.TimeInForce == "" {
		order.TimeInForce = broker.GoodTillCancelled
	}
	if order.Leverage == 0 {
		order.Leverage = 1
	}
	if order.CreatedTime.IsZero() {
		order.CreatedTime = now
	}
	cost := m.MarginCost(order.Quantity)

	e.mu.Lock()
	if err := checkMargin(e.acct, order.Symbol, cost); err != nil {
		ticket := e.seq.issue(e.serial)
		e.mu.Unlock()

		e.logger.Error("order rejected",
			slog.String("symbol", order.Symbol),
			slog.String("order_id", order.ID),
			slog.Any("error", err))
		e.publish(ticket, notify.OrderRejected{Header: header(order)})
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}

	pos := &broker.Position{
		ID:          pid,
		Symbol:      order.Symbol,
		Direction:   order.Direction,
		Quantity:    order.Quantity,
		EntryPrice:  execPrice,
		Leverage:    order.Leverage,
		StopLoss:    order.StopLoss,
		TakeProfit:  order.TakeProfit,
		CreatedTime: now,
	}
	e.positions[pid] = pos
	e.acct.AddUsedMargin(cost)

	order.PositionID = pid
	order.ExecutedQuantity = order.Quantity
	order.TransactTime = now

	entry := journal.HistoryEntry{
		Order:         order,
		ExecPrice:     execPrice,
		Balance:       e.acct.Balance,
		MarginBalance: e.acct.MarginBalance(),
		Time:          now,
	}
	e.history.Add(entry)
	opened := *pos
	currency := e.acct.Currency
	ticket := e.seq.issue(e.serial)
	e.mu.Unlock()

	e.logger.Debug("position opened",
		slog.String("symbol", opened.Symbol),
		slog.String("position_id", opened.ID.String()),
		slog.String("direction", opened.Direction.String()),
		slog.Float64("quantity", opened.Quantity),
		slog.Float64("exec_price", execPrice),
		slog.Float64("margin", cost))
	e.record(entry)

	h := header(order)
	e.publish(ticket,
		orderOpened(h, order),
		orderTraded(h, order, execPrice, opened.EntryPrice, m.RealizedCost(order.Quantity), currency),
		notify.PositionOpened{Header: h, PositionData: notify.PositionData{
			ID:                 opened.ID,
			Direction:          opened.Direction,
			Timestamp:          order.TransactTime,
			Quantity:           opened.Quantity,
			ExecPrice:          execPrice,
			StopLoss:           opened.StopLoss,
			TakeProfit:         opened.TakeProfit,
			AvgEntryPrice:      opened.EntryPrice,
			ProfitLossCurrency: m.Quote,
		}},
		notify.OrderDeleted{Header: notify.Header{Symbol: order.Symbol}, ID: order.ID},
	)
	return opened, nil
}

// Close fully closes an open position at execPrice with a reduce-only
// order in the opposite direction.
func (e *Engine) Close(ctx context.Context, pid id.PositionID, m market.Market, execPrice float64, orderType broker.OrderType) (broker.Position, error) {
	if err := ctx.Err(); err != nil {
		return broker.Position{}, fmt.Errorf("close position: %w", err)
	}
	if err := validateExecution(m, execPrice); err != nil {
		return broker.Position{}, fmt.Errorf("close position: %w", err)
	}
	if orderType == "" {
		orderType = broker.OrderMarket
	}
	now := e.now()
	orderID, err := id.New()
	if err != nil {
		return broker.Position{}, fmt.Errorf("close position: %w", err)
	}

	e.mu.Lock()
	pos, ok := e.positions[pid]
	if !ok || !pos.IsOpen() {
		e.mu.Unlock()
		return broker.Position{}, fmt.Errorf("close position %s: %w", pid, broker.ErrPositionNotOpen)
	}
	if pos.Symbol != m.Symbol {
		e.mu.Unlock()
		return broker.Position{}, fmt.Errorf("close position %s: %w: position on %s priced on %s",
			pid, broker.ErrInvalidMarketData, pos.Symbol, m.Symbol)
	}

	order := broker.Order{
		ID:               orderID,
		Symbol:           pos.Symbol,
		Direction:        pos.CloseDirection(),
		Type:             orderType,
		Quantity:         pos.Quantity,
		Leverage:         pos.Leverage,
		TimeInForce:      broker.GoodTillCancelled,
		CloseOnly:        true,
		ReduceOnly:       true,
		PositionID:       pid,
		ExecutedQuantity: pos.Quantity,
		CreatedTime:      now,
		TransactTime:     now,
	}
	if orderType == broker.OrderLimit {
		order.Price = execPrice
	}

	r := Realize(m, pos.Direction, pos.EntryPrice, execPrice, pos.Quantity)
	e.acct.AddUsedMargin(-m.MarginCost(pos.Quantity))
	if r.Booked() {
		pos.ProfitLoss = r.GainLoss
		pos.ProfitLossRate = r.GainLossRate
		pos.ProfitLossMarket = r.GainLoss
		pos.ProfitLossMarketRate = r.GainLossRate
		e.acct.AddRealizedProfitLoss(r.GainLossAccount)
	}
	pos.Quantity = 0
	pos.ExitPrice = execPrice
	pos.ClosedTime = now

	entry := journal.HistoryEntry{
		Order:           order,
		ExecPrice:       execPrice,
		Balance:         e.acct.Balance,
		MarginBalance:   e.acct.MarginBalance(),
		PriceDeltaPips:  r.Pips,
		GainLossRate:    r.GainLossRate,
		GainLoss:        r.GainLoss,
		GainLossAccount: r.GainLossAccount,
		Time:            now,
	}
	e.history.Add(entry)
	closed := *pos
	currency := e.acct.Currency
	ticket := e.seq.issue(e.serial)
	e.mu.Unlock()

	e.logger.Debug("position closed",
		slog.String("symbol", closed.Symbol),
		slog.String("position_id", closed.ID.String()),
		slog.Float64("exec_price", execPrice),
		slog.Float64("profit_loss", closed.ProfitLoss))
	e.record(entry)

	h := header(order)
	e.publish(ticket,
		orderOpened(h, order),
		orderTraded(h, order, execPrice, closed.EntryPrice, r.RealizedCost, currency),
		notify.PositionDeleted{Header: h, PositionData: notify.PositionData{
			ID:                 closed.ID,
			Direction:          closed.Direction,
			Timestamp:          order.TransactTime,
			ExecPrice:          execPrice,
			AvgEntryPrice:      closed.EntryPrice,
			AvgExitPrice:       closed.ExitPrice,
			ProfitLoss:         closed.ProfitLoss,
			ProfitLossCurrency: m.Quote,
		}},
		notify.OrderDeleted{Header: notify.Header{Symbol: order.Symbol}, ID: order.ID},
	)
	return closed, nil
}

// record forwards to the persistent recorder. Failures are logged; the
// in-memory history already holds the entry.
func (e *Engine) record(entry journal.HistoryEntry) {
	if err := e.recorder.RecordHistory(entry); err != nil {
		e.logger.Error("record history",
			slog.String("order_id", entry.Order.ID),
			slog.Any("error", err))
	}
}

func (e *Engine) publish(t ticket, events ...notify.Event) {
	e.seq.wait(t)
	defer e.seq.done(t)
	for _, ev := range events {
		e.bus.Notify(e.name, ev)
	}
}

func header(o broker.Order) notify.Header {
	ref := o.RefID
	if ref == "" {
		ref = o.ID
	}
	return notify.Header{Symbol: o.Symbol, RefOrderID: ref}
}

func orderOpened(h notify.Header, o broker.Order) notify.OrderOpened {
	return notify.OrderOpened{
		Header:      h,
		ID:          o.ID,
		Type:        o.Type,
		Direction:   o.Direction,
		Timestamp:   o.CreatedTime,
		Quantity:    o.Quantity,
		Price:       o.Price,
		StopPrice:   o.StopPrice,
		StopLoss:    o.StopLoss,
		TakeProfit:  o.TakeProfit,
		TimeInForce: o.TimeInForce,
	}
}

func orderTraded(h notify.Header, o broker.Order, execPrice, avgPrice, realizedCost float64, currency string) notify.OrderTraded {
	return notify.OrderTraded{
		Header:           h,
		ID:               o.ID,
		Type:             o.Type,
		TradeID:          o.ID,
		Direction:        o.Direction,
		Timestamp:        o.TransactTime,
		Quantity:         o.Quantity,
		Price:            o.Price,
		StopPrice:        o.StopPrice,
		ExecPrice:        execPrice,
		AvgPrice:         avgPrice,
		Filled:           o.ExecutedQuantity,
		CumulativeFilled: o.ExecutedQuantity,
		QuoteTransacted:  realizedCost,
		StopLoss:         o.StopLoss,
		TakeProfit:       o.TakeProfit,
		TimeInForce:      o.TimeInForce,
		CommissionAsset:  currency,
	}
}
