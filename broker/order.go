package broker

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/papertrader/internal/id"
)

type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Opposite is the direction of the order that closes d.
func (d Direction) Opposite() Direction {
	return -d
}

// ParseDirection accepts long/short and buy/sell in any case.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "LONG", "long", "Long", "BUY", "buy":
		return Long, nil
	case "SHORT", "short", "Short", "SELL", "sell":
		return Short, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidOrder, s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

type OrderType string

const (
	OrderMarket          OrderType = "MARKET"
	OrderLimit           OrderType = "LIMIT"
	OrderStop            OrderType = "STOP"
	OrderStopLimit       OrderType = "STOP_LIMIT"
	OrderTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

type TimeInForce string

const (
	GoodTillCancelled TimeInForce = "GTC"
	ImmediateOrCancel TimeInForce = "IOC"
	FillOrKill        TimeInForce = "FOK"
)

// Order is an intent to change a position. The engine owns it for the
// duration of an Open or Close call and fills in the execution fields.
type Order struct {
	ID          string
	RefID       string // caller supplied reference, echoed in events
	Symbol      string
	Direction   Direction
	Type        OrderType
	Quantity    float64
	Price       float64
	StopPrice   float64
	StopLoss    float64
	TakeProfit  float64
	Leverage    float64
	TimeInForce TimeInForce
	CloseOnly   bool
	ReduceOnly  bool

	// Execution bookkeeping
	PositionID       id.PositionID
	ExecutedQuantity float64
	CreatedTime      time.Time
	TransactTime     time.Time
}

// Validate rejects orders the engine cannot execute. It does not look at
// the account.
func (o Order) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if !o.Direction.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidOrder, o.Direction)
	}
	if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) || o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidOrder, o.Quantity)
	}
	if math.IsNaN(o.Leverage) || o.Leverage < 0 {
		return fmt.Errorf("%w: leverage must not be negative, got %v", ErrInvalidOrder, o.Leverage)
	}
	return nil
}

// FullyExecuted reports whether the paper engine filled the order.
func (o Order) FullyExecuted() bool {
	return o.ExecutedQuantity > 0 && o.ExecutedQuantity == o.Quantity
}
