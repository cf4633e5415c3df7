package notify

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/internal/id"
)

// Kind tags each event variant.
type Kind uint8

const (
	KindOrderOpened Kind = iota + 1
	KindOrderTraded
	KindOrderDeleted
	KindOrderRejected
	KindPositionOpened
	KindPositionDeleted
)

var kindNames = map[Kind]string{
	KindOrderOpened:     "order.opened",
	KindOrderTraded:     "order.traded",
	KindOrderDeleted:    "order.deleted",
	KindOrderRejected:   "order.rejected",
	KindPositionOpened:  "position.opened",
	KindPositionDeleted: "position.deleted",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Event is one of the variants below. The set is closed: the kind fully
// determines the payload fields.
type Event interface {
	Kind() Kind
	Head() Header
}

// Header is common to every variant.
type Header struct {
	Symbol     string `json:"symbol"`
	RefOrderID string `json:"ref-order-id,omitempty"`
}

func (h Header) Head() Header { return h }

type OrderOpened struct {
	Header
	ID          string             `json:"id"`
	Type        broker.OrderType   `json:"type"`
	Direction   broker.Direction   `json:"direction"`
	Timestamp   time.Time          `json:"timestamp"`
	Quantity    float64            `json:"quantity"`
	Price       float64            `json:"price"`
	StopPrice   float64            `json:"stop-price"`
	StopLoss    float64            `json:"stop-loss"`
	TakeProfit  float64            `json:"take-profit"`
	TimeInForce broker.TimeInForce `json:"time-in-force"`
}

func (OrderOpened) Kind() Kind { return KindOrderOpened }

type OrderTraded struct {
	Header
	ID               string             `json:"id"`
	Type             broker.OrderType   `json:"type"`
	TradeID          string             `json:"trade-id"`
	Direction        broker.Direction   `json:"direction"`
	Timestamp        time.Time          `json:"timestamp"`
	Quantity         float64            `json:"quantity"`
	Price            float64            `json:"price"`
	StopPrice        float64            `json:"stop-price"`
	ExecPrice        float64            `json:"exec-price"`
	AvgPrice         float64            `json:"avg-price"`
	Filled           float64            `json:"filled"`
	CumulativeFilled float64            `json:"cumulative-filled"`
	QuoteTransacted  float64            `json:"quote-transacted"`
	StopLoss         float64            `json:"stop-loss"`
	TakeProfit       float64            `json:"take-profit"`
	TimeInForce      broker.TimeInForce `json:"time-in-force"`
	CommissionAmount float64            `json:"commission-amount"`
	CommissionAsset  string             `json:"commission-asset"`
}

func (OrderTraded) Kind() Kind { return KindOrderTraded }

// PositionData is the payload shared by position events.
type PositionData struct {
	ID                 id.PositionID    `json:"id"`
	Direction          broker.Direction `json:"direction"`
	Timestamp          time.Time        `json:"timestamp"`
	Quantity           float64          `json:"quantity"`
	ExecPrice          float64          `json:"exec-price"`
	StopLoss           float64          `json:"stop-loss"`
	TakeProfit         float64          `json:"take-profit"`
	AvgEntryPrice      float64          `json:"avg-entry-price"`
	AvgExitPrice       float64          `json:"avg-exit-price,omitempty"`
	ProfitLoss         float64          `json:"profit-loss"`
	ProfitLossCurrency string           `json:"profit-loss-currency"`
}

type PositionOpened struct {
	Header
	PositionData
}

func (PositionOpened) Kind() Kind { return KindPositionOpened }

type PositionDeleted struct {
	Header
	PositionData
}

func (PositionDeleted) Kind() Kind { return KindPositionDeleted }

// OrderDeleted ends an order's life. Reason is empty for a normal fill.
type OrderDeleted struct {
	Header
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (OrderDeleted) Kind() Kind { return KindOrderDeleted }

type OrderRejected struct {
	Header
}

func (OrderRejected) Kind() Kind { return KindOrderRejected }
