package broker

import (
	"context"

	"github.com/rustyeddy/papertrader/internal/id"
)

// Broker is what a strategy talks to. The paper trader in package sim is
// the only implementation here; live connectors are out of scope.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	OpenMarket(ctx context.Context, order Order) (Position, error)
	ClosePosition(ctx context.Context, positionID id.PositionID, orderType OrderType) (Position, error)
}
