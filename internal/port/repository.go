package port

import (
	"context"
	"errors"

	"github.com/tradepulse/engine/internal/domain"
)

// ErrNotFound is returned when an order, trade or quote does not exist.
// The core treats it as "no action this cycle", never as a failure.
var ErrNotFound = errors.New("not found")

// OrderStore persists orders and owns the conditional state transition the
// matching core relies on for at-most-once settlement.
type OrderStore interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	OrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	OrdersByOwner(ctx context.Context, ownerID string, kind domain.OrderKind) ([]*domain.Order, error)
	ActiveOrders(ctx context.Context, kind domain.OrderKind) ([]*domain.Order, error)
	ActiveOrdersByInstrument(ctx context.Context, instrument string) ([]*domain.Order, error)

	// TryTransition atomically moves the order from `from` to `to` and
	// reports whether this caller won the transition. A false result with a
	// nil error means another caller already moved the order — a normal
	// outcome, not a failure.
	TryTransition(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)
}

// TradeLedger is the append-only record of settled trades.
type TradeLedger interface {
	AppendTrade(ctx context.Context, t *domain.Trade) error
	TradesByOwner(ctx context.Context, ownerID string) ([]*domain.Trade, error)
}
