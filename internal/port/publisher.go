package port

import (
	"context"

	"github.com/tradepulse/engine/internal/domain"
)

// TradePublisher pushes settled trades to downstream consumers. Publishing
// is best-effort: a failed publish never rolls back settlement.
type TradePublisher interface {
	PublishTrade(ctx context.Context, t *domain.Trade) error
	Close() error
}
