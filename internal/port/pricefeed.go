package port

import (
	"context"

	"github.com/tradepulse/engine/internal/domain"
)

// PriceFeed exposes the latest quote per instrument. An out-of-band ingester
// writes quotes; the core only reads them.
type PriceFeed interface {
	Quote(ctx context.Context, instrument string) (*domain.Quote, error)
	SetQuote(ctx context.Context, q *domain.Quote) error
	InstrumentsByExchange(ctx context.Context, exchange domain.Exchange) ([]string, error)
}
