package in_memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
)

var _ port.PriceFeed = (*QuoteFeed)(nil)

type QuoteFeed struct {
	mu     sync.Mutex
	quotes map[string]*domain.Quote
}

func NewQuoteFeed() *QuoteFeed {
	return &QuoteFeed{quotes: make(map[string]*domain.Quote)}
}

func (f *QuoteFeed) SetQuote(ctx context.Context, q *domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *q
	f.quotes[q.Instrument] = &cp
	return nil
}

func (f *QuoteFeed) Quote(ctx context.Context, instrument string) (*domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[instrument]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *QuoteFeed) InstrumentsByExchange(ctx context.Context, exchange domain.Exchange) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []string
	for _, q := range f.quotes {
		if q.Exchange == exchange {
			res = append(res, q.Instrument)
		}
	}
	sort.Strings(res)
	return res, nil
}
