package in_memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
)

var (
	_ port.OrderStore  = (*MemoryRepo)(nil)
	_ port.TradeLedger = (*MemoryRepo)(nil)
)

// MemoryRepo backs the order store and trade ledger with maps. It honors the
// same conditional-transition contract as the Postgres adapter, which is
// what makes the core testable against it.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	trades []*domain.Trade

	// FailAppendFor makes AppendTrade fail for one order's trades, to
	// exercise per-order failure isolation.
	FailAppendFor map[string]error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders: make(map[string]*domain.Order),
	}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) OrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepo) OrdersByOwner(ctx context.Context, ownerID string, kind domain.OrderKind) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.OwnerID == ownerID && o.Kind == kind {
			cp := *o
			res = append(res, &cp)
		}
	}
	sortByCreation(res)
	return res, nil
}

func (r *MemoryRepo) ActiveOrders(ctx context.Context, kind domain.OrderKind) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Kind == kind && o.Status == domain.Active {
			cp := *o
			res = append(res, &cp)
		}
	}
	sortByCreation(res)
	return res, nil
}

func (r *MemoryRepo) ActiveOrdersByInstrument(ctx context.Context, instrument string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Instrument == instrument && o.Status == domain.Active {
			cp := *o
			res = append(res, &cp)
		}
	}
	sortByCreation(res)
	return res, nil
}

func (r *MemoryRepo) TryTransition(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		// A missing order loses the transition the same way a zero-row
		// update does in the Postgres adapter.
		return false, nil
	}
	if o.Status != from || !o.CanTransition(to) {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryRepo) AppendTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailAppendFor[t.OrderID]; ok {
		return err
	}
	cp := *t
	r.trades = append(r.trades, &cp)
	return nil
}

func (r *MemoryRepo) TradesByOwner(ctx context.Context, ownerID string) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Trade
	for _, t := range r.trades {
		if t.OwnerID == ownerID {
			cp := *t
			res = append(res, &cp)
		}
	}
	return res, nil
}

// Trades returns every trade in the ledger, oldest first.
func (r *MemoryRepo) Trades() []*domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*domain.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		cp := *t
		res = append(res, &cp)
	}
	return res
}

func sortByCreation(orders []*domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
