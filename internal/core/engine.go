package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
	"go.uber.org/zap"
)

// Engine reconciles live quotes against outstanding conditional orders. Each
// cycle reads a snapshot of active orders, decides which ones the market has
// triggered, wins (or loses) the conditional state transition per order and
// appends one trade per won transition.
type Engine struct {
	orders port.OrderStore
	prices port.PriceFeed
	ledger port.TradeLedger
	pub    port.TradePublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewEngine(orders port.OrderStore, prices port.PriceFeed, ledger port.TradeLedger, pub port.TradePublisher, log *zap.Logger) *Engine {
	return &Engine{
		orders: orders,
		prices: prices,
		ledger: ledger,
		pub:    pub,
		log:    log,
		now:    time.Now,
	}
}

// RunCycle evaluates every active bid and stop-loss against current quotes.
// Failures are contained per order: a store error for one order never stops
// the rest of the cycle. The only observable outputs are state transitions
// and new trades.
func (e *Engine) RunCycle(ctx context.Context) {
	var snapshot []*domain.Order
	for _, kind := range []domain.OrderKind{domain.KindBid, domain.KindStopLoss} {
		orders, err := e.orders.ActiveOrders(ctx, kind)
		if err != nil {
			e.log.Warn("active order load failed, retrying next cycle",
				zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		snapshot = append(snapshot, orders...)
	}
	if len(snapshot) == 0 {
		return
	}

	// One quote fetch per distinct instrument; an unpriced instrument just
	// drops its orders from this cycle.
	byInstrument := make(map[string][]*domain.Order)
	for _, o := range snapshot {
		byInstrument[o.Instrument] = append(byInstrument[o.Instrument], o)
	}

	var wg sync.WaitGroup
	for instrument, group := range byInstrument {
		wg.Add(1)
		go func(instrument string, group []*domain.Order) {
			defer wg.Done()
			e.processInstrument(ctx, instrument, group)
		}(instrument, group)
	}
	wg.Wait()
}

func (e *Engine) processInstrument(ctx context.Context, instrument string, orders []*domain.Order) {
	q, err := e.prices.Quote(ctx, instrument)
	if errors.Is(err, port.ErrNotFound) {
		return
	}
	if err != nil {
		e.log.Warn("quote lookup failed", zap.String("instrument", instrument), zap.Error(err))
		return
	}
	for _, o := range orders {
		if o.Status != domain.Active {
			continue
		}
		price, triggered := triggerPrice(o, q)
		if !triggered {
			continue
		}
		if err := e.settle(ctx, o, q, price); err != nil {
			e.log.Error("settlement failed",
				zap.String("order_id", o.ID),
				zap.String("instrument", instrument),
				zap.Error(err))
		}
	}
}

// triggerPrice reports whether the quote triggers the order and at what
// price the trade executes.
//
// A bid triggers when its limit is met or bettered by the live market and
// executes at the triggering quote: a buy bid fires when the ask has come
// down to the limit, a sell bid when the bid has come up to it. A stop-loss
// inverts the comparison — it fires when the market moves adversely to or
// through the stop — and executes at the stop price itself, so settlement
// stays deterministic no matter how far through the stop the quote gapped.
func triggerPrice(o *domain.Order, q *domain.Quote) (decimal.Decimal, bool) {
	switch o.Kind {
	case domain.KindBid:
		if o.Side == domain.Buy && q.Ask.LessThanOrEqual(o.Price) {
			return q.Ask, true
		}
		if o.Side == domain.Sell && q.Bid.GreaterThanOrEqual(o.Price) {
			return q.Bid, true
		}
	case domain.KindStopLoss:
		if o.Side == domain.Buy && q.Ask.GreaterThanOrEqual(o.Price) {
			return o.Price, true
		}
		if o.Side == domain.Sell && q.Bid.LessThanOrEqual(o.Price) {
			return o.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// settle performs the conditional transition and, only if this caller won
// it, appends the trade. A lost transition means another cycle or replica
// already settled the order; that is a normal outcome and emits nothing.
func (e *Engine) settle(ctx context.Context, o *domain.Order, q *domain.Quote, price decimal.Decimal) error {
	won, err := e.orders.TryTransition(ctx, o.ID, domain.Active, domain.Fulfilled)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	t := &domain.Trade{
		ID:         uuid.New().String(),
		OwnerID:    o.OwnerID,
		Instrument: o.Instrument,
		Exchange:   q.Exchange,
		Side:       o.Side,
		Action:     o.Side.Opposite(),
		Quantity:   o.Quantity,
		Price:      price,
		OrderID:    o.ID,
		CreatedAt:  e.now(),
	}
	if err := e.ledger.AppendTrade(ctx, t); err != nil {
		// The order is already fulfilled; surfacing the gap to operators is
		// all the core can do here.
		return err
	}
	e.log.Info("order settled",
		zap.String("order_id", o.ID),
		zap.String("kind", string(o.Kind)),
		zap.String("instrument", o.Instrument),
		zap.String("side", string(o.Side)),
		zap.String("price", price.String()))

	if e.pub != nil {
		if err := e.pub.PublishTrade(ctx, t); err != nil {
			e.log.Warn("trade publish failed", zap.String("trade_id", t.ID), zap.Error(err))
		}
	}
	return nil
}
