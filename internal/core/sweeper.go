package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
	"go.uber.org/zap"
)

// Sweeper expires every still-active order on an exchange at that exchange's
// daily cutover. No trade is ever emitted for an expired order.
type Sweeper struct {
	orders   port.OrderStore
	prices   port.PriceFeed
	cutovers map[domain.Exchange]int // minute of day per exchange
	log      *zap.Logger

	mu        sync.Mutex
	lastSwept map[domain.Exchange]string // boundary date already fired
}

// NewSweeper validates the cutover table up front: an unknown exchange or an
// out-of-range minute must stop startup rather than default silently.
func NewSweeper(orders port.OrderStore, prices port.PriceFeed, cutovers map[domain.Exchange]int, log *zap.Logger) (*Sweeper, error) {
	if len(cutovers) == 0 {
		return nil, fmt.Errorf("sweeper: no exchange cutovers configured")
	}
	for ex, minute := range cutovers {
		if !domain.ValidExchange(ex) {
			return nil, fmt.Errorf("sweeper: unknown exchange %q", ex)
		}
		if minute < 0 || minute >= 24*60 {
			return nil, fmt.Errorf("sweeper: cutover minute %d out of range for %s", minute, ex)
		}
	}
	return &Sweeper{
		orders:    orders,
		prices:    prices,
		cutovers:  cutovers,
		log:       log,
		lastSwept: make(map[domain.Exchange]string),
	}, nil
}

// SweepAll runs one boundary check for every configured exchange.
func (s *Sweeper) SweepAll(ctx context.Context, now time.Time) {
	for ex := range s.cutovers {
		if err := s.Sweep(ctx, ex, now); err != nil {
			s.log.Error("session sweep failed", zap.String("exchange", string(ex)), zap.Error(err))
		}
	}
}

// Sweep expires the exchange's active orders when now sits exactly on the
// configured cutover minute. The check runs every minute, so firing is
// debounced per (exchange, day) — but the boundary is only marked done once
// every order had its chance to expire. A sweep cut short by a store or feed
// error is retried on the next check, and the conditional transition makes
// re-expiry of already swept orders a no-op.
func (s *Sweeper) Sweep(ctx context.Context, exchange domain.Exchange, now time.Time) error {
	cutover, ok := s.cutovers[exchange]
	if !ok {
		return fmt.Errorf("sweeper: no cutover configured for exchange %q", exchange)
	}
	if now.Hour()*60+now.Minute() != cutover {
		return nil
	}

	boundary := now.Format("2006-01-02")
	s.mu.Lock()
	done := s.lastSwept[exchange] == boundary
	s.mu.Unlock()
	if done {
		return nil
	}

	instruments, err := s.prices.InstrumentsByExchange(ctx, exchange)
	if err != nil {
		return fmt.Errorf("sweeper: list instruments for %s: %w", exchange, err)
	}

	clean := true
	expired := 0
	for _, instrument := range instruments {
		active, err := s.orders.ActiveOrdersByInstrument(ctx, instrument)
		if err != nil {
			clean = false
			s.log.Warn("active order load failed during sweep",
				zap.String("instrument", instrument), zap.Error(err))
			continue
		}
		for _, o := range active {
			won, err := s.orders.TryTransition(ctx, o.ID, domain.Active, domain.Expired)
			if err != nil {
				clean = false
				s.log.Warn("expiry transition failed",
					zap.String("order_id", o.ID), zap.Error(err))
				continue
			}
			if won {
				expired++
			}
		}
	}

	if clean {
		s.mu.Lock()
		s.lastSwept[exchange] = boundary
		s.mu.Unlock()
	}
	s.log.Info("session boundary swept",
		zap.String("exchange", string(exchange)),
		zap.Int("expired", expired),
		zap.Bool("complete", clean))
	return nil
}
