package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepulse/engine/internal/adapter/in_memory"
	"github.com/tradepulse/engine/internal/domain"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestOrder(id string, kind domain.OrderKind, side domain.Side, price, qty string) *domain.Order {
	now := time.Now()
	return &domain.Order{
		ID:         id,
		OwnerID:    "client-1",
		Instrument: "GOLD24FEB",
		Kind:       kind,
		Side:       side,
		Price:      dec(price),
		Quantity:   dec(qty),
		Status:     domain.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestQuote(bid, ask string) *domain.Quote {
	return &domain.Quote{
		Instrument:     "GOLD24FEB",
		Exchange:       domain.MCX,
		Bid:            dec(bid),
		Ask:            dec(ask),
		LastTradePrice: dec(bid),
		LotSize:        100,
		UpdatedAt:      time.Now(),
	}
}

func newTestEngine(t *testing.T) (*Engine, *in_memory.MemoryRepo, *in_memory.QuoteFeed) {
	t.Helper()
	repo := in_memory.NewMemoryRepo()
	feed := in_memory.NewQuoteFeed()
	return NewEngine(repo, feed, repo, nil, zap.NewNop()), repo, feed
}

func TestRunCycle_BuyBidTriggersAtAskPrice(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	bid := newTestOrder("b1", domain.KindBid, domain.Buy, "105", "10")
	require.NoError(t, repo.SaveOrder(ctx, bid))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("103", "104")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fulfilled, got.Status)

	trades := repo.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "b1", trades[0].OrderID)
	assert.Equal(t, domain.Buy, trades[0].Side)
	assert.Equal(t, domain.Sell, trades[0].Action)
	assert.True(t, trades[0].Price.Equal(dec("104")), "trade executes at the triggering ask")
	assert.True(t, trades[0].Quantity.Equal(dec("10")))
	assert.Equal(t, domain.MCX, trades[0].Exchange)
}

func TestRunCycle_SellBidTriggersAtBidPrice(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("b1", domain.KindBid, domain.Sell, "100", "5")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("101", "102")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fulfilled, got.Status)

	trades := repo.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("101")), "trade executes at the triggering bid")
	assert.Equal(t, domain.Sell, trades[0].Side)
}

func TestRunCycle_SellStopLossExecutesAtStopPrice(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("s1", domain.KindStopLoss, domain.Sell, "98", "3")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("97.5", "97.8")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fulfilled, got.Status)

	trades := repo.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("98")), "stop-loss settles at the stop price, not the live quote")
}

func TestRunCycle_BuyStopLossTriggersOnRise(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("s1", domain.KindStopLoss, domain.Buy, "110", "3")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("110.5", "111")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fulfilled, got.Status)

	trades := repo.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("110")))
}

func TestRunCycle_NoFalseTrigger(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	// Buy bid below the ask, sell stop above the bid: neither condition met.
	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("b1", domain.KindBid, domain.Buy, "100", "10")))
	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("s1", domain.KindStopLoss, domain.Sell, "95", "10")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("101", "102")))

	engine.RunCycle(ctx)

	for _, id := range []string{"b1", "s1"} {
		got, err := repo.OrderByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.Active, got.Status)
	}
	assert.Empty(t, repo.Trades())
}

func TestRunCycle_UnpricedInstrumentSkipped(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("b1", domain.KindBid, domain.Buy, "105", "10")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domain.Active, got.Status)
	assert.Empty(t, repo.Trades())
}

func TestRunCycle_AtMostOnceUnderConcurrentCycles(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("b1", domain.KindBid, domain.Buy, "105", "10")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("103", "104")))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.RunCycle(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, repo.Trades(), 1, "concurrent cycles must settle the order exactly once")
}

func TestRunCycle_RepeatedCyclesEmitNoSecondTrade(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	require.NoError(t, repo.SaveOrder(ctx, newTestOrder("b1", domain.KindBid, domain.Buy, "105", "10")))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("103", "104")))

	engine.RunCycle(ctx)
	engine.RunCycle(ctx)
	engine.RunCycle(ctx)

	assert.Len(t, repo.Trades(), 1)
}

func TestRunCycle_LedgerFailureIsolatedPerOrder(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	bad := newTestOrder("bad", domain.KindBid, domain.Buy, "105", "10")
	good := newTestOrder("good", domain.KindBid, domain.Buy, "105", "10")
	good.Instrument = "SILVER24FEB"
	require.NoError(t, repo.SaveOrder(ctx, bad))
	require.NoError(t, repo.SaveOrder(ctx, good))
	repo.FailAppendFor = map[string]error{"bad": errors.New("ledger down")}

	require.NoError(t, feed.SetQuote(ctx, newTestQuote("103", "104")))
	silver := newTestQuote("103", "104")
	silver.Instrument = "SILVER24FEB"
	require.NoError(t, feed.SetQuote(ctx, silver))

	engine.RunCycle(ctx)

	trades := repo.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "good", trades[0].OrderID)
}

func TestRunCycle_IgnoresNonActiveOrders(t *testing.T) {
	ctx := context.Background()
	engine, repo, feed := newTestEngine(t)

	canceled := newTestOrder("c1", domain.KindBid, domain.Buy, "105", "10")
	canceled.Status = domain.Canceled
	require.NoError(t, repo.SaveOrder(ctx, canceled))
	require.NoError(t, feed.SetQuote(ctx, newTestQuote("103", "104")))

	engine.RunCycle(ctx)

	got, err := repo.OrderByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.Canceled, got.Status)
	assert.Empty(t, repo.Trades())
}
