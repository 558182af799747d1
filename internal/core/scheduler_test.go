package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepulse/engine/internal/adapter/in_memory"
	"github.com/tradepulse/engine/internal/domain"
	"go.uber.org/zap"
)

// slowStore blocks every active-order read until released, simulating a
// cycle that outlives its tick.
type slowStore struct {
	*in_memory.MemoryRepo
	release chan struct{}
	calls   atomic.Int32
}

func (s *slowStore) ActiveOrders(ctx context.Context, kind domain.OrderKind) ([]*domain.Order, error) {
	s.calls.Add(1)
	<-s.release
	return s.MemoryRepo.ActiveOrders(ctx, kind)
}

func TestScheduler_SkipsOverlappingCycles(t *testing.T) {
	ctx := context.Background()
	repo := in_memory.NewMemoryRepo()
	feed := in_memory.NewQuoteFeed()
	slow := &slowStore{MemoryRepo: repo, release: make(chan struct{})}
	engine := NewEngine(slow, feed, repo, nil, zap.NewNop())
	s := NewScheduler(engine, nil, time.Second, time.Minute, zap.NewNop())

	s.tryCycle(ctx)
	require.Eventually(t, func() bool { return slow.calls.Load() == 1 }, time.Second, time.Millisecond)

	// Ticks arriving while the cycle is stuck must be dropped, not queued.
	s.tryCycle(ctx)
	s.tryCycle(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, slow.calls.Load())

	close(slow.release)
	require.Eventually(t, func() bool { return !s.cycling.Load() }, time.Second, time.Millisecond)

	// Once the cycle finished, the next tick runs again.
	s.tryCycle(ctx)
	require.Eventually(t, func() bool { return slow.calls.Load() >= 3 }, time.Second, time.Millisecond)
}
