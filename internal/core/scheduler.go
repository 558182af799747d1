package core

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives the engine and sweeper on independent tickers. An engine
// tick that arrives while the previous cycle is still in flight is skipped,
// never queued, so a slow cycle cannot pile up work behind itself.
type Scheduler struct {
	engine  *Engine
	sweeper *Sweeper
	log     *zap.Logger

	engineEvery time.Duration
	sweepEvery  time.Duration

	cycling atomic.Bool
}

func NewScheduler(engine *Engine, sweeper *Sweeper, engineEvery, sweepEvery time.Duration, log *zap.Logger) *Scheduler {
	if engineEvery <= 0 {
		engineEvery = time.Second
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	return &Scheduler{
		engine:      engine,
		sweeper:     sweeper,
		log:         log,
		engineEvery: engineEvery,
		sweepEvery:  sweepEvery,
	}
}

// Run blocks until ctx is done. Sweeps run synchronously in the loop and a
// due sweep is drained ahead of each engine tick, so orders belonging to a
// closed session are expired before a cycle can evaluate them against stale
// post-close quotes.
func (s *Scheduler) Run(ctx context.Context) {
	engineTick := time.NewTicker(s.engineEvery)
	defer engineTick.Stop()
	sweepTick := time.NewTicker(s.sweepEvery)
	defer sweepTick.Stop()

	s.log.Info("scheduler started",
		zap.Duration("engine_interval", s.engineEvery),
		zap.Duration("sweep_interval", s.sweepEvery))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case now := <-sweepTick.C:
			s.sweeper.SweepAll(ctx, now)
		case <-engineTick.C:
			select {
			case now := <-sweepTick.C:
				s.sweeper.SweepAll(ctx, now)
			default:
			}
			s.tryCycle(ctx)
		}
	}
}

func (s *Scheduler) tryCycle(ctx context.Context) {
	if !s.cycling.CompareAndSwap(false, true) {
		s.log.Debug("engine cycle still in flight, skipping tick")
		return
	}
	go func() {
		defer s.cycling.Store(false)
		s.engine.RunCycle(ctx)
	}()
}
