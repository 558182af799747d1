package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradepulse/engine/internal/adapter/kafka"
	"github.com/tradepulse/engine/internal/adapter/pg"
	"github.com/tradepulse/engine/internal/adapter/quotes"
	"github.com/tradepulse/engine/internal/api"
	"github.com/tradepulse/engine/internal/config"
	"github.com/tradepulse/engine/internal/core"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/logging"
	"github.com/tradepulse/engine/internal/port"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := pg.NewRepo(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	defer repo.Close()

	feed := quotes.NewRedisFeed(cfg.RedisAddr, "", cfg.RedisDB, 5*time.Minute)
	defer feed.Close()

	var publisher port.TradePublisher
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		publisher = p
	}

	engine := core.NewEngine(repo, feed, repo, publisher, logger)

	cutovers := make(map[domain.Exchange]int, len(cfg.Cutovers))
	for ex, cut := range cfg.Cutovers {
		cutovers[ex] = int(cut)
	}
	sweeper, err := core.NewSweeper(repo, feed, cutovers, logger)
	if err != nil {
		logger.Fatal("failed to build sweeper", zap.Error(err))
	}

	scheduler := core.NewScheduler(engine, sweeper, cfg.EngineInterval, cfg.SweeperInterval, logger)
	go scheduler.Run(ctx)

	server := api.NewHTTPServer(repo, repo, feed, cfg.ThrottleWindow, logger)
	logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := server.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
