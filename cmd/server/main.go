package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/WeWe-power/DiscussionProject/internal/aggregator"
	"github.com/WeWe-power/DiscussionProject/internal/app"
	"github.com/WeWe-power/DiscussionProject/internal/cache"
	"github.com/WeWe-power/DiscussionProject/internal/config"
	"github.com/WeWe-power/DiscussionProject/internal/db"
	"github.com/WeWe-power/DiscussionProject/internal/logger"
	"github.com/WeWe-power/DiscussionProject/internal/server"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// background leaderboard recomputation
	agg := aggregator.New(appCtx, cfg.Aggregation.Interval)
	go agg.Run(ctx)

	router, cleanup := server.SetupRouter(cfg, appCtx)
	defer cleanup()
	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("starting HTTP server", "addr", addr, "aggregation_interval", cfg.Aggregation.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
