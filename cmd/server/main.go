package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fleetready/backend/internal/cache"
	"github.com/fleetready/backend/internal/config"
	httpapi "github.com/fleetready/backend/internal/http"
	"github.com/fleetready/backend/internal/http/handlers"
	"github.com/fleetready/backend/internal/readiness"
	"github.com/fleetready/backend/internal/session"
	"github.com/fleetready/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "fleetready-backend").Logger()

	ctx := context.Background()

	var (
		checks store.CheckStore
		roster store.RosterStore
		pinger handlers.Pinger
	)
	if cfg.DatabaseURL == "" {
		mem := store.NewMemory()
		checks, roster = mem, mem
		logger.Info().Msg("no DATABASE_URL set, using in-memory store")
	} else {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		checks, roster, pinger = pg, pg, pg
	}

	policy, err := readiness.ParseTotalActivePolicy(cfg.TotalActivePolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid TOTAL_ACTIVE_POLICY")
	}

	var backend cache.Backend
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		backend = cache.NewRedisBackend(redis.NewClient(opts))
		logger.Info().Msg("using redis result cache")
	} else {
		backend = cache.NewMemoryBackend(time.Now)
	}

	svc := &readiness.Service{
		Store:            checks,
		Roster:           roster,
		Logger:           logger,
		Policy:           policy,
		ScanBatchSize:    cfg.ScanBatchSize,
		ScanMaxBatches:   cfg.ScanMaxBatches,
		LedgerMaxBatches: cfg.LedgerMaxBatches,
	}
	sessions := &session.Service{Store: checks, Logger: logger}

	router := httpapi.Router(cfg, svc, sessions, cache.New(backend), pinger, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
