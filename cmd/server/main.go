package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "workshop-manager/internal/adapters/web"
	"workshop-manager/internal/app"
	"workshop-manager/internal/config"
	"workshop-manager/internal/db"
	"workshop-manager/internal/events"
	"workshop-manager/internal/idempotency"
	"workshop-manager/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.App.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	publisher, closePublisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() {
		if err := closePublisher(); err != nil {
			log.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	var guard idempotency.Guard
	if cfg.Redis.URL != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
		guard = idempotency.NewRedisGuard(rdb, idempotency.DefaultTTL)
	} else {
		log.Warn().Msg("REDIS_URL not set; idempotency keys are tracked in memory")
		guard = idempotency.NewMemoryGuard(idempotency.DefaultTTL)
	}

	svc := app.NewAppService(app.NewServices(pool, publisher), cfg.App.CompanyName)
	handler := webAdapter.NewHandler(svc, guard, cfg.App.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("port", cfg.App.Port).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
	log.Info().Msg("server stopped")
}
