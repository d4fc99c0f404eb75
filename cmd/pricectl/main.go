package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"workshop-manager/internal/adapters/cli"
	"workshop-manager/internal/app"
	"workshop-manager/internal/config"
	"workshop-manager/internal/db"
	"workshop-manager/internal/events"
	"workshop-manager/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.App.LogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	open := func(ctx context.Context) (app.ApplicationService, func(), error) {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, nil, err
		}
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		publisher, closePublisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		svc := app.NewAppService(app.NewServices(pool, publisher), cfg.App.CompanyName)
		return svc, func() {
			if err := closePublisher(); err != nil {
				log.Warn().Err(err).Msg("failed to close event publisher")
			}
			pool.Close()
		}, nil
	}

	if err := cli.Run(ctx, open, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
