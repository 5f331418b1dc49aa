package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/app"
	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (reader, worker, digest, bot)")
	once := flag.Bool("once", false, "Run once and exit (digest mode)")
	period := flag.String("period", domain.PeriodMorning, "Digest period for -once (morning, evening)")
	dryRun := flag.Bool("dry-run", false, "Print the digest instead of queueing it (digest mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *once, *period, *dryRun); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, once bool, period string, dryRun bool) error {
	switch mode {
	case "reader":
		return application.RunReader(ctx)
	case "worker":
		return application.RunWorker(ctx)
	case "digest":
		return application.RunDigest(ctx, once, period, dryRun)
	case "bot":
		return application.RunBot(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[reader|worker|digest|bot]", os.Args[0])

		return nil
	}
}
