// Package app wires the application together and exposes one Run method
// per operational mode:
//
//   - Reader mode: MTProto + RSS ingestion of tracked sources
//   - Worker mode: canonicalization pipeline over the unlinked backlog
//   - Digest mode: scheduled digest queueing and auto-publish
//   - Bot mode: admin moderation bot
//
// Modes run as separate processes sharing one database.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/bot"
	"github.com/ndaukov/ai-tg-digest/internal/core/links"
	"github.com/ndaukov/ai-tg-digest/internal/core/llm"
	"github.com/ndaukov/ai-tg-digest/internal/ingest/reader"
	"github.com/ndaukov/ai-tg-digest/internal/ingest/rss"
	"github.com/ndaukov/ai-tg-digest/internal/output/digest"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	"github.com/ndaukov/ai-tg-digest/internal/platform/worker"
	"github.com/ndaukov/ai-tg-digest/internal/process/canonical"
	"github.com/ndaukov/ai-tg-digest/internal/process/pipeline"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

const (
	llmAPIKeyMock     = "mock"
	pipelineBatchSize = 100
	hoursPerDay       = 24
)

// App holds the shared dependencies of every mode.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates an App.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{cfg: cfg, database: database, logger: logger}
}

// StartHealthServer serves /healthz, /readyz, and /metrics until the
// context is cancelled.
func (a *App) StartHealthServer(ctx context.Context) error {
	server := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	return server.Start(ctx)
}

// RunReader ingests Telegram channels over MTProto and polls RSS feeds.
func (a *App) RunReader(ctx context.Context) error {
	a.logger.Info().Msg("starting reader mode")

	feeds := rss.NewFetcher(a.database, a.logger)

	go func() {
		if err := worker.Loop(ctx, worker.Config{
			Name:         "rss",
			PollInterval: a.cfg.IngestInterval,
			Process:      feeds.IngestOnce,
			Logger:       a.logger,
		}); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("rss loop stopped")
		}
	}()

	r := reader.New(a.cfg, a.database, a.logger)
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("reader run: %w", err)
	}

	return nil
}

// RunWorker processes the unlinked backlog in a loop. A Postgres advisory
// lock guarantees a single processing pass across instances.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("starting worker mode")

	p := a.newPipeline(ctx)

	return worker.Loop(ctx, worker.Config{
		Name:         "pipeline",
		PollInterval: a.cfg.WorkerPollInterval,
		Logger:       a.logger,
		Process: func(ctx context.Context) error {
			lock, err := a.database.TryProcessingLock(ctx)
			if err != nil {
				return err
			}

			if lock == nil {
				a.logger.Debug().Msg("another worker holds the processing lock")
				return nil
			}
			defer lock.Release(ctx)

			return p.RunOnce(ctx)
		},
	})
}

// RunDigest runs the digest scheduler. With once set it queues (or, with
// dryRun, just prints) a single digest for the given period and returns.
func (a *App) RunDigest(ctx context.Context, once bool, period string, dryRun bool) error {
	a.logger.Info().Bool("once", once).Bool("dry_run", dryRun).Msg("starting digest mode")

	var notifier digest.Notifier

	if !dryRun && a.cfg.BotToken != "" {
		b, err := a.newBot()
		if err != nil {
			return err
		}

		notifier = b
	}

	assembler := digest.NewAssembler(a.database, a.logger)

	s, err := digest.NewScheduler(a.cfg, a.database, assembler, notifier, a.logger)
	if err != nil {
		return err
	}

	if !once {
		return s.Run(ctx)
	}

	if dryRun {
		text, err := s.AssembleOnce(ctx, period)
		if err != nil {
			return err
		}

		fmt.Println(text)

		return nil
	}

	return s.QueueDigest(ctx, period, time.Now())
}

// RunBot runs the admin moderation bot.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("starting bot mode")

	b, err := a.newBot()
	if err != nil {
		return err
	}

	return b.Run(ctx)
}

func (a *App) newBot() (*bot.Bot, error) {
	assembler := digest.NewAssembler(a.database, a.logger)

	b, err := bot.New(a.cfg, a.database, assembler, a.logger)
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	return b, nil
}

func (a *App) newPipeline(_ context.Context) *pipeline.Pipeline {
	resolver := canonical.NewResolver(
		a.database,
		time.Duration(a.cfg.DedupWindowDays)*hoursPerDay*time.Hour,
		a.cfg.SimThreshold,
		a.logger,
	)

	p := pipeline.New(a.database, resolver, a.newLLMClient(), pipelineBatchSize, a.logger)

	if a.cfg.LinkPreviewEnabled {
		fetcher := links.NewFetcher(float64(a.cfg.RateLimitRPS), a.cfg.WebFetchTimeout)
		p = p.WithLinkPreviews(links.NewResolver(fetcher, a.logger))
	}

	return p
}

// newLLMClient returns the OpenAI-compatible client, or the deterministic
// mock when no key is configured.
func (a *App) newLLMClient() llm.Client {
	if a.cfg.LLMAPIKey == "" || a.cfg.LLMAPIKey == llmAPIKeyMock {
		a.logger.Warn().Msg("no LLM API key configured, using mock client")
		return llm.NewMock()
	}

	return llm.NewOpenAI(a.cfg, a.logger)
}
