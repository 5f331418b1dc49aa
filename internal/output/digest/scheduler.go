package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	"github.com/ndaukov/ai-tg-digest/internal/platform/schedule"
	"github.com/ndaukov/ai-tg-digest/internal/platform/worker"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

// Notifier delivers a queued digest to moderation. The bot implements it.
type Notifier interface {
	SendDigestPreview(ctx context.Context, d *domain.Digest) error
	AutoPublishDue(ctx context.Context, now time.Time) error
}

// Scheduler queues morning and evening digests at their configured local
// times and drives the auto-publish deadline.
type Scheduler struct {
	cfg       *config.Config
	database  *db.DB
	assembler *Assembler
	notifier  Notifier
	times     schedule.DigestTimes
	logger    *zerolog.Logger
}

// NewScheduler builds a scheduler. The notifier may be nil in dry runs.
func NewScheduler(cfg *config.Config, database *db.DB, assembler *Assembler, notifier Notifier, logger *zerolog.Logger) (*Scheduler, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	times := schedule.DigestTimes{
		Timezone: cfg.DigestTimezone,
		Morning:  cfg.MorningTime,
		Evening:  cfg.EveningTime,
	}

	if err := times.Validate(); err != nil {
		return nil, fmt.Errorf("digest schedule: %w", err)
	}

	return &Scheduler{
		cfg:       cfg,
		database:  database,
		assembler: assembler,
		notifier:  notifier,
		times:     times,
		logger:    logger,
	}, nil
}

// Run ticks until cancelled, queueing digests whose time has come and
// auto-publishing digests whose moderation deadline passed.
func (s *Scheduler) Run(ctx context.Context) error {
	prev := time.Now()

	return worker.Loop(ctx, worker.Config{
		Name:         "digest-scheduler",
		PollInterval: s.cfg.SchedulerTick,
		Logger:       s.logger,
		Process: func(ctx context.Context) error {
			now := time.Now()
			defer func() { prev = now }()

			due, err := s.times.DueBetween(prev, now)
			if err != nil {
				return err
			}

			for _, period := range due {
				if err := s.QueueDigest(ctx, period, now); err != nil {
					return err
				}
			}

			if s.notifier != nil {
				if err := s.notifier.AutoPublishDue(ctx, now); err != nil {
					return err
				}
			}

			return nil
		},
	})
}

// QueueDigest assembles a digest, stores it as queued, and sends the
// moderation preview.
func (s *Scheduler) QueueDigest(ctx context.Context, period string, now time.Time) error {
	text, err := s.assembler.Assemble(ctx, period, s.settings())
	if err != nil {
		return fmt.Errorf("assemble %s digest: %w", period, err)
	}

	d := &domain.Digest{
		Period:        period,
		ScheduledFor:  now,
		PreviewText:   text,
		AutoPublishAt: now.Add(s.cfg.AutoPublishAfter),
	}

	if err := s.database.CreateDigest(ctx, d); err != nil {
		return err
	}

	observability.DigestsQueued.WithLabelValues(period).Inc()
	s.logger.Info().Str("digest_id", d.ID).Str("period", period).Msg("digest queued")

	if s.notifier != nil {
		if err := s.notifier.SendDigestPreview(ctx, d); err != nil {
			// The digest stays queued; auto-publish will still fire.
			s.logger.Error().Err(err).Str("digest_id", d.ID).Msg("failed to send preview")
		}
	}

	return nil
}

// AssembleOnce renders a digest without queueing it. Used by -dry-run and
// the /digest command.
func (s *Scheduler) AssembleOnce(ctx context.Context, period string) (string, error) {
	return s.assembler.Assemble(ctx, period, s.settings())
}

func (s *Scheduler) settings() Settings {
	return Settings{
		MaxItems:       s.cfg.MaxItemsPerDigest,
		MaxPerCategory: s.cfg.MaxItemsPerCategory,
	}
}
