// Package pipeline drives raw messages through extraction, deduplication,
// enrichment, and scoring.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/core/links"
	"github.com/ndaukov/ai-tg-digest/internal/core/llm"
	"github.com/ndaukov/ai-tg-digest/internal/core/scoring"
	"github.com/ndaukov/ai-tg-digest/internal/core/urlnorm"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	"github.com/ndaukov/ai-tg-digest/internal/process/canonical"
)

// Processing outcomes for metrics.
const (
	statusProcessed = "processed"
	statusSkipped   = "skipped"
)

// Store is the message-side storage surface of the pipeline.
type Store interface {
	GetUnlinkedMessages(ctx context.Context, limit int) ([]domain.RawMessage, error)
	CountUnlinkedMessages(ctx context.Context) (int64, error)
}

// Pipeline processes the unlinked message backlog one batch at a time.
type Pipeline struct {
	store     Store
	resolver  *canonical.Resolver
	llm       llm.Client
	previews  *links.Resolver
	batchSize int
	logger    *zerolog.Logger
	now       func() time.Time
}

// New builds a pipeline over the given storage, resolver, and model client.
func New(store Store, resolver *canonical.Resolver, client llm.Client, batchSize int, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Pipeline{
		store:     store,
		resolver:  resolver,
		llm:       client,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// WithLinkPreviews enables citation title enrichment. The first linked
// page's title is stored in the canonical item's metadata.
func (p *Pipeline) WithLinkPreviews(resolver *links.Resolver) *Pipeline {
	p.previews = resolver

	return p
}

// RunOnce processes one batch of unlinked messages. A message whose model
// calls fail is skipped and stays unlinked for the next pass; a storage
// failure aborts the pass.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	messages, err := p.store.GetUnlinkedMessages(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("fetch backlog: %w", err)
	}

	for i := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := &messages[i]

		if err := p.processMessage(ctx, msg); err != nil {
			return fmt.Errorf("process message %s: %w", msg.ID, err)
		}
	}

	if backlog, err := p.store.CountUnlinkedMessages(ctx); err == nil {
		observability.PipelineBacklog.Set(float64(backlog))
	}

	return nil
}

func (p *Pipeline) processMessage(ctx context.Context, msg *domain.RawMessage) error {
	now := p.now()

	event, err := p.llm.ExtractEvent(ctx, llm.ExtractInput{
		Text:      msg.Text,
		Permalink: msg.Permalink,
		KnownURLs: msg.KnownURLs,
	})
	if err != nil {
		p.skip(msg, err, "extract failed")
		return nil
	}

	urls, links := p.collectLinks(event)

	canonicalID, matchKind, err := p.resolver.Resolve(ctx, urls, msg.Text, now)
	if err != nil {
		return err
	}

	classification, err := p.llm.ClassifyEvent(ctx, llm.ClassifyInput{
		MainEventRU:  event.MainEventRU,
		Text:         msg.Text,
		ExternalURLs: event.ExternalURLs,
	})
	if err != nil {
		p.skip(msg, err, "classify failed")
		return nil
	}

	summary, err := p.llm.SummarizeEvent(ctx, llm.SummarizeInput{
		MainEventRU:  event.MainEventRU,
		EventType:    event.EventType,
		Text:         msg.Text,
		ExternalURLs: event.ExternalURLs,
		Signals:      event.Signals,
	})
	if err != nil {
		p.skip(msg, err, "summarize failed")
		return nil
	}

	hoursOld := now.Sub(msg.PostedAt).Hours()
	score := scoring.Importance(
		msg.Forwards, msg.ReactionsCount, msg.Views, msg.CommentsCount,
		msg.SourceWeight, hoursOld)

	news := &domain.CanonicalNews{
		TitleRU:         summary.TitleRU,
		BulletsRU:       summary.BulletsRU,
		WhyImportantRU:  summary.WhyImportantRU,
		Labels:          classification.Labels,
		EventType:       event.EventType,
		MainEventRU:     event.MainEventRU,
		ImportanceScore: score,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}

	if p.previews != nil && len(urls) > 0 {
		if preview, err := p.previews.Resolve(ctx, urls[0]); err == nil && preview.Title != "" {
			news.Metadata = map[string]any{"link_title": preview.Title}
		}
	}

	if canonicalID == "" {
		err = p.resolver.CreateWithEvidence(ctx, news, msg, links)
	} else {
		err = p.resolver.MergeEvidence(ctx, canonicalID, news, msg, links)
	}

	if err != nil {
		return err
	}

	observability.MessagesProcessed.WithLabelValues(statusProcessed).Inc()
	p.logger.Info().
		Str("message_id", msg.ID).
		Str("match", matchKind).
		Float64("importance", score).
		Msg("message canonicalized")

	return nil
}

// collectLinks normalizes and deduplicates the extracted event's URLs in
// order. URLs seen only during ingestion feed the extraction input but do
// not count as link evidence on their own.
func (p *Pipeline) collectLinks(event *domain.ExtractedEvent) ([]string, []domain.CanonicalLink) {
	seen := make(map[string]struct{})

	var (
		urls  []string
		links []domain.CanonicalLink
	)

	add := func(raw string) {
		normalized := urlnorm.Normalize(raw)
		if normalized == "" {
			return
		}

		if _, ok := seen[normalized]; ok {
			return
		}

		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
		links = append(links, domain.CanonicalLink{
			NormalizedURL: normalized,
			Domain:        urlnorm.Domain(normalized),
		})
	}

	for _, u := range event.ExternalURLs {
		add(u.URL)
	}

	return urls, links
}

func (p *Pipeline) skip(msg *domain.RawMessage, err error, reason string) {
	observability.MessagesProcessed.WithLabelValues(statusSkipped).Inc()
	p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg(reason)
}
