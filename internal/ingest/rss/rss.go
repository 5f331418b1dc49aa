// Package rss ingests feed items for sources of type rss. Items become raw
// messages with zero engagement signals so they flow through the same
// pipeline as channel posts.
package rss

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

const feedFetchTimeout = 10 * time.Second

// Fetcher polls RSS/Atom sources.
type Fetcher struct {
	database *db.DB
	parser   *gofeed.Parser
	logger   *zerolog.Logger
}

// NewFetcher builds an RSS fetcher.
func NewFetcher(database *db.DB, logger *zerolog.Logger) *Fetcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Fetcher{database: database, parser: gofeed.NewParser(), logger: logger}
}

// IngestOnce fetches every enabled rss source.
func (f *Fetcher) IngestOnce(ctx context.Context) error {
	sources, err := f.database.GetEnabledSources(ctx)
	if err != nil {
		return fmt.Errorf("get enabled sources: %w", err)
	}

	for i := range sources {
		src := &sources[i]
		if src.Type != domain.SourceTypeRSS {
			continue
		}

		if err := f.fetchFeed(ctx, src); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			f.logger.Error().Err(err).Str("source", src.IDOrUsername).Msg("feed fetch failed")
		}
	}

	return nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, src *domain.Source) error {
	fetchCtx, cancel := context.WithTimeout(ctx, feedFetchTimeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(src.IDOrUsername, fetchCtx)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	count := 0

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		raw := feedItemMessage(src, item)
		if raw == nil {
			continue
		}

		inserted, err := f.database.InsertRawMessage(ctx, raw)
		if err != nil {
			f.logger.Error().Err(err).Str("source", src.IDOrUsername).Str("guid", item.GUID).Msg("failed to save feed item")
			continue
		}

		if inserted {
			count++

			observability.MessagesIngested.WithLabelValues(src.Type).Inc()
		}
	}

	if count > 0 {
		f.logger.Info().Str("source", src.IDOrUsername).Int("count", count).Msg("saved feed items")
	}

	return nil
}

// feedItemMessage maps a feed item onto a raw message. The item guid (or
// link) is hashed into the message-id slot so re-reading a feed stays
// idempotent.
func feedItemMessage(src *domain.Source, item *gofeed.Item) *domain.RawMessage {
	text := strings.TrimSpace(item.Title)
	if desc := strings.TrimSpace(item.Description); desc != "" {
		if text != "" {
			text += "\n\n"
		}

		text += desc
	}

	if text == "" {
		return nil
	}

	postedAt := time.Now().UTC()
	if item.PublishedParsed != nil {
		postedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		postedAt = item.UpdatedParsed.UTC()
	}

	var urls []string
	if item.Link != "" {
		urls = append(urls, item.Link)
	}

	return &domain.RawMessage{
		SourceID:    src.ID,
		TGMessageID: itemID(item),
		Permalink:   item.Link,
		PostedAt:    postedAt,
		Text:        text,
		KnownURLs:   urls,
	}
}

func itemID(item *gofeed.Item) int64 {
	key := item.GUID
	if key == "" {
		key = item.Link
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))

	// Keep the id positive so it sorts like a message id.
	return int64(h.Sum64() >> 1)
}
