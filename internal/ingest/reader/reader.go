// Package reader ingests posts from Telegram channels over MTProto and
// stores them as raw messages with their engagement signals.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

// ErrChannelNotFound indicates the username resolved to nothing.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNotAChannel indicates the peer is not a channel.
var ErrNotAChannel = errors.New("peer is not a channel")

// ErrNoChannelIdentifier indicates a source row without a usable username.
var ErrNoChannelIdentifier = errors.New("source has no username or peer id")

// Reader drives the MTProto ingestion loop.
type Reader struct {
	cfg      *config.Config
	database *db.DB
	client   *telegram.Client
	logger   *zerolog.Logger
}

// New builds a reader.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *Reader {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Reader{cfg: cfg, database: database, logger: logger}
}

// Run connects, authenticates, and ingests in a loop until the context is
// cancelled.
func (r *Reader) Run(ctx context.Context) error {
	client := telegram.NewClient(r.cfg.TGAPIID, r.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: r.cfg.TGSessionPath,
		},
	})

	r.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, r.authFlow()); err != nil {
			return err
		}

		r.logger.Info().Msg("authenticated")

		return r.ingestLoop(ctx)
	})
}

func (r *Reader) ingestLoop(ctx context.Context) error {
	api := tg.NewClient(r.client)

	for {
		if err := r.IngestOnce(ctx, api); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			r.logger.Error().Err(err).Msg("ingestion cycle failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.IngestInterval):
		}
	}
}

// IngestOnce fetches new messages for every enabled channel source,
// spacing API calls by the configured rate limit.
func (r *Reader) IngestOnce(ctx context.Context, api *tg.Client) error {
	sources, err := r.database.GetEnabledSources(ctx)
	if err != nil {
		return fmt.Errorf("get enabled sources: %w", err)
	}

	minDelay := time.Second
	if r.cfg.RateLimitRPS > 0 {
		minDelay = time.Second / time.Duration(r.cfg.RateLimitRPS)
	}

	for i := range sources {
		src := &sources[i]
		if src.Type == domain.SourceTypeRSS {
			continue
		}

		count, err := r.fetchSourceMessages(ctx, api, src)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			r.logger.Error().Err(err).Str("source", src.IDOrUsername).Msg("fetch failed")
		} else if count > 0 {
			r.logger.Info().Str("source", src.IDOrUsername).Int("count", count).Msg("saved messages")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(minDelay):
		}
	}

	return nil
}

func (r *Reader) fetchSourceMessages(ctx context.Context, api *tg.Client, src *domain.Source) (int, error) {
	peer, username, err := r.resolvePeer(ctx, api, src)
	if err != nil {
		return 0, err
	}

	req := &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: r.cfg.ReaderFetchLimit,
	}

	if src.LastTGMsgID > 0 {
		// Fetch only messages newer than the cursor.
		req.OffsetID = int(src.LastTGMsgID)
		req.AddOffset = -r.cfg.ReaderFetchLimit
	}

	history, err := api.MessagesGetHistory(ctx, req)
	if err != nil {
		if floodErr, ok := tgerr.As(err); ok && floodErr.Type == "FLOOD_WAIT" {
			r.logger.Warn().Int("seconds", floodErr.Argument).Str("source", src.IDOrUsername).Msg("flood wait")

			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(floodErr.Argument) * time.Second):
			}

			return 0, nil
		}

		return 0, fmt.Errorf("get history: %w", err)
	}

	var messages []tg.MessageClass

	switch h := history.(type) {
	case *tg.MessagesMessages:
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		messages = h.Messages
	case *tg.MessagesChannelMessages:
		messages = h.Messages
	case *tg.MessagesMessagesNotModified:
		return 0, nil
	}

	count := 0
	maxID := src.LastTGMsgID

	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		if int64(msg.ID) > maxID {
			maxID = int64(msg.ID)
		}

		if msg.Message == "" {
			continue
		}

		raw := &domain.RawMessage{
			SourceID:       src.ID,
			TGMessageID:    int64(msg.ID),
			Permalink:      permalink(username, msg.ID),
			PostedAt:       time.Unix(int64(msg.Date), 0).UTC(),
			Text:           msg.Message,
			Views:          int64(msg.Views),
			Forwards:       int64(msg.Forwards),
			ReactionsCount: reactionsCount(msg),
			CommentsCount:  commentsCount(msg),
			KnownURLs:      messageURLs(msg),
		}

		inserted, err := r.database.InsertRawMessage(ctx, raw)
		if err != nil {
			r.logger.Error().Err(err).Str("source", src.IDOrUsername).Int("msg_id", msg.ID).Msg("failed to save raw message")
			continue
		}

		if inserted {
			count++

			observability.MessagesIngested.WithLabelValues(src.Type).Inc()
		}
	}

	if maxID > src.LastTGMsgID {
		if err := r.database.UpdateSourceCursor(ctx, src.ID, maxID); err != nil {
			r.logger.Error().Err(err).Str("source", src.IDOrUsername).Int64("max_id", maxID).Msg("failed to update cursor")
		}
	}

	return count, nil
}

// resolvePeer prefers the cached peer id and access hash; only an unseen
// source costs a ContactsResolveUsername call.
func (r *Reader) resolvePeer(ctx context.Context, api *tg.Client, src *domain.Source) (tg.InputPeerClass, string, error) {
	username := strings.TrimPrefix(strings.TrimSpace(src.IDOrUsername), "@")

	if src.TGPeerID != 0 && src.AccessHash != 0 {
		return &tg.InputPeerChannel{
			ChannelID:  src.TGPeerID,
			AccessHash: src.AccessHash,
		}, username, nil
	}

	if username == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrNoChannelIdentifier, src.ID)
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, "", fmt.Errorf("resolve username: %w", err)
	}

	if len(resolved.Chats) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrChannelNotFound, username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotAChannel, username)
	}

	src.TGPeerID = channel.ID
	src.AccessHash = channel.AccessHash
	src.Title = channel.Title

	if err := r.database.UpdateSourceTelegramInfo(ctx, src.ID, channel.ID, channel.AccessHash, channel.Title); err != nil {
		r.logger.Error().Err(err).Str("source", username).Msg("failed to cache peer info")
	}

	return &tg.InputPeerChannel{
		ChannelID:  src.TGPeerID,
		AccessHash: src.AccessHash,
	}, username, nil
}

func reactionsCount(msg *tg.Message) int64 {
	reactions, ok := msg.GetReactions()
	if !ok {
		return 0
	}

	var total int64
	for _, res := range reactions.Results {
		total += int64(res.Count)
	}

	return total
}

func commentsCount(msg *tg.Message) int64 {
	replies, ok := msg.GetReplies()
	if !ok {
		return 0
	}

	return int64(replies.Replies)
}

func permalink(username string, msgID int) string {
	if username == "" {
		return ""
	}

	return fmt.Sprintf("https://t.me/%s/%d", username, msgID)
}
