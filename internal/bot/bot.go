// Package bot runs the admin-facing Telegram bot: source management
// commands, digest moderation with inline buttons, and publishing to the
// target channel.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/output/digest"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

const (
	// maxMessageSize is the largest text part sent in a single Telegram
	// message, with headroom under the hard API limit.
	maxMessageSize    = 4000
	sleepBetweenParts = 500 * time.Millisecond
	updateTimeout     = 60
)

// Callback data prefixes for moderation buttons.
const (
	callbackPrefixApprove = "approve:"
	callbackPrefixReject  = "reject:"
)

// Button labels.
const (
	buttonApprove = "✅ Опубликовать"
	buttonReject  = "❌ Отклонить"
)

// Bot is the moderation bot.
type Bot struct {
	cfg       *config.Config
	database  *db.DB
	assembler *digest.Assembler
	api       *tgbotapi.BotAPI
	logger    *zerolog.Logger
}

// New creates the bot and connects to the Bot API.
func New(cfg *config.Config, database *db.DB, assembler *digest.Assembler, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Bot{
		cfg:       cfg,
		database:  database,
		assembler: assembler,
		api:       api,
		logger:    logger,
	}, nil
}

// Run processes updates until the context is cancelled. Only configured
// admins are listened to.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}

			if update.Message == nil {
				continue
			}

			if !b.isAdmin(update.Message.From.ID) {
				b.logger.Warn().
					Int64("user_id", update.Message.From.ID).
					Str("username", update.Message.From.UserName).
					Msg("unauthorized access attempt")

				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if !b.isAdmin(query.From.ID) {
		return
	}

	data := query.Data

	switch {
	case strings.HasPrefix(data, callbackPrefixApprove):
		b.handleApprove(ctx, query, strings.TrimPrefix(data, callbackPrefixApprove))
	case strings.HasPrefix(data, callbackPrefixReject):
		b.handleReject(ctx, query, strings.TrimPrefix(data, callbackPrefixReject))
	}
}

func (b *Bot) answerCallback(query *tgbotapi.CallbackQuery, text string) {
	callback := tgbotapi.NewCallback(query.ID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error().Err(err).Msg("failed to send callback response")
	}
}

func (b *Bot) clearKeyboard(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(
		query.Message.Chat.ID, query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Debug().Err(err).Msg("failed to clear keyboard")
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Msg("failed to send reply")
	}
}

// sendParts sends a long text as multiple messages, split on line
// boundaries, with a small delay against rate limits. Returns the id of
// the first sent message.
func (b *Bot) sendParts(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	parts := splitMessage(text, maxMessageSize)
	firstID := 0

	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *markup
		}

		sent, err := b.api.Send(msg)
		if err != nil {
			return firstID, fmt.Errorf("send part %d to chat %d: %w", i+1, chatID, err)
		}

		if i == 0 {
			firstID = sent.MessageID
		}

		if i < len(parts)-1 {
			time.Sleep(sleepBetweenParts)
		}
	}

	return firstID, nil
}

func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
	)

	for _, line := range strings.Split(text, "\n") {
		// A single oversized line is cut hard.
		for len(line) > limit {
			parts = append(parts, flush(&current), line[:limit])
			line = line[limit:]
		}

		if current.Len()+len(line)+1 > limit {
			parts = append(parts, flush(&current))
		}

		if current.Len() > 0 {
			current.WriteByte('\n')
		}

		current.WriteString(line)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	out := parts[:0]

	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}

	return out
}

func flush(b *strings.Builder) string {
	s := b.String()
	b.Reset()

	return s
}
