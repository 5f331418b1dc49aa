package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

// Publish triggers for metrics.
const (
	triggerApprove = "approve"
	triggerAuto    = "auto"
)

// SendDigestPreview delivers a queued digest to the admin chat with
// moderation buttons.
func (b *Bot) SendDigestPreview(ctx context.Context, d *domain.Digest) error {
	deadline := d.AutoPublishAt.Format("15:04 MST")
	header := fmt.Sprintf("Дайджест на модерации (автопубликация в %s)\n\n", deadline)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonApprove, callbackPrefixApprove+d.ID),
			tgbotapi.NewInlineKeyboardButtonData(buttonReject, callbackPrefixReject+d.ID),
		),
	)

	if _, err := b.sendParts(b.cfg.AdminChatID, header+d.PreviewText, &markup); err != nil {
		return fmt.Errorf("send digest preview: %w", err)
	}

	b.logger.Info().Str("digest_id", d.ID).Msg("digest preview sent")

	return nil
}

func (b *Bot) handleApprove(ctx context.Context, query *tgbotapi.CallbackQuery, digestID string) {
	actor := strconv.FormatInt(query.From.ID, 10)

	if err := b.publishDigest(ctx, digestID, triggerApprove); err != nil {
		if errors.Is(err, db.ErrInvalidTransition) {
			b.answerCallback(query, "Дайджест уже обработан")
			return
		}

		b.logger.Error().Err(err).Str("digest_id", digestID).Msg("publish failed")
		b.answerCallback(query, "Ошибка публикации")

		return
	}

	if err := b.database.RecordModerationAction(ctx, digestID, db.ModerationActionApprove, actor); err != nil {
		b.logger.Error().Err(err).Msg("failed to record moderation action")
	}

	b.answerCallback(query, "Опубликовано")
	b.clearKeyboard(query)
}

func (b *Bot) handleReject(ctx context.Context, query *tgbotapi.CallbackQuery, digestID string) {
	actor := strconv.FormatInt(query.From.ID, 10)

	if err := b.database.MarkDigestRejected(ctx, digestID); err != nil {
		if errors.Is(err, db.ErrInvalidTransition) {
			b.answerCallback(query, "Дайджест уже обработан")
			return
		}

		b.logger.Error().Err(err).Str("digest_id", digestID).Msg("reject failed")
		b.answerCallback(query, "Ошибка")

		return
	}

	if err := b.database.RecordModerationAction(ctx, digestID, db.ModerationActionReject, actor); err != nil {
		b.logger.Error().Err(err).Msg("failed to record moderation action")
	}

	observability.DigestsRejected.Inc()
	b.answerCallback(query, "Отклонено")
	b.clearKeyboard(query)
}

// publishDigest sends the digest text to the target channel and moves the
// digest to published. The transition only succeeds from queued, so a
// second approval reports ErrInvalidTransition instead of re-marking.
func (b *Bot) publishDigest(ctx context.Context, digestID, trigger string) error {
	d, err := b.database.GetDigest(ctx, digestID)
	if err != nil {
		return err
	}

	msgID, sendErr := b.sendParts(b.cfg.TargetChatID, d.PreviewText, nil)
	if sendErr != nil {
		if err := b.database.RecordPublish(ctx, digestID, b.cfg.TargetChatID, db.PublishResultFailed, sendErr.Error()); err != nil {
			b.logger.Error().Err(err).Msg("failed to record publish failure")
		}

		return sendErr
	}

	if err := b.database.MarkDigestPublished(ctx, digestID, int64(msgID)); err != nil {
		return err
	}

	if err := b.database.RecordPublish(ctx, digestID, b.cfg.TargetChatID, db.PublishResultOK, ""); err != nil {
		b.logger.Error().Err(err).Msg("failed to record publish")
	}

	observability.DigestsPublished.WithLabelValues(trigger).Inc()
	b.logger.Info().Str("digest_id", digestID).Str("trigger", trigger).Msg("digest published")

	return nil
}

// AutoPublishDue publishes every queued digest whose moderation deadline
// has passed without a decision.
func (b *Bot) AutoPublishDue(ctx context.Context, now time.Time) error {
	due, err := b.database.GetDigestsDueForAutoPublish(ctx, now)
	if err != nil {
		return fmt.Errorf("load due digests: %w", err)
	}

	for i := range due {
		d := &due[i]

		if err := b.publishDigest(ctx, d.ID, triggerAuto); err != nil {
			if errors.Is(err, db.ErrInvalidTransition) {
				continue
			}

			b.logger.Error().Err(err).Str("digest_id", d.ID).Msg("auto publish failed")

			continue
		}

		if err := b.database.RecordModerationAction(ctx, d.ID, db.ModerationActionAuto, ""); err != nil {
			b.logger.Error().Err(err).Msg("failed to record auto publish action")
		}
	}

	return nil
}
