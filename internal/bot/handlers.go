package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/output/digest"
)

const defaultSourceWeight = 1.0

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("handling command")

	switch msg.Command() {
	case "add":
		b.handleAdd(ctx, msg)
	case "list":
		b.handleList(ctx, msg)
	case "disable":
		b.handleSetEnabled(ctx, msg, false)
	case "enable":
		b.handleSetEnabled(ctx, msg, true)
	case "digest":
		b.handleDigestPreview(ctx, msg)
	case "help", "start":
		b.reply(msg, helpText)
	default:
		b.reply(msg, "Неизвестная команда. /help")
	}
}

const helpText = `Команды:
/add <@канал|url> [вес] [rss] — добавить источник
/list — список источников
/enable <@канал|url> — включить источник
/disable <@канал|url> — выключить источник
/digest <morning|evening> — собрать дайджест сейчас (без очереди)`

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, "Использование: /add <@канал|url> [вес] [rss]")
		return
	}

	source := &domain.Source{
		IDOrUsername: args[0],
		Type:         domain.SourceTypeChannel,
		Weight:       defaultSourceWeight,
		Enabled:      true,
	}

	for _, arg := range args[1:] {
		if arg == domain.SourceTypeRSS {
			source.Type = domain.SourceTypeRSS
			continue
		}

		if w, err := strconv.ParseFloat(arg, 64); err == nil {
			source.Weight = w
		}
	}

	if err := b.database.UpsertSource(ctx, source); err != nil {
		b.logger.Error().Err(err).Str("source", source.IDOrUsername).Msg("failed to add source")
		b.reply(msg, "Не удалось добавить источник")

		return
	}

	b.reply(msg, fmt.Sprintf("Источник %s добавлен (тип %s, вес %.1f)", source.IDOrUsername, source.Type, source.Weight))
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) {
	sources, err := b.database.GetAllSources(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to list sources")
		b.reply(msg, "Не удалось получить список")

		return
	}

	b.reply(msg, formatSourceList(sources))
}

// formatSourceList renders every tracked source with its state, so a
// disabled source stays visible and can be re-enabled by name.
func formatSourceList(sources []domain.Source) string {
	if len(sources) == 0 {
		return "Источников нет. /add чтобы добавить."
	}

	var sb strings.Builder

	sb.WriteString("Источники:\n")

	for _, s := range sources {
		state := "выключен"
		if s.Enabled {
			state = "включен"
		}

		sb.WriteString(fmt.Sprintf("• %s (%s, вес %.1f, %s)\n", s.IDOrUsername, s.Type, s.Weight, state))
	}

	return sb.String()
}

func (b *Bot) handleSetEnabled(ctx context.Context, msg *tgbotapi.Message, enabled bool) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg, "Укажите источник")
		return
	}

	if err := b.database.SetSourceEnabled(ctx, name, enabled); err != nil {
		b.logger.Error().Err(err).Str("source", name).Msg("failed to toggle source")
		b.reply(msg, "Источник не найден")

		return
	}

	state := "выключен"
	if enabled {
		state = "включен"
	}

	b.reply(msg, fmt.Sprintf("Источник %s %s", name, state))
}

// handleDigestPreview assembles a digest on demand and shows it to the
// admin, without queueing or publishing anything.
func (b *Bot) handleDigestPreview(ctx context.Context, msg *tgbotapi.Message) {
	period := strings.TrimSpace(msg.CommandArguments())
	if period != domain.PeriodMorning && period != domain.PeriodEvening {
		period = domain.PeriodMorning
	}

	text, err := b.assembler.Assemble(ctx, period, digest.Settings{
		MaxItems:       b.cfg.MaxItemsPerDigest,
		MaxPerCategory: b.cfg.MaxItemsPerCategory,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to assemble digest")
		b.reply(msg, "Не удалось собрать дайджест")

		return
	}

	if _, err := b.sendParts(msg.Chat.ID, text, nil); err != nil {
		b.logger.Error().Err(err).Msg("failed to send digest preview")
	}
}
