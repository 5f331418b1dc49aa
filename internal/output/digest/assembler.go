// Package digest turns the highest-scored canonical items into the
// formatted digest text queued for moderation.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

const (
	maxBulletsPerItem = 6
	maxCitations      = 3
)

// Store is the read surface digest assembly needs.
type Store interface {
	GetTopCanonicals(ctx context.Context, since time.Time, limit int) ([]domain.CanonicalNews, error)
	GetLinksForCanonical(ctx context.Context, canonicalID string, limit int) ([]domain.CanonicalLink, error)
}

var _ Store = (*db.DB)(nil)

// Settings bound digest size.
type Settings struct {
	MaxItems       int
	MaxPerCategory int
}

// Assembler builds digest text. It only reads; queueing and publishing
// happen elsewhere.
type Assembler struct {
	store  Store
	logger *zerolog.Logger
}

// NewAssembler builds an assembler over the given store.
func NewAssembler(store Store, logger *zerolog.Logger) *Assembler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Assembler{store: store, logger: logger}
}

// Assemble renders the digest for a period: the top items by importance,
// bucketed under their best label in the fixed section order. Once a
// category reaches its cap, further items of that category are dropped,
// so a digest can come out shorter than MaxItems.
func (a *Assembler) Assemble(ctx context.Context, period string, settings Settings) (string, error) {
	items, err := a.store.GetTopCanonicals(ctx, time.Time{}, settings.MaxItems)
	if err != nil {
		return "", fmt.Errorf("load top items: %w", err)
	}

	perCategory := make(map[string]int)
	sections := make(map[string][]string)

	for i := range items {
		item := &items[i]
		labels := sortedLabels(item.Labels)

		best := domain.FallbackLabel
		if len(labels) > 0 {
			best = labels[0].Label
		}

		if perCategory[best] >= settings.MaxPerCategory {
			continue
		}

		perCategory[best]++

		body, err := a.renderItem(ctx, item, labels)
		if err != nil {
			return "", err
		}

		sections[best] = append(sections[best], body)
	}

	header := "Утренний AI-дайджест"
	if period == domain.PeriodEvening {
		header = "Вечерний AI-дайджест"
	}

	lines := []string{header, ""}

	for _, label := range domain.CanonicalLabels {
		if len(sections[label]) == 0 {
			continue
		}

		lines = append(lines, "## "+label)
		lines = append(lines, sections[label]...)
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (a *Assembler) renderItem(ctx context.Context, item *domain.CanonicalNews, labels []domain.Label) (string, error) {
	var b strings.Builder

	b.WriteString("• " + item.TitleRU)

	if len(labels) > 1 {
		tags := make([]string, 0, len(labels)-1)
		for _, l := range labels[1:] {
			tags = append(tags, l.Label)
		}

		b.WriteString(" [теги: " + strings.Join(tags, ", ") + "]")
	}

	bullets := item.BulletsRU
	if len(bullets) > maxBulletsPerItem {
		bullets = bullets[:maxBulletsPerItem]
	}

	for _, bullet := range bullets {
		b.WriteString("\n  - " + bullet)
	}

	b.WriteString("\n  Почему важно: " + item.WhyImportantRU)

	links, err := a.store.GetLinksForCanonical(ctx, item.ID, maxCitations)
	if err != nil {
		return "", fmt.Errorf("load links for %s: %w", item.ID, err)
	}

	if len(links) > 0 {
		urls := make([]string, 0, len(links))
		for _, l := range links {
			urls = append(urls, l.NormalizedURL)
		}

		b.WriteString("\n  Источники: " + strings.Join(urls, ", "))
	}

	return b.String(), nil
}

// sortedLabels orders classifications by confidence, highest first, keeping
// the stored order for ties. The first entry is the bucketing label, the
// rest become the tag list.
func sortedLabels(labels []domain.Label) []domain.Label {
	out := make([]domain.Label, len(labels))
	copy(out, labels)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })

	return out
}
