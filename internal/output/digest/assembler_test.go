package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

type memStore struct {
	items []domain.CanonicalNews
	links map[string][]domain.CanonicalLink
}

func (s *memStore) GetTopCanonicals(_ context.Context, _ time.Time, limit int) ([]domain.CanonicalNews, error) {
	out := make([]domain.CanonicalNews, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ImportanceScore > out[j].ImportanceScore })

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *memStore) GetLinksForCanonical(_ context.Context, id string, limit int) ([]domain.CanonicalLink, error) {
	links := s.links[id]
	if len(links) > limit {
		links = links[:limit]
	}

	return links, nil
}

func item(id, title, label string, score float64) domain.CanonicalNews {
	return domain.CanonicalNews{
		ID:              id,
		TitleRU:         title,
		ImportanceScore: score,
		Labels:          []domain.Label{{Label: label, Confidence: 0.9}},
		WhyImportantRU:  "важно",
	}
}

func TestAssembleBasicLayout(t *testing.T) {
	store := &memStore{
		items: []domain.CanonicalNews{
			{
				ID:              "c1",
				TitleRU:         "Новая модель",
				ImportanceScore: 90,
				Labels:          []domain.Label{{Label: "NLP", Confidence: 0.9}, {Label: "AGENTS", Confidence: 0.4}},
				BulletsRU:       []string{"пункт один", "пункт два"},
				WhyImportantRU:  "меняет SOTA",
			},
			item("c2", "Новый фреймворк", "FRAMEWORKS", 50),
		},
		links: map[string][]domain.CanonicalLink{
			"c1": {{NormalizedURL: "https://a.example/x"}, {NormalizedURL: "https://b.example/y"}},
		},
	}

	a := NewAssembler(store, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodMorning, Settings{MaxItems: 10, MaxPerCategory: 3})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Утренний AI-дайджест"))
	assert.Contains(t, text, "## NLP")
	assert.Contains(t, text, "• Новая модель [теги: AGENTS]")
	assert.Contains(t, text, "\n  - пункт один")
	assert.Contains(t, text, "  Почему важно: меняет SOTA")
	assert.Contains(t, text, "  Источники: https://a.example/x, https://b.example/y")
	assert.Contains(t, text, "## FRAMEWORKS")

	// NLP comes before FRAMEWORKS in the canonical section order.
	assert.Less(t, strings.Index(text, "## NLP"), strings.Index(text, "## FRAMEWORKS"))
}

func TestAssembleEveningHeader(t *testing.T) {
	a := NewAssembler(&memStore{}, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodEvening, Settings{MaxItems: 10, MaxPerCategory: 3})
	require.NoError(t, err)
	assert.Equal(t, "Вечерний AI-дайджест", text)
}

func TestAssembleCategoryCap(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 6; i++ {
		store.items = append(store.items, item(fmt.Sprintf("c%d", i), fmt.Sprintf("Новость %d", i), "RAG", float64(100-i)))
	}

	a := NewAssembler(store, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodMorning, Settings{MaxItems: 10, MaxPerCategory: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(text, "• "))
	// The two highest-scored items win; the rest are dropped, not deferred.
	assert.Contains(t, text, "Новость 0")
	assert.Contains(t, text, "Новость 1")
	assert.NotContains(t, text, "Новость 2")
}

func TestAssembleTotalCap(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 20; i++ {
		label := domain.CanonicalLabels[i%len(domain.CanonicalLabels)]
		store.items = append(store.items, item(fmt.Sprintf("c%d", i), fmt.Sprintf("Новость %d", i), label, float64(100-i)))
	}

	a := NewAssembler(store, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodMorning, Settings{MaxItems: 5, MaxPerCategory: 3})
	require.NoError(t, err)

	assert.Equal(t, 5, strings.Count(text, "• "))
}

func TestAssembleFallbackLabel(t *testing.T) {
	store := &memStore{items: []domain.CanonicalNews{{ID: "c1", TitleRU: "Без меток", ImportanceScore: 10, WhyImportantRU: "важно"}}}

	a := NewAssembler(store, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodMorning, Settings{MaxItems: 10, MaxPerCategory: 3})
	require.NoError(t, err)

	assert.Contains(t, text, "## FRAMEWORKS")
	assert.Contains(t, text, "• Без меток")
}

func TestAssembleBulletAndCitationLimits(t *testing.T) {
	bullets := make([]string, 10)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("пункт %d", i)
	}

	links := make([]domain.CanonicalLink, 5)
	for i := range links {
		links[i] = domain.CanonicalLink{NormalizedURL: fmt.Sprintf("https://example.com/%d", i)}
	}

	store := &memStore{
		items: []domain.CanonicalNews{{
			ID: "c1", TitleRU: "Длинная новость", ImportanceScore: 10,
			Labels: []domain.Label{{Label: "NLP", Confidence: 1}}, BulletsRU: bullets,
		}},
		links: map[string][]domain.CanonicalLink{"c1": links},
	}

	a := NewAssembler(store, nil)
	text, err := a.Assemble(context.Background(), domain.PeriodMorning, Settings{MaxItems: 10, MaxPerCategory: 3})
	require.NoError(t, err)

	assert.Equal(t, 6, strings.Count(text, "\n  - "))
	assert.Contains(t, text, "https://example.com/2")
	assert.NotContains(t, text, "https://example.com/3")
}
