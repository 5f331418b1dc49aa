package canonical

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

type fakeRepo struct {
	canonicals map[string]*domain.CanonicalNews
	links      map[string]string // normalized_url -> canonical id
	messages   map[string]string // raw message id -> canonical id
	nextID     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		canonicals: map[string]*domain.CanonicalNews{},
		links:      map[string]string{},
		messages:   map[string]string{},
	}
}

func (f *fakeRepo) GetLinkCanonicalID(_ context.Context, url string) (string, error) {
	id, ok := f.links[url]
	if !ok {
		return "", db.ErrNotFound
	}

	return id, nil
}

func (f *fakeRepo) GetRecentCanonicals(_ context.Context, since time.Time) ([]domain.CanonicalNews, error) {
	var out []domain.CanonicalNews

	for _, c := range f.canonicals {
		if !c.LastSeenAt.Before(since) {
			out = append(out, *c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })

	return out, nil
}

func (f *fakeRepo) GetCanonical(_ context.Context, id string) (*domain.CanonicalNews, error) {
	c, ok := f.canonicals[id]
	if !ok {
		return nil, db.ErrNotFound
	}

	cp := *c

	return &cp, nil
}

func (f *fakeRepo) CreateCanonical(_ context.Context, news *domain.CanonicalNews) error {
	f.nextID++
	news.ID = fmt.Sprintf("c%d", f.nextID)
	news.RawCount = 1
	news.SourcesCount = 1
	cp := *news
	f.canonicals[news.ID] = &cp

	return nil
}

func (f *fakeRepo) MergeCanonical(_ context.Context, news *domain.CanonicalNews) error {
	cur, ok := f.canonicals[news.ID]
	if !ok {
		return db.ErrNotFound
	}

	cur.TitleRU = news.TitleRU
	cur.BulletsRU = news.BulletsRU
	cur.WhyImportantRU = news.WhyImportantRU
	cur.Labels = news.Labels
	cur.EventType = news.EventType
	cur.MainEventRU = news.MainEventRU

	if news.ImportanceScore > cur.ImportanceScore {
		cur.ImportanceScore = news.ImportanceScore
	}

	if news.LastSeenAt.After(cur.LastSeenAt) {
		cur.LastSeenAt = news.LastSeenAt
	}

	cur.RawCount++

	return nil
}

func (f *fakeRepo) InsertCanonicalLink(_ context.Context, link domain.CanonicalLink) error {
	if _, ok := f.links[link.NormalizedURL]; ok {
		return nil
	}

	f.links[link.NormalizedURL] = link.CanonicalNewsID

	return nil
}

func (f *fakeRepo) LinkRawMessage(_ context.Context, id, canonicalID string) error {
	if _, ok := f.messages[id]; ok {
		return db.ErrInvalidTransition
	}

	f.messages[id] = canonicalID

	return nil
}

const week = 7 * 24 * time.Hour

func TestResolveByLink(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	news := &domain.CanonicalNews{MainEventRU: "OpenAI выпустила новую модель", FirstSeenAt: now, LastSeenAt: now}
	msg := &domain.RawMessage{ID: "m1", PostedAt: now}
	links := []domain.CanonicalLink{{NormalizedURL: "https://openai.com/blog/new-model", Domain: "openai.com"}}

	require.NoError(t, resolver.CreateWithEvidence(ctx, news, msg, links))
	require.NotEmpty(t, news.ID)

	// A later message carrying the same URL resolves to the same item even
	// when its text is entirely different.
	id, kind, err := resolver.Resolve(ctx,
		[]string{"https://example.com/unseen", "https://openai.com/blog/new-model"},
		"совсем другой текст", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, news.ID, id)
	assert.Equal(t, MatchLink, kind)
}

func TestResolveFirstURLWins(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	first := &domain.CanonicalNews{MainEventRU: "событие один", FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, resolver.CreateWithEvidence(ctx, first, &domain.RawMessage{ID: "m1", PostedAt: now},
		[]domain.CanonicalLink{{NormalizedURL: "https://a.example/x"}}))

	second := &domain.CanonicalNews{MainEventRU: "событие два", FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, resolver.CreateWithEvidence(ctx, second, &domain.RawMessage{ID: "m2", PostedAt: now},
		[]domain.CanonicalLink{{NormalizedURL: "https://b.example/y"}}))

	id, _, err := resolver.Resolve(ctx, []string{"https://a.example/x", "https://b.example/y"}, "", now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	id, _, err = resolver.Resolve(ctx, []string{"https://b.example/y", "https://a.example/x"}, "", now)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
}

func TestResolveBySimilarity(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	news := &domain.CanonicalNews{
		MainEventRU: "Google представила Gemini 3 с поддержкой длинного контекста",
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	require.NoError(t, resolver.CreateWithEvidence(ctx, news, &domain.RawMessage{ID: "m1", PostedAt: now}, nil))

	id, kind, err := resolver.Resolve(ctx, nil,
		"Google представила Gemini 3 с поддержкой длинного контекста!", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, news.ID, id)
	assert.Equal(t, MatchSimilarity, kind)

	id, kind, err = resolver.Resolve(ctx, nil, "Вышел новый релиз PyTorch", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, MatchNone, kind)
}

func TestResolveSimilarityWindowExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	posted := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	news := &domain.CanonicalNews{MainEventRU: "Anthropic открыла API для новых агентов", FirstSeenAt: posted, LastSeenAt: posted}
	require.NoError(t, resolver.CreateWithEvidence(ctx, news, &domain.RawMessage{ID: "m1", PostedAt: posted}, nil))

	// Inside the window the identical text matches.
	id, _, err := resolver.Resolve(ctx, nil, news.MainEventRU, posted.Add(6*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, news.ID, id)

	// Past the window it no longer participates and a new item would start.
	id, kind, err := resolver.Resolve(ctx, nil, news.MainEventRU, posted.Add(8*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, MatchNone, kind)
}

func TestMergeEvidence(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	news := &domain.CanonicalNews{
		TitleRU:         "Старый заголовок",
		MainEventRU:     "релиз модели",
		ImportanceScore: 40,
		FirstSeenAt:     now,
		LastSeenAt:      now,
	}
	require.NoError(t, resolver.CreateWithEvidence(ctx, news, &domain.RawMessage{ID: "m1", PostedAt: now},
		[]domain.CanonicalLink{{NormalizedURL: "https://a.example/x"}}))

	update := &domain.CanonicalNews{
		TitleRU:         "Новый заголовок",
		MainEventRU:     "релиз модели",
		ImportanceScore: 25,
		LastSeenAt:      now.Add(time.Hour),
	}
	require.NoError(t, resolver.MergeEvidence(ctx, news.ID, update, &domain.RawMessage{ID: "m2", PostedAt: now.Add(time.Hour)},
		[]domain.CanonicalLink{{NormalizedURL: "https://b.example/y"}}))

	got, err := repo.GetCanonical(ctx, news.ID)
	require.NoError(t, err)
	// Descriptive fields take the latest values; the score keeps its maximum.
	assert.Equal(t, "Новый заголовок", got.TitleRU)
	assert.Equal(t, 40.0, got.ImportanceScore)
	assert.Equal(t, 2, got.RawCount)
	assert.Equal(t, now.Add(time.Hour), got.LastSeenAt)

	// A second merge with a higher score raises it.
	update2 := &domain.CanonicalNews{TitleRU: "Новый заголовок", MainEventRU: "релиз модели", ImportanceScore: 90, LastSeenAt: now.Add(2 * time.Hour)}
	require.NoError(t, resolver.MergeEvidence(ctx, news.ID, update2, &domain.RawMessage{ID: "m3", PostedAt: now.Add(2 * time.Hour)}, nil))

	got, err = repo.GetCanonical(ctx, news.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.ImportanceScore)
	assert.Equal(t, 3, got.RawCount)
}

func TestMergeDoesNotReparentLinks(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	first := &domain.CanonicalNews{MainEventRU: "событие один", FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, resolver.CreateWithEvidence(ctx, first, &domain.RawMessage{ID: "m1", PostedAt: now},
		[]domain.CanonicalLink{{NormalizedURL: "https://a.example/x"}}))

	second := &domain.CanonicalNews{MainEventRU: "событие два", FirstSeenAt: now, LastSeenAt: now}
	require.NoError(t, resolver.CreateWithEvidence(ctx, second, &domain.RawMessage{ID: "m2", PostedAt: now}, nil))

	// Merging evidence that mentions the first item's URL must not steal it.
	update := &domain.CanonicalNews{MainEventRU: "событие два", LastSeenAt: now.Add(time.Hour)}
	require.NoError(t, resolver.MergeEvidence(ctx, second.ID, update, &domain.RawMessage{ID: "m3", PostedAt: now.Add(time.Hour)},
		[]domain.CanonicalLink{{NormalizedURL: "https://a.example/x"}}))

	assert.Equal(t, first.ID, repo.links["https://a.example/x"])
}

func TestMergeToleratesAlreadyLinkedMessage(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := NewResolver(repo, week, 0.85, nil)
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	news := &domain.CanonicalNews{MainEventRU: "событие", FirstSeenAt: now, LastSeenAt: now}
	msg := &domain.RawMessage{ID: "m1", PostedAt: now}
	require.NoError(t, resolver.CreateWithEvidence(ctx, news, msg, nil))

	// Retrying the same message after a partial failure is not an error.
	update := &domain.CanonicalNews{MainEventRU: "событие", LastSeenAt: now}
	require.NoError(t, resolver.MergeEvidence(ctx, news.ID, update, msg, nil))
}
