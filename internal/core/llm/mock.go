package llm

import (
	"context"
	"strings"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

// mockClient returns deterministic results derived from the input text.
// It is used in tests and keyless local runs.
type mockClient struct{}

// NewMock creates an LLM client that never calls the network.
func NewMock() Client {
	return &mockClient{}
}

func (mockClient) ExtractEvent(_ context.Context, in ExtractInput) (*domain.ExtractedEvent, error) {
	urls := make([]domain.ExternalURL, 0, len(in.KnownURLs))
	for _, u := range in.KnownURLs {
		urls = append(urls, domain.ExternalURL{URL: u})
	}

	return &domain.ExtractedEvent{
		MainEventRU:  firstSentence(in.Text),
		EventType:    "прочее",
		ExternalURLs: urls,
		Signals:      map[string]any{},
	}, nil
}

func (mockClient) ClassifyEvent(_ context.Context, _ ClassifyInput) (*domain.Classification, error) {
	return &domain.Classification{
		Labels: []domain.Label{{Label: domain.FallbackLabel, Confidence: 0.5}},
	}, nil
}

func (mockClient) SummarizeEvent(_ context.Context, in SummarizeInput) (*domain.Summary, error) {
	return &domain.Summary{
		TitleRU:        firstSentence(in.MainEventRU),
		BulletsRU:      []string{firstSentence(in.Text)},
		WhyImportantRU: "Заглушка для локального запуска без LLM",
	}, nil
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		return s[:i]
	}

	return s
}
