// Package llm is the boundary to the language-model collaborator. Three
// JSON-shaped calls are made per message: event extraction, multilabel
// classification, and summarization. Responses are validated here before
// they enter the canonicalization core.
package llm

import (
	"context"
	"errors"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

// Client performs the three structured calls per raw message.
type Client interface {
	ExtractEvent(ctx context.Context, in ExtractInput) (*domain.ExtractedEvent, error)
	ClassifyEvent(ctx context.Context, in ClassifyInput) (*domain.Classification, error)
	SummarizeEvent(ctx context.Context, in SummarizeInput) (*domain.Summary, error)
}

// ExtractInput carries the message fields the extraction prompt needs.
type ExtractInput struct {
	Text      string
	Permalink string
	KnownURLs []string
}

// ClassifyInput carries the event fields the multilabel prompt needs.
type ClassifyInput struct {
	MainEventRU  string
	Text         string
	ExternalURLs []domain.ExternalURL
}

// SummarizeInput carries the event fields the summary prompt needs.
type SummarizeInput struct {
	MainEventRU  string
	EventType    string
	Text         string
	ExternalURLs []domain.ExternalURL
	Signals      map[string]any
}

// ErrUpstreamCallFailure indicates the call exhausted its retry budget or
// returned content that could not be parsed.
var ErrUpstreamCallFailure = errors.New("llm call failed after retries")

// ErrEmptyExtraction indicates the extraction returned no usable event.
var ErrEmptyExtraction = errors.New("extraction returned empty main event")

// Task names for metrics.
const (
	taskExtract   = "extract"
	taskClassify  = "classify"
	taskSummarize = "summarize"
)

// allowedLabels is the fixed classification label set.
var allowedLabels = func() map[string]struct{} {
	m := make(map[string]struct{}, len(domain.CanonicalLabels))
	for _, l := range domain.CanonicalLabels {
		m[l] = struct{}{}
	}

	return m
}()

// validateClassification drops labels outside the fixed set and clamps
// confidence into [0, 1].
func validateClassification(c *domain.Classification) {
	kept := c.Labels[:0]

	for _, l := range c.Labels {
		if _, ok := allowedLabels[l.Label]; !ok {
			continue
		}

		if l.Confidence < 0 {
			l.Confidence = 0
		}

		if l.Confidence > 1 {
			l.Confidence = 1
		}

		kept = append(kept, l)
	}

	c.Labels = kept
}
