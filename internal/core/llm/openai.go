package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/platform/config"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
)

const (
	completionTemperature = 0.1
	rateLimiterBurst      = 5
	defaultMaxRetries     = 2
)

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	maxRetries  int
}

// NewOpenAI creates a Client backed by an OpenAI-compatible chat completions
// endpoint. A custom base URL (proxy, local model) is honored when set.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.LLMBaseURL, "/")
	}

	retries := cfg.LLMMaxRetries
	if retries < 0 {
		retries = defaultMaxRetries
	}

	rps := cfg.RateLimitRPS
	if rps < 1 {
		rps = 1
	}

	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
		maxRetries:  retries,
	}
}

func (c *openaiClient) ExtractEvent(ctx context.Context, in ExtractInput) (*domain.ExtractedEvent, error) {
	user := renderPrompt(extractUserPrompt, map[string]string{
		tokenPostText:  in.Text,
		tokenPermalink: in.Permalink,
		tokenKnownURLs: mustJSON(in.KnownURLs),
	})

	var event domain.ExtractedEvent
	if err := c.completeJSON(ctx, taskExtract, extractSystemPrompt, user, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

func (c *openaiClient) ClassifyEvent(ctx context.Context, in ClassifyInput) (*domain.Classification, error) {
	system := renderPrompt(classifySystemPrompt, map[string]string{
		tokenLabels: strings.Join(domain.CanonicalLabels, ", "),
	})
	user := renderPrompt(classifyUserPrompt, map[string]string{
		tokenMainEvent:    in.MainEventRU,
		tokenPostText:     in.Text,
		tokenExternalURLs: mustJSON(in.ExternalURLs),
	})

	var cls domain.Classification
	if err := c.completeJSON(ctx, taskClassify, system, user, &cls); err != nil {
		return nil, err
	}

	validateClassification(&cls)

	return &cls, nil
}

func (c *openaiClient) SummarizeEvent(ctx context.Context, in SummarizeInput) (*domain.Summary, error) {
	system := renderPrompt(summarizeSystemPrompt, map[string]string{
		tokenMaxBullets: maxSummaryBullets,
	})
	user := renderPrompt(summarizeUserPrompt, map[string]string{
		tokenMainEvent:    in.MainEventRU,
		tokenEventType:    in.EventType,
		tokenPostText:     in.Text,
		tokenExternalURLs: mustJSON(in.ExternalURLs),
		tokenSignals:      mustJSON(in.Signals),
	})

	var summary domain.Summary
	if err := c.completeJSON(ctx, taskSummarize, system, user, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

// completeJSON performs one chat completion with bounded retries and decodes
// the response into target, falling back to the first-brace/last-brace span
// when the model wraps the payload in prose or fencing.
func (c *openaiClient) completeJSON(ctx context.Context, task, system, user string, target any) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.LLMRetries.WithLabelValues(task).Inc()
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		content, err := c.complete(ctx, task, system, user)
		if err != nil {
			lastErr = err

			c.logger.Warn().Err(err).Str("task", task).Int("attempt", attempt+1).Msg("llm request failed")

			continue
		}

		if err := json.Unmarshal([]byte(extractJSON(content)), target); err != nil {
			lastErr = fmt.Errorf("decode %s response: %w", task, err)

			c.logger.Warn().Err(lastErr).Str("task", task).Int("attempt", attempt+1).Msg("llm returned unparseable content")

			continue
		}

		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrUpstreamCallFailure, task, lastErr)
}

func (c *openaiClient) complete(ctx context.Context, task, system, user string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.LLMModel,
		Temperature: completionTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})

	observability.LLMRequestDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w", ErrUpstreamCallFailure)
	}

	return resp.Choices[0].Message.Content, nil
}
