// Package canonical implements the deduplication engine that maps raw
// messages onto canonical news items via link identity and text similarity.
package canonical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
	"github.com/ndaukov/ai-tg-digest/internal/core/textsim"
	"github.com/ndaukov/ai-tg-digest/internal/platform/observability"
	db "github.com/ndaukov/ai-tg-digest/internal/storage"
)

// Match kinds reported by Resolve.
const (
	MatchLink       = "link"
	MatchSimilarity = "similarity"
	MatchNone       = "new"
)

// Repository is the storage surface the resolver needs.
type Repository interface {
	GetLinkCanonicalID(ctx context.Context, normalizedURL string) (string, error)
	GetRecentCanonicals(ctx context.Context, since time.Time) ([]domain.CanonicalNews, error)
	GetCanonical(ctx context.Context, id string) (*domain.CanonicalNews, error)
	CreateCanonical(ctx context.Context, news *domain.CanonicalNews) error
	MergeCanonical(ctx context.Context, news *domain.CanonicalNews) error
	InsertCanonicalLink(ctx context.Context, link domain.CanonicalLink) error
	LinkRawMessage(ctx context.Context, id, canonicalID string) error
}

var _ Repository = (*db.DB)(nil)

// Resolver decides whether an extracted event belongs to an existing
// canonical item or starts a new one.
type Resolver struct {
	repo         Repository
	dedupWindow  time.Duration
	simThreshold float64
	logger       *zerolog.Logger
}

// NewResolver builds a resolver. dedupWindow bounds the similarity
// candidate set; simThreshold is the minimum ratio for a text match.
func NewResolver(repo Repository, dedupWindow time.Duration, simThreshold float64, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Resolver{
		repo:         repo,
		dedupWindow:  dedupWindow,
		simThreshold: simThreshold,
		logger:       logger,
	}
}

// Resolve returns the canonical item id for a message, or "" when no match
// exists. Link identity is checked first: the first normalized URL already
// bound to an item decides, in the order URLs appear. Only when no URL is
// known does the text similarity pass over recent items run, comparing the
// message's raw text against each candidate's stored event description and
// taking the first candidate at or above the threshold in
// most-recently-seen order. The raw text is used rather than the extracted
// wording so that two posts of the same text merge even when their
// extractions phrase the event differently.
func (r *Resolver) Resolve(ctx context.Context, normalizedURLs []string, rawText string, now time.Time) (string, string, error) {
	for _, u := range normalizedURLs {
		if u == "" {
			continue
		}

		id, err := r.repo.GetLinkCanonicalID(ctx, u)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				continue
			}

			return "", "", fmt.Errorf("resolve by link: %w", err)
		}

		observability.CanonicalResolutions.WithLabelValues(MatchLink).Inc()
		r.logger.Debug().Str("url", u).Str("canonical_id", id).Msg("matched by link")

		return id, MatchLink, nil
	}

	candidates, err := r.repo.GetRecentCanonicals(ctx, now.Add(-r.dedupWindow))
	if err != nil {
		return "", "", fmt.Errorf("resolve by similarity: %w", err)
	}

	for i := range candidates {
		c := &candidates[i]
		if c.MainEventRU == "" {
			continue
		}

		if ratio := textsim.Similarity(rawText, c.MainEventRU); ratio >= r.simThreshold {
			observability.CanonicalResolutions.WithLabelValues(MatchSimilarity).Inc()
			r.logger.Debug().
				Str("canonical_id", c.ID).
				Float64("ratio", ratio).
				Msg("matched by similarity")

			return c.ID, MatchSimilarity, nil
		}
	}

	observability.CanonicalResolutions.WithLabelValues(MatchNone).Inc()

	return "", MatchNone, nil
}

// CreateWithEvidence creates a new canonical item, links the raw message to
// it, and binds the event's URLs.
func (r *Resolver) CreateWithEvidence(ctx context.Context, news *domain.CanonicalNews, msg *domain.RawMessage, links []domain.CanonicalLink) error {
	if err := r.repo.CreateCanonical(ctx, news); err != nil {
		return err
	}

	return r.attachEvidence(ctx, news.ID, msg, links)
}

// MergeEvidence folds a new message into an existing item. Descriptive
// fields take the incoming values, the importance score keeps its maximum,
// and URL bindings already owned by another item are left untouched.
func (r *Resolver) MergeEvidence(ctx context.Context, canonicalID string, update *domain.CanonicalNews, msg *domain.RawMessage, links []domain.CanonicalLink) error {
	update.ID = canonicalID
	if err := r.repo.MergeCanonical(ctx, update); err != nil {
		return err
	}

	return r.attachEvidence(ctx, canonicalID, msg, links)
}

func (r *Resolver) attachEvidence(ctx context.Context, canonicalID string, msg *domain.RawMessage, links []domain.CanonicalLink) error {
	if err := r.repo.LinkRawMessage(ctx, msg.ID, canonicalID); err != nil {
		// Already linked means a previous pass got this far before failing.
		if !errors.Is(err, db.ErrInvalidTransition) {
			return err
		}

		r.logger.Debug().Str("message_id", msg.ID).Msg("message already linked")
	}

	for _, link := range links {
		link.CanonicalNewsID = canonicalID
		if err := r.repo.InsertCanonicalLink(ctx, link); err != nil {
			return err
		}
	}

	return nil
}
