package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

// GetLinkCanonicalID returns the canonical item a normalized URL is bound
// to, or ErrNotFound when the URL is unseen.
func (db *DB) GetLinkCanonicalID(ctx context.Context, normalizedURL string) (string, error) {
	var id string

	err := db.Pool.QueryRow(ctx,
		`SELECT canonical_news_id FROM canonical_links WHERE normalized_url = $1`,
		normalizedURL).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("get link canonical: %w", err)
	}

	return id, nil
}

// InsertCanonicalLink binds a normalized URL to a canonical item. The URL
// is the primary key, so a URL already bound elsewhere keeps its original
// owner and the insert is a silent no-op.
func (db *DB) InsertCanonicalLink(ctx context.Context, link domain.CanonicalLink) error {
	const query = `
		INSERT INTO canonical_links (canonical_news_id, normalized_url, domain)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (normalized_url) DO NOTHING`

	if _, err := db.Pool.Exec(ctx, query,
		link.CanonicalNewsID, link.NormalizedURL, link.Domain); err != nil {
		return fmt.Errorf("insert canonical link: %w", err)
	}

	return nil
}

// GetLinksForCanonical returns up to limit links bound to an item, oldest
// first, for the citation line of a digest entry.
func (db *DB) GetLinksForCanonical(ctx context.Context, canonicalID string, limit int) ([]domain.CanonicalLink, error) {
	const query = `
		SELECT canonical_news_id, normalized_url, domain
		FROM canonical_links
		WHERE canonical_news_id = $1::uuid
		ORDER BY created_at
		LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, canonicalID, limit)
	if err != nil {
		return nil, fmt.Errorf("get links for canonical: %w", err)
	}
	defer rows.Close()

	var links []domain.CanonicalLink

	for rows.Next() {
		var l domain.CanonicalLink
		if err := rows.Scan(&l.CanonicalNewsID, &l.NormalizedURL, &l.Domain); err != nil {
			return nil, fmt.Errorf("scan canonical link: %w", err)
		}

		links = append(links, l)
	}

	return links, rows.Err()
}
