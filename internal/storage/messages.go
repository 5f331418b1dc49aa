package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

// InsertRawMessage stores an ingested post. Re-inserting the same
// (source, message id) pair is a no-op, so ingestion passes are idempotent.
// Returns true when a new row was written.
func (db *DB) InsertRawMessage(ctx context.Context, msg *domain.RawMessage) (bool, error) {
	urls, err := json.Marshal(msg.KnownURLs)
	if err != nil {
		return false, fmt.Errorf("marshal known urls: %w", err)
	}

	const query = `
		INSERT INTO raw_messages
			(source_id, tg_message_id, permalink, posted_at, text,
			 views, forwards, reactions_count, comments_count, known_urls_json)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_id, tg_message_id) DO NOTHING`

	tag, err := db.Pool.Exec(ctx, query,
		msg.SourceID, msg.TGMessageID, msg.Permalink, msg.PostedAt, msg.Text,
		msg.Views, msg.Forwards, msg.ReactionsCount, msg.CommentsCount, urls)
	if err != nil {
		return false, fmt.Errorf("insert raw message: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetUnlinkedMessages returns messages awaiting canonicalization, newest
// first, with the source weight joined in for scoring.
func (db *DB) GetUnlinkedMessages(ctx context.Context, limit int) ([]domain.RawMessage, error) {
	const query = `
		SELECT m.id, m.source_id, s.weight, m.tg_message_id, m.permalink, m.posted_at,
		       m.text, m.views, m.forwards, m.reactions_count, m.comments_count,
		       m.known_urls_json, m.dedup_status
		FROM raw_messages m
		JOIN sources s ON s.id = m.source_id
		WHERE m.canonical_news_id IS NULL
		ORDER BY m.posted_at DESC
		LIMIT $1`

	rows, err := db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get unlinked messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.RawMessage

	for rows.Next() {
		var (
			m    domain.RawMessage
			urls []byte
		)

		if err := rows.Scan(
			&m.ID, &m.SourceID, &m.SourceWeight, &m.TGMessageID, &m.Permalink, &m.PostedAt,
			&m.Text, &m.Views, &m.Forwards, &m.ReactionsCount, &m.CommentsCount,
			&urls, &m.DedupStatus,
		); err != nil {
			return nil, fmt.Errorf("scan raw message: %w", err)
		}

		if err := json.Unmarshal(urls, &m.KnownURLs); err != nil {
			return nil, fmt.Errorf("unmarshal known urls: %w", err)
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// CountUnlinkedMessages returns the processing backlog size.
func (db *DB) CountUnlinkedMessages(ctx context.Context) (int64, error) {
	var n int64

	if err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM raw_messages WHERE canonical_news_id IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unlinked messages: %w", err)
	}

	return n, nil
}

// LinkRawMessage attaches a message to its canonical item. A message is
// linked at most once: a second call for an already linked message is
// rejected so the canonical reference never changes after being set.
func (db *DB) LinkRawMessage(ctx context.Context, id, canonicalID string) error {
	const query = `
		UPDATE raw_messages
		SET canonical_news_id = $2::uuid, dedup_status = 'linked'
		WHERE id = $1::uuid AND canonical_news_id IS NULL`

	tag, err := db.Pool.Exec(ctx, query, id, canonicalID)
	if err != nil {
		return fmt.Errorf("link raw message: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	return nil
}
