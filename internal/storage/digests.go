package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

const digestColumns = `id, period, scheduled_for, preview_text, status, auto_publish_at, published_message_id`

// CreateDigest queues a rendered digest for moderation and fills in its id.
func (db *DB) CreateDigest(ctx context.Context, digest *domain.Digest) error {
	digest.ID = uuid.NewString()

	const query = `
		INSERT INTO digests (id, period, scheduled_for, preview_text, status, auto_publish_at)
		VALUES ($1::uuid, $2, $3, $4, 'queued', $5)`

	if _, err := db.Pool.Exec(ctx, query,
		digest.ID, digest.Period, digest.ScheduledFor, digest.PreviewText, digest.AutoPublishAt,
	); err != nil {
		return fmt.Errorf("create digest: %w", err)
	}

	digest.Status = domain.DigestStatusQueued

	return nil
}

// GetDigest returns a digest by id.
func (db *DB) GetDigest(ctx context.Context, id string) (*domain.Digest, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+digestColumns+` FROM digests WHERE id = $1::uuid`, id)

	digest, err := scanDigest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get digest: %w", err)
	}

	return digest, nil
}

// GetDigestsDueForAutoPublish returns queued digests whose moderation
// deadline has passed, oldest first.
func (db *DB) GetDigestsDueForAutoPublish(ctx context.Context, now time.Time) ([]domain.Digest, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+digestColumns+` FROM digests WHERE status = 'queued' AND auto_publish_at <= $1 ORDER BY auto_publish_at`,
		now)
	if err != nil {
		return nil, fmt.Errorf("get digests due for auto publish: %w", err)
	}
	defer rows.Close()

	var digests []domain.Digest

	for rows.Next() {
		d, err := scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}

		digests = append(digests, *d)
	}

	return digests, rows.Err()
}

// MarkDigestPublished moves a queued digest to published. Published and
// rejected are terminal, so the update only succeeds from queued.
func (db *DB) MarkDigestPublished(ctx context.Context, id string, publishedMsgID int64) error {
	return db.transitionDigest(ctx,
		`UPDATE digests SET status = 'published', published_message_id = $2 WHERE id = $1::uuid AND status = 'queued'`,
		id, publishedMsgID)
}

// MarkDigestRejected moves a queued digest to rejected.
func (db *DB) MarkDigestRejected(ctx context.Context, id string) error {
	return db.transitionDigest(ctx,
		`UPDATE digests SET status = 'rejected' WHERE id = $1::uuid AND status = 'queued'`,
		id)
}

func (db *DB) transitionDigest(ctx context.Context, query string, args ...any) error {
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update digest status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}

	return nil
}

func scanDigest(row pgx.Row) (*domain.Digest, error) {
	var d domain.Digest

	if err := row.Scan(
		&d.ID, &d.Period, &d.ScheduledFor, &d.PreviewText,
		&d.Status, &d.AutoPublishAt, &d.PublishedMsg,
	); err != nil {
		return nil, err
	}

	return &d, nil
}
