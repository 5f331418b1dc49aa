package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

const canonicalColumns = `
	id, title_ru, summary_bullets_json, why_important_ru, labels_json,
	event_type, main_event_ru, importance_score, first_seen_at, last_seen_at,
	sources_count, raw_count, metadata_json`

// CreateCanonical inserts a new canonical news item and fills in its id.
func (db *DB) CreateCanonical(ctx context.Context, news *domain.CanonicalNews) error {
	bullets, labels, metadata, err := marshalCanonicalJSON(news)
	if err != nil {
		return err
	}

	news.ID = uuid.NewString()

	const query = `
		INSERT INTO canonical_news
			(id, title_ru, summary_bullets_json, why_important_ru, labels_json,
			 event_type, main_event_ru, importance_score, first_seen_at, last_seen_at, metadata_json)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := db.Pool.Exec(ctx, query,
		news.ID, news.TitleRU, bullets, news.WhyImportantRU, labels,
		news.EventType, news.MainEventRU, news.ImportanceScore,
		news.FirstSeenAt, news.LastSeenAt, metadata,
	); err != nil {
		return fmt.Errorf("create canonical: %w", err)
	}

	return nil
}

// GetCanonical returns a single canonical item by id.
func (db *DB) GetCanonical(ctx context.Context, id string) (*domain.CanonicalNews, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+canonicalColumns+` FROM canonical_news WHERE id = $1::uuid`, id)

	news, err := scanCanonical(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get canonical: %w", err)
	}

	return news, nil
}

// GetRecentCanonicals returns items last seen at or after the cutoff,
// most recently seen first. This is the candidate order for the
// similarity pass of the canonicalization engine.
func (db *DB) GetRecentCanonicals(ctx context.Context, since time.Time) ([]domain.CanonicalNews, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+canonicalColumns+` FROM canonical_news WHERE last_seen_at >= $1 ORDER BY last_seen_at DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("get recent canonicals: %w", err)
	}
	defer rows.Close()

	return collectCanonicals(rows)
}

// GetTopCanonicals returns the highest-scored items seen within the window,
// for digest assembly.
func (db *DB) GetTopCanonicals(ctx context.Context, since time.Time, limit int) ([]domain.CanonicalNews, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+canonicalColumns+` FROM canonical_news WHERE last_seen_at >= $1 ORDER BY importance_score DESC, last_seen_at DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("get top canonicals: %w", err)
	}
	defer rows.Close()

	return collectCanonicals(rows)
}

// MergeCanonical folds new evidence into an existing item: descriptive
// fields take the latest values, the importance score keeps its maximum,
// last_seen_at and raw_count only move forward.
func (db *DB) MergeCanonical(ctx context.Context, news *domain.CanonicalNews) error {
	bullets, labels, metadata, err := marshalCanonicalJSON(news)
	if err != nil {
		return err
	}

	const query = `
		UPDATE canonical_news
		SET title_ru = $2,
		    summary_bullets_json = $3,
		    why_important_ru = $4,
		    labels_json = $5,
		    event_type = $6,
		    main_event_ru = $7,
		    importance_score = GREATEST(importance_score, $8),
		    last_seen_at = GREATEST(last_seen_at, $9),
		    raw_count = raw_count + 1,
		    metadata_json = $10
		WHERE id = $1::uuid`

	tag, err := db.Pool.Exec(ctx, query,
		news.ID, news.TitleRU, bullets, news.WhyImportantRU, labels,
		news.EventType, news.MainEventRU, news.ImportanceScore, news.LastSeenAt, metadata)
	if err != nil {
		return fmt.Errorf("merge canonical: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func marshalCanonicalJSON(news *domain.CanonicalNews) (bullets, labels, metadata []byte, err error) {
	if bullets, err = json.Marshal(news.BulletsRU); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal bullets: %w", err)
	}

	if news.Labels == nil {
		news.Labels = []domain.Label{}
	}

	if labels, err = json.Marshal(news.Labels); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal labels: %w", err)
	}

	if news.Metadata == nil {
		news.Metadata = map[string]any{}
	}

	if metadata, err = json.Marshal(news.Metadata); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return bullets, labels, metadata, nil
}

func scanCanonical(row pgx.Row) (*domain.CanonicalNews, error) {
	var (
		news     domain.CanonicalNews
		bullets  []byte
		labels   []byte
		metadata []byte
	)

	if err := row.Scan(
		&news.ID, &news.TitleRU, &bullets, &news.WhyImportantRU, &labels,
		&news.EventType, &news.MainEventRU, &news.ImportanceScore,
		&news.FirstSeenAt, &news.LastSeenAt, &news.SourcesCount, &news.RawCount, &metadata,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(bullets, &news.BulletsRU); err != nil {
		return nil, fmt.Errorf("unmarshal bullets: %w", err)
	}

	if err := json.Unmarshal(labels, &news.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}

	if err := json.Unmarshal(metadata, &news.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return &news, nil
}

func collectCanonicals(rows pgx.Rows) ([]domain.CanonicalNews, error) {
	var items []domain.CanonicalNews

	for rows.Next() {
		news, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canonical: %w", err)
		}

		items = append(items, *news)
	}

	return items, rows.Err()
}
