package db

import (
	"context"
	"fmt"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

// UpsertSource adds a source or updates its weight, type, and enabled flag
// if the same channel/feed is already tracked.
func (db *DB) UpsertSource(ctx context.Context, source *domain.Source) error {
	const query = `
		INSERT INTO sources (id_or_username, type, weight, enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id_or_username) DO UPDATE
		SET type = EXCLUDED.type, weight = EXCLUDED.weight, enabled = EXCLUDED.enabled
		RETURNING id`

	if err := db.Pool.QueryRow(ctx, query,
		source.IDOrUsername, source.Type, source.Weight, source.Enabled,
	).Scan(&source.ID); err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}

	return nil
}

const sourceColumns = `id, id_or_username, type, weight, enabled, tg_peer_id, access_hash, title, last_tg_message_id`

// GetEnabledSources returns all sources enabled for ingestion.
func (db *DB) GetEnabledSources(ctx context.Context) ([]domain.Source, error) {
	const query = `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE enabled
		ORDER BY id_or_username`

	return db.querySources(ctx, query)
}

// GetAllSources returns every tracked source, disabled ones included.
func (db *DB) GetAllSources(ctx context.Context) ([]domain.Source, error) {
	const query = `
		SELECT ` + sourceColumns + `
		FROM sources
		ORDER BY id_or_username`

	return db.querySources(ctx, query)
}

func (db *DB) querySources(ctx context.Context, query string) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source

	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(
			&s.ID, &s.IDOrUsername, &s.Type, &s.Weight, &s.Enabled,
			&s.TGPeerID, &s.AccessHash, &s.Title, &s.LastTGMsgID,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		sources = append(sources, s)
	}

	return sources, rows.Err()
}

// SetSourceEnabled toggles ingestion for a source without removing it.
func (db *DB) SetSourceEnabled(ctx context.Context, idOrUsername string, enabled bool) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE sources SET enabled = $2 WHERE id_or_username = $1`,
		idOrUsername, enabled)
	if err != nil {
		return fmt.Errorf("set source enabled: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateSourceTelegramInfo stores the resolved Telegram peer details so
// later history fetches can skip username resolution.
func (db *DB) UpdateSourceTelegramInfo(ctx context.Context, id string, peerID, accessHash int64, title string) error {
	if _, err := db.Pool.Exec(ctx,
		`UPDATE sources SET tg_peer_id = $2, access_hash = $3, title = $4 WHERE id = $1::uuid`,
		id, peerID, accessHash, title); err != nil {
		return fmt.Errorf("update source telegram info: %w", err)
	}

	return nil
}

// UpdateSourceCursor advances the last-fetched message id for a source.
// The cursor never moves backwards.
func (db *DB) UpdateSourceCursor(ctx context.Context, id string, lastTGMsgID int64) error {
	if _, err := db.Pool.Exec(ctx,
		`UPDATE sources SET last_tg_message_id = GREATEST(last_tg_message_id, $2) WHERE id = $1::uuid`,
		id, lastTGMsgID); err != nil {
		return fmt.Errorf("update source cursor: %w", err)
	}

	return nil
}
