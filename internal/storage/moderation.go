package db

import (
	"context"
	"fmt"
)

// Publish results recorded in the publish log.
const (
	PublishResultOK     = "ok"
	PublishResultFailed = "failed"
)

// Moderation actions recorded for the audit trail.
const (
	ModerationActionApprove = "approve"
	ModerationActionReject  = "reject"
	ModerationActionAuto    = "auto_publish"
)

// RecordPublish appends a publish attempt to the audit log.
func (db *DB) RecordPublish(ctx context.Context, digestID string, targetChatID int64, result, details string) error {
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO publish_log (digest_id, target_chat_id, result, details) VALUES ($1::uuid, $2, $3, $4)`,
		digestID, targetChatID, result, details); err != nil {
		return fmt.Errorf("record publish: %w", err)
	}

	return nil
}

// RecordModerationAction appends a moderation decision to the audit log.
// The actor is empty for automatic publication.
func (db *DB) RecordModerationAction(ctx context.Context, digestID, action, actor string) error {
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO moderation_actions (digest_id, action, actor) VALUES ($1::uuid, $2, $3)`,
		digestID, action, actor); err != nil {
		return fmt.Errorf("record moderation action: %w", err)
	}

	return nil
}
