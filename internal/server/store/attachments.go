package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetAttachment returns attachment metadata by id, or nil when unknown.
func (s *Store) GetAttachment(ctx context.Context, vaultID, id string) (*Attachment, error) {
	var a Attachment
	err := s.db.GetContext(ctx, &a,
		`SELECT id, vault_id, path, content_type, size, hash, object_key, deleted, created_at, updated_at
		 FROM attachments WHERE vault_id = ? AND id = ?`, vaultID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment %s: %w", id, err)
	}
	return &a, nil
}

// UpsertAttachment writes attachment metadata and appends an
// AttachmentChange in the same transaction.
func (s *Store) UpsertAttachment(ctx context.Context, a *Attachment) error {
	now := time.Now().UnixMilli()
	a.UpdatedAt = now
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attachment upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attachments (id, vault_id, path, content_type, size, hash, object_key, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id, vault_id) DO UPDATE SET
			path = excluded.path,
			content_type = excluded.content_type,
			size = excluded.size,
			hash = excluded.hash,
			object_key = excluded.object_key,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`,
		a.ID, a.VaultID, a.Path, a.ContentType, a.Size, a.Hash, a.ObjectKey, a.Deleted, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert attachment %s: %w", a.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attachment_changes (attachment_id, vault_id, path, hash, deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.VaultID, a.Path, a.Hash, a.Deleted, now)
	if err != nil {
		return fmt.Errorf("insert attachment change %s: %w", a.ID, err)
	}

	return tx.Commit()
}

// DeleteAttachment soft-deletes the metadata row and records the change.
// The blob itself is left to the caller (other paths may share it).
func (s *Store) DeleteAttachment(ctx context.Context, vaultID, id string) error {
	a, err := s.GetAttachment(ctx, vaultID, id)
	if err != nil {
		return err
	}
	if a == nil || a.Deleted {
		return nil
	}
	a.Deleted = true
	return s.UpsertAttachment(ctx, a)
}

// GetAttachmentChanges mirrors GetChanges for the attachment feed.
func (s *Store) GetAttachmentChanges(ctx context.Context, vaultID string, since int64, limit int) ([]AttachmentChange, int64, error) {
	var rows []AttachmentChange
	err := s.db.SelectContext(ctx, &rows,
		`SELECT seq, attachment_id, vault_id, path, hash, deleted, created_at
		 FROM attachment_changes WHERE vault_id = ? AND seq > ?
		 ORDER BY seq ASC LIMIT ?`, vaultID, since, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("get attachment changes: %w", err)
	}

	lastSeq := since
	if len(rows) > 0 {
		lastSeq = rows[len(rows)-1].Seq
	}
	return rows, lastSeq, nil
}
