// Package store keeps the authoritative document graph: current documents,
// their append-only revisions, and the monotonic change feeds that clients
// page through. A document mutation and its change row commit in one
// transaction, so the feed never references state that was rolled back.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id TEXT NOT NULL,
	vault_id TEXT NOT NULL,
	content TEXT,
	rev TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (doc_id, vault_id)
);

CREATE TABLE IF NOT EXISTS revisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id TEXT NOT NULL,
	vault_id TEXT NOT NULL,
	rev TEXT NOT NULL,
	content TEXT,
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_revisions_doc ON revisions(vault_id, doc_id, rev);

CREATE TABLE IF NOT EXISTS changes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id TEXT NOT NULL,
	vault_id TEXT NOT NULL,
	rev TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_changes_vault ON changes(vault_id, seq);

CREATE TABLE IF NOT EXISTS attachments (
	id TEXT NOT NULL,
	vault_id TEXT NOT NULL,
	path TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size INTEGER NOT NULL,
	hash TEXT NOT NULL,
	object_key TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (id, vault_id)
);

CREATE TABLE IF NOT EXISTS attachment_changes (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	attachment_id TEXT NOT NULL,
	vault_id TEXT NOT NULL,
	path TEXT NOT NULL,
	hash TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attachment_changes_vault ON attachment_changes(vault_id, seq);
`

// Store provides access to document, revision and change rows.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetDocument returns the current head for (vaultID, docID), or nil when the
// document has never existed.
func (s *Store) GetDocument(ctx context.Context, vaultID, docID string) (*Document, error) {
	var doc Document
	err := s.db.GetContext(ctx, &doc,
		`SELECT doc_id, vault_id, content, rev, deleted, created_at, updated_at
		 FROM documents WHERE vault_id = ? AND doc_id = ?`, vaultID, docID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	return &doc, nil
}

// UpsertDocument writes a new head for the document and, in the same
// transaction, appends a Revision and a Change row.
func (s *Store) UpsertDocument(ctx context.Context, vaultID, docID string, content *string, rev string, deleted bool) error {
	now := time.Now().UnixMilli()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (doc_id, vault_id, content, rev, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (doc_id, vault_id) DO UPDATE SET
			content = excluded.content,
			rev = excluded.rev,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`,
		docID, vaultID, content, rev, deleted, now, now)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", docID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (doc_id, vault_id, rev, content, deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		docID, vaultID, rev, content, deleted, now)
	if err != nil {
		return fmt.Errorf("insert revision %s %s: %w", docID, rev, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO changes (doc_id, vault_id, rev, deleted, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		docID, vaultID, rev, deleted, now)
	if err != nil {
		return fmt.Errorf("insert change %s %s: %w", docID, rev, err)
	}

	return tx.Commit()
}

// GetRevisionContent looks up the stored content of a specific revision.
// The second return is false when the revision is unknown (e.g. pruned).
func (s *Store) GetRevisionContent(ctx context.Context, vaultID, docID, rev string) (*string, bool, error) {
	var content *string
	err := s.db.GetContext(ctx, &content,
		`SELECT content FROM revisions WHERE vault_id = ? AND doc_id = ? AND rev = ?
		 ORDER BY id DESC LIMIT 1`, vaultID, docID, rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get revision %s %s: %w", docID, rev, err)
	}
	return content, true, nil
}

// GetChanges returns up to limit change rows with seq > since, ascending,
// and the lastSeq cursor for the batch (since when the batch is empty).
func (s *Store) GetChanges(ctx context.Context, vaultID string, since int64, limit int) ([]Change, int64, error) {
	var rows []Change
	err := s.db.SelectContext(ctx, &rows,
		`SELECT seq, doc_id, vault_id, rev, deleted, created_at
		 FROM changes WHERE vault_id = ? AND seq > ?
		 ORDER BY seq ASC LIMIT ?`, vaultID, since, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("get changes: %w", err)
	}

	lastSeq := since
	if len(rows) > 0 {
		lastSeq = rows[len(rows)-1].Seq
	}
	return rows, lastSeq, nil
}

// GetLatestSeqs returns the change-feed tips for documents and attachments.
func (s *Store) GetLatestSeqs(ctx context.Context, vaultID string) (docSeq, attachmentSeq int64, err error) {
	err = s.db.GetContext(ctx, &docSeq,
		`SELECT COALESCE(MAX(seq), 0) FROM changes WHERE vault_id = ?`, vaultID)
	if err != nil {
		return 0, 0, fmt.Errorf("latest doc seq: %w", err)
	}
	err = s.db.GetContext(ctx, &attachmentSeq,
		`SELECT COALESCE(MAX(seq), 0) FROM attachment_changes WHERE vault_id = ?`, vaultID)
	if err != nil {
		return 0, 0, fmt.Errorf("latest attachment seq: %w", err)
	}
	return docSeq, attachmentSeq, nil
}

// Cleanup prunes revisions and change rows older than maxAge. The latest
// revision per document and the latest change per document survive regardless
// of age. Returns pruned (revisions, changes) counts.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	revs, err := s.db.ExecContext(ctx,
		`DELETE FROM revisions WHERE created_at < ?
		 AND NOT EXISTS (
			SELECT 1 FROM documents d
			WHERE d.vault_id = revisions.vault_id
			  AND d.doc_id = revisions.doc_id
			  AND d.rev = revisions.rev
		 )`, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup revisions: %w", err)
	}

	chs, err := s.db.ExecContext(ctx,
		`DELETE FROM changes WHERE created_at < ?
		 AND seq NOT IN (
			SELECT MAX(seq) FROM changes GROUP BY vault_id, doc_id
		 )`, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup changes: %w", err)
	}

	prunedRevs, _ := revs.RowsAffected()
	prunedChanges, _ := chs.RowsAffected()
	return prunedRevs, prunedChanges, nil
}

// Stats aggregates row counts and blob bytes per vault.
func (s *Store) Stats(ctx context.Context) ([]VaultStats, error) {
	var stats []VaultStats
	err := s.db.SelectContext(ctx, &stats,
		`SELECT v.vault_id,
			(SELECT COUNT(*) FROM documents d WHERE d.vault_id = v.vault_id) AS documents,
			(SELECT COUNT(*) FROM revisions r WHERE r.vault_id = v.vault_id) AS revisions,
			(SELECT COUNT(*) FROM changes c WHERE c.vault_id = v.vault_id) AS changes,
			(SELECT COUNT(*) FROM attachments a WHERE a.vault_id = v.vault_id AND a.deleted = 0) AS attachments,
			(SELECT COALESCE(SUM(a.size), 0) FROM attachments a WHERE a.vault_id = v.vault_id AND a.deleted = 0) AS blob_bytes
		 FROM (
			SELECT vault_id FROM documents
			UNION SELECT vault_id FROM attachments
		 ) v
		 ORDER BY v.vault_id`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}
