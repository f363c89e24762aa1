// Package basestore keeps the last agreed content per document path, the
// base input for three-way merges. It is a sqlite table fronted by a small
// LRU. Storage failures degrade to cache misses: a broken base store must
// never fail a sync.
package basestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"github.com/openvault/vaultsync/internal/db"
)

const (
	lruSize = 100

	// DefaultMaxAge is how long an untouched base entry survives Cleanup.
	DefaultMaxAge = 90 * 24 * time.Hour
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS base_content (
	path        TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_base_accessed ON base_content(accessed_at);
`

type BaseStore struct {
	db    *sqlx.DB
	cache *lru.Cache[string, string]
}

func New(dbPath string) (*BaseStore, error) {
	database, err := db.NewSqliteDB(db.WithPath(dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open base store: %w", err)
	}

	if _, err := database.Exec(schemaSQL); err != nil {
		database.Close()
		return nil, fmt.Errorf("init base store schema: %w", err)
	}

	cache, err := lru.New[string, string](lruSize)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &BaseStore{db: database, cache: cache}, nil
}

func (b *BaseStore) Close() error {
	return b.db.Close()
}

// Get returns the base content for a path, or ("", false) on miss or store
// error. A durable hit fills the LRU and refreshes accessed_at.
func (b *BaseStore) Get(ctx context.Context, path string) (string, bool) {
	if content, ok := b.cache.Get(path); ok {
		return content, true
	}

	var content string
	err := b.db.GetContext(ctx, &content, `SELECT content FROM base_content WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		slog.Warn("base store read failed", "path", path, "error", err)
		return "", false
	}

	b.cache.Add(path, content)
	if _, err := b.db.ExecContext(ctx, `UPDATE base_content SET accessed_at = ? WHERE path = ?`, time.Now().UnixMilli(), path); err != nil {
		slog.Warn("base store touch failed", "path", path, "error", err)
	}
	return content, true
}

// Set writes through to sqlite and the LRU.
func (b *BaseStore) Set(ctx context.Context, path, content string) {
	b.cache.Add(path, content)
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO base_content (path, content, accessed_at) VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET content = excluded.content, accessed_at = excluded.accessed_at`,
		path, content, time.Now().UnixMilli())
	if err != nil {
		slog.Warn("base store write failed", "path", path, "error", err)
	}
}

func (b *BaseStore) Delete(ctx context.Context, path string) {
	b.cache.Remove(path)
	if _, err := b.db.ExecContext(ctx, `DELETE FROM base_content WHERE path = ?`, path); err != nil {
		slog.Warn("base store delete failed", "path", path, "error", err)
	}
}

func (b *BaseStore) Has(ctx context.Context, path string) bool {
	if b.cache.Contains(path) {
		return true
	}
	var one int
	err := b.db.GetContext(ctx, &one, `SELECT 1 FROM base_content WHERE path = ?`, path)
	return err == nil
}

// Clear drops everything, e.g. on a full reset.
func (b *BaseStore) Clear(ctx context.Context) {
	b.cache.Purge()
	if _, err := b.db.ExecContext(ctx, `DELETE FROM base_content`); err != nil {
		slog.Warn("base store clear failed", "error", err)
	}
}

// Cleanup deletes entries not accessed within maxAge.
func (b *BaseStore) Cleanup(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := b.db.ExecContext(ctx, `DELETE FROM base_content WHERE accessed_at < ?`, cutoff)
	if err != nil {
		slog.Warn("base store cleanup failed", "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Debug("base store cleanup", "removed", n)
		// Entries may still sit in the LRU; they rewrite on next use.
		b.cache.Purge()
	}
}
