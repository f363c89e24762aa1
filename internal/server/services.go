package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"github.com/openvault/vaultsync/internal/db"
	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/server/store"
	"github.com/openvault/vaultsync/internal/utils"
)

// Services bundles the backends the HTTP layer sits on.
type Services struct {
	DB    *sqlx.DB
	Store *store.Store
	Blob  blob.Backend
	Keys  *KeyStore
}

func NewServices(config *Config) (*Services, error) {
	if err := utils.EnsureDir(config.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Single writer: serializes bulk upserts instead of racing on the
	// immediate write lock.
	sqliteDB, err := db.NewSqliteDB(
		db.WithPath(filepath.Join(config.DataDir, "vaultsync.db")),
		db.WithMaxOpenConns(1),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st, err := store.New(sqliteDB)
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	backend, err := newBlobBackend(config)
	if err != nil {
		sqliteDB.Close()
		return nil, err
	}

	var initialKeys []string
	if config.Auth != nil {
		initialKeys = config.Auth.APIKeys
	}
	keys, err := NewKeyStore(filepath.Join(config.DataDir, "api_keys"), initialKeys)
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("load api keys: %w", err)
	}

	return &Services{
		DB:    sqliteDB,
		Store: st,
		Blob:  backend,
		Keys:  keys,
	}, nil
}

func newBlobBackend(config *Config) (blob.Backend, error) {
	switch config.Blob.Backend {
	case "s3":
		backend, err := blob.NewS3BackendWithConfig(config.Blob.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 backend: %w", err)
		}
		return backend, nil
	case "fs", "":
		root := config.Blob.Root
		if root == "" {
			root = filepath.Join(config.DataDir, "blobs")
		}
		backend, err := blob.NewFSBackend(root)
		if err != nil {
			return nil, fmt.Errorf("init fs backend: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", config.Blob.Backend)
	}
}

func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
