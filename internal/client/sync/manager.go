package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openvault/vaultsync/internal/client/basestore"
	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/sdk"
)

// Manager orchestrates one sync run: status probe, pull docs, push docs,
// attachments. At most one run is in flight at a time.
type Manager struct {
	api      *sdk.SyncSDK
	settings *config.Settings
	meta     *config.MetadataCache
	base     *basestore.BaseStore
	docs     *DocSync
	attach   *AttachSync

	syncInProgress atomic.Bool
	onStatus       StatusFunc
	onReset        func()
	stats          Stats
}

type ManagerOpts struct {
	API      *sdk.SyncSDK
	Vault    *vault.Vault
	Settings *config.Settings
	Meta     *config.MetadataCache
	Base     *basestore.BaseStore
	Resolver ConflictResolver
	OnStatus StatusFunc
	// OnReset runs after a full reset cleared caches and cursors; the host
	// typically triggers a fresh sync.
	OnReset func()
}

func NewManager(opts ManagerOpts) *Manager {
	m := &Manager{
		api:      opts.API,
		settings: opts.Settings,
		meta:     opts.Meta,
		base:     opts.Base,
		onStatus: opts.OnStatus,
		onReset:  opts.OnReset,
	}
	m.docs = NewDocSync(opts.API, opts.Vault, opts.Base, opts.Meta, opts.Settings, opts.Resolver, &m.stats)
	m.attach = NewAttachSync(opts.API, opts.Vault, opts.Meta, opts.Settings, &m.stats)
	return m
}

func (m *Manager) Stats() Stats { return m.stats }

// PerformSync runs one full sync. A second call while one is in flight
// returns immediately.
func (m *Manager) PerformSync(ctx context.Context) error {
	if !m.syncInProgress.CompareAndSwap(false, true) {
		slog.Debug("sync already in progress")
		return nil
	}
	defer m.syncInProgress.Store(false)

	m.stats = Stats{}
	m.emit(Status{State: StateSyncing, Message: "Checking for changes"})

	err := m.run(ctx)
	switch {
	case errors.Is(err, ErrFullResetRequested):
		m.Reset(ctx)
		m.emit(Status{State: StateIdle, Message: "Reset complete, re-sync required", Stats: m.stats})
		if m.onReset != nil {
			m.onReset()
		}
		return nil
	case err != nil:
		m.stats.Errors++
		m.emit(Status{State: StateError, Message: err.Error(), Stats: m.stats})
		return err
	}

	m.settings.LastSync = time.Now().UnixMilli()
	if err := m.meta.Persist(); err != nil {
		slog.Warn("persist after sync failed", "error", err)
	}
	return nil
}

func (m *Manager) run(ctx context.Context) error {
	status, err := m.api.Docs.Status(ctx)
	statusUnavailable := err != nil
	if statusUnavailable {
		slog.Warn("status probe failed, assuming server changes", "error", err)
	}

	hasLocalDocs, err := m.docs.HasLocalChanges()
	if err != nil {
		return fmt.Errorf("scan local docs: %w", err)
	}

	hasLocalAttach := false
	if m.settings.SyncAttachments {
		hasLocalAttach, err = m.attach.HasLocalChanges()
		if err != nil {
			return fmt.Errorf("scan local attachments: %w", err)
		}
	}

	hasServerDocs := statusUnavailable || (status != nil && status.LastSeq > m.settings.LastSeq)
	hasServerAttach := m.settings.SyncAttachments &&
		(statusUnavailable || (status != nil && status.LastAttachmentSeq > m.settings.LastAttachmentSeq))

	if !hasLocalDocs && !hasLocalAttach && !hasServerDocs && !hasServerAttach {
		m.emit(Status{State: StateSuccess, Message: "No changes", Stats: m.stats})
		return nil
	}

	if hasServerDocs {
		m.emit(Status{State: StateSyncing, Message: "Pulling documents", Progress: &Progress{Phase: "pull"}})
		if err := m.docs.Pull(ctx); err != nil {
			return err
		}
	}

	if hasLocalDocs {
		m.emit(Status{State: StateSyncing, Message: "Pushing documents", Progress: &Progress{Phase: "push"}})
		if err := m.docs.Push(ctx); err != nil {
			return err
		}
	}

	if m.settings.SyncAttachments && (hasServerAttach || hasLocalAttach) {
		m.emit(Status{State: StateSyncing, Message: "Syncing attachments", Progress: &Progress{Phase: "attachments"}})
		if hasServerAttach {
			if err := m.attach.Pull(ctx); err != nil {
				return err
			}
		}
		if hasLocalAttach {
			if err := m.attach.Push(ctx); err != nil {
				return err
			}
			// Drain the cursor past our own uploads.
			if err := m.attach.Pull(ctx); err != nil {
				return err
			}
		}
	}

	m.emit(Status{State: StateSuccess, Message: "Sync complete", Stats: m.stats})
	return nil
}

// Reset clears metadata caches, cursors, and the base store while leaving
// local files untouched, so the next run re-syncs from scratch.
func (m *Manager) Reset(ctx context.Context) {
	m.meta.ClearAll()
	m.base.Clear(ctx)
	m.settings.LastSeq = 0
	m.settings.LastAttachmentSeq = 0
	if err := m.meta.Persist(); err != nil {
		slog.Warn("persist after reset failed", "error", err)
	}
	slog.Info("sync state reset")
}

func (m *Manager) emit(s Status) {
	if m.onStatus != nil {
		m.onStatus(s)
	}
}
