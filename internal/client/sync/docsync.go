package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openvault/vaultsync/internal/client/basestore"
	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/merge"
	"github.com/openvault/vaultsync/internal/sdk"
)

const pullBatchSize = 100

// ErrFullResetRequested escalates out of a run when the server can no
// longer serve incremental sync and the user agreed to a full reset.
var ErrFullResetRequested = errors.New("full reset requested")

// DocSync pulls the document change feed and pushes local edits, merging
// where both sides moved.
type DocSync struct {
	api      *sdk.SyncSDK
	vault    *vault.Vault
	base     *basestore.BaseStore
	meta     *config.MetadataCache
	settings *config.Settings
	resolver ConflictResolver
	stats    *Stats
}

func NewDocSync(api *sdk.SyncSDK, v *vault.Vault, base *basestore.BaseStore, meta *config.MetadataCache, settings *config.Settings, resolver ConflictResolver, stats *Stats) *DocSync {
	return &DocSync{
		api:      api,
		vault:    v,
		base:     base,
		meta:     meta,
		settings: settings,
		resolver: resolver,
		stats:    stats,
	}
}

// Pull drains the change feed from settings.LastSeq in batches. The cursor
// advances only past changes that were applied or actively resolved; Cancel
// or a hard per-file error stops the loop without advancing further.
func (d *DocSync) Pull(ctx context.Context) error {
	for {
		page, err := d.api.Docs.Changes(ctx, d.settings.LastSeq, pullBatchSize)
		if err != nil {
			return fmt.Errorf("pull changes: %w", err)
		}

		stopped := false
		for _, change := range page.Results {
			ok, err := d.applyChange(ctx, change)
			if err != nil {
				if errors.Is(err, ErrFullResetRequested) {
					return err
				}
				slog.Error("apply change failed", "doc", change.ID, "seq", change.Seq, "error", err)
				d.stats.Errors++
				stopped = true
				break
			}
			if !ok {
				// User cancelled; leave the cursor before this change.
				stopped = true
				break
			}
			d.settings.LastSeq = change.Seq
		}

		if err := d.meta.Persist(); err != nil {
			slog.Warn("persist after pull batch failed", "error", err)
		}
		if stopped || len(page.Results) < pullBatchSize {
			return nil
		}
	}
}

// applyChange handles one feed entry. Returns false (no error) when the user
// cancelled and the cursor must not advance past this change.
func (d *DocSync) applyChange(ctx context.Context, change sdk.ChangeResult) (bool, error) {
	path := vault.DocPath(change.ID)

	if change.Deleted {
		return d.applyRemoteDelete(ctx, path)
	}

	doc, err := d.api.Docs.Get(ctx, change.ID)
	if err != nil {
		return false, err
	}
	if doc == nil {
		// Deleted between feed read and fetch; its tombstone change follows.
		return true, nil
	}
	if doc.Deleted {
		return d.applyRemoteDelete(ctx, path)
	}
	if doc.Content == nil {
		return false, fmt.Errorf("document %s has no content", change.ID)
	}
	remote := *doc.Content
	meta, tracked := d.meta.GetDoc(path)

	if !d.vault.Exists(path) {
		if tracked && meta.Rev == doc.Rev {
			// Our own push echoed back after the file was deleted
			// locally; the push phase will tombstone it.
			return true, nil
		}
		if err := d.vault.Write(path, []byte(remote)); err != nil {
			return false, err
		}
		d.recordSynced(ctx, path, doc.Rev, remote)
		d.stats.Pulled++
		return true, nil
	}

	if tracked && meta.Rev == doc.Rev {
		return true, nil
	}

	mtime, err := d.vault.ModTime(path)
	if err != nil {
		return false, err
	}
	locallyModified := !tracked || mtime.UnixMilli() > meta.LastModified

	if !locallyModified {
		if err := d.vault.Write(path, []byte(remote)); err != nil {
			return false, err
		}
		d.recordSynced(ctx, path, doc.Rev, remote)
		d.stats.Pulled++
		return true, nil
	}

	// Both sides moved: merge against the stored base, or a computed
	// common base when the store has no entry.
	localBytes, err := d.vault.Read(path)
	if err != nil {
		return false, err
	}
	local := string(localBytes)

	base, found := d.base.Get(ctx, path)
	if !found {
		base = merge.CommonBase(local, remote)
	}

	merged, regions, err := merge.Merge(base, local, remote)
	if err == nil && len(regions) == 0 {
		if err := d.vault.Write(path, []byte(merged)); err != nil {
			return false, err
		}
		// The base becomes the remote content so the next push carries
		// only the local delta. lastModified stays put so the push phase
		// still sees the file as modified; the rev advances to suppress
		// a re-pull of this change.
		d.base.Set(ctx, path, remote)
		d.meta.SetDoc(config.DocMeta{Path: path, Rev: doc.Rev, LastModified: meta.LastModified})
		d.stats.Pulled++
		return true, nil
	}

	d.stats.Conflicts++
	res := d.resolver.Resolve(ctx, &Conflict{
		Path:          path,
		LocalContent:  local,
		RemoteContent: remote,
		RemoteRev:     doc.Rev,
		Regions:       regions,
	})
	switch res {
	case ResolveUseLocal:
		// Keep the file; adopt the remote rev so the push phase can
		// replace it on the server.
		d.meta.SetDoc(config.DocMeta{Path: path, Rev: doc.Rev, LastModified: meta.LastModified})
		return true, nil
	case ResolveUseRemote:
		if err := d.vault.Write(path, []byte(remote)); err != nil {
			return false, err
		}
		d.recordSynced(ctx, path, doc.Rev, remote)
		d.stats.Pulled++
		return true, nil
	case ResolveFullReset:
		return false, ErrFullResetRequested
	default:
		return false, nil
	}
}

func (d *DocSync) applyRemoteDelete(ctx context.Context, path string) (bool, error) {
	if !d.vault.Exists(path) {
		d.forget(ctx, path)
		return true, nil
	}

	meta, tracked := d.meta.GetDoc(path)
	mtime, err := d.vault.ModTime(path)
	if err != nil {
		return false, err
	}

	if tracked && mtime.UnixMilli() <= meta.LastModified {
		if err := d.vault.Delete(path); err != nil {
			return false, err
		}
		d.forget(ctx, path)
		d.stats.Pulled++
		return true, nil
	}

	// Delete-vs-edit: the file changed locally after the last sync.
	localBytes, err := d.vault.Read(path)
	if err != nil {
		return false, err
	}

	d.stats.Conflicts++
	res := d.resolver.Resolve(ctx, &Conflict{
		Path:          path,
		LocalContent:  string(localBytes),
		RemoteDeleted: true,
	})
	switch res {
	case ResolveUseRemote:
		if err := d.vault.Delete(path); err != nil {
			return false, err
		}
		d.forget(ctx, path)
		d.stats.Pulled++
		return true, nil
	case ResolveUseLocal:
		// Keep the file untracked so the push phase re-creates the doc.
		d.meta.DeleteDoc(path)
		return true, nil
	case ResolveFullReset:
		return false, ErrFullResetRequested
	default:
		return false, nil
	}
}

// recordSynced updates metadata and base after the local file was brought in
// line with the server.
func (d *DocSync) recordSynced(ctx context.Context, path, rev, content string) {
	mtime, err := d.vault.ModTime(path)
	if err != nil {
		slog.Warn("stat after write failed", "path", path, "error", err)
		return
	}
	d.meta.SetDoc(config.DocMeta{Path: path, Rev: rev, LastModified: mtime.UnixMilli()})
	d.base.Set(ctx, path, content)
}

func (d *DocSync) forget(ctx context.Context, path string) {
	d.meta.DeleteDoc(path)
	d.base.Delete(ctx, path)
}
