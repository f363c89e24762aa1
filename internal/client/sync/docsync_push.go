package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/sdk"
)

// HasLocalChanges reports whether any document is a push candidate. Cheap
// metadata-vs-mtime scan, no file reads.
func (d *DocSync) HasLocalChanges() (bool, error) {
	files, err := d.vault.ListDocs()
	if err != nil {
		return false, err
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		meta, tracked := d.meta.GetDoc(f.Path)
		if !tracked || meta.LastModified < f.ModTime.UnixMilli() {
			return true, nil
		}
	}
	for path := range d.meta.Docs() {
		if !seen[path] {
			return true, nil
		}
	}
	return false, nil
}

// Push sends all modified and deleted documents in one bulk call and applies
// the per-doc results in order.
func (d *DocSync) Push(ctx context.Context) error {
	files, err := d.vault.ListDocs()
	if err != nil {
		return fmt.Errorf("list docs: %w", err)
	}

	var items []sdk.BulkDocItem
	pathByID := map[string]string{}
	pushTimeMtimes := map[string]int64{}
	pushedContent := map[string]string{}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		meta, tracked := d.meta.GetDoc(f.Path)
		if tracked && meta.LastModified >= f.ModTime.UnixMilli() {
			continue
		}

		// Confirm with a fresh stat before reading; the walk's mtime may
		// already be stale.
		mtime, err := d.vault.ModTime(f.Path)
		if err != nil {
			slog.Warn("stat push candidate failed", "path", f.Path, "error", err)
			d.stats.Errors++
			continue
		}
		if tracked && meta.LastModified >= mtime.UnixMilli() {
			continue
		}

		content, err := d.vault.Read(f.Path)
		if err != nil {
			slog.Warn("read push candidate failed", "path", f.Path, "error", err)
			d.stats.Errors++
			continue
		}

		docID := vault.DocID(f.Path)
		text := string(content)
		item := sdk.BulkDocItem{ID: docID, Rev: meta.Rev, Content: &text}
		if base, ok := d.base.Get(ctx, f.Path); ok {
			item.BaseContent = &base
		}
		items = append(items, item)
		pathByID[docID] = f.Path
		pushTimeMtimes[f.Path] = mtime.UnixMilli()
		pushedContent[f.Path] = text
	}

	// Tracked paths with no file anymore become deletion records.
	deleted := map[string]bool{}
	for path, meta := range d.meta.Docs() {
		if seen[path] {
			continue
		}
		docID := vault.DocID(path)
		items = append(items, sdk.BulkDocItem{ID: docID, Rev: meta.Rev, Deleted: true})
		pathByID[docID] = path
		deleted[path] = true
	}

	if len(items) == 0 {
		return nil
	}

	results, err := d.api.Docs.Bulk(ctx, items)
	if err != nil {
		return fmt.Errorf("bulk push: %w", err)
	}

	for _, result := range results {
		path := pathByID[result.ID]
		if err := d.applyPushResult(ctx, path, result, pushTimeMtimes, pushedContent, deleted); err != nil {
			return err
		}
	}

	return d.meta.Persist()
}

func (d *DocSync) applyPushResult(ctx context.Context, path string, result sdk.BulkDocResult, pushTimeMtimes map[string]int64, pushedContent map[string]string, deleted map[string]bool) error {
	switch {
	case result.OK && result.Merged:
		return d.adoptServerMerge(ctx, path, result, pushTimeMtimes)

	case result.OK && deleted[path]:
		d.forget(ctx, path)
		d.stats.Pushed++
		return nil

	case result.OK:
		mtime, err := d.vault.ModTime(path)
		if err != nil {
			slog.Warn("stat after push failed", "path", path, "error", err)
			d.stats.Errors++
			return nil
		}
		d.meta.SetDoc(config.DocMeta{Path: path, Rev: result.Rev, LastModified: mtime.UnixMilli()})
		d.base.Set(ctx, path, pushedContent[path])
		d.stats.Pushed++
		return nil

	case result.Error == "conflict":
		return d.resolvePushConflict(ctx, path, result)

	default:
		slog.Error("push rejected", "doc", result.ID, "error", result.Error, "reason", result.Reason)
		d.stats.Errors++
		return nil
	}
}

// adoptServerMerge re-pulls a doc the server merged for us. The merged body
// only lands on disk if the file hasn't moved since the push snapshot;
// otherwise the next run merges again.
func (d *DocSync) adoptServerMerge(ctx context.Context, path string, result sdk.BulkDocResult, pushTimeMtimes map[string]int64) error {
	doc, err := d.api.Docs.Get(ctx, vault.DocID(path))
	if err != nil {
		return err
	}
	if doc == nil || doc.Content == nil {
		slog.Warn("merged doc vanished", "path", path)
		d.stats.Errors++
		return nil
	}

	mtime, err := d.vault.ModTime(path)
	if err != nil {
		return err
	}
	if mtime.UnixMilli() != pushTimeMtimes[path] {
		// Edited mid-push; leave the file alone, only adopt the rev so we
		// don't re-pull this change as a conflict.
		d.meta.SetDoc(config.DocMeta{Path: path, Rev: doc.Rev, LastModified: d.recordedMtime(path)})
		d.base.Set(ctx, path, *doc.Content)
		return nil
	}

	if err := d.vault.Write(path, []byte(*doc.Content)); err != nil {
		return err
	}
	d.recordSynced(ctx, path, doc.Rev, *doc.Content)
	d.stats.Pushed++
	return nil
}

func (d *DocSync) resolvePushConflict(ctx context.Context, path string, result sdk.BulkDocResult) error {
	requiresFull := result.RequiresFull || result.Reason == "base_revision_not_found"

	localBytes, readErr := d.vault.Read(path)
	local := ""
	if readErr == nil {
		local = string(localBytes)
	}
	remote := ""
	if result.CurrentContent != nil {
		remote = *result.CurrentContent
	}

	d.stats.Conflicts++
	res := d.resolver.Resolve(ctx, &Conflict{
		Path:             path,
		LocalContent:     local,
		RemoteContent:    remote,
		RemoteRev:        result.CurrentRev,
		RemoteDeleted:    result.CurrentDeleted,
		Regions:          result.Conflicts,
		RequiresFullSync: requiresFull,
	})

	switch res {
	case ResolveUseLocal:
		// Force-push over the server's head.
		put, err := d.api.Docs.Put(ctx, vault.DocID(path), &local, result.CurrentRev)
		if err != nil {
			slog.Error("force push failed", "path", path, "error", err)
			d.stats.Errors++
			return nil
		}
		mtime, err := d.vault.ModTime(path)
		if err != nil {
			return err
		}
		d.meta.SetDoc(config.DocMeta{Path: path, Rev: put.Rev, LastModified: mtime.UnixMilli()})
		d.base.Set(ctx, path, local)
		d.stats.Pushed++
		return nil

	case ResolveUseRemote:
		if result.CurrentDeleted {
			if err := d.vault.Delete(path); err != nil {
				return err
			}
			d.forget(ctx, path)
			return nil
		}
		if err := d.vault.Write(path, []byte(remote)); err != nil {
			return err
		}
		d.recordSynced(ctx, path, result.CurrentRev, remote)
		return nil

	case ResolveFullReset:
		return ErrFullResetRequested

	default:
		return nil
	}
}

func (d *DocSync) recordedMtime(path string) int64 {
	if meta, ok := d.meta.GetDoc(path); ok {
		return meta.LastModified
	}
	return 0
}
