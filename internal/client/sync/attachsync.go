package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/sdk"
	"github.com/openvault/vaultsync/internal/utils"
)

const uploadParallelism = 3

// AttachSync uploads local attachments and rewrites their wiki-links to
// server URLs. Attachments are URL-only after upload: the pull side just
// drains the feed cursor, bytes stay on the server.
type AttachSync struct {
	api      *sdk.SyncSDK
	vault    *vault.Vault
	meta     *config.MetadataCache
	settings *config.Settings
	stats    *Stats
}

func NewAttachSync(api *sdk.SyncSDK, v *vault.Vault, meta *config.MetadataCache, settings *config.Settings, stats *Stats) *AttachSync {
	return &AttachSync{
		api:      api,
		vault:    v,
		meta:     meta,
		settings: settings,
		stats:    stats,
	}
}

// Pull advances the attachment cursor to the feed tip. No bytes move.
func (a *AttachSync) Pull(ctx context.Context) error {
	for {
		page, err := a.api.Attach.Changes(ctx, a.settings.LastAttachmentSeq, pullBatchSize)
		if err != nil {
			return fmt.Errorf("pull attachment changes: %w", err)
		}
		if page.LastSeq > a.settings.LastAttachmentSeq {
			a.settings.LastAttachmentSeq = page.LastSeq
		}
		if len(page.Results) < pullBatchSize {
			break
		}
	}
	return a.meta.Persist()
}

// HasLocalChanges reports whether any attachment is an upload candidate.
func (a *AttachSync) HasLocalChanges() (bool, error) {
	files, err := a.vault.ListAttachments()
	if err != nil {
		return false, err
	}
	for _, f := range files {
		meta, tracked := a.meta.GetAttachment(f.Path)
		if !tracked || meta.AttachmentID == "" || meta.LastModified < f.ModTime.UnixMilli() {
			return true, nil
		}
	}
	return false, nil
}

type uploadResult struct {
	path string
	id   string
}

// Push uploads attachments in bounded-parallel batches, then rewrites
// markdown wiki-links to the uploaded files and removes the local copies.
// Per-file failures log, count, and never abort the batch.
func (a *AttachSync) Push(ctx context.Context) error {
	files, err := a.vault.ListAttachments()
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}

	var candidates []vault.FileInfo
	for _, f := range files {
		meta, tracked := a.meta.GetAttachment(f.Path)
		if !tracked || meta.AttachmentID == "" || meta.LastModified < f.ModTime.UnixMilli() {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var mu gosync.Mutex
	var uploaded []uploadResult

	// Batches of 3: wait for a full batch before starting the next, cheap
	// fairness and backpressure.
	for start := 0; start < len(candidates); start += uploadParallelism {
		end := min(start+uploadParallelism, len(candidates))

		g, gctx := errgroup.WithContext(ctx)
		for _, f := range candidates[start:end] {
			g.Go(func() error {
				id, err := a.uploadOne(gctx, f)
				if err != nil {
					slog.Warn("attachment upload failed", "path", f.Path, "error", err)
					mu.Lock()
					a.stats.Errors++
					mu.Unlock()
					return nil
				}
				mu.Lock()
				uploaded = append(uploaded, uploadResult{path: f.Path, id: id})
				a.stats.AttachmentsPushed++
				a.stats.AttachmentBytes += f.Size
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if len(uploaded) == 0 {
		return a.meta.Persist()
	}

	a.rewriteLinks(uploaded)

	// Local copies are no longer the source of truth.
	for _, u := range uploaded {
		if err := a.vault.Delete(u.path); err != nil {
			slog.Warn("remove uploaded attachment failed", "path", u.path, "error", err)
			a.stats.Errors++
			continue
		}
		a.meta.DeleteAttachment(u.path)
	}

	return a.meta.Persist()
}

// uploadOne pushes a single file, short-circuiting when the local cache
// already knows this exact content on the server.
func (a *AttachSync) uploadOne(ctx context.Context, f vault.FileInfo) (string, error) {
	content, err := a.vault.Read(f.Path)
	if err != nil {
		return "", err
	}

	hash := utils.BytesHash(content)
	if meta, ok := a.meta.GetAttachment(f.Path); ok && meta.Hash == hash && meta.AttachmentID != "" {
		return meta.AttachmentID, nil
	}

	contentType := utils.DetectContentType(f.Path)
	resp, err := a.api.Attach.Upload(ctx, f.Path, contentType, content)
	if err != nil {
		return "", err
	}

	a.meta.SetAttachment(config.AttachmentMeta{
		Path:         f.Path,
		Hash:         resp.Hash,
		Size:         resp.Size,
		ContentType:  resp.ContentType,
		LastModified: f.ModTime.UnixMilli(),
		AttachmentID: resp.ID,
	})
	return resp.ID, nil
}

// rewriteLinks replaces ![[path]] and ![[path|alt]] embeds of the uploaded
// files with standard markdown links to the server URL, in every markdown
// file that references them.
func (a *AttachSync) rewriteLinks(uploaded []uploadResult) {
	docs, err := a.vault.ListDocs()
	if err != nil {
		slog.Warn("list docs for link rewrite failed", "error", err)
		a.stats.Errors++
		return
	}

	for _, doc := range docs {
		content, err := a.vault.Read(doc.Path)
		if err != nil {
			slog.Warn("read doc for link rewrite failed", "path", doc.Path, "error", err)
			a.stats.Errors++
			continue
		}

		text := string(content)
		changed := false
		for _, u := range uploaded {
			url := a.api.Attach.ContentURL(u.id)
			next := rewriteWikiLinks(text, u.path, url)
			if next != text {
				text = next
				changed = true
			}
		}
		if !changed {
			continue
		}

		if err := a.vault.Write(doc.Path, []byte(text)); err != nil {
			slog.Warn("write rewritten doc failed", "path", doc.Path, "error", err)
			a.stats.Errors++
		}
	}
}

// rewriteWikiLinks handles both the full vault path and the bare file name,
// which is how editors usually embed attachments.
func rewriteWikiLinks(text, relPath, url string) string {
	targets := []string{relPath}
	if base := path.Base(relPath); base != relPath {
		targets = append(targets, base)
	}

	for _, target := range targets {
		re := regexp.MustCompile(`!\[\[` + regexp.QuoteMeta(target) + `(?:\|([^\]]*))?\]\]`)
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			sub := re.FindStringSubmatch(m)
			alt := sub[1]
			if alt == "" {
				return fmt.Sprintf("![%s](%s)", target, url)
			}
			return fmt.Sprintf("![%s|%s](%s)", alt, target, url)
		})
	}
	return text
}
