// Package attachments serves the content-addressed attachment API. Bytes go
// to blob storage under "<vault>/<sha256><ext>"; metadata and the attachment
// change feed live in the document store.
package attachments

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/server/handlers/docs"
	"github.com/openvault/vaultsync/internal/server/store"
	"github.com/openvault/vaultsync/internal/utils"
)

// MaxAttachmentSize caps a single upload.
const MaxAttachmentSize = 100 << 20

type AttachmentsHandler struct {
	store   *store.Store
	backend blob.Backend
}

func New(s *store.Store, backend blob.Backend) *AttachmentsHandler {
	return &AttachmentsHandler{store: s, backend: backend}
}

// vaultOwns asserts the id belongs to the request's vault. Attachment ids
// are "<vault>:<hash><ext>", so a foreign id is a cross-vault probe.
func vaultOwns(ctx *gin.Context, vault, id string) bool {
	if strings.HasPrefix(id, vault+":") {
		return true
	}
	ctx.PureJSON(http.StatusForbidden, gin.H{"error": "attachment does not belong to vault"})
	return false
}

// Changes returns the attachment change feed slice after ?since.
func (h *AttachmentsHandler) Changes(ctx *gin.Context) {
	vault := docs.VaultID(ctx)
	since, limit, ok := docs.FeedParams(ctx)
	if !ok {
		return
	}

	rows, lastSeq, err := h.store.GetAttachmentChanges(ctx.Request.Context(), vault, since, limit)
	if err != nil {
		ctx.Error(fmt.Errorf("get attachment changes: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read changes"})
		return
	}

	results := make([]ChangeResult, 0, len(rows))
	for _, c := range rows {
		results = append(results, ChangeResult{
			Seq:     c.Seq,
			ID:      c.AttachmentID,
			Path:    c.Path,
			Hash:    c.Hash,
			Deleted: c.Deleted,
		})
	}

	ctx.PureJSON(http.StatusOK, &ChangesResponse{Results: results, LastSeq: lastSeq})
}

// Get returns attachment metadata by id.
func (h *AttachmentsHandler) Get(ctx *gin.Context) {
	vault := docs.VaultID(ctx)
	id := ctx.Param("id")
	if !vaultOwns(ctx, vault, id) {
		return
	}

	a, err := h.store.GetAttachment(ctx.Request.Context(), vault, id)
	if err != nil {
		ctx.Error(fmt.Errorf("get attachment: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read attachment"})
		return
	}
	if a == nil {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ctx.PureJSON(http.StatusOK, &MetadataResponse{
		ID:          a.ID,
		Path:        a.Path,
		ContentType: a.ContentType,
		Size:        a.Size,
		Hash:        a.Hash,
		Deleted:     a.Deleted,
	})
}

// GetContent streams the attachment bytes. Public: uploaded attachments are
// referenced by URL from note text.
func (h *AttachmentsHandler) GetContent(ctx *gin.Context) {
	vault := docs.VaultID(ctx)
	id := ctx.Param("id")
	if !vaultOwns(ctx, vault, id) {
		return
	}

	a, err := h.store.GetAttachment(ctx.Request.Context(), vault, id)
	if err != nil {
		ctx.Error(fmt.Errorf("get attachment: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read attachment"})
		return
	}
	if a == nil || a.Deleted {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	obj, err := h.backend.GetObject(ctx.Request.Context(), a.ObjectKey)
	if err != nil {
		ctx.Error(fmt.Errorf("get object %s: %w", a.ObjectKey, err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read attachment content"})
		return
	}
	defer obj.Body.Close()

	ctx.Header("X-Attachment-Hash", a.Hash)
	ctx.DataFromReader(http.StatusOK, a.Size, a.ContentType, obj.Body, nil)
}

// Put uploads attachment bytes. Identical bytes collapse onto one stored
// object and reply unchanged:true without touching the blob store.
func (h *AttachmentsHandler) Put(ctx *gin.Context) {
	vault := docs.VaultID(ctx)
	relPath := strings.TrimPrefix(ctx.Param("path"), "/")

	if !utils.IsValidVaultPath(relPath) {
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid path: %q", relPath)})
		return
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, MaxAttachmentSize+1))
	if err != nil {
		ctx.Error(fmt.Errorf("read upload body: %w", err))
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(body) > MaxAttachmentSize {
		ctx.PureJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "attachment exceeds 100 MiB"})
		return
	}

	hash := utils.BytesHash(body)
	if declared := ctx.GetHeader("X-Content-Hash"); declared != "" && declared != hash {
		ctx.PureJSON(http.StatusConflict, gin.H{
			"error":         "hash_mismatch",
			"declared_hash": declared,
			"actual_hash":   hash,
		})
		return
	}
	if declared := ctx.GetHeader("X-Content-Length"); declared != "" {
		n, err := strconv.ParseInt(declared, 10, 64)
		if err != nil || n != int64(len(body)) {
			ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "content length mismatch"})
			return
		}
	}

	contentType := ctx.ContentType()
	if contentType == "" {
		contentType = utils.DetectContentType(relPath)
	}

	ext := path.Ext(relPath)
	id := vault + ":" + hash + ext
	objectKey := vault + "/" + hash + ext

	existing, err := h.store.GetAttachment(ctx.Request.Context(), vault, id)
	if err != nil {
		ctx.Error(fmt.Errorf("get attachment: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read attachment"})
		return
	}
	if existing != nil && !existing.Deleted {
		ctx.PureJSON(http.StatusOK, &UploadResponse{
			OK:          true,
			ID:          existing.ID,
			Hash:        existing.Hash,
			Size:        existing.Size,
			ContentType: existing.ContentType,
			Unchanged:   true,
		})
		return
	}

	_, err = h.backend.PutObject(ctx.Request.Context(), &blob.PutObjectParams{
		Key:         objectKey,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		ctx.Error(fmt.Errorf("put object %s: %w", objectKey, err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachment"})
		return
	}

	attachment := &store.Attachment{
		ID:          id,
		VaultID:     vault,
		Path:        relPath,
		ContentType: contentType,
		Size:        int64(len(body)),
		Hash:        hash,
		ObjectKey:   objectKey,
	}
	if existing != nil {
		attachment.CreatedAt = existing.CreatedAt
	}
	if err := h.store.UpsertAttachment(ctx.Request.Context(), attachment); err != nil {
		ctx.Error(fmt.Errorf("upsert attachment: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachment"})
		return
	}

	ctx.PureJSON(http.StatusOK, &UploadResponse{
		OK:          true,
		ID:          id,
		Hash:        hash,
		Size:        int64(len(body)),
		ContentType: contentType,
	})
}

// Delete soft-deletes attachment metadata. The blob stays: content
// addressing means other paths may reference the same object.
func (h *AttachmentsHandler) Delete(ctx *gin.Context) {
	vault := docs.VaultID(ctx)
	id := ctx.Param("id")
	if !vaultOwns(ctx, vault, id) {
		return
	}

	if err := h.store.DeleteAttachment(ctx.Request.Context(), vault, id); err != nil {
		ctx.Error(fmt.Errorf("delete attachment: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to delete attachment"})
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{"ok": true, "id": id})
}
