// Package docs serves the document API: status, the change feed, single-doc
// reads and writes, and the bulk upsert endpoint with server-side merge.
package docs

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openvault/vaultsync/internal/revision"
	"github.com/openvault/vaultsync/internal/server/store"
)

type DocsHandler struct {
	store *store.Store
}

func New(s *store.Store) *DocsHandler {
	return &DocsHandler{store: s}
}

// Status returns the change-feed tips for a vault. Cheap: two MAX queries.
func (h *DocsHandler) Status(ctx *gin.Context) {
	vault := VaultID(ctx)

	docSeq, attSeq, err := h.store.GetLatestSeqs(ctx.Request.Context(), vault)
	if err != nil {
		ctx.Error(fmt.Errorf("get latest seqs: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read status"})
		return
	}

	ctx.PureJSON(http.StatusOK, &StatusResponse{
		OK:                true,
		VaultID:           vault,
		LastSeq:           docSeq,
		LastAttachmentSeq: attSeq,
	})
}

// Changes returns the document change feed slice after ?since.
func (h *DocsHandler) Changes(ctx *gin.Context) {
	vault := VaultID(ctx)
	since, limit, ok := FeedParams(ctx)
	if !ok {
		return
	}

	rows, lastSeq, err := h.store.GetChanges(ctx.Request.Context(), vault, since, limit)
	if err != nil {
		ctx.Error(fmt.Errorf("get changes: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read changes"})
		return
	}

	results := make([]ChangeResult, 0, len(rows))
	for _, c := range rows {
		results = append(results, ChangeResult{
			Seq:     c.Seq,
			ID:      c.DocID,
			Changes: []ChangeRev{{Rev: c.Rev}},
			Deleted: c.Deleted,
		})
	}

	ctx.PureJSON(http.StatusOK, &ChangesResponse{
		Results: results,
		LastSeq: lastSeq,
	})
}

// Get fetches a single document by id.
func (h *DocsHandler) Get(ctx *gin.Context) {
	vault := VaultID(ctx)
	docID := ctx.Param("id")

	doc, err := h.store.GetDocument(ctx.Request.Context(), vault, docID)
	if err != nil {
		ctx.Error(fmt.Errorf("get document: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read document"})
		return
	}
	if doc == nil {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ctx.PureJSON(http.StatusOK, doc)
}

// Put writes a document, conflict-checked against _rev. A force push carries
// the server's current rev.
func (h *DocsHandler) Put(ctx *gin.Context) {
	vault := VaultID(ctx)
	docID := ctx.Param("id")

	var req PutDocRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(fmt.Errorf("failed to bind body: %w", err))
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.store.GetDocument(ctx.Request.Context(), vault, docID)
	if err != nil {
		ctx.Error(fmt.Errorf("get document: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read document"})
		return
	}

	var rev string
	switch {
	case existing == nil:
		rev = revision.Generate("")
	case req.Rev == existing.Rev:
		rev = revision.Generate(existing.Rev)
	default:
		ctx.PureJSON(http.StatusConflict, gin.H{
			"error":        "conflict",
			"reason":       "Document update conflict",
			"current_rev":  existing.Rev,
			"provided_rev": req.Rev,
		})
		return
	}

	if err := h.store.UpsertDocument(ctx.Request.Context(), vault, docID, req.Content, rev, false); err != nil {
		ctx.Error(fmt.Errorf("upsert document: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to write document"})
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{"ok": true, "id": docID, "rev": rev})
}

// Delete writes a tombstone, conflict-checked against ?rev.
func (h *DocsHandler) Delete(ctx *gin.Context) {
	vault := VaultID(ctx)
	docID := ctx.Param("id")

	rev := ctx.Query("rev")
	if rev == "" {
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "query param 'rev' is required"})
		return
	}

	existing, err := h.store.GetDocument(ctx.Request.Context(), vault, docID)
	if err != nil {
		ctx.Error(fmt.Errorf("get document: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read document"})
		return
	}
	if existing == nil {
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if existing.Rev != rev {
		ctx.PureJSON(http.StatusConflict, gin.H{
			"error":        "conflict",
			"reason":       "Document update conflict",
			"current_rev":  existing.Rev,
			"provided_rev": rev,
		})
		return
	}

	next := revision.Generate(existing.Rev)
	if err := h.store.UpsertDocument(ctx.Request.Context(), vault, docID, nil, next, true); err != nil {
		ctx.Error(fmt.Errorf("delete document: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{"ok": true, "id": docID, "rev": next})
}

// Bulk applies a batch of writes and replies with one result per input doc,
// in input order. Revision conflicts with a usable base are merged here.
func (h *DocsHandler) Bulk(ctx *gin.Context) {
	vault := VaultID(ctx)

	var req BulkDocsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(fmt.Errorf("failed to bind body: %w", err))
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.store.BulkUpsert(ctx.Request.Context(), vault, req.Docs)
	ctx.PureJSON(http.StatusOK, results)
}
