package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openvault/vaultsync/internal/merge"
	"github.com/openvault/vaultsync/internal/revision"
)

const (
	reasonManualResolution = "Document update conflict - manual resolution required"
	reasonUpdateConflict   = "Document update conflict"
	reasonBaseRevNotFound  = "base_revision_not_found"
)

// BulkUpsert applies a batch of document writes. Items are handled
// sequentially; the reply always carries one result per item, in order, and
// the call itself never fails on a per-document problem.
//
// A revision mismatch is resolved server-side when a merge base is available:
// the stored head is one side, the pushed content the other, and the client's
// base content (or the stored revision named by _rev) the base.
func (s *Store) BulkUpsert(ctx context.Context, vaultID string, items []BulkDocItem) []BulkDocResult {
	results := make([]BulkDocResult, 0, len(items))
	for _, item := range items {
		results = append(results, s.bulkUpsertOne(ctx, vaultID, item))
	}
	return results
}

func (s *Store) bulkUpsertOne(ctx context.Context, vaultID string, item BulkDocItem) BulkDocResult {
	existing, err := s.GetDocument(ctx, vaultID, item.ID)
	if err != nil {
		return internalError(item.ID, err)
	}

	// New document, or a write against the current head.
	if existing == nil {
		rev := revision.Generate("")
		if err := s.UpsertDocument(ctx, vaultID, item.ID, item.Content, rev, item.Deleted); err != nil {
			return internalError(item.ID, err)
		}
		return BulkDocResult{OK: true, ID: item.ID, Rev: rev}
	}
	if item.Rev == "" || item.Rev == existing.Rev {
		rev := revision.Generate(existing.Rev)
		if err := s.UpsertDocument(ctx, vaultID, item.ID, item.Content, rev, item.Deleted); err != nil {
			return internalError(item.ID, err)
		}
		return BulkDocResult{OK: true, ID: item.ID, Rev: rev}
	}

	// Revision conflict. Try to locate a merge base: the one the client
	// supplied, else the stored content of the revision it pushed against.
	base := item.BaseContent
	if base == nil {
		content, found, err := s.GetRevisionContent(ctx, vaultID, item.ID, item.Rev)
		if err != nil {
			return internalError(item.ID, err)
		}
		if !found {
			return BulkDocResult{
				ID:               item.ID,
				Error:            "conflict",
				Reason:           reasonBaseRevNotFound,
				CurrentRev:       existing.Rev,
				CurrentContent:   existing.Content,
				CurrentDeleted:   existing.Deleted,
				RequiresFullSync: true,
			}
		}
		base = content
	}

	if base != nil && existing.Content != nil && item.Content != nil {
		merged, conflicts, err := merge.Merge(*base, *existing.Content, *item.Content)
		switch {
		case err != nil:
			// Over the merge limits; only the user can resolve this.
			return BulkDocResult{
				ID:             item.ID,
				Error:          "conflict",
				Reason:         err.Error(),
				CurrentRev:     existing.Rev,
				CurrentContent: existing.Content,
			}
		case len(conflicts) > 0:
			return BulkDocResult{
				ID:             item.ID,
				Error:          "conflict",
				Reason:         reasonManualResolution,
				CurrentRev:     existing.Rev,
				CurrentContent: existing.Content,
				Conflicts:      conflicts,
			}
		default:
			rev := revision.Generate(existing.Rev)
			if err := s.UpsertDocument(ctx, vaultID, item.ID, &merged, rev, false); err != nil {
				return internalError(item.ID, err)
			}
			slog.Debug("bulk merge applied", "vault", vaultID, "doc", item.ID, "rev", rev)
			return BulkDocResult{OK: true, ID: item.ID, Rev: rev, Merged: true}
		}
	}

	// No merge possible (a tombstone on either side, or no base content).
	return BulkDocResult{
		ID:             item.ID,
		Error:          "conflict",
		Reason:         reasonUpdateConflict,
		CurrentRev:     existing.Rev,
		CurrentContent: existing.Content,
		CurrentDeleted: existing.Deleted,
	}
}

func internalError(id string, err error) BulkDocResult {
	slog.Error("bulk upsert", "doc", id, "error", err)
	reason := "internal error"
	if err != nil && !errors.Is(err, context.Canceled) {
		reason = err.Error()
	}
	return BulkDocResult{ID: id, Error: "internal_error", Reason: reason}
}
