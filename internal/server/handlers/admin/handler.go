// Package admin serves operational endpoints: vault stats and history
// cleanup. Both sit behind the same bearer auth as the sync API.
package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openvault/vaultsync/internal/server/store"
)

const (
	defaultCleanupDays = 30
	maxCleanupDays     = 365
)

type AdminHandler struct {
	store *store.Store
}

func New(s *store.Store) *AdminHandler {
	return &AdminHandler{store: s}
}

// Stats returns per-vault document and attachment counts.
func (h *AdminHandler) Stats(ctx *gin.Context) {
	stats, err := h.store.Stats(ctx.Request.Context())
	if err != nil {
		ctx.Error(fmt.Errorf("get stats: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{"vaults": stats})
}

// Cleanup prunes old revisions and change rows. The head revision of every
// document and the newest change row per document always survive, so the
// feed stays resumable.
func (h *AdminHandler) Cleanup(ctx *gin.Context) {
	days := defaultCleanupDays
	if raw := ctx.Query("max_age_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxCleanupDays {
			ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "invalid 'max_age_days' param"})
			return
		}
		days = v
	}

	revs, changes, err := h.store.Cleanup(ctx.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		ctx.Error(fmt.Errorf("cleanup: %w", err))
		ctx.PureJSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{
		"ok":             true,
		"pruned_revs":    revs,
		"pruned_changes": changes,
		"max_age_days":   days,
	})
}
