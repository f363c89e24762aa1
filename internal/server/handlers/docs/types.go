package docs

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openvault/vaultsync/internal/server/store"
)

const (
	DefaultVault = "default"
	defaultLimit = 100
	maxLimit     = 1000
)

type StatusResponse struct {
	OK                bool   `json:"ok"`
	VaultID           string `json:"vault_id"`
	LastSeq           int64  `json:"last_seq"`
	LastAttachmentSeq int64  `json:"last_attachment_seq"`
}

type ChangeRev struct {
	Rev string `json:"rev"`
}

type ChangeResult struct {
	Seq     int64       `json:"seq"`
	ID      string      `json:"id"`
	Changes []ChangeRev `json:"changes"`
	Deleted bool        `json:"deleted,omitempty"`
}

type ChangesResponse struct {
	Results []ChangeResult `json:"results"`
	LastSeq int64          `json:"last_seq"`
}

type PutDocRequest struct {
	Content *string `json:"content"`
	Rev     string  `json:"_rev"`
}

type BulkDocsRequest struct {
	Docs []store.BulkDocItem `json:"docs"`
}

// VaultID returns the ?vault_id param, defaulting to "default".
func VaultID(ctx *gin.Context) string {
	if v := ctx.Query("vault_id"); v != "" {
		return v
	}
	return DefaultVault
}

// FeedParams validates ?since and ?limit for the change feeds. On a bad
// param it writes a 400 and returns ok=false.
func FeedParams(ctx *gin.Context) (since int64, limit int, ok bool) {
	since = 0
	if raw := ctx.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "invalid 'since' param"})
			return 0, 0, false
		}
		since = v
	}

	limit = defaultLimit
	if raw := ctx.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' param"})
			return 0, 0, false
		}
		limit = v
	}

	return since, limit, true
}
