package store

import "github.com/openvault/vaultsync/internal/merge"

// Document is the current head of a note. Content is nil for tombstones.
type Document struct {
	DocID     string  `db:"doc_id" json:"_id"`
	VaultID   string  `db:"vault_id" json:"-"`
	Content   *string `db:"content" json:"content"`
	Rev       string  `db:"rev" json:"_rev"`
	Deleted   bool    `db:"deleted" json:"_deleted,omitempty"`
	CreatedAt int64   `db:"created_at" json:"-"`
	UpdatedAt int64   `db:"updated_at" json:"-"`
}

// Revision is an append-only historical version of a document.
type Revision struct {
	DocID     string  `db:"doc_id"`
	VaultID   string  `db:"vault_id"`
	Rev       string  `db:"rev"`
	Content   *string `db:"content"`
	Deleted   bool    `db:"deleted"`
	CreatedAt int64   `db:"created_at"`
}

// Change is one row of the per-vault document change feed.
type Change struct {
	Seq       int64  `db:"seq"`
	DocID     string `db:"doc_id"`
	VaultID   string `db:"vault_id"`
	Rev       string `db:"rev"`
	Deleted   bool   `db:"deleted"`
	CreatedAt int64  `db:"created_at"`
}

// Attachment is content-addressed metadata; the bytes live in blob storage
// under ObjectKey.
type Attachment struct {
	ID          string `db:"id"`
	VaultID     string `db:"vault_id"`
	Path        string `db:"path"`
	ContentType string `db:"content_type"`
	Size        int64  `db:"size"`
	Hash        string `db:"hash"`
	ObjectKey   string `db:"object_key"`
	Deleted     bool   `db:"deleted"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

// AttachmentChange is one row of the attachment change feed.
type AttachmentChange struct {
	Seq          int64  `db:"seq"`
	AttachmentID string `db:"attachment_id"`
	VaultID      string `db:"vault_id"`
	Path         string `db:"path"`
	Hash         string `db:"hash"`
	Deleted      bool   `db:"deleted"`
	CreatedAt    int64  `db:"created_at"`
}

// BulkDocItem is one entry of a bulk upsert request.
type BulkDocItem struct {
	ID          string  `json:"_id"`
	Rev         string  `json:"_rev,omitempty"`
	Content     *string `json:"content,omitempty"`
	Deleted     bool    `json:"_deleted,omitempty"`
	BaseContent *string `json:"_base_content,omitempty"`
}

// BulkDocResult is the per-item outcome, in request order.
type BulkDocResult struct {
	OK               bool             `json:"ok,omitempty"`
	ID               string           `json:"id"`
	Rev              string           `json:"rev,omitempty"`
	Merged           bool             `json:"merged,omitempty"`
	Error            string           `json:"error,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	CurrentRev       string           `json:"current_rev,omitempty"`
	CurrentContent   *string          `json:"current_content,omitempty"`
	CurrentDeleted   bool             `json:"current_deleted,omitempty"`
	RequiresFullSync bool             `json:"requires_full_sync,omitempty"`
	Conflicts        []merge.Conflict `json:"conflicts,omitempty"`
}

// VaultStats is the per-vault slice of the admin stats reply.
type VaultStats struct {
	VaultID     string `db:"vault_id" json:"vault_id"`
	Documents   int64  `db:"documents" json:"documents"`
	Revisions   int64  `db:"revisions" json:"revisions"`
	Changes     int64  `db:"changes" json:"changes"`
	Attachments int64  `db:"attachments" json:"attachments"`
	BlobBytes   int64  `db:"blob_bytes" json:"blob_bytes"`
}
