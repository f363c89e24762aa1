package sdk

import "github.com/openvault/vaultsync/internal/merge"

type StatusResponse struct {
	OK                bool   `json:"ok"`
	VaultID           string `json:"vault_id"`
	LastSeq           int64  `json:"last_seq"`
	LastAttachmentSeq int64  `json:"last_attachment_seq"`
}

type Document struct {
	ID      string  `json:"_id"`
	Rev     string  `json:"_rev"`
	Content *string `json:"content"`
	Deleted bool    `json:"_deleted,omitempty"`
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
	Rev     string  `json:"_rev,omitempty"`
}

type PutDocResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

type BulkDocItem struct {
	ID          string  `json:"_id"`
	Rev         string  `json:"_rev,omitempty"`
	Content     *string `json:"content"`
	Deleted     bool    `json:"_deleted,omitempty"`
	BaseContent *string `json:"_base_content,omitempty"`
}

type BulkDocResult struct {
	OK             bool             `json:"ok,omitempty"`
	ID             string           `json:"id"`
	Rev            string           `json:"rev,omitempty"`
	Merged         bool             `json:"merged,omitempty"`
	Error          string           `json:"error,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	CurrentRev     string           `json:"current_rev,omitempty"`
	CurrentContent *string          `json:"current_content,omitempty"`
	CurrentDeleted bool             `json:"current_deleted,omitempty"`
	RequiresFull   bool             `json:"requires_full_sync,omitempty"`
	Conflicts      []merge.Conflict `json:"conflicts,omitempty"`
}

type BulkDocsRequest struct {
	Docs []BulkDocItem `json:"docs"`
}
