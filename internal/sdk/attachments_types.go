package sdk

type AttachmentChangeResult struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Deleted bool   `json:"deleted,omitempty"`
}

type AttachmentChangesResponse struct {
	Results []AttachmentChangeResult `json:"results"`
	LastSeq int64                    `json:"last_seq"`
}

type AttachmentMetadata struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
	Deleted     bool   `json:"deleted,omitempty"`
}

type AttachmentUploadResponse struct {
	OK          bool   `json:"ok"`
	ID          string `json:"id"`
	Hash        string `json:"hash"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Unchanged   bool   `json:"unchanged,omitempty"`
}
