package attachments

type ChangeResult struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Deleted bool   `json:"deleted,omitempty"`
}

type ChangesResponse struct {
	Results []ChangeResult `json:"results"`
	LastSeq int64          `json:"last_seq"`
}

type MetadataResponse struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
	Deleted     bool   `json:"deleted,omitempty"`
}

type UploadResponse struct {
	OK          bool   `json:"ok"`
	ID          string `json:"id"`
	Hash        string `json:"hash"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Unchanged   bool   `json:"unchanged,omitempty"`
}
