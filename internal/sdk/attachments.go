package sdk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/openvault/vaultsync/internal/utils"
)

const (
	apiAttachChanges = "/api/attachments/changes"
	apiAttachments   = "/api/attachments/"
)

type AttachmentsAPI struct {
	client *req.Client
	config *Config
}

func newAttachmentsAPI(client *req.Client, config *Config) *AttachmentsAPI {
	return &AttachmentsAPI{client: client, config: config}
}

// Changes fetches one page of the attachment change feed after since.
func (a *AttachmentsAPI) Changes(ctx context.Context, since int64, limit int) (*AttachmentChangesResponse, error) {
	var result AttachmentChangesResponse
	res, err := a.client.R().
		SetContext(ctx).
		SetQueryParamsAnyType(map[string]any{"since": since, "limit": limit}).
		SetSuccessResult(&result).
		Get(apiAttachChanges)

	if err := handleAPIError(res, err, "attachment changes"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches attachment metadata by id. A missing attachment returns
// (nil, nil).
func (a *AttachmentsAPI) Get(ctx context.Context, id string) (*AttachmentMetadata, error) {
	var result AttachmentMetadata
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Get(apiAttachments + url.PathEscape(id))

	if res != nil && res.StatusCode == 404 {
		return nil, nil
	}
	if err := handleAPIError(res, err, "get attachment"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Upload pushes attachment bytes with integrity headers. The server replies
// with the content-addressed id; identical bytes come back unchanged:true.
func (a *AttachmentsAPI) Upload(ctx context.Context, relPath, contentType string, content []byte) (*AttachmentUploadResponse, error) {
	if contentType == "" {
		contentType = utils.DetectContentType(relPath)
	}

	var result AttachmentUploadResponse
	res, err := a.client.R().
		SetContext(ctx).
		SetContentType(contentType).
		SetHeader(HeaderContentHash, utils.BytesHash(content)).
		SetHeader(HeaderContentLength, strconv.Itoa(len(content))).
		SetBodyBytes(content).
		SetSuccessResult(&result).
		Put(apiAttachments + escapeAttachmentPath(relPath))

	if err := handleAPIError(res, err, "upload attachment"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Download fetches attachment bytes and verifies them against the server's
// integrity header.
func (a *AttachmentsAPI) Download(ctx context.Context, id string) ([]byte, error) {
	res, err := a.client.R().
		SetContext(ctx).
		Get(apiAttachments + url.PathEscape(id) + "/content")

	if err := handleAPIError(res, err, "download attachment"); err != nil {
		return nil, err
	}

	body, err := res.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}

	if want := res.Header.Get(HeaderAttachHash); want != "" {
		if got := utils.BytesHash(body); got != want {
			return nil, fmt.Errorf("attachment %s corrupted in transit: hash %s != %s", id, got, want)
		}
	}
	return body, nil
}

// Delete tombstones attachment metadata on the server.
func (a *AttachmentsAPI) Delete(ctx context.Context, id string) error {
	res, err := a.client.R().
		SetContext(ctx).
		Delete(apiAttachments + url.PathEscape(id))

	return handleAPIError(res, err, "delete attachment")
}

// ContentURL returns the public URL for an attachment id, suitable for
// embedding in note text.
func (a *AttachmentsAPI) ContentURL(id string) string {
	base := strings.TrimSuffix(a.config.BaseURL, "/")
	return fmt.Sprintf("%s%s%s/content?vault_id=%s", base, apiAttachments, url.PathEscape(id), url.QueryEscape(a.config.VaultID))
}

// escapeAttachmentPath keeps the upload path as one route segment.
func escapeAttachmentPath(relPath string) string {
	return url.PathEscape(relPath)
}
