package sdk

import (
	"context"
	"net/url"

	"github.com/imroc/req/v3"
)

const (
	apiStatus   = "/api/status"
	apiChanges  = "/api/changes"
	apiBulkDocs = "/api/docs/bulk_docs"
	apiDocs     = "/api/docs/"
)

type DocsAPI struct {
	client *req.Client
}

func newDocsAPI(client *req.Client) *DocsAPI {
	return &DocsAPI{client: client}
}

// Status returns the server's change-feed tips for the vault.
func (d *DocsAPI) Status(ctx context.Context) (*StatusResponse, error) {
	var result StatusResponse
	res, err := d.client.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Get(apiStatus)

	if err := handleAPIError(res, err, "status"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Changes fetches one page of the document change feed after since.
func (d *DocsAPI) Changes(ctx context.Context, since int64, limit int) (*ChangesResponse, error) {
	var result ChangesResponse
	res, err := d.client.R().
		SetContext(ctx).
		SetQueryParamsAnyType(map[string]any{"since": since, "limit": limit}).
		SetSuccessResult(&result).
		Get(apiChanges)

	if err := handleAPIError(res, err, "changes"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches a document by id. A missing document returns (nil, nil).
func (d *DocsAPI) Get(ctx context.Context, docID string) (*Document, error) {
	var result Document
	res, err := d.client.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Get(apiDocs + url.PathEscape(docID))

	if res != nil && res.StatusCode == 404 {
		return nil, nil
	}
	if err := handleAPIError(res, err, "get doc"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Put writes a document. rev must match the server's current revision for an
// existing doc, or be empty for a new one.
func (d *DocsAPI) Put(ctx context.Context, docID string, content *string, rev string) (*PutDocResponse, error) {
	var result PutDocResponse
	res, err := d.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(&PutDocRequest{Content: content, Rev: rev}).
		SetSuccessResult(&result).
		Put(apiDocs + url.PathEscape(docID))

	if err := handleAPIError(res, err, "put doc"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete tombstones a document at the given revision.
func (d *DocsAPI) Delete(ctx context.Context, docID, rev string) (*PutDocResponse, error) {
	var result PutDocResponse
	res, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("rev", rev).
		SetSuccessResult(&result).
		Delete(apiDocs + url.PathEscape(docID))

	if err := handleAPIError(res, err, "delete doc"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Bulk pushes a batch of docs and returns one result per doc, in order.
func (d *DocsAPI) Bulk(ctx context.Context, docs []BulkDocItem) ([]BulkDocResult, error) {
	var results []BulkDocResult
	res, err := d.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(&BulkDocsRequest{Docs: docs}).
		SetSuccessResult(&results).
		Post(apiBulkDocs)

	if err := handleAPIError(res, err, "bulk docs"); err != nil {
		return nil, err
	}
	return results, nil
}
