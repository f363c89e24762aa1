package sdk

import (
	"context"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	apiAdminStats   = "/api/admin/stats"
	apiAdminCleanup = "/api/admin/cleanup"
)

type AdminAPI struct {
	client *req.Client
}

func newAdminAPI(client *req.Client) *AdminAPI {
	return &AdminAPI{client: client}
}

type VaultStats struct {
	VaultID     string `json:"vault_id"`
	Documents   int64  `json:"documents"`
	Revisions   int64  `json:"revisions"`
	Changes     int64  `json:"changes"`
	Attachments int64  `json:"attachments"`
	BlobBytes   int64  `json:"blob_bytes"`
}

type StatsResponse struct {
	Vaults []VaultStats `json:"vaults"`
}

type CleanupResponse struct {
	OK            bool  `json:"ok"`
	PrunedRevs    int64 `json:"pruned_revs"`
	PrunedChanges int64 `json:"pruned_changes"`
	MaxAgeDays    int   `json:"max_age_days"`
}

func (a *AdminAPI) Stats(ctx context.Context) (*StatsResponse, error) {
	var result StatsResponse
	res, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&result).
		Get(apiAdminStats)

	if err := handleAPIError(res, err, "admin stats"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *AdminAPI) Cleanup(ctx context.Context, maxAgeDays int) (*CleanupResponse, error) {
	var result CleanupResponse
	res, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("max_age_days", strconv.Itoa(maxAgeDays)).
		SetSuccessResult(&result).
		Post(apiAdminCleanup)

	if err := handleAPIError(res, err, "admin cleanup"); err != nil {
		return nil, err
	}
	return &result, nil
}
