// Package sdk is the typed HTTP client for the vaultsync server API. It is
// shared by the sync engine and the CLI.
package sdk

import (
	"fmt"
	"runtime"

	"github.com/imroc/req/v3"

	"github.com/openvault/vaultsync/internal/version"
)

const (
	HeaderUserAgent     = "User-Agent"
	HeaderVaultVersion  = "X-Vault-Version"
	HeaderContentHash   = "X-Content-Hash"
	HeaderContentLength = "X-Content-Length"
	HeaderAttachHash    = "X-Attachment-Hash"
)

var UserAgent = fmt.Sprintf("VaultSync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// SyncSDK is the client for the vaultsync server API.
type SyncSDK struct {
	client *req.Client
	config *Config
	Docs   *DocsAPI
	Attach *AttachmentsAPI
	Admin  *AdminAPI
}

func New(config *Config) (*SyncSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetBaseURL(config.BaseURL).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVaultVersion, version.Version).
		SetCommonBearerAuthToken(config.APIKey).
		SetCommonQueryParam("vault_id", config.VaultID).
		SetCommonErrorResult(&APIError{})

	applyRetryPolicy(client)

	return &SyncSDK{
		client: client,
		config: config,
		Docs:   newDocsAPI(client),
		Attach: newAttachmentsAPI(client, config),
		Admin:  newAdminAPI(client),
	}, nil
}

func (s *SyncSDK) Close() {
	s.client.CloseIdleConnections()
}
