package sdk

import "errors"

const DefaultVaultID = "default"

var (
	ErrNoServerURL = errors.New("sdk: server url missing")
	ErrNoAPIKey    = errors.New("sdk: api key missing")
)

// Config carries the connection settings for the server API.
type Config struct {
	BaseURL string // BaseURL is required
	APIKey  string // APIKey is required
	VaultID string // VaultID defaults to "default"
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.VaultID == "" {
		c.VaultID = DefaultVaultID
	}
	return nil
}
