package server

import (
	"fmt"
	"log/slog"

	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/utils"
)

const DefaultAddr = "0.0.0.0:8080"

type Config struct {
	HTTP    *HTTPConfig `mapstructure:"http"`
	Blob    *BlobConfig `mapstructure:"blob"`
	DataDir string      `mapstructure:"data_dir"`
	Auth    *AuthConfig `mapstructure:"auth"`
}

type HTTPConfig struct {
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type BlobConfig struct {
	// Backend selects "s3" or "fs".
	Backend string         `mapstructure:"backend"`
	Root    string         `mapstructure:"root"`
	S3      *blob.S3Config `mapstructure:"s3"`
}

type AuthConfig struct {
	// APIKeys is the initial set of accepted bearer keys. Keys minted via
	// /api/auth/new are appended to the key file under DataDir.
	APIKeys []string `mapstructure:"api_keys"`
}

func (c *Config) Validate() error {
	if c.HTTP == nil || c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir required")
	}
	if c.Blob == nil {
		return fmt.Errorf("blob config required")
	}
	switch c.Blob.Backend {
	case "s3":
		if c.Blob.S3 == nil {
			return fmt.Errorf("blob.s3 config required")
		}
		if err := c.Blob.S3.Validate(); err != nil {
			return fmt.Errorf("blob.s3: %w", err)
		}
	case "fs", "":
		// root defaults to DataDir/blobs
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	return nil
}

// LogValue keeps secrets out of startup logs.
func (c *Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("addr", c.HTTP.Addr),
		slog.String("data_dir", c.DataDir),
		slog.String("blob_backend", c.Blob.Backend),
	}
	if c.Blob.S3 != nil {
		attrs = append(attrs,
			slog.String("s3_bucket", c.Blob.S3.BucketName),
			slog.String("s3_access_key", utils.MaskSecret(c.Blob.S3.AccessKey)),
		)
	}
	return slog.GroupValue(attrs...)
}
