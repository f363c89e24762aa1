// Package blob stores attachment bytes. Objects are content-addressed by the
// attachment pipeline (keys are "<vault>/<sha256><ext>"), so backends never
// overwrite distinct content.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrInvalidKey = errors.New("invalid object key")

// Backend is the storage interface for attachment bytes. Implemented by S3
// and by a local filesystem backend for dev and tests.
type Backend interface {
	// GetObject retrieves an object from storage by its key
	GetObject(ctx context.Context, key string) (*GetObjectResponse, error)

	// PutObject uploads a single object to storage
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)

	// DeleteObject removes an object from storage, returns true if successful
	DeleteObject(ctx context.Context, key string) (bool, error)
}

type GetObjectResponse struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

type PutObjectParams struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

type PutObjectResponse struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type S3Config struct {
	BucketName    string `mapstructure:"bucket_name"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Endpoint      string `mapstructure:"endpoint"`
	UseAccelerate bool   `mapstructure:"use_accelerate"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("bucket_name required")
	}
	if c.Region == "" {
		return fmt.Errorf("region required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access_key required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key required")
	}
	return nil
}

// ValidateKey rejects keys that could escape the bucket namespace.
func ValidateKey(key string) bool {
	if key == "" || key[0] == '/' {
		return false
	}
	for i := range len(key) {
		if key[i] == 0 {
			return false
		}
	}
	return true
}
