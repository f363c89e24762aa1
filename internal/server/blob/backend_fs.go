package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/openvault/vaultsync/internal/utils"
)

// FSBackend stores objects as plain files under a root directory. Used by the
// devstack and by tests; production deployments use S3.
type FSBackend struct {
	root string
}

func NewFSBackend(root string) (*FSBackend, error) {
	abs, err := utils.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(abs); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSBackend{root: abs}, nil
}

func (f *FSBackend) objectPath(key string) (string, error) {
	if !ValidateKey(key) || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func (f *FSBackend) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	path, err := f.objectPath(key)
	if err != nil {
		return nil, err
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}

	return &GetObjectResponse{
		Body:         fd,
		ContentType:  utils.DetectContentType(key),
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

func (f *FSBackend) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	path, err := f.objectPath(params.Key)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write object %s: %w", params.Key, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &PutObjectResponse{
		Key:          params.Key,
		Size:         int64(len(data)),
		LastModified: info.ModTime(),
	}, nil
}

func (f *FSBackend) DeleteObject(ctx context.Context, key string) (bool, error) {
	path, err := f.objectPath(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ Backend = (*FSBackend)(nil)
var _ Backend = (*S3Backend)(nil)
