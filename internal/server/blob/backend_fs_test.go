package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackendRoundtrip(t *testing.T) {
	backend, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	body := "attachment bytes"
	put, err := backend.PutObject(ctx, &PutObjectParams{
		Key:         "default/abcd1234.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.EqualValues(t, len(body), put.Size)

	got, err := backend.GetObject(ctx, "default/abcd1234.png")
	require.NoError(t, err)
	defer got.Body.Close()

	data, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.EqualValues(t, len(body), got.Size)

	ok, err := backend.DeleteObject(ctx, "default/abcd1234.png")
	require.NoError(t, err)
	assert.True(t, ok)

	// Deleting again reports not-found without error.
	ok, err = backend.DeleteObject(ctx, "default/abcd1234.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSBackendRejectsBadKeys(t *testing.T) {
	backend, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "a/../../etc/passwd"} {
		_, err := backend.GetObject(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestValidateKey(t *testing.T) {
	assert.True(t, ValidateKey("vault/hash.png"))
	assert.False(t, ValidateKey(""))
	assert.False(t, ValidateKey("/vault/hash.png"))
	assert.False(t, ValidateKey("vault/\x00.png"))
}
