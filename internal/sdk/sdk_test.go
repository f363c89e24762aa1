package sdk_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvault/vaultsync/internal/db"
	"github.com/openvault/vaultsync/internal/sdk"
	"github.com/openvault/vaultsync/internal/server"
	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/server/store"
	"github.com/openvault/vaultsync/internal/utils"
)

const testKey = "sdk-test-key"

func newTestSDK(t *testing.T) *sdk.SyncSDK {
	t.Helper()

	database, err := db.NewSqliteDB(db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	st, err := store.New(database)
	require.NoError(t, err)

	backend, err := blob.NewFSBackend(t.TempDir())
	require.NoError(t, err)

	keys, err := server.NewKeyStore(filepath.Join(t.TempDir(), "api_keys"), []string{testKey})
	require.NoError(t, err)

	srv := httptest.NewServer(server.SetupRoutes(&server.Services{
		DB:    database,
		Store: st,
		Blob:  backend,
		Keys:  keys,
	}))
	t.Cleanup(srv.Close)

	client, err := sdk.New(&sdk.Config{
		BaseURL: srv.URL,
		APIKey:  testKey,
		VaultID: "default",
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func str(s string) *string { return &s }

func TestDocLifecycle(t *testing.T) {
	s := newTestSDK(t)
	ctx := context.Background()

	// Missing doc is nil, not an error.
	doc, err := s.Docs.Get(ctx, "notes/daily")
	require.NoError(t, err)
	assert.Nil(t, doc)

	put, err := s.Docs.Put(ctx, "notes/daily", str("hello"), "")
	require.NoError(t, err)
	require.True(t, put.OK)
	require.NotEmpty(t, put.Rev)

	doc, err = s.Docs.Get(ctx, "notes/daily")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "notes/daily", doc.ID)
	assert.Equal(t, "hello", *doc.Content)
	assert.Equal(t, put.Rev, doc.Rev)

	// Stale writes surface as an error carrying the conflict status.
	_, err = s.Docs.Put(ctx, "notes/daily", str("stale"), "1-old")
	require.Error(t, err)

	del, err := s.Docs.Delete(ctx, "notes/daily", put.Rev)
	require.NoError(t, err)
	assert.True(t, del.OK)

	status, err := s.Docs.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.OK)
	assert.Equal(t, "default", status.VaultID)
	assert.Greater(t, status.LastSeq, int64(0))
}

func TestChangesPagination(t *testing.T) {
	s := newTestSDK(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Docs.Put(ctx, id, str(id), "")
		require.NoError(t, err)
	}

	page, err := s.Docs.Changes(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)

	rest, err := s.Docs.Changes(ctx, page.LastSeq, 100)
	require.NoError(t, err)
	require.Len(t, rest.Results, 1)
	assert.Greater(t, rest.Results[0].Seq, page.LastSeq)
}

func TestBulkDocsServerMerge(t *testing.T) {
	s := newTestSDK(t)
	ctx := context.Background()

	base := "A\nB\nC"
	put, err := s.Docs.Put(ctx, "doc", str(base), "")
	require.NoError(t, err)

	// Another writer advances the doc.
	remote, err := s.Docs.Put(ctx, "doc", str("A\nB\nC2"), put.Rev)
	require.NoError(t, err)

	// Our push is stale but carries the base, so the server merges.
	results, err := s.Docs.Bulk(ctx, []sdk.BulkDocItem{{
		ID:          "doc",
		Rev:         put.Rev,
		Content:     str("A\nB2\nC"),
		BaseContent: str(base),
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].OK, "result: %+v", results[0])
	assert.True(t, results[0].Merged)
	assert.NotEqual(t, remote.Rev, results[0].Rev)

	doc, err := s.Docs.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "A\nB2\nC2", *doc.Content)
}

func TestAttachmentRoundtrip(t *testing.T) {
	s := newTestSDK(t)
	ctx := context.Background()
	content := []byte("attachment bytes")

	up, err := s.Attach.Upload(ctx, "assets/pic.png", "image/png", content)
	require.NoError(t, err)
	require.True(t, up.OK)
	assert.Equal(t, "default:"+utils.BytesHash(content)+".png", up.ID)
	assert.False(t, up.Unchanged)

	again, err := s.Attach.Upload(ctx, "assets/pic.png", "image/png", content)
	require.NoError(t, err)
	assert.True(t, again.Unchanged)

	meta, err := s.Attach.Get(ctx, up.ID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "assets/pic.png", meta.Path)
	assert.Equal(t, int64(len(content)), meta.Size)

	body, err := s.Attach.Download(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, content, body)

	feed, err := s.Attach.Changes(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, feed.Results, 1)
	assert.Equal(t, up.ID, feed.Results[0].ID)

	require.NoError(t, s.Attach.Delete(ctx, up.ID))
	meta, err = s.Attach.Get(ctx, up.ID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Deleted)
}

func TestContentURL(t *testing.T) {
	s := newTestSDK(t)
	url := s.Attach.ContentURL("default:abc123.png")
	assert.Contains(t, url, "/api/attachments/default:abc123.png/content")
	assert.Contains(t, url, "vault_id=default")
}

func TestConfigValidation(t *testing.T) {
	_, err := sdk.New(&sdk.Config{BaseURL: "http://example.invalid", APIKey: ""})
	assert.ErrorIs(t, err, sdk.ErrNoAPIKey)

	_, err = sdk.New(&sdk.Config{APIKey: "k"})
	assert.ErrorIs(t, err, sdk.ErrNoServerURL)
}
