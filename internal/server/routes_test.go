package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvault/vaultsync/internal/db"
	"github.com/openvault/vaultsync/internal/server/blob"
	"github.com/openvault/vaultsync/internal/server/store"
	"github.com/openvault/vaultsync/internal/utils"
)

const testKey = "test-api-key"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.NewSqliteDB(db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	st, err := store.New(database)
	require.NoError(t, err)

	backend, err := blob.NewFSBackend(t.TempDir())
	require.NoError(t, err)

	keys, err := NewKeyStore(filepath.Join(t.TempDir(), "api_keys"), []string{testKey})
	require.NoError(t, err)

	return SetupRoutes(&Services{
		DB:    database,
		Store: st,
		Blob:  backend,
		Keys:  keys,
	})
}

func doReq(t *testing.T, h http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestHealthAndIndexArePublic(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	index := decodeJSON(t, w)
	assert.Equal(t, "VaultSync", index["name"])
	assert.Equal(t, "ok", index["status"])
}

func TestBearerAuth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doReq(t, h, http.MethodGet, "/api/status", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMintedKeyIsAccepted(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/new", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	minted, ok := decodeJSON(t, w)["key"].(string)
	require.True(t, ok)
	require.NotEmpty(t, minted)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+minted)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentRoundtripWithEncodedID(t *testing.T) {
	h := newTestHandler(t)
	docID := url.PathEscape("notes/daily")

	body, _ := json.Marshal(map[string]any{"content": "hello"})
	w := doReq(t, h, http.MethodPut, "/api/docs/"+docID, body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rev, _ := decodeJSON(t, w)["rev"].(string)
	require.NotEmpty(t, rev)

	w = doReq(t, h, http.MethodGet, "/api/docs/"+docID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeJSON(t, w)
	assert.Equal(t, "notes/daily", got["_id"])
	assert.Equal(t, "hello", got["content"])
	assert.Equal(t, rev, got["_rev"])

	// Stale rev is rejected.
	body, _ = json.Marshal(map[string]any{"content": "other", "_rev": "1-stale"})
	w = doReq(t, h, http.MethodPut, "/api/docs/"+docID, body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, rev, decodeJSON(t, w)["current_rev"])

	// Matching rev advances the doc.
	body, _ = json.Marshal(map[string]any{"content": "other", "_rev": rev})
	w = doReq(t, h, http.MethodPut, "/api/docs/"+docID, body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	next, _ := decodeJSON(t, w)["rev"].(string)
	assert.NotEqual(t, rev, next)

	// Delete requires the current rev.
	w = doReq(t, h, http.MethodDelete, "/api/docs/"+docID+"?rev="+url.QueryEscape(rev), nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doReq(t, h, http.MethodDelete, "/api/docs/"+docID+"?rev="+url.QueryEscape(next), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangesFeedAcrossWrites(t *testing.T) {
	h := newTestHandler(t)

	for _, id := range []string{"a", "b", "c"} {
		body, _ := json.Marshal(map[string]any{"content": id})
		w := doReq(t, h, http.MethodPut, "/api/docs/"+id, body, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doReq(t, h, http.MethodGet, "/api/changes?since=0&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeJSON(t, w)
	results := page["results"].([]any)
	require.Len(t, results, 2)
	lastSeq := int64(page["last_seq"].(float64))

	w = doReq(t, h, http.MethodGet, "/api/changes?since="+jsonInt(lastSeq), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decodeJSON(t, w)
	require.Len(t, page["results"].([]any), 1)

	w = doReq(t, h, http.MethodGet, "/api/changes?limit=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestBulkDocsPreservesOrder(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(map[string]any{
		"docs": []map[string]any{
			{"_id": "z", "content": "1"},
			{"_id": "a", "content": "2"},
			{"_id": "m", "content": "3"},
		},
	})
	w := doReq(t, h, http.MethodPost, "/api/docs/bulk_docs", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "z", results[0]["id"])
	assert.Equal(t, "a", results[1]["id"])
	assert.Equal(t, "m", results[2]["id"])
	for _, r := range results {
		assert.Equal(t, true, r["ok"])
	}
}

func TestAttachmentUploadAndFetch(t *testing.T) {
	h := newTestHandler(t)
	content := []byte("fake png bytes")
	hash := utils.BytesHash(content)

	w := doReq(t, h, http.MethodPut, "/api/attachments/assets/photo.png", content, map[string]string{
		"Content-Type":     "image/png",
		"X-Content-Hash":   hash,
		"X-Content-Length": jsonInt(int64(len(content))),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decodeJSON(t, w)
	id, _ := up["id"].(string)
	assert.Equal(t, "default:"+hash+".png", id)
	assert.Nil(t, up["unchanged"])

	// Same bytes again dedupe without a second store write.
	w = doReq(t, h, http.MethodPut, "/api/attachments/assets/photo.png", content, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["unchanged"])

	// Metadata.
	w = doReq(t, h, http.MethodGet, "/api/attachments/"+url.PathEscape(id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeJSON(t, w)
	assert.Equal(t, hash, meta["hash"])
	assert.Equal(t, "assets/photo.png", meta["path"])

	// Content is public, carries the integrity header.
	req := httptest.NewRequest(http.MethodGet, "/api/attachments/"+url.PathEscape(id)+"/content", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, hash, rec.Header().Get("X-Attachment-Hash"))

	// Feed saw the upload.
	w = doReq(t, h, http.MethodGet, "/api/attachments/changes", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decodeJSON(t, w)
	require.Len(t, feed["results"].([]any), 1)

	// Delete tombstones metadata and hides content.
	w = doReq(t, h, http.MethodDelete, "/api/attachments/"+url.PathEscape(id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/attachments/"+url.PathEscape(id)+"/content", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachmentUploadValidation(t *testing.T) {
	h := newTestHandler(t)
	content := []byte("data")

	// Traversal in path.
	w := doReq(t, h, http.MethodPut, "/api/attachments/"+url.PathEscape("../escape.png"), content, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Declared hash mismatch.
	w = doReq(t, h, http.MethodPut, "/api/attachments/a.png", content, map[string]string{
		"X-Content-Hash": "deadbeef",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Declared length mismatch.
	w = doReq(t, h, http.MethodPut, "/api/attachments/a.png", content, map[string]string{
		"X-Content-Length": "999",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachmentForeignVaultID(t *testing.T) {
	h := newTestHandler(t)

	w := doReq(t, h, http.MethodGet, "/api/attachments/"+url.PathEscape("other:abc.png"), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doReq(t, h, http.MethodDelete, "/api/attachments/"+url.PathEscape("other:abc.png"), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminStatsAndCleanup(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(map[string]any{"content": "x"})
	w := doReq(t, h, http.MethodPut, "/api/docs/doc", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doReq(t, h, http.MethodGet, "/api/admin/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeJSON(t, w)
	require.NotNil(t, stats["vaults"])

	w = doReq(t, h, http.MethodPost, "/api/admin/cleanup?max_age_days=30", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["ok"])

	w = doReq(t, h, http.MethodPost, "/api/admin/cleanup?max_age_days=9999", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
