package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvault/vaultsync/internal/db"
	"github.com/openvault/vaultsync/internal/revision"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.NewSqliteDB(db.WithMaxOpenConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s, err := New(database)
	require.NoError(t, err)
	return s
}

func str(s string) *string { return &s }

func TestUpsertAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rev := revision.Generate("")
	require.NoError(t, s.UpsertDocument(ctx, "default", "notes/daily", str("hello"), rev, false))

	doc, err := s.GetDocument(ctx, "default", "notes/daily")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "hello", *doc.Content)
	assert.Equal(t, rev, doc.Rev)
	assert.False(t, doc.Deleted)

	// Unknown doc and unknown vault are nil, not errors.
	doc, err = s.GetDocument(ctx, "default", "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = s.GetDocument(ctx, "other", "notes/daily")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestChangeFeedOrderingAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var rev string
	for range 5 {
		rev = revision.Generate(rev)
		require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("v"), rev, false))
	}
	// Another vault's writes must not leak into the feed.
	require.NoError(t, s.UpsertDocument(ctx, "other", "doc", str("x"), revision.Generate(""), false))

	var seen []int64
	since := int64(0)
	for {
		rows, lastSeq, err := s.GetChanges(ctx, "default", since, 2)
		require.NoError(t, err)
		if len(rows) == 0 {
			assert.Equal(t, since, lastSeq)
			break
		}
		for _, c := range rows {
			assert.Equal(t, "default", c.VaultID)
			seen = append(seen, c.Seq)
		}
		assert.Equal(t, rows[len(rows)-1].Seq, lastSeq)
		since = lastSeq
	}

	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "seq must be strictly increasing")
	}
}

func TestGetLatestSeqs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docSeq, attSeq, err := s.GetLatestSeqs(ctx, "default")
	require.NoError(t, err)
	assert.Zero(t, docSeq)
	assert.Zero(t, attSeq)

	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("v"), revision.Generate(""), false))
	require.NoError(t, s.UpsertAttachment(ctx, &Attachment{
		ID: "default:abc.png", VaultID: "default", Path: "a.png",
		ContentType: "image/png", Size: 3, Hash: "abc", ObjectKey: "default/abc.png",
	}))

	docSeq, attSeq, err = s.GetLatestSeqs(ctx, "default")
	require.NoError(t, err)
	assert.Positive(t, docSeq)
	assert.Positive(t, attSeq)
}

func TestBulkUpsertNewAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "a", Content: str("A")},
		{ID: "b", Content: str("B")},
	})
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "b", res[1].ID)
	for _, r := range res {
		assert.True(t, r.OK)
		assert.EqualValues(t, 1, revision.Generation(r.Rev))
	}

	// Update against the current rev bumps the generation.
	res2 := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "a", Rev: res[0].Rev, Content: str("A2")},
	})
	require.Len(t, res2, 1)
	assert.True(t, res2[0].OK)
	assert.EqualValues(t, 2, revision.Generation(res2[0].Rev))
}

func TestBulkUpsertResponseOrderMatchesRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []BulkDocItem{
		{ID: "z", Content: str("1")},
		{ID: "a", Content: str("2")},
		{ID: "m", Content: str("3")},
	}
	res := s.BulkUpsert(ctx, "default", items)
	require.Len(t, res, len(items))
	for i, item := range items {
		assert.Equal(t, item.ID, res[i].ID)
	}
}

func TestBulkUpsertServerSideMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Stored doc is at generation 2 with a change on line C.
	rev1 := revision.Generate("")
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nB\nC"), rev1, false))
	rev2 := revision.Generate(rev1)
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nB\nC2"), rev2, false))

	// Client pushes a change on line B against the stale rev1, with the base.
	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "doc", Rev: rev1, Content: str("A\nB2\nC"), BaseContent: str("A\nB\nC")},
	})
	require.Len(t, res, 1)
	require.True(t, res[0].OK, "expected merge, got %+v", res[0])
	assert.True(t, res[0].Merged)
	assert.EqualValues(t, 3, revision.Generation(res[0].Rev))

	doc, err := s.GetDocument(ctx, "default", "doc")
	require.NoError(t, err)
	assert.Equal(t, "A\nB2\nC2", *doc.Content)
}

func TestBulkUpsertMergeConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rev1 := revision.Generate("")
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nB\nC"), rev1, false))
	rev2 := revision.Generate(rev1)
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nX\nC"), rev2, false))

	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "doc", Rev: rev1, Content: str("A\nY\nC"), BaseContent: str("A\nB\nC")},
	})
	require.Len(t, res, 1)
	assert.Equal(t, "conflict", res[0].Error)
	assert.Equal(t, rev2, res[0].CurrentRev)
	require.NotNil(t, res[0].CurrentContent)
	assert.Equal(t, "A\nX\nC", *res[0].CurrentContent)
	require.NotEmpty(t, res[0].Conflicts)
	assert.Equal(t, []string{"X"}, res[0].Conflicts[0].LocalLines)
	assert.Equal(t, []string{"Y"}, res[0].Conflicts[0].RemoteLines)
}

func TestBulkUpsertMergeBaseFromRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// The base survives in the revisions table even without _base_content.
	rev1 := revision.Generate("")
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nB\nC"), rev1, false))
	rev2 := revision.Generate(rev1)
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("A\nB\nC2"), rev2, false))

	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "doc", Rev: rev1, Content: str("A\nB2\nC")},
	})
	require.Len(t, res, 1)
	assert.True(t, res[0].OK)
	assert.True(t, res[0].Merged)
}

func TestBulkUpsertBaseRevisionNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("current"), revision.Generate(""), false))

	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "doc", Rev: "9-gone", Content: str("local")},
	})
	require.Len(t, res, 1)
	assert.Equal(t, "conflict", res[0].Error)
	assert.Equal(t, "base_revision_not_found", res[0].Reason)
	assert.True(t, res[0].RequiresFullSync)
}

func TestBulkUpsertDeleteVsUpdateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rev1 := revision.Generate("")
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("v"), rev1, false))
	rev2 := revision.Generate(rev1)
	require.NoError(t, s.UpsertDocument(ctx, "default", "doc", nil, rev2, true))

	res := s.BulkUpsert(ctx, "default", []BulkDocItem{
		{ID: "doc", Rev: rev1, Content: str("local edit"), BaseContent: str("v")},
	})
	require.Len(t, res, 1)
	assert.Equal(t, "conflict", res[0].Error)
	assert.True(t, res[0].CurrentDeleted)
}

func TestCleanupKeepsLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var rev string
	for range 3 {
		rev = revision.Generate(rev)
		require.NoError(t, s.UpsertDocument(ctx, "default", "doc", str("v"), rev, false))
	}

	// A negative maxAge makes everything stale; only latest rows must survive.
	prunedRevs, prunedChanges, err := s.Cleanup(ctx, -time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, prunedRevs)
	assert.EqualValues(t, 2, prunedChanges)

	// The head revision is still resolvable.
	content, found, err := s.GetRevisionContent(ctx, "default", "doc", rev)
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, content)

	rows, _, err := s.GetChanges(ctx, "default", 0, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rev, rows[0].Rev)
}

func TestAttachmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Attachment{
		ID: "default:h1.png", VaultID: "default", Path: "assets/a.png",
		ContentType: "image/png", Size: 10, Hash: "h1", ObjectKey: "default/h1.png",
	}
	require.NoError(t, s.UpsertAttachment(ctx, a))

	got, err := s.GetAttachment(ctx, "default", "default:h1.png")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "assets/a.png", got.Path)
	assert.False(t, got.Deleted)

	require.NoError(t, s.DeleteAttachment(ctx, "default", "default:h1.png"))
	got, err = s.GetAttachment(ctx, "default", "default:h1.png")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	// Upsert + delete appended two feed rows.
	rows, lastSeq, err := s.GetAttachmentChanges(ctx, "default", 0, 100)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[1].Seq, lastSeq)
	assert.False(t, rows[0].Deleted)
	assert.True(t, rows[1].Deleted)

	// Deleting again is a no-op.
	require.NoError(t, s.DeleteAttachment(ctx, "default", "default:h1.png"))
	rows, _, err = s.GetAttachmentChanges(ctx, "default", 0, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, "v1", "doc", str("x"), revision.Generate(""), false))
	require.NoError(t, s.UpsertAttachment(ctx, &Attachment{
		ID: "v1:h.png", VaultID: "v1", Path: "p.png",
		ContentType: "image/png", Size: 42, Hash: "h", ObjectKey: "v1/h.png",
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "v1", stats[0].VaultID)
	assert.EqualValues(t, 1, stats[0].Documents)
	assert.EqualValues(t, 1, stats[0].Attachments)
	assert.EqualValues(t, 42, stats[0].BlobBytes)
}
