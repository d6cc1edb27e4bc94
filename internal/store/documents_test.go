package store

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ownai-workshop/internal/model"
)

const docsPath = "/api/knowledge/1/document"

func newDocumentPages(t *testing.T, n int) (*DocumentPages, []model.Document, func() int) {
	t.Helper()
	b, c := newTestBackend(t)
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	require.Equal(t, 1, k.ID)
	docs := b.SeedDocuments(k.ID, n)
	hits := func() int { return b.Hits(http.MethodGet, docsPath) }
	return NewDocumentPages(c, k.ID), docs, hits
}

func TestFetchDocumentsForPage_CachesPage(t *testing.T) {
	d, docs, hits := newDocumentPages(t, 25)
	ctx := context.Background()

	require.NoError(t, d.FetchDocumentsForPage(ctx, 2))
	require.NoError(t, d.FetchDocumentsForPage(ctx, 2))
	assert.Equal(t, 1, hits())

	page, ok := d.Page(2)
	require.True(t, ok)
	assert.Equal(t, docs[10:20], page)
	assert.Equal(t, 25, d.TotalDocuments())
	assert.Equal(t, 3, d.TotalPages())
}

func TestFetchDocumentsForPage_LastPartialPage(t *testing.T) {
	d, docs, _ := newDocumentPages(t, 25)
	require.NoError(t, d.FetchDocumentsForPage(context.Background(), 3))

	page, _ := d.Page(3)
	assert.Equal(t, docs[20:], page)
}

func TestFetchDocumentsForPage_PastEnd(t *testing.T) {
	d, _, _ := newDocumentPages(t, 5)
	require.NoError(t, d.FetchDocumentsForPage(context.Background(), 4))

	page, ok := d.Page(4)
	assert.True(t, ok)
	assert.Empty(t, page)
	assert.Equal(t, 5, d.TotalDocuments())
}

func TestFetchDocumentsForPage_InvalidPage(t *testing.T) {
	d, _, hits := newDocumentPages(t, 5)
	for _, p := range []int{0, -1} {
		err := d.FetchDocumentsForPage(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidPage)
	}
	assert.Zero(t, hits())
}

func TestFetchDocumentsForPage_FailureLeavesCache(t *testing.T) {
	b, c := newTestBackend(t)
	ctx := context.Background()
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	b.SeedDocuments(k.ID, 15)
	d := NewDocumentPages(c, k.ID)

	require.NoError(t, d.FetchDocumentsForPage(ctx, 1))

	b.FailNext(http.StatusBadGateway, "<html>bad gateway</html>")
	err := d.FetchDocumentsForPage(ctx, 2)
	require.Error(t, err)

	_, ok := d.Page(2)
	assert.False(t, ok)
	assert.Equal(t, 15, d.TotalDocuments())

	require.NoError(t, d.FetchDocumentsForPage(ctx, 2))
	assert.Equal(t, 3, b.Hits(http.MethodGet, docsPath), "failed requests count too")
}

func TestGoToPage(t *testing.T) {
	d, docs, hits := newDocumentPages(t, 25)
	ctx := context.Background()

	assert.Equal(t, 1, d.CurrentPage())
	assert.Empty(t, d.CurrentDocuments())

	require.NoError(t, d.GoToPage(ctx, 2))
	assert.Equal(t, 2, d.CurrentPage())
	assert.Equal(t, docs[10:20], d.CurrentDocuments())
	assert.Equal(t, 1, hits())

	require.NoError(t, d.GoToPage(ctx, 1))
	require.NoError(t, d.GoToPage(ctx, 2))
	assert.Equal(t, 2, hits(), "revisiting a cached page must not fetch")
}

func TestGoToPage_MovesPointerOnFailure(t *testing.T) {
	d, _, _ := newDocumentPages(t, 25)
	err := d.GoToPage(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
	assert.Equal(t, 0, d.CurrentPage())
	assert.Empty(t, d.CurrentDocuments())
}

func TestDeleteDocument_EditsCurrentPageOnly(t *testing.T) {
	b, c := newTestBackend(t)
	ctx := context.Background()
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	docs := b.SeedDocuments(k.ID, 25)
	d := NewDocumentPages(c, k.ID)

	require.NoError(t, d.GoToPage(ctx, 3))
	require.NoError(t, d.GoToPage(ctx, 2))
	page3Before, _ := d.Page(3)

	victim := docs[12]
	removed, err := d.DeleteDocument(ctx, victim.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	current := d.CurrentDocuments()
	assert.Len(t, current, 9)
	for _, doc := range current {
		assert.NotEqual(t, victim.ID, doc.ID)
	}

	// The cache keeps the pre-delete view of the other pages and the total,
	// even though the server has shifted page 3 by one document.
	page3After, _ := d.Page(3)
	assert.Equal(t, page3Before, page3After)
	assert.Equal(t, 25, d.TotalDocuments())
	assert.Equal(t, 3, d.TotalPages())
	assert.Len(t, b.Documents(k.ID), 24)

	require.NoError(t, d.FetchDocumentsForPage(ctx, 3))
	page3Cached, _ := d.Page(3)
	assert.Equal(t, page3Before, page3Cached, "cached page is not refreshed")
}

func TestDeleteDocument_NotOnCurrentPage(t *testing.T) {
	d, docs, _ := newDocumentPages(t, 25)
	ctx := context.Background()
	require.NoError(t, d.GoToPage(ctx, 1))

	removed, err := d.DeleteDocument(ctx, docs[20].ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, d.CurrentDocuments(), 10)
}

func TestDeleteDocument_UncachedCurrentPage(t *testing.T) {
	d, docs, _ := newDocumentPages(t, 3)
	removed, err := d.DeleteDocument(context.Background(), docs[0].ID)
	require.NoError(t, err)
	assert.False(t, removed)
	_, ok := d.Page(1)
	assert.False(t, ok)
}

func TestDeleteDocument_FailureKeepsPage(t *testing.T) {
	b, c := newTestBackend(t)
	ctx := context.Background()
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	docs := b.SeedDocuments(k.ID, 3)
	d := NewDocumentPages(c, k.ID)
	require.NoError(t, d.GoToPage(ctx, 1))

	b.FailNext(http.StatusInternalServerError, `{"error":"Chroma is unavailable."}`)
	removed, err := d.DeleteDocument(ctx, docs[0].ID)
	require.Error(t, err)
	assert.False(t, removed)
	assert.Equal(t, "Chroma is unavailable.", err.Error())
	assert.Len(t, d.CurrentDocuments(), 3)
}

func TestInvalidate_Refetches(t *testing.T) {
	d, _, hits := newDocumentPages(t, 12)
	ctx := context.Background()

	require.NoError(t, d.GoToPage(ctx, 1))
	d.Invalidate()
	assert.Zero(t, d.TotalDocuments())
	assert.Empty(t, d.CurrentDocuments())

	require.NoError(t, d.GoToPage(ctx, 1))
	assert.Equal(t, 2, hits())
	assert.Equal(t, 12, d.TotalDocuments())
}

func TestTotalPages(t *testing.T) {
	d := NewDocumentPages(nil, 1)
	for _, tt := range []struct{ total, want int }{
		{0, 0}, {1, 1}, {10, 1}, {11, 2}, {25, 3}, {30, 3},
	} {
		d.total = tt.total
		assert.Equal(t, tt.want, d.TotalPages(), "total %d", tt.total)
	}
}

func TestUploadDocument(t *testing.T) {
	b, c := newTestBackend(t)
	ctx := context.Background()
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	d := NewDocumentPages(c, k.ID)

	require.NoError(t, d.GoToPage(ctx, 1))
	require.NoError(t, d.UploadDocument(ctx, "notes/Readme.TXT", strings.NewReader("hello world")))
	assert.Equal(t, 1, b.Hits(http.MethodPost, docsPath+"/txt"))

	stored := b.Documents(k.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello world", stored[0].Content)
	assert.Empty(t, d.CurrentDocuments(), "upload leaves the cache alone")
}

func TestUploadDocument_Unsupported(t *testing.T) {
	d, _, _ := newDocumentPages(t, 0)
	err := d.UploadDocument(context.Background(), "slides.pptx", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}
