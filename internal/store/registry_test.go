package store

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ownai-workshop/internal/model"
)

func TestDocumentRegistry_OpenIsLazyAndStable(t *testing.T) {
	r := NewDocumentRegistry(nil)
	assert.Zero(t, r.Len())

	a := r.Open(1)
	b := r.Open(2)
	assert.Same(t, a, r.Open(1))
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, a.KnowledgeID())
	assert.Equal(t, 2, b.KnowledgeID())
	assert.Equal(t, 2, r.Len())
}

func TestDocumentRegistry_DisposeStartsClean(t *testing.T) {
	b, c := newTestBackend(t)
	ctx := context.Background()
	k := b.SeedKnowledge(model.Knowledge{Name: "K", Embeddings: "huggingface", ChunkSize: 100})
	b.SeedDocuments(k.ID, 3)
	r := NewDocumentRegistry(c)

	first := r.Open(k.ID)
	require.NoError(t, first.GoToPage(ctx, 1))
	require.NoError(t, r.Open(k.ID).GoToPage(ctx, 1))
	assert.Equal(t, 1, b.Hits(http.MethodGet, "/api/knowledge/1/document"))

	r.Dispose(k.ID)
	assert.Zero(t, r.Len())

	second := r.Open(k.ID)
	assert.NotSame(t, first, second)
	assert.Empty(t, second.CurrentDocuments())
	require.NoError(t, second.GoToPage(ctx, 1))
	assert.Equal(t, 2, b.Hits(http.MethodGet, "/api/knowledge/1/document"))
}

func TestDocumentRegistry_ConcurrentOpen(t *testing.T) {
	r := NewDocumentRegistry(nil)
	var wg sync.WaitGroup
	got := make([]*DocumentPages, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Open(7)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, r.Len())
}
