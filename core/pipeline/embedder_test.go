package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gqlrag/database"
	"gqlrag/model"
)

// fakeEmbeddingProvider returns a deterministic, low-dimensional vector
// derived from text length, with a configurable token ceiling so tests can
// exercise the skip-diagnostic path.
type fakeEmbeddingProvider struct {
	maxContext int
}

func (f *fakeEmbeddingProvider) Initialize(ctx context.Context) error { return nil }

func (f *fakeEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbeddingProvider) Dimensions() int      { return 2 }
func (f *fakeEmbeddingProvider) MaxContextSize() int  { return f.maxContext }
func (f *fakeEmbeddingProvider) CountTokens(s string) int {
	return len(strings.Fields(s))
}
func (f *fakeEmbeddingProvider) Dispose() error { return nil }

const incrementalSDL1 = `
type User { id: ID! name: String! }
type Query { users: [User!]! }
`

const incrementalSDL2 = `
type User { id: ID! name: String! email: String }
type Query { users: [User!]! }
`

func newTestService(maxContext, maxContentLength int) (*EmbeddingService, *database.MemoryVectorStore) {
	store := database.NewMemoryVectorStore()
	svc := NewEmbeddingService(&fakeEmbeddingProvider{maxContext: maxContext}, store, maxContentLength)
	return svc, store
}

func TestEmbeddingService_EmbedAndStore(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds every document when within the token budget", func(t *testing.T) {
		svc, store := newTestService(1000, 0)
		docs, err := svc.Parser.Parse(incrementalSDL1)
		require.NoError(t, err)

		res, err := svc.EmbedAndStore(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, len(docs), res.EmbeddedCount)
		assert.Zero(t, res.SkippedCount)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(docs), count)
	})

	t.Run("skips documents whose token count exceeds the budget", func(t *testing.T) {
		svc, _ := newTestService(1, 0)
		docs, err := svc.Parser.Parse(incrementalSDL1)
		require.NoError(t, err)

		res, err := svc.EmbedAndStore(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, 0, res.EmbeddedCount)
		assert.Equal(t, len(docs), res.SkippedCount)
		require.Len(t, res.SkippedDocuments, len(docs))
		assert.Equal(t, 1, res.SkippedDocuments[0].MaxTokens)
	})
}

func TestEmbeddingService_Incremental(t *testing.T) {
	ctx := context.Background()

	t.Run("falls through to a full embed when no prior SDL exists", func(t *testing.T) {
		svc, store := newTestService(1000, 0)

		res, err := svc.EmbedAndStoreIncremental(ctx, incrementalSDL1)
		require.NoError(t, err)
		assert.Zero(t, res.Deleted)
		assert.Zero(t, res.Unchanged)
		assert.Positive(t, res.Added)

		rec, err := store.GetSchemaSDL(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, incrementalSDL1, rec.SDL)
	})

	t.Run("adding a field changes the container's id, so it deletes+adds rather than updating in place", func(t *testing.T) {
		svc, store := newTestService(1000, 0)

		_, err := svc.EmbedAndStoreIncremental(ctx, incrementalSDL1)
		require.NoError(t, err)

		res, err := svc.EmbedAndStoreIncremental(ctx, incrementalSDL2)
		require.NoError(t, err)

		// The User container's content changes (new field), so its id
		// changes: the old container is deleted and both the new
		// container and the new field document are added.
		assert.Equal(t, 2, res.Added)
		assert.Equal(t, 1, res.Deleted)

		oldDocs, err := svc.Parser.Parse(incrementalSDL1)
		require.NoError(t, err)
		newDocs, err := svc.Parser.Parse(incrementalSDL2)
		require.NoError(t, err)

		newIDs := idSet(newDocs)
		wantUnchanged := 0
		for id := range idSet(oldDocs) {
			if newIDs[id] {
				wantUnchanged++
			}
		}
		assert.Equal(t, wantUnchanged, res.Unchanged)

		rec, err := store.GetSchemaSDL(ctx)
		require.NoError(t, err)
		assert.Equal(t, incrementalSDL2, rec.SDL)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(newDocs), count)
	})

	t.Run("re-embedding identical SDL changes nothing", func(t *testing.T) {
		svc, _ := newTestService(1000, 0)

		_, err := svc.EmbedAndStoreIncremental(ctx, incrementalSDL1)
		require.NoError(t, err)

		res, err := svc.EmbedAndStoreIncremental(ctx, incrementalSDL1)
		require.NoError(t, err)

		assert.Zero(t, res.Added)
		assert.Zero(t, res.Deleted)
		assert.Positive(t, res.Unchanged)
	})
}

func TestEmbeddingService_SearchAndClear(t *testing.T) {
	ctx := context.Background()

	t.Run("search embeds the query and delegates to the store", func(t *testing.T) {
		svc, _ := newTestService(1000, 0)
		docs, err := svc.Parser.Parse(incrementalSDL1)
		require.NoError(t, err)
		_, err = svc.EmbedAndStore(ctx, docs)
		require.NoError(t, err)

		results, err := svc.Search(ctx, "users", model.VectorSearchOptions{Limit: 5})
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	})

	t.Run("clear empties the store", func(t *testing.T) {
		svc, store := newTestService(1000, 0)
		docs, err := svc.Parser.Parse(incrementalSDL1)
		require.NoError(t, err)
		_, err = svc.EmbedAndStore(ctx, docs)
		require.NoError(t, err)

		require.NoError(t, svc.Clear(ctx))
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
