package database

import (
	"context"
	"math"
	"sort"
	"sync"

	"gqlrag/model"
)

// MemoryVectorStore is a brute-force cosine-similarity store with no
// external dependency, standing in for a local embedded vector index (see
// DESIGN.md for why this one backend is stdlib-only) while giving tests and
// the zero-dependency path a real, deterministic VectorStore. It accepts
// all-zero query vectors natively, so it never needs SubstituteZeroVector.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	documents map[string]model.StoredDocument
	sdl       *model.SchemaSDLRecord
}

// NewMemoryVectorStore creates an empty in-memory store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{documents: make(map[string]model.StoredDocument)}
}

func (m *MemoryVectorStore) Initialize(ctx context.Context) error {
	return nil
}

func (m *MemoryVectorStore) Store(ctx context.Context, documents []model.StoredDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range documents {
		m.documents[d.ID] = d
	}
	return nil
}

func (m *MemoryVectorStore) Search(ctx context.Context, vector []float32, opts model.VectorSearchOptions) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	qnorm := vectorNorm(vector)
	results := make([]SearchResult, 0, len(m.documents))
	for _, doc := range m.documents {
		if !MatchFilters(doc.EmbeddingDocument, opts.ColumnFilters) {
			continue
		}
		if !MatchFilters(doc.EmbeddingDocument, opts.MetadataFilters) {
			continue
		}
		score := cosineSimilarity(vector, doc.Embedding, qnorm)
		results = append(results, SearchResult{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.documents, id)
	}
	return nil
}

func (m *MemoryVectorStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string]model.StoredDocument)
	m.sdl = nil
	return nil
}

func (m *MemoryVectorStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents), nil
}

// ListTables reports a single synthetic namespace when the store holds any
// documents, matching the contract's exclusion of the sentinel SDL record
// from non-empty-namespace accounting.
func (m *MemoryVectorStore) ListTables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.documents) == 0 {
		return nil, nil
	}
	return []string{"default"}, nil
}

func (m *MemoryVectorStore) StoreSchemaSDL(ctx context.Context, sdl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sdl = &model.SchemaSDLRecord{SDL: sdl}
	return nil
}

func (m *MemoryVectorStore) GetSchemaSDL(ctx context.Context) (*model.SchemaSDLRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sdl == nil {
		return nil, nil
	}
	copied := *m.sdl
	return &copied, nil
}

func (m *MemoryVectorStore) Close() error {
	return nil
}

func vectorNorm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func vectorDot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosineSimilarity(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = vectorNorm(a)
	}
	bnorm := vectorNorm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return vectorDot(a, b) / (anorm * bnorm)
}
