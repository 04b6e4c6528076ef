package pipeline

import (
	"context"
	"fmt"
	"time"

	"gqlrag/database"
	"gqlrag/embedding"
	"gqlrag/model"
)

// SkippedDocument records a document that exceeded the embedder's token
// budget and was therefore not stored.
type SkippedDocument struct {
	ID         string
	Name       string
	TokenCount int
	MaxTokens  int
}

// EmbedResult is the return value of EmbedAndStore.
type EmbedResult struct {
	EmbeddedCount    int
	SkippedCount     int
	SkippedDocuments []SkippedDocument
	ChunkedCount     int
	ChunkedDocuments []string
}

// IncrementalResult is the return value of EmbedAndStoreIncremental.
type IncrementalResult struct {
	Added     int
	Deleted   int
	Unchanged int
	DurationMs int64
}

// EmbeddingService mediates between the schema parser's output and a
// VectorStore, composing an embedding.Provider, a database.VectorStore,
// and the parser/chunker pair needed for the incremental diff path.
type EmbeddingService struct {
	Embedder         embedding.Provider
	Store            database.VectorStore
	Parser           *SchemaParser
	Chunker          *Chunker
	MaxContentLength int
}

// NewEmbeddingService wires the four collaborators together. maxContentLength
// of 0 disables chunking (every document passes through unchanged).
func NewEmbeddingService(embedder embedding.Provider, store database.VectorStore, maxContentLength int) *EmbeddingService {
	return &EmbeddingService{
		Embedder:         embedder,
		Store:            store,
		Parser:           NewSchemaParser(),
		Chunker:          NewChunker(),
		MaxContentLength: maxContentLength,
	}
}

// EmbedAndStore computes an embedding for each document and upserts it,
// skipping any document whose token count exceeds the embedder's max
// context size and recording a diagnostic for it instead of failing.
func (s *EmbeddingService) EmbedAndStore(ctx context.Context, documents []model.EmbeddingDocument) (EmbedResult, error) {
	documents, chunked := s.applyChunking(documents)

	result := EmbedResult{ChunkedCount: len(chunked), ChunkedDocuments: chunked}

	var toEmbed []model.EmbeddingDocument
	for _, doc := range documents {
		tokenCount := s.Embedder.CountTokens(doc.Content)
		if tokenCount > s.Embedder.MaxContextSize() {
			result.SkippedCount++
			result.SkippedDocuments = append(result.SkippedDocuments, SkippedDocument{
				ID:         doc.ID,
				Name:       doc.Name,
				TokenCount: tokenCount,
				MaxTokens:  s.Embedder.MaxContextSize(),
			})
			continue
		}
		toEmbed = append(toEmbed, doc)
	}

	if len(toEmbed) == 0 {
		return result, nil
	}

	texts := make([]string, len(toEmbed))
	for i, doc := range toEmbed {
		texts[i] = doc.Content
	}

	vectors, err := s.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("embed and store: %w", err)
	}

	stored := make([]model.StoredDocument, len(toEmbed))
	for i, doc := range toEmbed {
		stored[i] = model.StoredDocument{EmbeddingDocument: doc, Embedding: vectors[i]}
	}

	if err := s.Store.Store(ctx, stored); err != nil {
		return result, fmt.Errorf("embed and store: %w", err)
	}

	result.EmbeddedCount = len(stored)
	return result, nil
}

// applyChunking runs every document through the chunker and flattens the
// result, recording the names of documents that were actually split.
func (s *EmbeddingService) applyChunking(documents []model.EmbeddingDocument) ([]model.EmbeddingDocument, []string) {
	if s.MaxContentLength <= 0 {
		return documents, nil
	}

	var out []model.EmbeddingDocument
	var chunkedNames []string
	for _, doc := range documents {
		chunks, err := s.Chunker.Chunk(doc, s.MaxContentLength)
		if err != nil || len(chunks) == 0 {
			out = append(out, doc)
			continue
		}
		if len(chunks) > 1 {
			chunkedNames = append(chunkedNames, doc.Name)
		}
		out = append(out, chunks...)
	}
	return out, chunkedNames
}

// EmbedAndStoreIncremental diffs newSchemaSDL against the previously stored
// SDL (if any) and applies only the delta: delete removed ids, embed and
// upsert additions, then overwrite the sidecar SDL. Both schemas are run
// through the chunker before the diff is computed, so the id sets being
// compared are the same ones that actually get stored (and deleted) -
// otherwise an oversized type's chunk ids would never match the plain
// parsed id the diff expects, leaving orphaned chunks behind on removal.
//
// The update is not atomic: deletes are applied before additions are
// stored, and no transaction spans the two phases or the sidecar write, so
// an interrupted run can leave the stored SDL out of step with the stored
// documents until the next successful run.
func (s *EmbeddingService) EmbedAndStoreIncremental(ctx context.Context, newSchemaSDL string) (IncrementalResult, error) {
	start := time.Now()

	prior, err := s.Store.GetSchemaSDL(ctx)
	if err != nil {
		return IncrementalResult{}, fmt.Errorf("embed and store incremental: %w", err)
	}

	newParsed, err := s.Parser.Parse(newSchemaSDL)
	if err != nil {
		return IncrementalResult{}, err
	}
	newDocs, _ := s.applyChunking(newParsed)

	if prior == nil {
		res, err := s.EmbedAndStore(ctx, newDocs)
		if err != nil {
			return IncrementalResult{}, err
		}
		if err := s.Store.StoreSchemaSDL(ctx, newSchemaSDL); err != nil {
			return IncrementalResult{}, fmt.Errorf("embed and store incremental: %w", err)
		}
		return IncrementalResult{Added: res.EmbeddedCount, DurationMs: time.Since(start).Milliseconds()}, nil
	}

	oldParsed, err := s.Parser.Parse(prior.SDL)
	if err != nil {
		return IncrementalResult{}, err
	}
	oldDocs, _ := s.applyChunking(oldParsed)

	oldIDs := idSet(oldDocs)
	newIDs := idSet(newDocs)

	var toDelete []string
	for id := range oldIDs {
		if !newIDs[id] {
			toDelete = append(toDelete, id)
		}
	}

	var toAdd []model.EmbeddingDocument
	for _, doc := range newDocs {
		if !oldIDs[doc.ID] {
			toAdd = append(toAdd, doc)
		}
	}

	unchanged := 0
	for id := range newIDs {
		if oldIDs[id] {
			unchanged++
		}
	}

	if len(toDelete) > 0 {
		if err := s.Store.Delete(ctx, toDelete); err != nil {
			return IncrementalResult{}, fmt.Errorf("embed and store incremental: %w", err)
		}
	}

	added := 0
	if len(toAdd) > 0 {
		res, err := s.EmbedAndStore(ctx, toAdd)
		if err != nil {
			return IncrementalResult{}, err
		}
		added = res.EmbeddedCount
	}

	if err := s.Store.StoreSchemaSDL(ctx, newSchemaSDL); err != nil {
		return IncrementalResult{}, fmt.Errorf("embed and store incremental: %w", err)
	}

	return IncrementalResult{Added: added, Deleted: len(toDelete), Unchanged: unchanged, DurationMs: time.Since(start).Milliseconds()}, nil
}

func idSet(docs []model.EmbeddingDocument) map[string]bool {
	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.ID] = true
	}
	return ids
}

// Search embeds query text and delegates to the vector store.
func (s *EmbeddingService) Search(ctx context.Context, query string, opts model.VectorSearchOptions) ([]database.SearchResult, error) {
	vector, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return s.Store.Search(ctx, vector, opts)
}

// Clear removes every stored document and the SDL sidecar.
func (s *EmbeddingService) Clear(ctx context.Context) error {
	return s.Store.Clear(ctx)
}
