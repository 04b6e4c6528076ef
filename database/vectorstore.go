// Package database implements the VectorStore abstraction over three
// backends — Postgres+pgvector, Qdrant, and an in-memory reference
// implementation — plus the schema SDL sidecar and the supplemental
// type-dependency graph.
package database

import (
	"context"

	"gqlrag/model"
)

// ZeroVectorEpsilon is substituted per coordinate when a caller passes an
// all-zero query vector for a metadata-only lookup against a backend that
// rejects zero vectors.
const ZeroVectorEpsilon = 1e-7

// SearchResult pairs a stored document with its similarity score.
type SearchResult struct {
	Document model.StoredDocument
	Score    float64
}

// VectorStore is the narrow abstraction consumed by the embedding service
// and the dynamic operation generator.
type VectorStore interface {
	Initialize(ctx context.Context) error
	Store(ctx context.Context, documents []model.StoredDocument) error
	Search(ctx context.Context, vector []float32, opts model.VectorSearchOptions) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	ListTables(ctx context.Context) ([]string, error)
	StoreSchemaSDL(ctx context.Context, sdl string) error
	GetSchemaSDL(ctx context.Context) (*model.SchemaSDLRecord, error)
	Close() error
}

// SubstituteZeroVector replaces an all-zero vector with ZeroVectorEpsilon
// per coordinate. Backends that accept zero vectors natively (the
// in-memory store) don't need to call this.
func SubstituteZeroVector(vector []float32) []float32 {
	isZero := true
	for _, v := range vector {
		if v != 0 {
			isZero = false
			break
		}
	}
	if !isZero {
		return vector
	}

	out := make([]float32, len(vector))
	for i := range out {
		out[i] = ZeroVectorEpsilon
	}
	return out
}

// MatchFilters evaluates a document's promoted columns and metadata against
// a set of filters using eq|neq|in|exists semantics. Shared by every
// backend so filter behavior is identical regardless of transport.
func MatchFilters(doc model.EmbeddingDocument, filters []model.Filter) bool {
	for _, f := range filters {
		if !matchFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchFilter(doc model.EmbeddingDocument, f model.Filter) bool {
	value, present := columnValue(doc, f.Field)

	switch f.Op {
	case model.FilterExists:
		want, _ := f.Value.(bool)
		return present == want || (f.Value == nil && present)
	case model.FilterEq:
		return present && valuesEqual(value, f.Value)
	case model.FilterNeq:
		return !present || !valuesEqual(value, f.Value)
	case model.FilterIn:
		if !present {
			return false
		}
		list, ok := f.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range list {
			if valuesEqual(value, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// columnValue resolves one of the promoted top-level columns: type, name,
// parentType, fieldType, isRootOperationField, rootOperationType, kind,
// chunkIndex, totalChunks.
func columnValue(doc model.EmbeddingDocument, field string) (interface{}, bool) {
	switch field {
	case "type":
		return string(doc.Type), true
	case "name":
		return doc.Name, true
	case "parentType":
		if doc.Metadata.ParentType == nil {
			return nil, false
		}
		return *doc.Metadata.ParentType, true
	case "fieldType":
		if doc.Metadata.FieldType == nil {
			return nil, false
		}
		return *doc.Metadata.FieldType, true
	case "isRootOperationField":
		return doc.Metadata.IsRootOperationField, true
	case "rootOperationType":
		if doc.Metadata.RootOperationType == nil {
			return nil, false
		}
		return *doc.Metadata.RootOperationType, true
	case "kind":
		if doc.Metadata.Kind == nil {
			return nil, false
		}
		return *doc.Metadata.Kind, true
	case "chunkIndex":
		if doc.Metadata.ChunkIndex == nil {
			return nil, false
		}
		return *doc.Metadata.ChunkIndex, true
	case "totalChunks":
		if doc.Metadata.TotalChunks == nil {
			return nil, false
		}
		return *doc.Metadata.TotalChunks, true
	default:
		return nil, false
	}
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case int:
		switch bv := b.(type) {
		case int:
			return av == bv
		case float64:
			return float64(av) == bv
		}
	case float64:
		switch bv := b.(type) {
		case int:
			return av == float64(bv)
		case float64:
			return av == bv
		}
	}
	return a == b
}
