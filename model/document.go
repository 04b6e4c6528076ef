package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentType classifies what schema construct an EmbeddingDocument represents.
type DocumentType string

const (
	DocumentTypeObject       DocumentType = "object"
	DocumentTypeField        DocumentType = "field"
	DocumentTypeInput        DocumentType = "input"
	DocumentTypeEnum         DocumentType = "enum"
	DocumentTypeInterface    DocumentType = "interface"
	DocumentTypeUnion        DocumentType = "union"
	DocumentTypeScalar       DocumentType = "scalar"
	DocumentTypeQuery        DocumentType = "query"
	DocumentTypeMutation     DocumentType = "mutation"
	DocumentTypeSubscription DocumentType = "subscription"
)

// RootOperationTypes are the names of GraphQL's three root operation types.
var RootOperationTypes = map[string]bool{
	"Query":        true,
	"Mutation":     true,
	"Subscription": true,
}

// BuiltinScalars are GraphQL's built-in scalar types, never looked up during type discovery.
var BuiltinScalars = map[string]bool{
	"ID":      true,
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
}

// ArgumentMetadata describes a single field or directive argument.
type ArgumentMetadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// DocumentMetadata is the structural record attached to an EmbeddingDocument.
// Fields map directly to the promoted/filterable columns described in the
// vector store contract (database.VectorStore).
type DocumentMetadata struct {
	ParentType           *string            `json:"parentType,omitempty"`
	FieldType            *string            `json:"fieldType,omitempty"`
	Arguments            []ArgumentMetadata `json:"arguments,omitempty"`
	EnumValues           []string           `json:"enumValues,omitempty"`
	PossibleTypes        []string           `json:"possibleTypes,omitempty"`
	Interfaces           []string           `json:"interfaces,omitempty"`
	Fields               []string           `json:"fields,omitempty"`
	IsRootOperationField bool               `json:"isRootOperationField,omitempty"`
	RootOperationType    *string            `json:"rootOperationType,omitempty"`
	Kind                 *string            `json:"kind,omitempty"`
	ChunkIndex           *int               `json:"chunkIndex,omitempty"`
	TotalChunks          *int               `json:"totalChunks,omitempty"`
}

// EmbeddingDocument is the unit of retrieval produced by the schema parser
// and, after chunking, stored by the embedding service.
type EmbeddingDocument struct {
	ID          string           `json:"id"`
	Type        DocumentType     `json:"type"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Content     string           `json:"content"`
	Metadata    DocumentMetadata `json:"metadata"`
}

// ComputeID derives the content-addressed id of a document from its content.
// Equal content always yields an equal id; this is the invariant the
// incremental-diff re-indexing path relies on.
func ComputeID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// WithComputedID returns a copy of the document with ID set from its Content.
func (d EmbeddingDocument) WithComputedID() EmbeddingDocument {
	d.ID = ComputeID(d.Content)
	return d
}
