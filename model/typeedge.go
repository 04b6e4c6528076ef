package model

import (
	"time"

	"github.com/google/uuid"
)

// TypeEdgeRelation describes why one schema type references another.
type TypeEdgeRelation string

const (
	TypeEdgeReturns       TypeEdgeRelation = "returns"
	TypeEdgeArgument      TypeEdgeRelation = "argument"
	TypeEdgeImplements    TypeEdgeRelation = "implements"
	TypeEdgeMember        TypeEdgeRelation = "member"
	TypeEdgePossibleType  TypeEdgeRelation = "possible_type"
)

// TypeEdge is a persisted edge in the schema dependency graph: FromType
// references ToType via Relation. This is a supplemental index over the
// schema, rebuildable at any time from the currently stored
// EmbeddingDocument set; it is not required for correctness of type
// discovery, only for accelerating repeat lookups and supporting
// impact-analysis queries ("what root fields reach type Foo").
type TypeEdge struct {
	ID        uuid.UUID        `json:"id"`
	FromType  string           `json:"from_type"`
	ToType    string           `json:"to_type"`
	Relation  TypeEdgeRelation `json:"relation"`
	Metadata  DocumentMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
