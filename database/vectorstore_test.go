package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gqlrag/model"
)

func TestSubstituteZeroVector(t *testing.T) {
	t.Run("replaces an all-zero vector with epsilon per coordinate", func(t *testing.T) {
		out := SubstituteZeroVector([]float32{0, 0, 0})
		for _, v := range out {
			assert.Equal(t, float32(ZeroVectorEpsilon), v)
		}
	})

	t.Run("leaves a non-zero vector untouched", func(t *testing.T) {
		in := []float32{0, 1, 0}
		out := SubstituteZeroVector(in)
		assert.Equal(t, in, out)
	})
}

func TestMatchFilters(t *testing.T) {
	parentType := "Query"
	rootType := "Query"
	doc := model.EmbeddingDocument{
		Type: model.DocumentTypeQuery,
		Name: "user",
		Metadata: model.DocumentMetadata{
			ParentType:           &parentType,
			RootOperationType:    &rootType,
			IsRootOperationField: true,
		},
	}

	t.Run("eq matches a promoted column", func(t *testing.T) {
		ok := MatchFilters(doc, []model.Filter{{Field: "rootOperationType", Op: model.FilterEq, Value: "Query"}})
		assert.True(t, ok)
	})

	t.Run("eq rejects a mismatched value", func(t *testing.T) {
		ok := MatchFilters(doc, []model.Filter{{Field: "rootOperationType", Op: model.FilterEq, Value: "Mutation"}})
		assert.False(t, ok)
	})

	t.Run("neq passes when the field is absent", func(t *testing.T) {
		ok := MatchFilters(doc, []model.Filter{{Field: "fieldType", Op: model.FilterNeq, Value: "Int"}})
		assert.True(t, ok)
	})

	t.Run("exists checks column presence", func(t *testing.T) {
		assert.True(t, MatchFilters(doc, []model.Filter{{Field: "parentType", Op: model.FilterExists, Value: true}}))
		assert.False(t, MatchFilters(doc, []model.Filter{{Field: "fieldType", Op: model.FilterExists, Value: true}}))
	})

	t.Run("in matches any value in the list", func(t *testing.T) {
		ok := MatchFilters(doc, []model.Filter{{Field: "rootOperationType", Op: model.FilterIn, Value: []interface{}{"Mutation", "Query"}}})
		assert.True(t, ok)
	})

	t.Run("multiple filters all must pass", func(t *testing.T) {
		ok := MatchFilters(doc, []model.Filter{
			{Field: "type", Op: model.FilterEq, Value: "query"},
			{Field: "name", Op: model.FilterEq, Value: "wrong"},
		})
		assert.False(t, ok)
	})
}
