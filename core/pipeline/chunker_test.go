package pipeline

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gqlrag/model"
)

func bigObjectDoc(fieldCount int) model.EmbeddingDocument {
	var b strings.Builder
	b.WriteString("type BigType { ")
	for i := 0; i < fieldCount; i++ {
		b.WriteString("field")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(": String ")
	}
	b.WriteString("}")

	return model.EmbeddingDocument{
		Type:    model.DocumentTypeObject,
		Name:    "BigType",
		Content: b.String(),
	}.WithComputedID()
}

func TestChunker_Chunk(t *testing.T) {
	t.Run("pass through when within budget", func(t *testing.T) {
		doc := model.EmbeddingDocument{Type: model.DocumentTypeObject, Content: "type Foo { id: ID! }"}.WithComputedID()
		out, err := NewChunker().Chunk(doc, 1000)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, doc.ID, out[0].ID)
	})

	t.Run("pass through non-splittable kinds regardless of size", func(t *testing.T) {
		content := strings.Repeat("a", 500)
		doc := model.EmbeddingDocument{Type: model.DocumentTypeField, Content: content}.WithComputedID()
		out, err := NewChunker().Chunk(doc, 50)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, doc, out[0])
	})

	t.Run("every chunk respects the size bound", func(t *testing.T) {
		doc := bigObjectDoc(40)
		out, err := NewChunker().Chunk(doc, 120)
		require.NoError(t, err)
		require.Greater(t, len(out), 1)

		for i, chunk := range out {
			assert.LessOrEqual(t, len(chunk.Content), 120, "chunk %d exceeds the bound", i)
			require.NotNil(t, chunk.Metadata.ChunkIndex)
			require.NotNil(t, chunk.Metadata.TotalChunks)
			assert.Equal(t, i, *chunk.Metadata.ChunkIndex)
			assert.Equal(t, len(out), *chunk.Metadata.TotalChunks)
		}
	})

	t.Run("chunk wholeness - header and closing brace preserved", func(t *testing.T) {
		doc := bigObjectDoc(40)
		out, err := NewChunker().Chunk(doc, 120)
		require.NoError(t, err)
		require.Greater(t, len(out), 1)

		for _, chunk := range out {
			assert.True(t, strings.HasPrefix(chunk.Content, "type BigType {"))
			assert.True(t, strings.HasSuffix(strings.TrimSpace(chunk.Content), "}"))
		}
	})

	t.Run("every field appears exactly once across chunks in order", func(t *testing.T) {
		doc := bigObjectDoc(20)
		out, err := NewChunker().Chunk(doc, 150)
		require.NoError(t, err)

		var all strings.Builder
		for _, chunk := range out {
			_, body, ok := splitHeaderBody(chunk.Content)
			require.True(t, ok)
			all.WriteString(body)
			all.WriteString(" ")
		}

		_, originalBody, ok := splitHeaderBody(doc.Content)
		require.True(t, ok)

		assert.Equal(t, strings.Fields(originalBody), strings.Fields(all.String()))
	})

	t.Run("a single oversized field occupies its own chunk", func(t *testing.T) {
		longField := "giant: " + strings.Repeat("X", 200)
		content := "type Foo { " + longField + " small: Int }"
		doc := model.EmbeddingDocument{Type: model.DocumentTypeObject, Name: "Foo", Content: content}.WithComputedID()

		out, err := NewChunker().Chunk(doc, 50)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Contains(t, out[0].Content, "giant:")
		assert.Greater(t, len(out[0].Content), 50)
	})

	t.Run("enum values are split on whitespace with the same packing policy", func(t *testing.T) {
		content := "enum Role { " + strings.Join([]string{"ADMIN", "MEMBER", "GUEST", "OWNER", "VIEWER"}, " ") + " }"
		doc := model.EmbeddingDocument{Type: model.DocumentTypeEnum, Name: "Role", Content: content}.WithComputedID()

		out, err := NewChunker().Chunk(doc, 30)
		require.NoError(t, err)
		require.Greater(t, len(out), 1)
		for _, chunk := range out {
			assert.True(t, strings.HasPrefix(chunk.Content, "enum Role {"))
		}
	})

	t.Run("recomputes id per chunk so chunks never collide with the original", func(t *testing.T) {
		doc := bigObjectDoc(40)
		out, err := NewChunker().Chunk(doc, 120)
		require.NoError(t, err)

		seen := map[string]bool{doc.ID: true}
		for _, chunk := range out {
			assert.False(t, seen[chunk.ID], "chunk id collided")
			seen[chunk.ID] = true
		}
	})
}
