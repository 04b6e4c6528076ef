package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"gqlrag/model"
)

const testSDL = `
# The root query type.
type Query {
  "Look a user up by id."
  user(id: ID!): User
  users: [User!]!
}

type Mutation {
  createUser(input: CreateUserInput!): User!
}

"A registered user."
type User implements Node {
  id: ID!
  name: String!
  email: String
  posts: [Post!]!
}

interface Node {
  id: ID!
}

input CreateUserInput {
  name: String!
  email: String
}

enum Role {
  ADMIN
  MEMBER
}

union SearchResult = User | Post

scalar DateTime

type Post {
  id: ID!
  title: String!
  author: User!
}
`

func parseTestSDL(t *testing.T) []model.EmbeddingDocument {
	t.Helper()
	docs, err := NewSchemaParser().Parse(testSDL)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	return docs
}

func findDoc(docs []model.EmbeddingDocument, typ model.DocumentType, name string) (model.EmbeddingDocument, bool) {
	for _, d := range docs {
		if d.Type == typ && d.Name == name {
			return d, true
		}
	}
	return model.EmbeddingDocument{}, false
}

func TestSchemaParser_Parse(t *testing.T) {
	t.Run("identical SDL parses to identical ids", func(t *testing.T) {
		a, err := NewSchemaParser().Parse(testSDL)
		require.NoError(t, err)
		b, err := NewSchemaParser().Parse(testSDL)
		require.NoError(t, err)

		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, a[i].ID, b[i].ID)
		}
	})

	t.Run("root-operation fields carry provenance", func(t *testing.T) {
		docs := parseTestSDL(t)

		userField, ok := findDoc(docs, model.DocumentTypeQuery, "user")
		require.True(t, ok, "expected a query document for Query.user")
		assert.True(t, userField.Metadata.IsRootOperationField)
		require.NotNil(t, userField.Metadata.RootOperationType)
		assert.Equal(t, "Query", *userField.Metadata.RootOperationType)

		createField, ok := findDoc(docs, model.DocumentTypeMutation, "createUser")
		require.True(t, ok, "expected a mutation document for Mutation.createUser")
		assert.True(t, createField.Metadata.IsRootOperationField)
		require.NotNil(t, createField.Metadata.RootOperationType)
		assert.Equal(t, "Mutation", *createField.Metadata.RootOperationType)
	})

	t.Run("no container document for root operation types", func(t *testing.T) {
		docs := parseTestSDL(t)

		_, ok := findDoc(docs, model.DocumentTypeObject, "Query")
		assert.False(t, ok, "Query must not get a container document")
		_, ok = findDoc(docs, model.DocumentTypeObject, "Mutation")
		assert.False(t, ok, "Mutation must not get a container document")
	})

	t.Run("non-root object types keep their container document", func(t *testing.T) {
		docs := parseTestSDL(t)

		userType, ok := findDoc(docs, model.DocumentTypeObject, "User")
		require.True(t, ok)
		assert.Equal(t, "A registered user.", userType.Description)
		assert.Contains(t, userType.Metadata.Interfaces, "Node")
		assert.ElementsMatch(t, []string{"id", "name", "email", "posts"}, userType.Metadata.Fields)
	})

	t.Run("field content splices ParentType before the field name", func(t *testing.T) {
		docs := parseTestSDL(t)

		var idField model.EmbeddingDocument
		found := false
		for _, d := range docs {
			if d.Type == model.DocumentTypeField && d.Name == "id" && d.Metadata.ParentType != nil && *d.Metadata.ParentType == "User" {
				idField = d
				found = true
				break
			}
		}
		require.True(t, found)
		assert.Regexp(t, `^User\.id`, idField.Content)
		require.NotNil(t, idField.Metadata.FieldType)
		assert.Equal(t, "ID!", *idField.Metadata.FieldType)
	})

	t.Run("arguments are captured with reconstructed type strings", func(t *testing.T) {
		docs := parseTestSDL(t)

		userField, ok := findDoc(docs, model.DocumentTypeQuery, "user")
		require.True(t, ok)
		require.Len(t, userField.Metadata.Arguments, 1)
		assert.Equal(t, "id", userField.Metadata.Arguments[0].Name)
		assert.Equal(t, "ID!", userField.Metadata.Arguments[0].Type)
	})

	t.Run("enum, union, scalar each become a single container document", func(t *testing.T) {
		docs := parseTestSDL(t)

		role, ok := findDoc(docs, model.DocumentTypeEnum, "Role")
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"ADMIN", "MEMBER"}, role.Metadata.EnumValues)

		sr, ok := findDoc(docs, model.DocumentTypeUnion, "SearchResult")
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"User", "Post"}, sr.Metadata.PossibleTypes)

		_, ok = findDoc(docs, model.DocumentTypeScalar, "DateTime")
		assert.True(t, ok)
	})

	t.Run("built-in scalars never produce a document", func(t *testing.T) {
		docs := parseTestSDL(t)
		for _, d := range docs {
			assert.False(t, model.BuiltinScalars[d.Name] && d.Type == model.DocumentTypeScalar,
				"built-in scalar %s must not be emitted as a document", d.Name)
		}
	})

	t.Run("comments are stripped from content", func(t *testing.T) {
		docs := parseTestSDL(t)
		for _, d := range docs {
			assert.NotContains(t, d.Content, "#")
		}
	})

	t.Run("a fatal parse error is surfaced unchanged", func(t *testing.T) {
		_, err := NewSchemaParser().Parse("type User { id: ID! ")
		assert.Error(t, err)
	})
}

func TestFieldContentFallback(t *testing.T) {
	t.Run("falls back to ParentType.fieldName when no source span is available", func(t *testing.T) {
		p := NewSchemaParser()
		field := &ast.FieldDefinition{Name: "ghost"}
		content := p.fieldContent("Query", field, "")
		assert.Equal(t, "Query.ghost", content)
	})
}
