package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gqlrag/helper"
	"gqlrag/model"
)

func newTestTypeGraphStore(t *testing.T) *TypeGraphStore {
	t.Helper()
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	db := helper.NewTestDatabase(dbConfig)
	store, err := NewTypeGraphStore(db, false)
	require.NoError(t, err)
	require.NoError(t, store.Clear(context.Background()))

	return store
}

func TestTypeGraphStore_InsertAndQuery(t *testing.T) {
	store := newTestTypeGraphStore(t)
	ctx := context.Background()

	edges := []model.TypeEdge{
		{FromType: "Query", ToType: "User", Relation: model.TypeEdgeReturns},
		{FromType: "Query", ToType: "Post", Relation: model.TypeEdgeReturns},
		{FromType: "User", ToType: "Post", Relation: model.TypeEdgeMember},
	}
	require.NoError(t, store.InsertEdges(ctx, edges))

	fromQuery, err := store.EdgesFrom(ctx, "Query")
	require.NoError(t, err)
	assert.Len(t, fromQuery, 2)

	fromUser, err := store.EdgesFrom(ctx, "User")
	require.NoError(t, err)
	require.Len(t, fromUser, 1)
	assert.Equal(t, "Post", fromUser[0].ToType)
	assert.Equal(t, model.TypeEdgeMember, fromUser[0].Relation)
}

func TestTypeGraphStore_UpsertReplacesMetadata(t *testing.T) {
	store := newTestTypeGraphStore(t)
	ctx := context.Background()

	field := "id"
	edge := model.TypeEdge{
		FromType: "Query", ToType: "User", Relation: model.TypeEdgeReturns,
		Metadata: model.DocumentMetadata{FieldType: &field},
	}
	require.NoError(t, store.InsertEdge(ctx, edge))

	kind := "OBJECT"
	edge.Metadata = model.DocumentMetadata{Kind: &kind}
	require.NoError(t, store.InsertEdge(ctx, edge))

	edges, err := store.EdgesFrom(ctx, "Query")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.NotNil(t, edges[0].Metadata.Kind)
	assert.Equal(t, "OBJECT", *edges[0].Metadata.Kind)
	assert.Nil(t, edges[0].Metadata.FieldType)
}

func TestTypeGraphStore_Clear(t *testing.T) {
	store := newTestTypeGraphStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEdge(ctx, model.TypeEdge{FromType: "Query", ToType: "User", Relation: model.TypeEdgeReturns}))
	require.NoError(t, store.Clear(ctx))

	edges, err := store.EdgesFrom(ctx, "Query")
	require.NoError(t, err)
	assert.Empty(t, edges)
}
