package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"gqlrag/helper"
	"gqlrag/model"
	loadSql "gqlrag/sql"
)

// TypeGraphStore persists the supplemental schema-dependency graph: one
// TypeEdge row per (fromType, toType, relation), rebuildable at any time
// from the current document set.
type TypeGraphStore struct {
	db *helper.Database
}

// NewTypeGraphStore wires the store to an already-open connection, loading
// its SQL functions. force reloads them even if they already exist.
func NewTypeGraphStore(db *helper.Database, force bool) (*TypeGraphStore, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("type graph store", fmt.Errorf("database connection is nil"))
	}

	if err := loadSql.LoadTypeEdgesSQL(db.Instance, force); err != nil {
		return nil, helper.NewError("load type edges sql", err)
	}

	store := &TypeGraphStore{db: db}
	if _, err := db.Instance.Exec(`SELECT init_type_edges();`); err != nil {
		return nil, helper.NewError("initialize type edges table", err)
	}

	db.Logger.Info("initialized type graph store")
	return store, nil
}

// InsertEdge upserts a single dependency edge, keyed by (fromType, toType, relation).
func (s *TypeGraphStore) InsertEdge(ctx context.Context, edge model.TypeEdge) error {
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}

	metadata, err := json.Marshal(edge.Metadata)
	if err != nil {
		return helper.NewError("marshal edge metadata", err)
	}

	_, err = s.db.Instance.ExecContext(ctx,
		`SELECT insert_type_edge($1, $2, $3, $4, $5);`,
		edge.ID, edge.FromType, edge.ToType, string(edge.Relation), metadata,
	)
	if err != nil {
		return helper.NewError("insert type edge", err)
	}
	return nil
}

// InsertEdges upserts every edge, stopping at the first failure.
func (s *TypeGraphStore) InsertEdges(ctx context.Context, edges []model.TypeEdge) error {
	for _, e := range edges {
		if err := s.InsertEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// EdgesFrom returns every edge whose FromType is fromType, the primary
// access pattern the type-closure traversal uses.
func (s *TypeGraphStore) EdgesFrom(ctx context.Context, fromType string) ([]model.TypeEdge, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_type_edges_from($1);`, fromType)
	if err != nil {
		return nil, helper.NewError("select type edges", err)
	}
	defer rows.Close()

	var edges []model.TypeEdge
	for rows.Next() {
		var (
			e            model.TypeEdge
			relation     string
			metadataJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.FromType, &e.ToType, &relation, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, helper.NewError("scan type edge", err)
		}
		e.Relation = model.TypeEdgeRelation(relation)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, helper.NewError("unmarshal edge metadata", err)
			}
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}
	return edges, nil
}

// Clear truncates the type dependency graph.
func (s *TypeGraphStore) Clear(ctx context.Context) error {
	if _, err := s.db.Instance.ExecContext(ctx, `SELECT clear_type_edges();`); err != nil {
		return helper.NewError("clear type edges", err)
	}
	return nil
}
