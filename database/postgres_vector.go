package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"gqlrag/helper"
	"gqlrag/model"
	loadSql "gqlrag/sql"
)

// PostgresVectorStore stores documents and their embeddings in Postgres
// using the pgvector extension. Filter pushdown beyond the cosine-distance
// ordering is applied client-side via MatchFilters, identically to every
// other backend.
type PostgresVectorStore struct {
	db           *helper.Database
	embeddingDim int
	fetchLimit   int
}

// NewPostgresVectorStore wraps an already-open database connection. force
// reloads the backing SQL functions even if they already exist.
func NewPostgresVectorStore(db *helper.Database, embeddingDim int, force bool) (*PostgresVectorStore, error) {
	if db == nil || db.Instance == nil {
		return nil, helper.NewError("postgres vector store", fmt.Errorf("database connection is nil"))
	}

	if err := loadSql.LoadDocumentsSQL(db.Instance, force); err != nil {
		return nil, helper.NewError("load documents sql", err)
	}
	if err := loadSql.LoadTypeEdgesSQL(db.Instance, force); err != nil {
		return nil, helper.NewError("load type edges sql", err)
	}

	return &PostgresVectorStore{db: db, embeddingDim: embeddingDim, fetchLimit: 500}, nil
}

func (p *PostgresVectorStore) Initialize(ctx context.Context) error {
	if _, err := p.db.Instance.ExecContext(ctx, `SELECT init_documents($1);`, p.embeddingDim); err != nil {
		return helper.NewError("initialize documents table", err)
	}
	if _, err := p.db.Instance.ExecContext(ctx, `SELECT init_type_edges();`); err != nil {
		return helper.NewError("initialize type edges table", err)
	}
	return nil
}

func (p *PostgresVectorStore) Store(ctx context.Context, documents []model.StoredDocument) error {
	for _, doc := range documents {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return helper.NewError("marshal metadata", err)
		}

		vec := pgvector.NewVector(doc.Embedding)

		_, err = p.db.Instance.ExecContext(ctx,
			`SELECT upsert_document($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`,
			doc.ID,
			string(doc.Type),
			doc.Name,
			nullableString(doc.Description),
			doc.Content,
			nullableStringPtr(doc.Metadata.ParentType),
			nullableStringPtr(doc.Metadata.FieldType),
			doc.Metadata.IsRootOperationField,
			nullableStringPtr(doc.Metadata.RootOperationType),
			nullableStringPtr(doc.Metadata.Kind),
			nullableIntPtr(doc.Metadata.ChunkIndex),
			nullableIntPtr(doc.Metadata.TotalChunks),
			metadata,
			&vec,
		)
		if err != nil {
			return helper.NewError("upsert document", err)
		}
	}
	return nil
}

func (p *PostgresVectorStore) Search(ctx context.Context, vector []float32, opts model.VectorSearchOptions) ([]SearchResult, error) {
	vector = SubstituteZeroVector(vector)
	vec := pgvector.NewVector(vector)

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	fetchLimit := p.fetchLimit
	if fetchLimit < limit {
		fetchLimit = limit
	}

	rows, err := p.db.Instance.QueryContext(ctx,
		`SELECT id, type, name, description, content, parent_type, field_type,
		        is_root_operation_field, root_operation_type, kind, chunk_index,
		        total_chunks, metadata, embedding
		 FROM search_documents($1, $2);`,
		&vec, fetchLimit,
	)
	if err != nil {
		return nil, helper.NewError("search documents", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		doc, embedding, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}

		if !MatchFilters(doc, opts.ColumnFilters) || !MatchFilters(doc, opts.MetadataFilters) {
			continue
		}

		score := cosineSimilarity(vector, embedding, vectorNorm(vector))
		results = append(results, SearchResult{Document: model.StoredDocument{EmbeddingDocument: doc, Embedding: embedding}, Score: score})

		if len(results) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

func scanDocumentRow(rows *sql.Rows) (model.EmbeddingDocument, []float32, error) {
	var (
		doc              model.EmbeddingDocument
		docType          string
		description      sql.NullString
		parentType       sql.NullString
		fieldType        sql.NullString
		isRootOpField    bool
		rootOperationType sql.NullString
		kind             sql.NullString
		chunkIndex       sql.NullInt64
		totalChunks      sql.NullInt64
		metadataJSON     []byte
		embeddingVec     *pgvector.Vector
	)

	if err := rows.Scan(
		&doc.ID, &docType, &doc.Name, &description, &doc.Content,
		&parentType, &fieldType, &isRootOpField, &rootOperationType, &kind,
		&chunkIndex, &totalChunks, &metadataJSON, &embeddingVec,
	); err != nil {
		return model.EmbeddingDocument{}, nil, helper.NewError("scan document", err)
	}

	doc.Type = model.DocumentType(docType)
	if description.Valid {
		doc.Description = description.String
	}

	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		return model.EmbeddingDocument{}, nil, helper.NewError("unmarshal metadata", err)
	}

	doc.Metadata.IsRootOperationField = isRootOpField
	if parentType.Valid {
		doc.Metadata.ParentType = &parentType.String
	}
	if fieldType.Valid {
		doc.Metadata.FieldType = &fieldType.String
	}
	if rootOperationType.Valid {
		doc.Metadata.RootOperationType = &rootOperationType.String
	}
	if kind.Valid {
		doc.Metadata.Kind = &kind.String
	}
	if chunkIndex.Valid {
		v := int(chunkIndex.Int64)
		doc.Metadata.ChunkIndex = &v
	}
	if totalChunks.Valid {
		v := int(totalChunks.Int64)
		doc.Metadata.TotalChunks = &v
	}

	var embedding []float32
	if embeddingVec != nil {
		embedding = embeddingVec.Slice()
	}

	return doc, embedding, nil
}

func (p *PostgresVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.Instance.ExecContext(ctx, `SELECT delete_documents($1);`, pq.Array(ids))
	if err != nil {
		return helper.NewError("delete documents", err)
	}
	return nil
}

func (p *PostgresVectorStore) Clear(ctx context.Context) error {
	if _, err := p.db.Instance.ExecContext(ctx, `SELECT clear_documents();`); err != nil {
		return helper.NewError("clear documents", err)
	}
	if _, err := p.db.Instance.ExecContext(ctx, `SELECT clear_type_edges();`); err != nil {
		return helper.NewError("clear type edges", err)
	}
	return nil
}

func (p *PostgresVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := p.db.Instance.QueryRowContext(ctx, `SELECT count(*) FROM documents;`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count documents", err)
	}
	return count, nil
}

// ListTables reports the single "documents" namespace when any rows exist,
// matching the contract's exclusion of the sentinel SDL record.
func (p *PostgresVectorStore) ListTables(ctx context.Context) ([]string, error) {
	count, err := p.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return []string{"documents"}, nil
}

func (p *PostgresVectorStore) StoreSchemaSDL(ctx context.Context, sdl string) error {
	_, err := p.db.Instance.ExecContext(ctx, `SELECT upsert_schema_sdl($1, $2);`, model.SchemaSDLSentinelID, sdl)
	if err != nil {
		return helper.NewError("store schema sdl", err)
	}
	return nil
}

func (p *PostgresVectorStore) GetSchemaSDL(ctx context.Context) (*model.SchemaSDLRecord, error) {
	var rec model.SchemaSDLRecord
	err := p.db.Instance.QueryRowContext(ctx,
		`SELECT sdl, updated_at FROM schema_sdl WHERE id = $1;`, model.SchemaSDLSentinelID,
	).Scan(&rec.SDL, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("get schema sdl", err)
	}
	return &rec, nil
}

func (p *PostgresVectorStore) Close() error {
	if p.db == nil || p.db.Instance == nil {
		return nil
	}
	return p.db.Instance.Close()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableStringPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableIntPtr(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
