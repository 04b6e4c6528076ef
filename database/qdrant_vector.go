package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"gqlrag/helper"
	"gqlrag/model"
)

// schemaSDLPointID is a fixed, deterministic point id the SDL sidecar lives
// at, flagged via a payload marker so it never shows up in Count or
// ListTables accounting (mirrors the sentinel-record convention the
// in-memory and Postgres backends use).
var schemaSDLPointID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(model.SchemaSDLSentinelID)).String()

const sdlSentinelPayloadField = "_sdl_sentinel"
const documentPayloadField = "_document"
const embeddingPayloadField = "_embedding"

// QdrantVectorStore stores documents and their embeddings as Qdrant points.
// Qdrant only accepts UUIDs or positive integers as point ids, so the
// content-addressed document id is mapped to a deterministic UUID and kept
// verbatim in the point payload; filter evaluation beyond the vector query
// itself runs client-side through the shared MatchFilters helper,
// consistent with every other backend.
type QdrantVectorStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantVectorStore connects to Qdrant's gRPC endpoint (dsn, e.g.
// "http://localhost:6334") and ensures the collection exists with the given
// vector size.
func NewQdrantVectorStore(dsn, collection string, dimension int) (*QdrantVectorStore, error) {
	if collection == "" {
		return nil, helper.NewError("qdrant vector store", fmt.Errorf("collection name is required"))
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, helper.NewError("parse qdrant dsn", err)
	}

	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, helper.NewError("parse qdrant port", err)
	}

	config := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		config.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		config.APIKey = apiKey
	}

	client, err := qdrant.NewClient(config)
	if err != nil {
		return nil, helper.NewError("create qdrant client", err)
	}

	return &QdrantVectorStore{client: client, collection: collection, dimension: dimension}, nil
}

func (q *QdrantVectorStore) Initialize(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return helper.NewError("check collection exists", err)
	}
	if exists {
		return nil
	}

	if q.dimension <= 0 {
		return helper.NewError("create collection", fmt.Errorf("qdrant requires dimensions > 0"))
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return helper.NewError("create collection", err)
	}
	return nil
}

func pointIDFor(docID string) string {
	if _, err := uuid.Parse(docID); err == nil {
		return docID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String()
}

func (q *QdrantVectorStore) Store(ctx context.Context, documents []model.StoredDocument) error {
	points := make([]*qdrant.PointStruct, 0, len(documents))
	for _, doc := range documents {
		docJSON, err := json.Marshal(doc.EmbeddingDocument)
		if err != nil {
			return helper.NewError("marshal document", err)
		}

		vec := make([]float32, len(doc.Embedding))
		copy(vec, doc.Embedding)

		embJSON, err := json.Marshal(doc.Embedding)
		if err != nil {
			return helper.NewError("marshal embedding", err)
		}

		payload := qdrant.NewValueMap(map[string]any{
			documentPayloadField:  string(docJSON),
			embeddingPayloadField: string(embJSON),
		})

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointIDFor(doc.ID)),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: payload,
		})
	}

	if len(points) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return helper.NewError("upsert points", err)
	}
	return nil
}

func (q *QdrantVectorStore) Search(ctx context.Context, vector []float32, opts model.VectorSearchOptions) ([]SearchResult, error) {
	vector = SubstituteZeroVector(vector)

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	fetchLimit := uint64(limit) * 5
	if fetchLimit < 100 {
		fetchLimit = 100
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &fetchLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, helper.NewError("query points", err)
	}

	results := make([]SearchResult, 0, limit)
	for _, hit := range hits {
		doc, err := documentFromPayload(hit.Payload)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue // the SDL sentinel point, never a search result
		}

		if !MatchFilters(doc.EmbeddingDocument, opts.ColumnFilters) || !MatchFilters(doc.EmbeddingDocument, opts.MetadataFilters) {
			continue
		}

		results = append(results, SearchResult{Document: *doc, Score: float64(hit.Score)})
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

func documentFromPayload(payload map[string]*qdrant.Value) (*model.StoredDocument, error) {
	if payload == nil {
		return nil, nil
	}
	if _, isSentinel := payload[sdlSentinelPayloadField]; isSentinel {
		return nil, nil
	}

	raw, ok := payload[documentPayloadField]
	if !ok {
		return nil, nil
	}

	var doc model.EmbeddingDocument
	if err := json.Unmarshal([]byte(raw.GetStringValue()), &doc); err != nil {
		return nil, helper.NewError("unmarshal document payload", err)
	}

	stored := model.StoredDocument{EmbeddingDocument: doc}
	if embRaw, ok := payload[embeddingPayloadField]; ok {
		_ = json.Unmarshal([]byte(embRaw.GetStringValue()), &stored.Embedding)
	}
	return &stored, nil
}

func (q *QdrantVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(pointIDFor(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return helper.NewError("delete points", err)
	}
	return nil
}

func (q *QdrantVectorStore) Clear(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return helper.NewError("check collection exists", err)
	}
	if !exists {
		return nil
	}
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return helper.NewError("delete collection", err)
	}
	return q.Initialize(ctx)
}

func (q *QdrantVectorStore) Count(ctx context.Context) (int, error) {
	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, helper.NewError("count points", err)
	}

	total := int(count)
	if ok, err := q.sdlSentinelExists(ctx); err == nil && ok {
		total--
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

func (q *QdrantVectorStore) sdlSentinelExists(ctx context.Context) (bool, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(schemaSDLPointID)},
	})
	if err != nil {
		return false, err
	}
	return len(points) > 0, nil
}

func (q *QdrantVectorStore) ListTables(ctx context.Context) ([]string, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	return []string{q.collection}, nil
}

func (q *QdrantVectorStore) StoreSchemaSDL(ctx context.Context, sdl string) error {
	payload := qdrant.NewValueMap(map[string]any{
		sdlSentinelPayloadField: true,
		"sdl":                   sdl,
	})

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(schemaSDLPointID),
				Vectors: qdrant.NewVectorsDense(make([]float32, q.dimension)),
				Payload: payload,
			},
		},
	})
	if err != nil {
		return helper.NewError("store schema sdl", err)
	}
	return nil
}

func (q *QdrantVectorStore) GetSchemaSDL(ctx context.Context) (*model.SchemaSDLRecord, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(schemaSDLPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, helper.NewError("get schema sdl", err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	sdl, ok := points[0].Payload["sdl"]
	if !ok {
		return nil, nil
	}
	return &model.SchemaSDLRecord{SDL: sdl.GetStringValue()}, nil
}

func (q *QdrantVectorStore) Close() error {
	return q.client.Close()
}
