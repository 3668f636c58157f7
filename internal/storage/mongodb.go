package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// VectorIndexName is the Atlas Vector Search index queried by MongoDB.Search.
// It must index "embedding" with cosine similarity and "source" as a filter field.
const VectorIndexName = "embedding_index"

// MongoDB implements Storage using MongoDB with Atlas Vector Search
type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
	chunks *mongo.Collection
}

// chunkDoc is the MongoDB document structure
type chunkDoc struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	Source    string    `bson:"source"`
	Embedding []float32 `bson:"embedding"`
	UpdatedAt time.Time `bson:"updated_at"`
	Score     float64   `bson:"score,omitempty"`
}

// NewMongoDB creates a new MongoDB storage
func NewMongoDB(ctx context.Context, uri, database, collection string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	m := &MongoDB{
		client: client,
		db:     db,
		chunks: db.Collection(collection),
	}

	if err := m.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

func (m *MongoDB) initIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}}},
	}

	_, err := m.chunks.Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if err := checkUpsert(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, len(chunks))
	for i, ch := range chunks {
		doc := chunkDoc{
			ID:        ch.ID,
			Content:   ch.Content,
			Source:    ch.Source,
			Embedding: embeddings[i],
			UpdatedAt: now,
		}
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: ch.ID}}).
			SetReplacement(doc).
			SetUpsert(true)
	}

	if _, err := m.chunks.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

func (m *MongoDB) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	limit := opts.EffectiveLimit()

	vectorSearch := bson.D{
		{Key: "index", Value: VectorIndexName},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: embedding},
		{Key: "numCandidates", Value: limit * 10},
		{Key: "limit", Value: limit},
	}
	if opts.Source != "" {
		vectorSearch = append(vectorSearch, bson.E{Key: "filter", Value: bson.D{{Key: "source", Value: opts.Source}}})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: vectorSearch}},
		{{Key: "$addFields", Value: bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}}}}},
	}

	cursor, err := m.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		// Fallback to an exact scan if vector search is not available
		return m.searchFallback(ctx, embedding, opts)
	}
	defer cursor.Close(ctx)

	hits := []types.Hit{}
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		hits = append(hits, types.Hit{
			Chunk: types.Chunk{ID: doc.ID, Content: doc.Content, Source: doc.Source},
			// Atlas reports cosine as (1 + cos) / 2
			Score: 2*doc.Score - 1,
		})
	}

	return hits, cursor.Err()
}

// searchFallback ranks every stored chunk in process for deployments
// without Atlas Vector Search
func (m *MongoDB) searchFallback(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	filter := bson.D{}
	if opts.Source != "" {
		filter = append(filter, bson.E{Key: "source", Value: opts.Source})
	}

	cursor, err := m.chunks.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var candidates []scoredChunk
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		candidates = append(candidates, scoredChunk{
			chunk:     types.Chunk{ID: doc.ID, Content: doc.Content, Source: doc.Source},
			embedding: doc.Embedding,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return rankExact(embedding, candidates, opts.EffectiveLimit())
}

func (m *MongoDB) Count(ctx context.Context) (int, error) {
	n, err := m.chunks.CountDocuments(ctx, bson.D{})
	return int(n), err
}

func (m *MongoDB) Reset(ctx context.Context) error {
	if _, err := m.chunks.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}
