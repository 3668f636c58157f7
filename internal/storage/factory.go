package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// DefaultCollection is the collection the IKC chunks live in
const DefaultCollection = "ikc_kb"

// DefaultDimensions is the output size of all-MiniLM-L6-v2
const DefaultDimensions = 384

// Config holds storage configuration
type Config struct {
	Driver string // "chromem", "sqlite", "postgres", "mongodb"

	// Collection (chromem, mongodb) or table prefix (sqlite, postgres)
	Collection string
	// Dimensions fixes the vector column size for sqlite and postgres
	Dimensions int

	// Chromem directory or SQLite file
	Path string
	// Chromem gzip compression of persisted documents
	Compress bool

	// Postgres
	PostgresDSN string

	// MongoDB
	MongoDBURI      string
	MongoDBDatabase string
}

// New creates a Storage implementation based on config
func New(ctx context.Context, cfg Config) (Storage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	switch cfg.Driver {
	case "chromem", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("chromem path is required")
		}
		return NewChromem(cfg.Path, cfg.Collection, cfg.Compress)

	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return NewSQLite(cfg.Path, cfg.Collection, cfg.Dimensions)

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		return NewPostgres(ctx, cfg.PostgresDSN, cfg.Collection, cfg.Dimensions)

	case "mongodb":
		if cfg.MongoDBURI == "" {
			return nil, fmt.Errorf("mongodb URI is required")
		}
		if cfg.MongoDBDatabase == "" {
			cfg.MongoDBDatabase = "ikc"
		}
		return NewMongoDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase, cfg.Collection)

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func checkUpsert(chunks []types.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk %d has no ID", i)
		}
	}
	return nil
}

func checkDimensions(embedding []float32, want int) error {
	if len(embedding) != want {
		return fmt.Errorf("%w: got %d, store expects %d", types.ErrDimensionMismatch, len(embedding), want)
	}
	return nil
}

// tableName turns a collection name into a safe SQL identifier
func tableName(collection string) string {
	var b strings.Builder
	for _, r := range collection {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "c_" + name
	}
	return name
}
