package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// Postgres implements Storage using PostgreSQL with pgvector
type Postgres struct {
	pool   *pgxpool.Pool
	dim    int
	chunks string
	vecs   string
}

// NewPostgres creates a new Postgres storage
func NewPostgres(ctx context.Context, dsn, collection string, dim int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	t := tableName(collection)
	p := &Postgres{
		pool:   pool,
		dim:    dim,
		chunks: t + "_chunks",
		vecs:   t + "_embeddings",
	}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS %[2]s (
			chunk_id TEXT PRIMARY KEY REFERENCES %[1]s(id) ON DELETE CASCADE,
			embedding vector(%[3]d)
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);

		CREATE INDEX IF NOT EXISTS idx_%[2]s_vector
		ON %[2]s USING hnsw (embedding vector_cosine_ops);
	`, p.chunks, p.vecs, p.dim)
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if err := checkUpsert(chunks, embeddings); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, ch := range chunks {
		if err := checkDimensions(embeddings[i], p.dim); err != nil {
			return fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		batch.Queue(fmt.Sprintf(
			`INSERT INTO %s (id, content, source) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, source = EXCLUDED.source`, p.chunks),
			ch.ID, ch.Content, ch.Source,
		)
		batch.Queue(fmt.Sprintf(
			`INSERT INTO %s (chunk_id, embedding) VALUES ($1, $2)
			 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`, p.vecs),
			ch.ID, pgvector.NewVector(embeddings[i]),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	if err := checkDimensions(embedding, p.dim); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(embedding)

	query := fmt.Sprintf(`
		SELECT c.id, c.content, c.source, e.embedding <=> $1 AS distance
		FROM %s c
		JOIN %s e ON c.id = e.chunk_id
		WHERE 1=1
	`, p.chunks, p.vecs)
	args := []interface{}{vec}
	argNum := 2

	if opts.Source != "" {
		query += fmt.Sprintf(" AND c.source = $%d", argNum)
		args = append(args, opts.Source)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY distance LIMIT $%d", argNum)
	args = append(args, opts.EffectiveLimit())

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := []types.Hit{}
	for rows.Next() {
		var h types.Hit
		var distance float64
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.Content, &h.Chunk.Source, &distance); err != nil {
			return nil, err
		}
		h.Score = 1 - distance
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.chunks)).Scan(&n)
	return n, err
}

func (p *Postgres) Reset(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s, %s`, p.vecs, p.chunks))
	if err != nil {
		return fmt.Errorf("failed to truncate collection: %w", err)
	}
	return nil
}
