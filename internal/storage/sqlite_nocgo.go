//go:build !cgo

package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// SQLite implements Storage on the pure-Go SQLite driver for builds without
// CGO. sqlite-vec is unavailable there, so embeddings live in a BLOB column
// and ranking is an exact cosine scan.
type SQLite struct {
	conn   *sql.DB
	dim    int
	chunks string
}

// NewSQLite creates a new SQLite storage
func NewSQLite(path, collection string, dim int) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{
		conn:   conn,
		dim:    dim,
		chunks: tableName(collection) + "_chunks",
	}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			embedding BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);
	`, s.chunks)
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if err := checkUpsert(chunks, embeddings); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (chunk_id, content, source, embedding) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET
			content = excluded.content,
			source = excluded.source,
			embedding = excluded.embedding`, s.chunks))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ch := range chunks {
		if err := checkDimensions(embeddings[i], s.dim); err != nil {
			return fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.Content, ch.Source, encodeEmbedding(embeddings[i])); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", ch.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	if err := checkDimensions(embedding, s.dim); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT chunk_id, content, source, embedding FROM %s WHERE 1=1`, s.chunks)
	args := []interface{}{}
	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []scoredChunk
	for rows.Next() {
		var c scoredChunk
		var blob []byte
		if err := rows.Scan(&c.chunk.ID, &c.chunk.Content, &c.chunk.Source, &blob); err != nil {
			return nil, err
		}
		if c.embedding, err = decodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.chunk.ID, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankExact(embedding, candidates, opts.EffectiveLimit())
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.chunks)).Scan(&n)
	return n, err
}

func (s *SQLite) Reset(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.chunks))
	if err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}
