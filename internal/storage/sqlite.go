//go:build cgo

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// SQLite implements Storage using SQLite with sqlite-vec
type SQLite struct {
	conn   *sql.DB
	dim    int
	chunks string
	vecs   string
}

// NewSQLite creates a new SQLite storage
func NewSQLite(path, collection string, dim int) (*SQLite, error) {
	sqlite_vec.Auto()

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	t := tableName(collection)
	s := &SQLite{
		conn:   conn,
		dim:    dim,
		chunks: t + "_chunks",
		vecs:   t + "_embeddings",
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
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source);

		CREATE VIRTUAL TABLE IF NOT EXISTS %[2]s USING vec0(
			chunk_rowid INTEGER PRIMARY KEY,
			embedding FLOAT[%[3]d]
		);
	`, s.chunks, s.vecs, s.dim)
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

	for i, ch := range chunks {
		if err := checkDimensions(embeddings[i], s.dim); err != nil {
			return fmt.Errorf("chunk %s: %w", ch.ID, err)
		}

		var rowID int64
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (chunk_id, content, source) VALUES (?, ?, ?)
			 ON CONFLICT(chunk_id) DO UPDATE SET content = excluded.content, source = excluded.source
			 RETURNING id`, s.chunks),
			ch.ID, ch.Content, ch.Source,
		).Scan(&rowID)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", ch.ID, err)
		}

		embeddingJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}

		// vec0 tables have no conflict clause, replace by hand
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE chunk_rowid = ?`, s.vecs), rowID,
		); err != nil {
			return fmt.Errorf("failed to replace embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (chunk_rowid, embedding) VALUES (?, ?)`, s.vecs),
			rowID, string(embeddingJSON),
		); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	if err := checkDimensions(embedding, s.dim); err != nil {
		return nil, err
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT c.chunk_id, c.content, c.source, vec_distance_cosine(e.embedding, ?) AS distance
		FROM %s c
		JOIN %s e ON c.id = e.chunk_rowid
		WHERE 1=1
	`, s.chunks, s.vecs)
	args := []interface{}{string(embeddingJSON)}

	if opts.Source != "" {
		query += " AND c.source = ?"
		args = append(args, opts.Source)
	}

	query += " ORDER BY distance LIMIT ?"
	args = append(args, opts.EffectiveLimit())

	rows, err := s.conn.QueryContext(ctx, query, args...)
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

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.chunks)).Scan(&n)
	return n, err
}

func (s *SQLite) Reset(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.vecs)); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.chunks)); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return tx.Commit()
}
