package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/vector"
)

// Collection is one built index of a tabular source.
type Collection struct {
	Name         string `json:"name"`
	SourcePath   string `json:"source_path"`
	RunID        string `json:"run_id"`
	ChunkCount   int    `json:"chunk_count"`
	RecordCount  int    `json:"record_count"`
	Dimensions   int    `json:"dimensions"`
	MaxChunkSize int    `json:"max_chunk_size"`
	CreatedAt    int64  `json:"created_at"`
}

// Chunk is a stored chunk. Embedding is only populated by ScanEmbeddings and
// must be supplied to ReplaceCollection.
type Chunk struct {
	Position  int       `json:"position"`
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Chars     int       `json:"chars"`
	Embedding []float32 `json:"-"`
}

// ReplaceCollection stores coll and its chunks, replacing any existing collection of
// the same name. Everything happens in one transaction, so readers see either the
// old collection or the complete new one.
func ReplaceCollection(ctx context.Context, db *sql.DB, coll *Collection, chunks []Chunk) error {
	if coll.CreatedAt == 0 {
		coll.CreatedAt = time.Now().Unix()
	}
	coll.ChunkCount = len(chunks)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	// Cascade removes the old chunks.
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, coll.Name); err != nil {
		return errors.NewInternal(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (
			name, source_path, run_id, chunk_count, record_count,
			dimensions, max_chunk_size, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		coll.Name, coll.SourcePath, coll.RunID, coll.ChunkCount, coll.RecordCount,
		coll.Dimensions, coll.MaxChunkSize, coll.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, position, chunk_id, chunk_text, chars, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		blob, err := vector.Float32SliceToBytes(c.Embedding)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := stmt.ExecContext(ctx, coll.Name, i, c.ID, c.Text, c.Chars, blob); err != nil {
			return errors.NewInternal(fmt.Errorf("insert chunk %q: %w", c.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CollectionExists reports whether a collection with the given name is stored.
func CollectionExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ? LIMIT 1`, name).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// GetCollection retrieves a collection by name.
func GetCollection(ctx context.Context, db *sql.DB, name string) (*Collection, error) {
	row := db.QueryRowContext(ctx, `
		SELECT name, source_path, run_id, chunk_count, record_count,
			dimensions, max_chunk_size, created_at
		FROM collections
		WHERE name = ?
	`, name)

	var c Collection
	err := row.Scan(&c.Name, &c.SourcePath, &c.RunID, &c.ChunkCount, &c.RecordCount,
		&c.Dimensions, &c.MaxChunkSize, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("collection", name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// ListCollections returns all collections ordered by name.
func ListCollections(ctx context.Context, db *sql.DB) ([]Collection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, source_path, run_id, chunk_count, record_count,
			dimensions, max_chunk_size, created_at
		FROM collections
		ORDER BY name
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []Collection{}
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.SourcePath, &c.RunID, &c.ChunkCount, &c.RecordCount,
			&c.Dimensions, &c.MaxChunkSize, &c.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// DeleteCollection removes a collection and its chunks.
func DeleteCollection(ctx context.Context, db *sql.DB, name string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("collection", name)
	}
	return nil
}

// GetChunk retrieves one chunk by id. The embedding is not loaded.
func GetChunk(ctx context.Context, db *sql.DB, collection, id string) (*Chunk, error) {
	row := db.QueryRowContext(ctx, `
		SELECT position, chunk_id, chunk_text, chars
		FROM chunks
		WHERE collection = ? AND chunk_id = ?
	`, collection, id)

	var c Chunk
	err := row.Scan(&c.Position, &c.ID, &c.Text, &c.Chars)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("chunk", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// ListChunks returns chunks of a collection in emission order. The embedding is not
// loaded.
func ListChunks(ctx context.Context, db *sql.DB, collection string, limit, offset int) ([]Chunk, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT position, chunk_id, chunk_text, chars
		FROM chunks
		WHERE collection = ?
		ORDER BY position
		LIMIT ? OFFSET ?
	`, collection, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []Chunk{}
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Position, &c.ID, &c.Text, &c.Chars); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// CountChunks returns the number of chunks stored for a collection.
func CountChunks(ctx context.Context, db *sql.DB, collection string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ScanEmbeddings calls fn for every chunk of a collection in emission order, with
// the embedding decoded. It stops at the first error fn returns.
func ScanEmbeddings(ctx context.Context, db *sql.DB, collection string, fn func(Chunk) error) error {
	rows, err := db.QueryContext(ctx, `
		SELECT position, chunk_id, chunk_text, chars, embedding
		FROM chunks
		WHERE collection = ?
		ORDER BY position
	`, collection)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c    Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Position, &c.ID, &c.Text, &c.Chars, &blob); err != nil {
			return errors.NewInternal(err)
		}
		if c.Embedding, err = vector.BytesToFloat32Slice(blob); err != nil {
			return errors.NewInternal(fmt.Errorf("chunk %q: %w", c.ID, err))
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
