// Package store implements the SQLite-backed vector store for retrievable
// text chunks. Embeddings are stored as JSON and searched with a cosine
// scan; building with the sqlite_vec tag registers the sqlite-vec
// extension for accelerated search on large collections.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mcqagent/internal/logging"
)

// Payload carries the retrievable chunk fields alongside its vector.
type Payload struct {
	ChunkID    string `json:"chunk_id"`
	Domain     string `json:"domain"`
	DocID      string `json:"doc_id"`
	DocTitle   string `json:"doc_title"`
	ArticleNum string `json:"article_num,omitempty"`
	Chapter    string `json:"chapter,omitempty"`
	Content    string `json:"content"`
}

// Candidate is one search hit.
type Candidate struct {
	ID      string
	Score   float64
	Payload Payload
}

// VectorStore persists embedded chunks in SQLite.
type VectorStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewVectorStore initializes the SQLite database at the given path.
func NewVectorStore(path string) (*VectorStore, error) {
	log := logging.Get(logging.CategoryStore)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &VectorStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Infow("vector store opened", "path", path, "driver", driverName)
	return s, nil
}

// initialize creates the required tables.
func (s *VectorStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		payload TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_created ON chunks(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Upsert stores a chunk under a deterministic id. Re-upserting the same
// id replaces the row, so repeated ingestion runs are idempotent.
func (s *VectorStore) Upsert(ctx context.Context, id string, vector []float32, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embeddingJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO chunks (id, embedding, payload) VALUES (?, ?, ?)",
		id, string(embeddingJSON), string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *VectorStore) Close() error {
	return s.db.Close()
}
