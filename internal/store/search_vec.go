//go:build sqlite_vec && cgo

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"mcqagent/internal/logging"
)

// Search returns the topK chunks nearest to the query vector, excluding
// anything scoring below threshold. This build pushes the cosine
// computation into SQLite via sqlite-vec's vec_distance_cosine;
// embeddings are stored as JSON vectors, so the query vector is bound
// the same way.
func (s *VectorStore) Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	queryJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query vector: %w", err)
	}

	// vec_distance_cosine yields distance; score is 1-distance so the
	// threshold keeps the same similarity semantics as the scan build.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload, score FROM (
			SELECT id, payload, 1.0 - vec_distance_cosine(embedding, ?) AS score
			FROM chunks
		)
		WHERE score >= ?
		ORDER BY score DESC
		LIMIT ?`, string(queryJSON), threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	log := logging.Get(logging.CategoryStore)
	var candidates []Candidate

	for rows.Next() {
		var id, payloadJSON string
		var score float64
		if err := rows.Scan(&id, &payloadJSON, &score); err != nil {
			continue
		}

		var payload Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			log.Debugw("skipping chunk with malformed payload", "id", id)
			continue
		}

		candidates = append(candidates, Candidate{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	return candidates, nil
}
