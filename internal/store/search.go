//go:build !sqlite_vec

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"mcqagent/internal/embedding"
	"mcqagent/internal/logging"
)

// Search returns the topK chunks nearest to the query vector, excluding
// anything scoring below threshold. Candidates are ordered by descending
// similarity. Rows with malformed embeddings are skipped. The pure-Go
// build scans all chunks and computes cosine similarity host-side; the
// sqlite_vec build replaces this with a SQL-side distance query.
func (s *VectorStore) Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding, payload FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	log := logging.Get(logging.CategoryStore)
	var candidates []Candidate

	for rows.Next() {
		var id, embeddingJSON, payloadJSON string
		if err := rows.Scan(&id, &embeddingJSON, &payloadJSON); err != nil {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
			log.Debugw("skipping chunk with malformed embedding", "id", id)
			continue
		}

		score, err := embedding.CosineSimilarity(vector, vec)
		if err != nil {
			continue
		}
		// Below-threshold candidates are excluded entirely, not merely
		// ranked low.
		if score < threshold {
			continue
		}

		var payload Payload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			continue
		}

		candidates = append(candidates, Candidate{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}
