package retrieval

import (
	"context"

	"mcqagent/internal/config"
	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
	"mcqagent/internal/store"
)

// Embedder is the embedding capability the searcher depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the vector-store capability the searcher depends on.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]store.Candidate, error)
}

// Searcher runs multi-query retrieval and fuses the results.
type Searcher struct {
	embedder Embedder
	vectors  VectorSearcher
	cfg      config.RetrievalConfig
}

// NewSearcher wires an embedder and a vector store into a searcher.
func NewSearcher(embedder Embedder, vectors VectorSearcher, cfg config.RetrievalConfig) *Searcher {
	return &Searcher{embedder: embedder, vectors: vectors, cfg: cfg}
}

// Retrieve embeds each sub-query, searches the vector store, fuses the
// ranked lists with RRF, and returns the top fused candidates. A failing
// sub-query is skipped so the strategy can still answer from the others;
// only rate limiting propagates, because it must suspend the whole batch.
// An empty result is not an error: the caller answers with empty context.
func (s *Searcher) Retrieve(ctx context.Context, queries []string) ([]FusedResult, error) {
	log := logging.Get(logging.CategoryRAG)

	var lists []RankedList
	for _, query := range queries {
		vector, err := s.embedder.Embed(ctx, query)
		if err != nil {
			if llm.IsRateLimit(err) {
				return nil, err
			}
			log.Warnw("sub-query embed failed, skipping", "error", err)
			continue
		}

		hits, err := s.vectors.Search(ctx, vector, s.cfg.TopKPerQuery, s.cfg.ScoreThreshold)
		if err != nil {
			log.Warnw("sub-query search failed, skipping", "error", err)
			continue
		}
		lists = append(lists, RankedList{Query: query, Hits: hits})
	}

	fused := Fuse(lists, s.cfg.RRFConstant)
	if len(fused) > s.cfg.FinalTopK {
		fused = fused[:s.cfg.FinalTopK]
	}

	log.Debugw("retrieval complete", "queries", len(queries), "fused", len(fused))
	return fused, nil
}
