// Package ingest embeds cleaned document chunks into the vector store,
// checkpointing progress so a chunk is embedded at most once across
// restarts.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"mcqagent/internal/llm"
	"mcqagent/internal/logging"
	"mcqagent/internal/store"
)

const (
	minContentLen = 20
	maxContentLen = 8000

	// Exponential backoff for rate-limited embedding calls.
	backoffInitial  = 30 * time.Second
	backoffMax      = 300 * time.Second
	backoffAttempts = 10

	// Checkpoint cadence in chunks.
	saveEvery = 50
)

// chunkNamespace scopes deterministic point IDs to this pipeline.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Chunk is one cleaned retrievable text unit produced by the external
// document pipeline.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	Domain     string `json:"domain"`
	DocID      string `json:"doc_id"`
	DocTitle   string `json:"doc_title"`
	ArticleNum string `json:"article_num,omitempty"`
	Chapter    string `json:"chapter,omitempty"`
	Content    string `json:"content"`
}

// LoadChunks reads a JSON chunk file.
func LoadChunks(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parsing chunks %s: %w", path, err)
	}
	return chunks, nil
}

// Embedder is the embedding capability the pipeline depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Upserter is the vector-store write capability.
type Upserter interface {
	Upsert(ctx context.Context, id string, vector []float32, payload store.Payload) error
}

// Stats summarizes one pipeline run.
type Stats struct {
	Embedded int
	Skipped  int
	TooShort int
}

// Pipeline embeds chunks one at a time with rate-limit backoff.
type Pipeline struct {
	embedder   Embedder
	upserter   Upserter
	checkpoint *Checkpoint

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(embedder Embedder, upserter Upserter, checkpoint *Checkpoint) *Pipeline {
	return &Pipeline{
		embedder:   embedder,
		upserter:   upserter,
		checkpoint: checkpoint,
		sleep:      sleepContext,
	}
}

// PointID derives the deterministic vector-store id for a chunk, so
// re-upserting the same chunk is idempotent.
func PointID(chunkID string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkID)).String()
}

// Run embeds every chunk not yet in the checkpoint. The checkpoint is
// saved every 50 chunks and once at the end; rate limits back off
// exponentially before giving up on the whole run.
func (p *Pipeline) Run(ctx context.Context, chunks []Chunk) (Stats, error) {
	log := logging.Get(logging.CategoryIngest)
	var stats Stats

	sinceSave := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if p.checkpoint.Contains(chunk.ChunkID) {
			stats.Skipped++
			continue
		}
		content := chunk.Content
		if len(content) < minContentLen {
			stats.TooShort++
			continue
		}
		if len(content) > maxContentLen {
			content = content[:maxContentLen]
		}

		vector, err := p.embedWithBackoff(ctx, content)
		if err != nil {
			// Persist progress before surfacing the failure.
			if serr := p.checkpoint.Save(); serr != nil {
				log.Errorw("checkpoint save failed", "error", serr)
			}
			return stats, fmt.Errorf("embedding chunk %s: %w", chunk.ChunkID, err)
		}

		payload := store.Payload{
			ChunkID:    chunk.ChunkID,
			Domain:     chunk.Domain,
			DocID:      chunk.DocID,
			DocTitle:   chunk.DocTitle,
			ArticleNum: chunk.ArticleNum,
			Chapter:    chunk.Chapter,
			Content:    content,
		}
		if err := p.upserter.Upsert(ctx, PointID(chunk.ChunkID), vector, payload); err != nil {
			return stats, fmt.Errorf("upserting chunk %s: %w", chunk.ChunkID, err)
		}

		p.checkpoint.Add(chunk.ChunkID)
		stats.Embedded++
		sinceSave++
		if sinceSave >= saveEvery {
			if err := p.checkpoint.Save(); err != nil {
				return stats, err
			}
			sinceSave = 0
			log.Infow("progress", "embedded", stats.Embedded, "skipped", stats.Skipped)
		}
	}

	if err := p.checkpoint.Save(); err != nil {
		return stats, err
	}
	log.Infow("ingestion finished", "embedded", stats.Embedded, "skipped", stats.Skipped, "too_short", stats.TooShort)
	return stats, nil
}

func (p *Pipeline) embedWithBackoff(ctx context.Context, content string) ([]float32, error) {
	log := logging.Get(logging.CategoryIngest)
	delay := backoffInitial

	var lastErr error
	for attempt := 1; attempt <= backoffAttempts; attempt++ {
		vector, err := p.embedder.Embed(ctx, content)
		if err == nil {
			return vector, nil
		}
		if !llm.IsRateLimit(err) {
			return nil, err
		}
		lastErr = err

		log.Warnw("embedding rate limited, backing off", "attempt", attempt, "delay", delay)
		if serr := p.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
		delay *= 2
		if delay > backoffMax {
			delay = backoffMax
		}
	}
	return nil, fmt.Errorf("embedding still rate limited after %d attempts: %w", backoffAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
