package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcqagent/internal/llm"
	"mcqagent/internal/store"
)

type fakeEmbedder struct {
	embed func(ctx context.Context, text string) ([]float32, error)
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.embed != nil {
		return f.embed(ctx, text)
	}
	return []float32{1, 0}, nil
}

type fakeUpserter struct {
	ids      []string
	payloads []store.Payload
}

func (f *fakeUpserter) Upsert(ctx context.Context, id string, vector []float32, payload store.Payload) error {
	f.ids = append(f.ids, id)
	f.payloads = append(f.payloads, payload)
	return nil
}

func chunk(id, content string) Chunk {
	return Chunk{ChunkID: id, Domain: "thue", DocID: "doc1", DocTitle: "Luật Thuế", Content: content}
}

func newTestPipeline(t *testing.T, embedder *fakeEmbedder, upserter *fakeUpserter) (*Pipeline, *Checkpoint) {
	t.Helper()
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "embed_checkpoint.json"))
	require.NoError(t, err)
	p := NewPipeline(embedder, upserter, cp)
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p, cp
}

func TestPipelineEmbedsAndCheckpoints(t *testing.T) {
	embedder := &fakeEmbedder{}
	upserter := &fakeUpserter{}
	p, cp := newTestPipeline(t, embedder, upserter)

	long := strings.Repeat("nội dung pháp luật ", 10)
	stats, err := p.Run(context.Background(), []Chunk{chunk("c1", long), chunk("c2", long)})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Embedded)

	require.True(t, cp.Contains("c1"))
	require.Equal(t, 2, cp.TotalEmbedded)
	require.Equal(t, []string{PointID("c1"), PointID("c2")}, upserter.ids)
	require.Equal(t, "c1", upserter.payloads[0].ChunkID)
}

func TestPipelineSkipsEmbeddedAndShortChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	upserter := &fakeUpserter{}
	p, cp := newTestPipeline(t, embedder, upserter)
	cp.Add("done")

	long := strings.Repeat("x", 100)
	stats, err := p.Run(context.Background(), []Chunk{
		chunk("done", long),
		chunk("tiny", "ngắn"),
		chunk("fresh", long),
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Embedded)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.TooShort)
	require.Equal(t, 1, embedder.calls)
}

func TestPipelineTruncatesLongContent(t *testing.T) {
	var embedded string
	embedder := &fakeEmbedder{embed: func(ctx context.Context, text string) ([]float32, error) {
		embedded = text
		return []float32{1}, nil
	}}
	upserter := &fakeUpserter{}
	p, _ := newTestPipeline(t, embedder, upserter)

	_, err := p.Run(context.Background(), []Chunk{chunk("big", strings.Repeat("a", 9000))})
	require.NoError(t, err)
	require.Len(t, embedded, 8000)
	require.Len(t, upserter.payloads[0].Content, 8000)
}

func TestPipelineRateLimitBackoff(t *testing.T) {
	attempts := 0
	embedder := &fakeEmbedder{embed: func(ctx context.Context, text string) ([]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
		}
		return []float32{1}, nil
	}}
	upserter := &fakeUpserter{}
	p, _ := newTestPipeline(t, embedder, upserter)

	var delays []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	stats, err := p.Run(context.Background(), []Chunk{chunk("c1", strings.Repeat("x", 50))})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Embedded)
	require.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, delays)
}

func TestPipelineRateLimitExhaustion(t *testing.T) {
	embedder := &fakeEmbedder{embed: func(ctx context.Context, text string) ([]float32, error) {
		return nil, &llm.RateLimitError{Provider: "vnpt", StatusCode: 429}
	}}
	p, cp := newTestPipeline(t, embedder, &fakeUpserter{})

	_, err := p.Run(context.Background(), []Chunk{chunk("c1", strings.Repeat("x", 50))})
	require.Error(t, err)
	require.Equal(t, 10, embedder.calls)

	// Progress so far was persisted before surfacing the error.
	reloaded, rerr := LoadCheckpoint(cp.path)
	require.NoError(t, rerr)
	require.Zero(t, reloaded.TotalEmbedded)
}

func TestPipelineGenericEmbedErrorFailsFast(t *testing.T) {
	embedder := &fakeEmbedder{embed: func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("bad request")
	}}
	p, _ := newTestPipeline(t, embedder, &fakeUpserter{})

	_, err := p.Run(context.Background(), []Chunk{chunk("c1", strings.Repeat("x", 50))})
	require.Error(t, err)
	require.Equal(t, 1, embedder.calls)
}

func TestPointIDDeterministic(t *testing.T) {
	require.Equal(t, PointID("chunk-1"), PointID("chunk-1"))
	require.NotEqual(t, PointID("chunk-1"), PointID("chunk-2"))
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embed_checkpoint.json")
	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)

	cp.Add("c1")
	cp.Add("c2")
	cp.Add("c1") // duplicate add is a no-op
	require.NoError(t, cp.Save())

	reloaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.TotalEmbedded)
	require.True(t, reloaded.Contains("c1"))
	require.True(t, reloaded.Contains("c2"))
	require.False(t, reloaded.Contains("c3"))
}
