package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *VectorStore {
	t.Helper()
	s, err := NewVectorStore(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := Payload{ChunkID: "c1", Domain: "legal", DocTitle: "Civil Code", Content: "article text"}
	require.NoError(t, s.Upsert(ctx, "id-1", []float32{1, 0, 0}, payload))
	require.NoError(t, s.Upsert(ctx, "id-1", []float32{1, 0, 0}, payload))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSearchOrdersByScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "exact", []float32{1, 0, 0}, Payload{ChunkID: "exact", Content: "exact match"}))
	require.NoError(t, s.Upsert(ctx, "close", []float32{0.9, 0.1, 0}, Payload{ChunkID: "close", Content: "close match"}))
	require.NoError(t, s.Upsert(ctx, "far", []float32{0, 0, 1}, Payload{ChunkID: "far", Content: "unrelated"}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, "exact", hits[0].ID)
	require.Equal(t, "close", hits[1].ID)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearchExcludesBelowThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "good", []float32{1, 0, 0}, Payload{ChunkID: "good"}))
	require.NoError(t, s.Upsert(ctx, "orthogonal", []float32{0, 1, 0}, Payload{ChunkID: "orthogonal"}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "good", hits[0].ID)
}

func TestSearchRespectsTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, vec := range [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0}} {
		require.NoError(t, s.Upsert(ctx, string(rune('a'+i)), vec, Payload{}))
	}

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 2, 0.0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestSearchEmptyStore(t *testing.T) {
	s := newTestStore(t)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, 0.3)
	require.NoError(t, err)
	require.Empty(t, hits)
}
