//go:build sqlite_vec && cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// The SQL path reports similarity (1 - distance), so an exact match
// scores ~1 and an orthogonal vector is cut by the threshold, exactly
// like the scan build.
func TestVecSearchScoresAreSimilarity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "exact", []float32{1, 0, 0}, Payload{ChunkID: "exact", Content: "exact"}))
	require.NoError(t, s.Upsert(ctx, "orthogonal", []float32{0, 1, 0}, Payload{ChunkID: "orthogonal", Content: "other"}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "exact", hits[0].ID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-5)
	require.Equal(t, "exact", hits[0].Payload.ChunkID)
}
