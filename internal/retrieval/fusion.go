// Package retrieval implements multi-query vector retrieval with
// Reciprocal Rank Fusion and bounded context assembly.
package retrieval

import (
	"sort"

	"mcqagent/internal/store"
)

// RankedList is one sub-query's ordered search results (rank 0 = best).
type RankedList struct {
	Query string
	Hits  []store.Candidate
}

// FusedResult is a candidate with its accumulated fusion score across all
// sub-queries of one retrieval request.
type FusedResult struct {
	Candidate store.Candidate
	// FusionScore is the summed RRF contribution 1/(k+rank+1).
	FusionScore float64
	// Sources lists the sub-queries that retrieved this candidate.
	Sources []string
}

// Fuse merges per-query ranked lists with Reciprocal Rank Fusion. Each
// appearance of a document at rank r contributes 1/(k+r+1); contributions
// for the same document are summed across queries, so documents retrieved
// by multiple queries outrank single-query hits. Ties break by first-seen
// sub-query order.
func Fuse(lists []RankedList, k int) []FusedResult {
	byID := make(map[string]*FusedResult)
	var order []string

	for _, list := range lists {
		for rank, hit := range list.Hits {
			contribution := 1.0 / float64(k+rank+1)

			r, ok := byID[hit.ID]
			if !ok {
				r = &FusedResult{Candidate: hit}
				byID[hit.ID] = r
				order = append(order, hit.ID)
			}
			r.FusionScore += contribution
			r.Sources = append(r.Sources, list.Query)
		}
	}

	// order preserves first-seen insertion; the stable sort keeps it as
	// the tie-break.
	results := make([]FusedResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FusionScore > results[j].FusionScore
	})
	return results
}
