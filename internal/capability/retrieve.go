package capability

import "sort"

// RetrieveResult is the answer to a query: the ranked tools and the top
// score among them (0 if no records matched at all).
type RetrieveResult struct {
	Tools    []Record
	TopScore float64
}

// Retrieve scores every record (optionally filtered by connectedApps)
// against query using BM25, breaking ties by usage count, and returns the
// top k.
func (idx *Index) Retrieve(query string, k int, connectedApps map[string]bool) RetrieveResult {
	records := idx.snapshot(connectedApps)
	queryTokens := tokenize(query)
	scores := scoreBM25(records, queryTokens)

	type scored struct {
		rec   *Record
		score float64
	}
	ranked := make([]scored, len(records))
	for i, r := range records {
		ranked[i] = scored{rec: r, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rec.UsageCount > ranked[j].rec.UsageCount
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Record, 0, k)
	var top float64
	for i := 0; i < k; i++ {
		out = append(out, *ranked[i].rec)
		if i == 0 {
			top = ranked[i].score
		}
	}
	return RetrieveResult{Tools: out, TopScore: top}
}
