package capability

import "math"

// BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalization; these are the standard Okapi defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// scoreBM25 scores records against queryTokens, returning one score per
// record in the same order as records; sorting by descending score and the
// usage-count tie-break are done by the caller. No third-party full-text search library exists in
// the retrieval pack's dependency surface (confirmed by grep across every
// example repo's go.mod and vendor tree); this file is the one
// stdlib-grounded exception the design ledger calls out.
func scoreBM25(records []*Record, queryTokens []string) []float64 {
	n := len(records)
	scores := make([]float64, n)
	if n == 0 || len(queryTokens) == 0 {
		return scores
	}

	docFreq := map[string]int{}
	totalLen := 0
	for _, r := range records {
		seen := map[string]bool{}
		totalLen += len(r.Tokens)
		for _, t := range r.Tokens {
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}
	avgLen := float64(totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	for i, r := range records {
		termFreq := map[string]int{}
		for _, t := range r.Tokens {
			termFreq[t]++
		}
		docLen := float64(len(r.Tokens))
		var score float64
		for _, qt := range queryTokens {
			tf := float64(termFreq[qt])
			if tf == 0 {
				continue
			}
			df := docFreq[qt]
			idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
			numerator := tf * (bm25K1 + 1)
			denominator := tf + bm25K1*(1-bm25B+bm25B*(docLen/avgLen))
			score += idf * (numerator / denominator)
		}
		scores[i] = score
	}
	return scores
}
