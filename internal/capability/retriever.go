package capability

import (
	"context"
	"sync"
)

// PopulateFunc fetches the current tool schemas for a workspace's connected
// apps from the meta-broker, for use by TopKRetriever.Retrieve when the
// index is empty or stale.
type PopulateFunc func(ctx context.Context) ([]ToolSchema, string, error)

// TopKRetriever wraps an Index with the "populate on demand, fall back to
// meta-broker discovery on low confidence" policy from the retrieval
// design. One TopKRetriever exists per workspace.
type TopKRetriever struct {
	Index            *Index
	MinIndexedTools  int
	MinRelevanceScore float64
	InitialK         int
	ExpandedK        int

	populateFn PopulateFunc

	popMu   sync.Mutex
	popping bool
}

// NewTopKRetriever builds a retriever over idx. populateFn is called to
// refill the index when it is empty or stale; it may be nil if the caller
// populates the index out of band.
func NewTopKRetriever(idx *Index, minIndexedTools int, minRelevanceScore float64, initialK, expandedK int, populateFn PopulateFunc) *TopKRetriever {
	return &TopKRetriever{
		Index:             idx,
		MinIndexedTools:   minIndexedTools,
		MinRelevanceScore: minRelevanceScore,
		InitialK:          initialK,
		ExpandedK:         expandedK,
		populateFn:        populateFn,
	}
}

// Populate refreshes the index from populateFn. If another goroutine is
// already populating this workspace's index, Populate returns immediately
// with 0 added and no error rather than racing a duplicate fetch.
func (t *TopKRetriever) Populate(ctx context.Context) (int, error) {
	t.popMu.Lock()
	if t.popping {
		t.popMu.Unlock()
		return 0, nil
	}
	t.popping = true
	t.popMu.Unlock()
	defer func() {
		t.popMu.Lock()
		t.popping = false
		t.popMu.Unlock()
	}()

	if t.populateFn == nil {
		return 0, nil
	}
	schemas, appSlug, err := t.populateFn(ctx)
	if err != nil {
		return 0, err
	}
	return t.Index.AddTools(schemas, appSlug), nil
}

// Invalidate forces the next Retrieve to repopulate even if the index is not
// yet stale by its own clock.
func (t *TopKRetriever) Invalidate() {
	t.Index.mu.Lock()
	defer t.Index.mu.Unlock()
	t.Index.lastUpdated = t.Index.lastUpdated.Add(-2 * t.Index.staleAfter)
}

// Result is the retriever's answer: either a ranked tool list, or IsFallback
// set to true signaling the caller must use meta-broker discovery instead of
// binding tools directly.
type Result struct {
	Tools      []Record
	TopScore   float64
	IsFallback bool
}

// Retrieve implements the INITIAL_K/EXPANDED_K escalation and the
// MIN_INDEXED_TOOLS / MIN_RELEVANCE_SCORE fallback gates: if the index is
// stale or too small it is (re)populated first; if it is still below
// MIN_INDEXED_TOOLS afterward, or the top hit scores below
// MIN_RELEVANCE_SCORE, the caller must fall back to meta-broker discovery
// rather than binding a weak tool set.
func (t *TopKRetriever) Retrieve(ctx context.Context, query string, connectedApps map[string]bool) (Result, error) {
	if t.Index.IsStale() || t.Index.Size() < t.MinIndexedTools {
		if _, err := t.Populate(ctx); err != nil {
			return Result{}, err
		}
	}
	if t.Index.Size() < t.MinIndexedTools {
		return Result{IsFallback: true}, nil
	}

	res := t.Index.Retrieve(query, t.InitialK, connectedApps)
	if res.TopScore < t.MinRelevanceScore && t.ExpandedK > t.InitialK {
		res = t.Index.Retrieve(query, t.ExpandedK, connectedApps)
	}
	if res.TopScore < t.MinRelevanceScore {
		return Result{IsFallback: true}, nil
	}
	return Result{Tools: res.Tools, TopScore: res.TopScore}, nil
}
