// Package capability implements each workspace's tool capability index: a
// BM25-scored catalog of tool schemas, and the TopKRetriever policy that
// decides when to bind tools directly versus fall back to meta-broker
// discovery.
package capability

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// ToolSchema is the input shape for indexing a tool: whatever the upstream
// integration (or meta-broker) advertises.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []string
	RawSchema   map[string]any
	SchemaValid bool
}

// Record is one indexed tool, keyed by (AppSlug, ToolName).
type Record struct {
	AppSlug     string
	ToolName    string
	Description string
	Tokens      []string
	UsageCount  int64
	SchemaValid bool
}

var tokenSplitRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// tokenize lowercases and splits on non-alphanumeric runs, used uniformly
// for both indexed records and queries so BM25 term matching is consistent.
func tokenize(s string) []string {
	fields := tokenSplitRe.Split(strings.ToLower(s), -1)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// tokensFor builds the Tokens field for a schema: name + description +
// parameter names, as the spec requires.
func tokensFor(schema ToolSchema) []string {
	var sb strings.Builder
	sb.WriteString(schema.Name)
	sb.WriteString(" ")
	sb.WriteString(schema.Description)
	for _, p := range schema.Parameters {
		sb.WriteString(" ")
		sb.WriteString(p)
	}
	return tokenize(sb.String())
}

// Index is a per-workspace catalog of tool records with BM25 retrieval.
// It is safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	records     map[string]*Record // key: appSlug + "\x00" + toolName
	lastUpdated time.Time
	staleAfter  time.Duration
}

// NewIndex builds an empty Index. staleAfter controls IsStale's horizon.
func NewIndex(staleAfter time.Duration) *Index {
	return &Index{records: map[string]*Record{}, staleAfter: staleAfter}
}

func recordKey(appSlug, toolName string) string {
	return appSlug + "\x00" + toolName
}

// AddTools upserts schemas under appSlug, deduplicating by tool name: a
// repeat add for the same (appSlug, toolName) updates the description and
// tokens in place rather than creating a second record, satisfying the
// index's at-most-one-record-per-(app_slug,tool_name) invariant.
func (idx *Index) AddTools(schemas []ToolSchema, appSlug string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	added := 0
	for _, schema := range schemas {
		key := recordKey(appSlug, schema.Name)
		if existing, ok := idx.records[key]; ok {
			existing.Description = schema.Description
			existing.Tokens = tokensFor(schema)
			existing.SchemaValid = schema.SchemaValid
			continue
		}
		idx.records[key] = &Record{
			AppSlug:     appSlug,
			ToolName:    schema.Name,
			Description: schema.Description,
			Tokens:      tokensFor(schema),
			SchemaValid: schema.SchemaValid,
		}
		added++
	}
	idx.lastUpdated = time.Now()
	return added
}

// RecordUsage bumps the monotonic usage counter for toolName across all app
// slugs that expose it, used as a BM25 tiebreaker.
func (idx *Index) RecordUsage(toolName string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range idx.records {
		if r.ToolName == toolName {
			r.UsageCount++
		}
	}
}

// Size returns the number of indexed records.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// IsStale reports whether the index has not been populated within
// staleAfter.
func (idx *Index) IsStale() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.lastUpdated.IsZero() {
		return true
	}
	return time.Since(idx.lastUpdated) > idx.staleAfter
}

// snapshot returns a stable copy of records optionally filtered by
// connectedApps (nil means no filter).
func (idx *Index) snapshot(connectedApps map[string]bool) []*Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*Record, 0, len(idx.records))
	for _, r := range idx.records {
		if connectedApps != nil && !connectedApps[r.AppSlug] {
			continue
		}
		out = append(out, r)
	}
	return out
}
