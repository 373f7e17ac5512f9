// Package retrieval provides the document retrieval collaborator.
//
// This file implements configurable post-search reranking. Boost tables
// are deployment configuration, not part of the retrieval contract; the
// zero-value Reranker is a no-op.
package retrieval

import (
	"sort"
	"strings"
)

// Reranker adjusts passage scores by configurable signals after search:
// additive boosts for keyword hits in the passage text and for matching
// provenance sources.
type Reranker struct {
	// KeywordBoosts maps a lowercase keyword to an additive score boost
	// applied when the passage text contains it.
	KeywordBoosts map[string]float64
	// SourceBoosts maps a source substring to an additive score boost
	// applied when the passage provenance contains it.
	SourceBoosts map[string]float64
}

// Rerank returns the passages re-sorted by boosted score. The input slice
// is not modified.
func (r *Reranker) Rerank(passages []Passage) []Passage {
	if r == nil || (len(r.KeywordBoosts) == 0 && len(r.SourceBoosts) == 0) {
		return passages
	}

	out := make([]Passage, len(passages))
	copy(out, passages)
	for i := range out {
		text := strings.ToLower(out[i].Text)
		for kw, boost := range r.KeywordBoosts {
			if strings.Contains(text, kw) {
				out[i].Score += boost
			}
		}
		source := strings.ToLower(out[i].Source)
		for src, boost := range r.SourceBoosts {
			if strings.Contains(source, strings.ToLower(src)) {
				out[i].Score += boost
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
