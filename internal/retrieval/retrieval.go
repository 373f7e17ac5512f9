// Package retrieval provides the document retrieval collaborator used for
// retrieval-augmented generation.
//
// A Searcher returns scored passages with provenance for a query string;
// an empty result is a valid "no match", not an error. The production
// backend is Weaviate; an in-memory searcher serves tests and development.
package retrieval

import (
	"context"
	"sort"
	"strings"
)

// Passage is a retrieved text fragment with provenance and relevance score.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Searcher is the retrieval contract consumed by the orchestrator.
// Results are ordered by descending relevance.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
}

// MemorySearcher is a Searcher over a fixed passage list, scoring by
// shared lowercase token count. For tests and development only.
type MemorySearcher struct {
	Passages []Passage
}

// NewMemorySearcher creates a searcher over the given passages.
func NewMemorySearcher(passages ...Passage) *MemorySearcher {
	return &MemorySearcher{Passages: passages}
}

// Search implements Searcher.
func (s *MemorySearcher) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	terms := strings.Fields(strings.ToLower(query))
	var out []Passage
	for _, p := range s.Passages {
		text := strings.ToLower(p.Text)
		score := 0.0
		for _, t := range terms {
			if strings.Contains(text, t) {
				score++
			}
		}
		if score > 0 {
			scored := p
			scored.Score = score
			out = append(out, scored)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
