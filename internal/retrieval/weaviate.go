// Package retrieval provides the document retrieval collaborator.
//
// This file implements the Weaviate-backed searcher.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// DefaultClass is the Weaviate class queried when none is configured.
const DefaultClass = "MunicipalDocument"

// Opts holds configuration options for the Weaviate searcher.
type Opts struct {
	Host   string
	Scheme string
	Class  string
}

// Option defines a configuration option for the Weaviate searcher.
type Option func(*Opts)

// WithHost sets the Weaviate host (host:port).
func WithHost(host string) Option {
	return func(o *Opts) { o.Host = host }
}

// WithScheme sets the connection scheme (http or https).
func WithScheme(scheme string) Option {
	return func(o *Opts) { o.Scheme = scheme }
}

// WithClass sets the Weaviate class to query.
func WithClass(class string) Option {
	return func(o *Opts) { o.Class = class }
}

// WeaviateSearcher implements Searcher over a Weaviate near-text query.
type WeaviateSearcher struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateSearcher creates a searcher against a Weaviate instance.
func NewWeaviateSearcher(opts ...Option) (*WeaviateSearcher, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("retrieval.NewWeaviateSearcher: creating searcher", "host_set", cfg.Host != "", "class", cfg.Class)

	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host not set")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Class == "" {
		cfg.Class = DefaultClass
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme})
	if err != nil {
		slog.Error("retrieval.NewWeaviateSearcher: client creation failed", "error", err, "host", cfg.Host)
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateSearcher{client: client, class: cfg.Class}, nil
}

// weaviateGetResponse is the typed shape of the GraphQL Get result.
// GraphQL responses arrive as untyped maps; marshal/unmarshal through JSON
// gives compile-time safety on the fields we read.
type weaviateGetResponse struct {
	Get map[string][]struct {
		Text       string `json:"text"`
		Source     string `json:"source"`
		Additional struct {
			Distance float64 `json:"distance"`
		} `json:"_additional"`
	} `json:"Get"`
}

// Search implements Searcher with a near-text query. The returned score is
// 1-distance so higher remains better.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	slog.Debug("WeaviateSearcher.Search: querying", "class", s.class, "topK", topK, "queryLength", len(query))

	nearText := s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})
	fields := []graphql.Field{
		{Name: "text"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearText(nearText).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		slog.Error("WeaviateSearcher.Search: query failed", "error", err, "class", s.class)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		slog.Error("WeaviateSearcher.Search: graphql errors", "class", s.class, "message", result.Errors[0].Message)
		return nil, fmt.Errorf("weaviate query error: %s", result.Errors[0].Message)
	}

	raw, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal weaviate response: %w", err)
	}
	var typed weaviateGetResponse
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, fmt.Errorf("unmarshal weaviate response: %w", err)
	}

	var passages []Passage
	for _, obj := range typed.Get[s.class] {
		passages = append(passages, Passage{
			Text:   obj.Text,
			Source: obj.Source,
			Score:  1 - obj.Additional.Distance,
		})
	}
	slog.Debug("WeaviateSearcher.Search: results", "class", s.class, "count", len(passages))
	return passages, nil
}
