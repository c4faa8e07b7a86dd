// Package search answers documentation queries over the index: semantic
// search deduplicated per source file, exact document lookup, reference
// guide lookup by component name and project listing.
package search

import (
	"context"
	"time"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// Searcher is the query surface exposed to the tool layer.
type Searcher interface {
	// Search returns the best matching documents for query, at most one per
	// source file, by descending relevance.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Document, error)

	// GetDocument returns the full document stored at path in project.
	GetDocument(ctx context.Context, path, project string) (*Document, error)

	// SearchReferenceGuide returns the reference pages whose file stem is
	// exactly component.
	SearchReferenceGuide(ctx context.Context, component string, opts ReferenceOptions) ([]Document, error)

	// ListProjects returns the distinct indexed project names, sorted.
	ListProjects(ctx context.Context) ([]string, error)
}

// Index is what the engine needs from the index manager.
type Index interface {
	EnsureIndexed(ctx context.Context) error
	View(ctx context.Context, fn func(store.Collection) error) error
}

// Document is one search or lookup result. Content is nil when the caller
// asked for no content.
type Document struct {
	ID string `json:"id"`
	document.Metadata
	Content *string `json:"content"`
	// Relevance is 1 - cosine distance for semantic results and 1 for exact
	// matches; nil for direct lookups.
	Relevance *float64 `json:"relevance_score,omitempty"`
}

// ExactMatchRelevance is the score given to results found by exact name.
const ExactMatchRelevance = 1.0

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the number of results when the caller gives none.
	DefaultLimit int

	// MaxLimit caps the number of results per query.
	MaxLimit int

	// MaxContentChars bounds content in truncated mode.
	MaxContentChars int

	// ContextChars is the context kept around keyword clusters in excerpts.
	ContextChars int

	// OverFetch multiplies the limit to size the first candidate query.
	OverFetch int

	// SearchTimeout bounds one query, embedding included. It does not bound
	// the first index build a query may trigger.
	SearchTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:    5,
		MaxLimit:        50,
		MaxContentChars: 10000,
		ContextChars:    500,
		OverFetch:       4,
		SearchTimeout:   30 * time.Second,
	}
}

// ConfigFromSearch builds an EngineConfig from the search section of the
// application config.
func ConfigFromSearch(sc config.SearchConfig) EngineConfig {
	cfg := DefaultConfig()
	if sc.MaxResults > 0 {
		cfg.DefaultLimit = sc.MaxResults
	}
	if sc.MaxContentChars > 0 {
		cfg.MaxContentChars = sc.MaxContentChars
	}
	if sc.ContextChars > 0 {
		cfg.ContextChars = sc.ContextChars
	}
	return cfg
}

func float64Ptr(v float64) *float64 {
	return &v
}
