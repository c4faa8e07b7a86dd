package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/amandocs/internal/chunk"
	"github.com/Aman-CERP/amandocs/internal/doctext"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// Engine answers queries against the index. Every operation first makes
// sure the index is populated.
type Engine struct {
	index    Index
	embedder embed.Embedder
	config   EngineConfig
}

// Ensure Engine implements Searcher.
var _ Searcher = (*Engine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// NewEngine creates a search engine. Zero fields of config take their
// defaults.
func NewEngine(idx Index, embedder embed.Embedder, config EngineConfig) (*Engine, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: index", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}

	defaults := DefaultConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = defaults.MaxLimit
	}
	if config.MaxContentChars <= 0 {
		config.MaxContentChars = defaults.MaxContentChars
	}
	if config.ContextChars <= 0 {
		config.ContextChars = defaults.ContextChars
	}
	if config.OverFetch <= 0 {
		config.OverFetch = defaults.OverFetch
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = defaults.SearchTimeout
	}

	return &Engine{index: idx, embedder: embedder, config: config}, nil
}

// Search embeds query, keeps the best chunk of each source file and resolves
// content per opts.Content.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]Document, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, amerrors.New(amerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	opts, err := e.applyDefaults(opts)
	if err != nil {
		return nil, err
	}

	// A first build clones and embeds every repository; only the query
	// itself is bounded by SearchTimeout.
	if err := e.index.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if amerrors.IsCancellation(err) {
			return nil, err
		}
		return nil, amerrors.New(amerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
	}

	results := []Document{}
	err = e.index.View(ctx, func(coll store.Collection) error {
		matches, err := e.topPerSource(ctx, coll, vector, opts)
		if err != nil {
			return err
		}
		for _, m := range matches {
			doc, err := e.resolve(ctx, coll, m.Chunk, opts.Content, opts.MaxContentChars, query)
			if err != nil {
				return err
			}
			doc.Relevance = float64Ptr(1 - float64(m.Distance))
			results = append(results, doc)
		}
		return nil
	})
	if err != nil {
		return nil, searchFailed(err)
	}

	slog.Debug("search_completed",
		slog.String("query", query),
		slog.String("project", opts.Project),
		slog.String("content", string(opts.Content)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

// topPerSource queries until it holds opts.Limit distinct source paths or
// the collection has no more candidates. Several chunks of one file can
// crowd the first page, so the candidate count doubles on each pass.
func (e *Engine) topPerSource(ctx context.Context, coll store.Collection, vector []float32, opts SearchOptions) ([]store.Match, error) {
	where := store.Where{Project: opts.Project}
	n := opts.Limit * e.config.OverFetch
	for {
		matches, err := coll.Query(ctx, vector, n, where)
		if err != nil {
			return nil, err
		}
		kept := bestPerSource(matches, opts.Limit)
		if len(kept) >= opts.Limit || len(matches) < n {
			return kept, nil
		}
		n *= 2
	}
}

// bestPerSource keeps the first match of every source path, in order, up to
// limit. matches must be sorted by ascending distance.
func bestPerSource(matches []store.Match, limit int) []store.Match {
	seen := make(map[string]struct{}, limit)
	kept := make([]store.Match, 0, limit)
	for _, m := range matches {
		if _, ok := seen[m.Chunk.SourcePath]; ok {
			continue
		}
		seen[m.Chunk.SourcePath] = struct{}{}
		kept = append(kept, m)
		if len(kept) == limit {
			break
		}
	}
	return kept
}

// resolve builds the result for ch with content in the requested mode.
func (e *Engine) resolve(ctx context.Context, coll store.Collection, ch document.Chunk, mode ContentMode, maxChars int, query string) (Document, error) {
	doc := Document{ID: ch.ParentID, Metadata: ch.Metadata}
	switch mode {
	case ContentNone:
	case ContentChunk:
		text := ch.Content
		doc.Content = &text
	default:
		chunks, err := coll.Get(ctx, store.GetRequest{Where: store.Where{ParentID: ch.ParentID}})
		if err != nil {
			return doc, err
		}
		doc.Content = e.render(chunks, mode, maxChars, query)
	}
	return doc, nil
}

// render reassembles a document from its chunks for the full and truncated
// modes.
func (e *Engine) render(chunks []document.Chunk, mode ContentMode, maxChars int, query string) *string {
	text := chunk.Reassemble(chunks)
	if mode == ContentFull {
		return &text
	}
	return e.truncate(text, maxChars, query)
}

func (e *Engine) truncate(content string, maxChars int, query string) *string {
	if strings.TrimSpace(query) == "" {
		return doctext.TruncateContent(&content, maxChars, "")
	}
	out := doctext.ExtractRelevantExcerpt(content, query, maxChars, e.config.ContextChars)
	return &out
}

// GetDocument returns the document at path in project with its full content.
// No match is a not-found error; more than one parent document is an
// ambiguous-match error.
func (e *Engine) GetDocument(ctx context.Context, path, project string) (*Document, error) {
	path = strings.TrimSpace(path)
	project = strings.TrimSpace(project)
	if path == "" || project == "" {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "both path and project are required", nil)
	}

	if err := e.index.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	var chunks []document.Chunk
	err := e.index.View(ctx, func(coll store.Collection) error {
		var err error
		chunks, err = coll.Get(ctx, store.GetRequest{Where: store.Where{Project: project, SourcePath: path}})
		return err
	})
	if err != nil {
		return nil, searchFailed(err)
	}

	if len(chunks) == 0 {
		return nil, amerrors.NotFoundError(fmt.Sprintf("no document at %q in project %q", path, project)).
			WithSuggestion("Use search or list_projects to find the exact source path")
	}
	if parents := parentIDs(chunks); len(parents) > 1 {
		return nil, amerrors.AmbiguousMatchError(fmt.Sprintf("%d documents share path %q in project %q", len(parents), path, project)).
			WithDetail("parent_ids", strings.Join(parents, ", "))
	}

	text := chunk.Reassemble(chunks)
	return &Document{ID: chunks[0].ParentID, Metadata: chunks[0].Metadata, Content: &text}, nil
}

// SearchReferenceGuide returns every reference document whose file stem is
// exactly component, each with ExactMatchRelevance. No match is an empty
// result, not an error.
func (e *Engine) SearchReferenceGuide(ctx context.Context, component string, opts ReferenceOptions) ([]Document, error) {
	component = strings.TrimSpace(component)
	if component == "" {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "component name is empty", nil)
	}
	mode, err := e.resolveMode(opts.Content)
	if err != nil {
		return nil, err
	}
	maxChars := opts.MaxContentChars
	if maxChars <= 0 {
		maxChars = e.config.MaxContentChars
	}

	if err := e.index.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	var chunks []document.Chunk
	err = e.index.View(ctx, func(coll store.Collection) error {
		var err error
		chunks, err = coll.Get(ctx, store.GetRequest{Where: store.Where{
			Project:        opts.Project,
			SourcePathStem: component,
			IsReference:    store.Bool(true),
		}})
		return err
	})
	if err != nil {
		return nil, searchFailed(err)
	}

	results := []Document{}
	for _, group := range groupByParent(chunks) {
		doc := Document{
			ID:        group[0].ParentID,
			Metadata:  group[0].Metadata,
			Relevance: float64Ptr(ExactMatchRelevance),
		}
		switch mode {
		case ContentNone:
		case ContentChunk:
			text := firstChunk(group).Content
			doc.Content = &text
		default:
			doc.Content = e.render(group, mode, maxChars, component)
		}
		results = append(results, doc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Project != results[j].Project {
			return results[i].Project < results[j].Project
		}
		return results[i].SourcePath < results[j].SourcePath
	})
	return results, nil
}

// ListProjects returns the distinct project names in the index, sorted.
func (e *Engine) ListProjects(ctx context.Context) ([]string, error) {
	if err := e.index.EnsureIndexed(ctx); err != nil {
		return nil, err
	}

	var projects []string
	err := e.index.View(ctx, func(coll store.Collection) error {
		var err error
		projects, err = index.Projects(ctx, coll)
		return err
	})
	if err != nil {
		return nil, searchFailed(err)
	}
	return projects, nil
}

// groupByParent splits chunks by parent document, in first-seen order.
func groupByParent(chunks []document.Chunk) [][]document.Chunk {
	pos := make(map[string]int)
	var groups [][]document.Chunk
	for _, ch := range chunks {
		i, ok := pos[ch.ParentID]
		if !ok {
			i = len(groups)
			pos[ch.ParentID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], ch)
	}
	return groups
}

func parentIDs(chunks []document.Chunk) []string {
	groups := groupByParent(chunks)
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g[0].ParentID
	}
	return ids
}

// firstChunk returns the chunk with the lowest chunk index.
func firstChunk(chunks []document.Chunk) document.Chunk {
	first := chunks[0]
	for _, ch := range chunks[1:] {
		if ch.ChunkIndex < first.ChunkIndex {
			first = ch
		}
	}
	return first
}

// searchFailed wraps store failures; coded errors and cancellation pass
// through unchanged.
func searchFailed(err error) error {
	if amerrors.IsCancellation(err) {
		return err
	}
	var ae *amerrors.AmanError
	if errors.As(err, &ae) {
		return err
	}
	return amerrors.New(amerrors.ErrCodeSearchFailed, "search failed", err)
}
