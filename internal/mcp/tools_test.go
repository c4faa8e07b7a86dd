package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/async"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/search"
)

func TestSearchTool_PassesOptions(t *testing.T) {
	// Given: a searcher recording its options
	var gotQuery string
	var gotOpts search.SearchOptions
	searcher := &MockSearcher{
		SearchFn: func(_ context.Context, query string, opts search.SearchOptions) ([]search.Document, error) {
			gotQuery, gotOpts = query, opts
			return []search.Document{testDocument("panel", "doc/how_to/layout.md", "Use a Column.", 0.87)}, nil
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: calling search with every parameter
	result, err := srv.CallTool(context.Background(), "search", map[string]any{
		"query":             "layout columns",
		"project":           "panel",
		"content":           "chunk",
		"limit":             3,
		"max_content_chars": 2000,
	})

	// Then: options reach the searcher and the results come back
	require.NoError(t, err)
	assert.Equal(t, "layout columns", gotQuery)
	assert.Equal(t, search.SearchOptions{
		Project:         "panel",
		Content:         search.ContentChunk,
		Limit:           3,
		MaxContentChars: 2000,
	}, gotOpts)

	out, ok := result.(SearchOutput)
	require.True(t, ok, "expected SearchOutput, got %T", result)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "doc/how_to/layout.md", out.Results[0].SourcePath)
}

func TestSearchTool_ContentParameter(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    search.ContentMode
	}{
		{name: "absent uses engine default", content: nil, want: ""},
		{name: "legacy true", content: true, want: search.ContentTruncated},
		{name: "legacy false", content: false, want: search.ContentNone},
		{name: "string true", content: "true", want: search.ContentTruncated},
		{name: "chunk", content: "chunk", want: search.ContentChunk},
		{name: "truncated", content: "truncated", want: search.ContentTruncated},
		{name: "full", content: "full", want: search.ContentFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got search.ContentMode
			searcher := &MockSearcher{
				SearchFn: func(_ context.Context, _ string, opts search.SearchOptions) ([]search.Document, error) {
					got = opts.Content
					return nil, nil
				},
			}
			srv := newTestServer(t, searcher, nil)

			args := map[string]any{"query": "widgets"}
			if tt.content != nil {
				args["content"] = tt.content
			}
			_, err := srv.CallTool(context.Background(), "search", args)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchTool_InvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		content any
	}{
		{name: "unknown mode", content: "everything"},
		{name: "number", content: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			searcher := &MockSearcher{
				SearchFn: func(context.Context, string, search.SearchOptions) ([]search.Document, error) {
					called = true
					return nil, nil
				},
			}
			srv := newTestServer(t, searcher, nil)

			_, err := srv.CallTool(context.Background(), "search", map[string]any{
				"query":   "widgets",
				"content": tt.content,
			})

			require.Error(t, err)
			var mcpErr *MCPError
			require.True(t, errors.As(err, &mcpErr))
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
			assert.Equal(t, amerrors.ErrCodeInvalidContentMode, mcpErr.Data["error_code"])
			assert.False(t, called)
		})
	}
}

func TestSearchTool_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing query", args: nil},
		{name: "empty query", args: map[string]any{"query": ""}},
		{name: "whitespace query", args: map[string]any{"query": "   \t"}},
		{name: "negative limit", args: map[string]any{"query": "layout", "limit": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, nil)

			_, err := srv.CallTool(context.Background(), "search", tt.args)

			require.Error(t, err)
			var mcpErr *MCPError
			require.True(t, errors.As(err, &mcpErr))
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		})
	}
}

func TestSearchTool_NilResults_ReturnsEmptyList(t *testing.T) {
	// Given: a searcher returning nil
	searcher := &MockSearcher{
		SearchFn: func(context.Context, string, search.SearchOptions) ([]search.Document, error) {
			return nil, nil
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: searching
	result, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "nothing"})

	// Then: an empty, non-nil list
	require.NoError(t, err)
	out := result.(SearchOutput)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestSearchTool_SearcherError_Mapped(t *testing.T) {
	// Given: the index cannot be built
	searcher := &MockSearcher{
		SearchFn: func(context.Context, string, search.SearchOptions) ([]search.Document, error) {
			return nil, amerrors.New(amerrors.ErrCodeIndexFailed, "no documents found", nil)
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: searching
	_, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "layout"})

	// Then: mapped to index unavailable
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeIndexUnavailable, mcpErr.Code)
}

func TestSearchTool_CancelledContext(t *testing.T) {
	// Given: a searcher honouring cancellation
	searcher := &MockSearcher{
		SearchFn: func(ctx context.Context, _ string, _ search.SearchOptions) ([]search.Document, error) {
			return nil, ctx.Err()
		},
	}
	srv := newTestServer(t, searcher, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: searching with a cancelled context
	_, err := srv.CallTool(ctx, "search", map[string]any{"query": "layout"})

	// Then: reported as canceled
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeTimeout, mcpErr.Code)
}

func TestGetDocumentTool(t *testing.T) {
	// Given: a searcher holding one document
	doc := testDocument("panel", "doc/index.md", "# Panel\n\nFull text.", 0)
	doc.Relevance = nil
	searcher := &MockSearcher{
		GetDocumentFn: func(_ context.Context, path, project string) (*search.Document, error) {
			if path == "doc/index.md" && project == "panel" {
				return &doc, nil
			}
			return nil, amerrors.NotFoundError("no document")
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: fetching it
	result, err := srv.CallTool(context.Background(), "get_document", map[string]any{
		"path":    "doc/index.md",
		"project": "panel",
	})

	// Then: the full document is returned
	require.NoError(t, err)
	got, ok := result.(*search.Document)
	require.True(t, ok, "expected *search.Document, got %T", result)
	require.NotNil(t, got.Content)
	assert.Equal(t, "# Panel\n\nFull text.", *got.Content)
	assert.Nil(t, got.Relevance)
}

func TestGetDocumentTool_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		err      error
		wantCode int
	}{
		{
			name:     "missing project",
			args:     map[string]any{"path": "doc/index.md"},
			wantCode: ErrCodeInvalidParams,
		},
		{
			name:     "missing path",
			args:     map[string]any{"project": "panel"},
			wantCode: ErrCodeInvalidParams,
		},
		{
			name:     "not found",
			args:     map[string]any{"path": "doc/missing.md", "project": "panel"},
			err:      amerrors.NotFoundError("no document"),
			wantCode: ErrCodeDocumentNotFound,
		},
		{
			name:     "ambiguous",
			args:     map[string]any{"path": "doc/index.md", "project": "panel"},
			err:      amerrors.AmbiguousMatchError("2 documents share path"),
			wantCode: ErrCodeAmbiguousMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &MockSearcher{
				GetDocumentFn: func(context.Context, string, string) (*search.Document, error) {
					return nil, tt.err
				},
			}
			srv := newTestServer(t, searcher, nil)

			_, err := srv.CallTool(context.Background(), "get_document", tt.args)

			require.Error(t, err)
			var mcpErr *MCPError
			require.True(t, errors.As(err, &mcpErr))
			assert.Equal(t, tt.wantCode, mcpErr.Code)
		})
	}
}

func TestGetReferenceGuideTool(t *testing.T) {
	// Given: a searcher recording the component and options
	var gotComponent string
	var gotOpts search.ReferenceOptions
	ref := testDocument("panel", "examples/reference/widgets/Button.ipynb", "# Button", search.ExactMatchRelevance)
	ref.IsReference = true
	searcher := &MockSearcher{
		ReferenceFn: func(_ context.Context, component string, opts search.ReferenceOptions) ([]search.Document, error) {
			gotComponent, gotOpts = component, opts
			return []search.Document{ref}, nil
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: looking up Button in full
	result, err := srv.CallTool(context.Background(), "get_reference_guide", map[string]any{
		"component": "Button",
		"project":   "panel",
		"content":   "full",
	})

	// Then: the lookup is exact and the page is returned
	require.NoError(t, err)
	assert.Equal(t, "Button", gotComponent)
	assert.Equal(t, search.ReferenceOptions{Project: "panel", Content: search.ContentFull}, gotOpts)
	out := result.(ReferenceGuideOutput)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].IsReference)
	assert.Equal(t, search.ExactMatchRelevance, *out.Results[0].Relevance)
}

func TestGetReferenceGuideTool_NoMatchIsEmpty(t *testing.T) {
	srv := newTestServer(t, &MockSearcher{
		ReferenceFn: func(context.Context, string, search.ReferenceOptions) ([]search.Document, error) {
			return nil, nil
		},
	}, nil)

	result, err := srv.CallTool(context.Background(), "get_reference_guide", map[string]any{"component": "Slider"})

	require.NoError(t, err)
	out := result.(ReferenceGuideOutput)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestGetReferenceGuideTool_MissingComponent(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	_, err := srv.CallTool(context.Background(), "get_reference_guide", map[string]any{"project": "panel"})

	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestListProjectsTool(t *testing.T) {
	srv := newTestServer(t, &MockSearcher{
		ListProjectsFn: func(context.Context) ([]string, error) {
			return []string{"holoviews", "hvplot", "panel"}, nil
		},
	}, nil)

	result, err := srv.CallTool(context.Background(), "list_projects", nil)

	require.NoError(t, err)
	assert.Equal(t, ListProjectsOutput{Projects: []string{"holoviews", "hvplot", "panel"}}, result)
}

func TestUpdateIndexTool(t *testing.T) {
	// Given: an indexer that rebuilds two projects
	indexer := &MockIndexer{
		IndexFn: func(context.Context) (*index.Summary, error) {
			return &index.Summary{
				RunID:     "run-1",
				Documents: 3,
				Chunks:    7,
				Projects: map[string]index.ProjectSummary{
					"panel":  {Documents: 2, Reference: 1, Regular: 1, Chunks: 5},
					"hvplot": {Documents: 1, Regular: 1, Chunks: 2},
				},
				Duration: 1500 * time.Millisecond,
			}, nil
		},
	}
	srv := newTestServer(t, nil, indexer)

	// When: updating the index
	result, err := srv.CallTool(context.Background(), "update_index", nil)

	// Then: the summary is reported
	require.NoError(t, err)
	out := result.(UpdateIndexOutput)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 3, out.Documents)
	assert.Equal(t, 7, out.Chunks)
	assert.Equal(t, int64(1500), out.DurationMS)
	assert.Equal(t, 1, out.Projects["panel"].Reference)
	assert.Equal(t, "Indexed 3 documents (7 chunks) across 2 projects", out.Message)
}

func TestUpdateIndexTool_Failure(t *testing.T) {
	// Given: a rebuild that finds nothing to index
	indexer := &MockIndexer{
		IndexFn: func(context.Context) (*index.Summary, error) {
			return nil, amerrors.New(amerrors.ErrCodeIndexFailed, "no documents found", nil).
				WithSuggestion("Check the repositories in the config file")
		},
	}
	srv := newTestServer(t, nil, indexer)

	// When: updating the index
	_, err := srv.CallTool(context.Background(), "update_index", nil)

	// Then: the failure and its suggestion reach the client
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeIndexUnavailable, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "Check the repositories")
}

func TestIndexStatusTool(t *testing.T) {
	// Given: a populated index served by the static embedder
	indexer := &MockIndexer{
		StatusFn: func(context.Context) (*index.Status, error) {
			return &index.Status{
				Indexed:     true,
				Chunks:      42,
				Projects:    []string{"hvplot", "panel"},
				StoreDir:    "/data/chroma",
				HasBackup:   true,
				LastRebuild: &index.Summary{RunID: "run-9"},
			}, nil
		},
	}
	srv := newTestServer(t, nil, indexer)

	// When: asking for the status
	result, err := srv.CallTool(context.Background(), "index_status", nil)

	// Then: index state and embedder capability are reported
	require.NoError(t, err)
	out, ok := result.(*IndexStatusOutput)
	require.True(t, ok, "expected *IndexStatusOutput, got %T", result)
	assert.True(t, out.Indexed)
	assert.Equal(t, 42, out.Chunks)
	assert.Equal(t, []string{"hvplot", "panel"}, out.Projects)
	assert.Equal(t, "/data/chroma", out.StoreDir)
	assert.True(t, out.HasBackup)
	assert.Equal(t, "run-9", out.LastRun)
	assert.Equal(t, "static", out.Embeddings.ActualProvider)
	assert.Equal(t, "ready", out.Embeddings.Status)
	assert.True(t, out.Embeddings.IsFallbackActive)
	assert.Equal(t, "low", out.Embeddings.SemanticQuality)
	assert.Equal(t, 256, out.Embeddings.Dimensions)
}

func TestIndexStatusTool_NilEmbedder(t *testing.T) {
	srv, err := NewServer(&MockSearcher{}, &MockIndexer{}, nil, nil)
	require.NoError(t, err)

	result, err := srv.CallTool(context.Background(), "index_status", nil)

	require.NoError(t, err)
	out := result.(*IndexStatusOutput)
	assert.Equal(t, "unavailable", out.Embeddings.Status)
	assert.Equal(t, "none", out.Embeddings.ActualProvider)
	assert.Equal(t, "none", out.Embeddings.SemanticQuality)
}

type fixedProgress async.Snapshot

func (p fixedProgress) Snapshot() async.Snapshot { return async.Snapshot(p) }

func TestIndexStatusTool_ReportsRebuildProgress(t *testing.T) {
	// Given: a server whose background rebuild is embedding
	srv := newTestServer(t, nil, nil)
	srv.SetProgress(fixedProgress{
		State:          async.StateBuilding,
		Stage:          async.StageEmbedding,
		RunID:          "run-3",
		ProjectsTotal:  2,
		ProjectsSynced: 2,
	})

	// When: asking for the status
	result, err := srv.CallTool(context.Background(), "index_status", nil)

	// Then: the rebuild snapshot is included
	require.NoError(t, err)
	out := result.(*IndexStatusOutput)
	require.NotNil(t, out.Rebuild)
	assert.Equal(t, async.StateBuilding, out.Rebuild.State)
	assert.Equal(t, async.StageEmbedding, out.Rebuild.Stage)
	assert.Equal(t, "run-3", out.Rebuild.RunID)
}

func TestIndexStatusTool_NoProgressWithoutTracker(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	result, err := srv.CallTool(context.Background(), "index_status", nil)

	require.NoError(t, err)
	assert.Nil(t, result.(*IndexStatusOutput).Rebuild)
}
