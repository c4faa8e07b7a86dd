package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// MockSearcher implements search.Searcher for testing.
type MockSearcher struct {
	SearchFn       func(ctx context.Context, query string, opts search.SearchOptions) ([]search.Document, error)
	GetDocumentFn  func(ctx context.Context, path, project string) (*search.Document, error)
	ReferenceFn    func(ctx context.Context, component string, opts search.ReferenceOptions) ([]search.Document, error)
	ListProjectsFn func(ctx context.Context) ([]string, error)
}

func (m *MockSearcher) Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.Document, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, opts)
	}
	return []search.Document{}, nil
}

func (m *MockSearcher) GetDocument(ctx context.Context, path, project string) (*search.Document, error) {
	if m.GetDocumentFn != nil {
		return m.GetDocumentFn(ctx, path, project)
	}
	return &search.Document{}, nil
}

func (m *MockSearcher) SearchReferenceGuide(ctx context.Context, component string, opts search.ReferenceOptions) ([]search.Document, error) {
	if m.ReferenceFn != nil {
		return m.ReferenceFn(ctx, component, opts)
	}
	return []search.Document{}, nil
}

func (m *MockSearcher) ListProjects(ctx context.Context) ([]string, error) {
	if m.ListProjectsFn != nil {
		return m.ListProjectsFn(ctx)
	}
	return []string{}, nil
}

// Ensure MockSearcher implements search.Searcher
var _ search.Searcher = (*MockSearcher)(nil)

// MockIndexer implements Indexer for testing.
type MockIndexer struct {
	IndexFn  func(ctx context.Context) (*index.Summary, error)
	StatusFn func(ctx context.Context) (*index.Status, error)
	indexed  bool
}

func (m *MockIndexer) IsIndexed(context.Context) bool { return m.indexed }

func (m *MockIndexer) IndexDocumentation(ctx context.Context) (*index.Summary, error) {
	if m.IndexFn != nil {
		return m.IndexFn(ctx)
	}
	return &index.Summary{}, nil
}

func (m *MockIndexer) Status(ctx context.Context) (*index.Status, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	return &index.Status{Projects: []string{}}, nil
}

var _ Indexer = (*MockIndexer)(nil)

func newTestServer(t *testing.T, searcher search.Searcher, indexer Indexer) *Server {
	t.Helper()
	if searcher == nil {
		searcher = &MockSearcher{}
	}
	if indexer == nil {
		indexer = &MockIndexer{}
	}
	srv, err := NewServer(searcher, indexer, embed.NewStaticEmbedder(), config.NewConfig())
	require.NoError(t, err)
	return srv
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testDocument(project, path, content string, relevance float64) search.Document {
	return search.Document{
		ID: project + "___" + path,
		Metadata: document.Metadata{
			Title:       path,
			URL:         "https://" + project + ".holoviz.org/" + path,
			Project:     project,
			SourcePath:  path,
			SourceURL:   "https://github.com/holoviz/" + project + "/blob/main/" + path,
			IsReference: false,
		},
		Content:   strPtr(content),
		Relevance: floatPtr(relevance),
	}
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	tests := []struct {
		name     string
		searcher search.Searcher
		indexer  Indexer
		wantErr  string
	}{
		{name: "nil searcher", indexer: &MockIndexer{}, wantErr: "searcher is required"},
		{name: "nil indexer", searcher: &MockSearcher{}, wantErr: "indexer is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewServer(tt.searcher, tt.indexer, nil, nil)
			require.Error(t, err)
			assert.Nil(t, srv)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewServer_NilConfigAndEmbedder(t *testing.T) {
	// Given: no config and no embedder
	// When: creating the server
	srv, err := NewServer(&MockSearcher{}, &MockIndexer{}, nil, nil)

	// Then: defaults are used and the server is usable
	require.NoError(t, err)
	require.NotNil(t, srv.MCPServer())
	name, ver := srv.Info()
	assert.Equal(t, "amandocs", name)
	assert.NotEmpty(t, ver)
}

func TestListTools_ReturnsAllTools(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tools := srv.ListTools()

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, []string{
		"search", "get_document", "get_reference_guide",
		"list_projects", "update_index", "index_status",
		"get_best_practices", "list_best_practices",
	}, names)
}

func TestListTools_ReturnsCopy(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tools := srv.ListTools()
	tools[0].Name = "changed"

	assert.Equal(t, "search", srv.ListTools()[0].Name)
}

func TestCallTool_UnknownTool(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	_, err := srv.CallTool(context.Background(), "hello_world", nil)

	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "hello_world")
}

func TestCallTool_WrongArgumentType(t *testing.T) {
	// Given: a limit passed as a string
	srv := newTestServer(t, nil, nil)

	// When: calling search
	_, err := srv.CallTool(context.Background(), "search", map[string]any{
		"query": "layout",
		"limit": "ten",
	})

	// Then: invalid params, not a panic
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServer_ConcurrentToolCalls_NoRace(t *testing.T) {
	// Given: a server whose searcher is safe for concurrent use
	searcher := &MockSearcher{
		SearchFn: func(_ context.Context, query string, _ search.SearchOptions) ([]search.Document, error) {
			return []search.Document{testDocument("panel", "doc/index.md", query, 0.9)}, nil
		},
		ListProjectsFn: func(context.Context) ([]string, error) {
			return []string{"hvplot", "panel"}, nil
		},
	}
	srv := newTestServer(t, searcher, nil)

	// When: many tool calls run at once
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := srv.CallTool(context.Background(), "search", map[string]any{"query": "layout"})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := srv.CallTool(context.Background(), "list_projects", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// Then: all succeed
	for err := range errs {
		assert.NoError(t, err)
	}
}
