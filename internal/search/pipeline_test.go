package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/ingest"
	"github.com/Aman-CERP/amandocs/internal/logging"
)

// checkoutSource extracts documents from local checkouts without git.
type checkoutSource struct {
	ingester *ingest.Ingester
	repos    map[string]config.RepositoryConfig
	paths    map[string]string
}

func (s *checkoutSource) Documents(ctx context.Context) ([]*document.Document, error) {
	var all []*document.Document
	for name, repo := range s.repos {
		docs, err := s.ingester.Extract(ctx, name, repo, s.paths[name])
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
	}
	if err := ingest.ValidateUniqueIDs(all); err != nil {
		return nil, err
	}
	return all, nil
}

func writeCheckout(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestPipeline_IngestIndexSearch(t *testing.T) {
	// Given: two checkouts with regular and reference pages
	intro := strings.Repeat("Panel builds dashboards in Python. ", 4)
	long := strings.Repeat("Templates arrange a sidebar, a header and a main area. ", 5)
	panel := writeCheckout(t, map[string]string{
		"doc/index.md":                       "# Panel\n\n" + intro + "\n\n## Templates\n\n" + long,
		"doc/how_to/styling.md":              "# Styling\n\nUse CSS stylesheets to style components.",
		"doc/reference/widgets/Button.md":    "# Button\n\nThe Button widget triggers a callback when clicked.",
		"doc/reference/widgets/TextInput.md": "# TextInput\n\nThe TextInput widget accepts a line of text.",
	})
	hvplot := writeCheckout(t, map[string]string{
		"doc/index.md":             "# hvPlot\n\nhvPlot offers a plot API for pandas DataFrames.",
		"doc/reference/Scatter.md": "# Scatter\n\nScatter plots show points.",
	})

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.StoreDir = filepath.Join(cfg.DataDir, "chroma")
	repos := map[string]config.RepositoryConfig{
		"panel":  {URL: "https://github.com/holoviz/panel.git", BaseURL: "https://panel.holoviz.org"},
		"hvplot": {URL: "https://github.com/holoviz/hvplot.git", BaseURL: "https://hvplot.holoviz.org"},
	}
	cfg.Docs.Repositories = repos

	ingester, err := ingest.New(cfg, ingest.WithReporter(logging.Discard))
	require.NoError(t, err)
	src := &checkoutSource{
		ingester: ingester,
		repos:    repos,
		paths:    map[string]string{"panel": panel, "hvplot": hvplot},
	}

	embedder := embed.NewStaticEmbedder()
	mgr, err := index.New(context.Background(), cfg, src, embedder, index.WithReporter(logging.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	e, err := NewEngine(mgr, embedder, ConfigFromSearch(cfg.Search))
	require.NoError(t, err)
	ctx := context.Background()

	// When: the first query arrives on an empty index
	docs, err := e.Search(ctx, "sidebar templates", SearchOptions{Limit: 10, Content: ContentFull})

	// Then: the index was populated on demand and results obey the contract
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.True(t, mgr.IsIndexed(ctx))
	seen := map[string]bool{}
	for i, d := range docs {
		assert.False(t, seen[d.SourcePath], "duplicate source path %s", d.SourcePath)
		seen[d.SourcePath] = true
		if i > 0 {
			assert.GreaterOrEqual(t, *docs[i-1].Relevance, *d.Relevance)
		}
	}

	projects, err := e.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hvplot", "panel"}, projects)

	page, err := e.GetDocument(ctx, "doc/index.md", "panel")
	require.NoError(t, err)
	require.NotNil(t, page.Content)
	assert.Equal(t, "Panel", page.Title)
	assert.Contains(t, *page.Content, "## Templates")
	assert.True(t, strings.HasPrefix(*page.Content, "Panel\n\n# Panel"))
	assert.Equal(t, 1, strings.Count(*page.Content, "Panel\n\n# Panel"))

	refs, err := e.SearchReferenceGuide(ctx, "Button", ReferenceOptions{})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "doc/reference/widgets/Button.md", refs[0].SourcePath)
	assert.True(t, refs[0].IsReference)

	none, err := e.SearchReferenceGuide(ctx, "Slider", ReferenceOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
