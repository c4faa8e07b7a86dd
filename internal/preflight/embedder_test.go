package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/document"
	"github.com/Aman-CERP/amandocs/internal/store"
)

func TestChecker_CheckEmbedder_Static(t *testing.T) {
	cfg := config.NewConfig().Embeddings
	cfg.Provider = config.ProviderStatic

	result := New().CheckEmbedder(context.Background(), cfg)

	assert.Equal(t, "embedder", result.Name)
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "static")
	assert.NotEmpty(t, result.Details)
}

func TestChecker_CheckEmbedder_UnreachableOllama(t *testing.T) {
	// Given: an Ollama host that refuses every request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.NewConfig().Embeddings
	cfg.Provider = config.ProviderOllama
	cfg.OllamaHost = srv.URL

	// When: checking the embedder
	result := New().CheckEmbedder(context.Background(), cfg)

	// Then: the check fails critically with the suggestion attached
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
	assert.Contains(t, result.Details, "ollama pull")
}

func TestChecker_CheckEmbedder_UnknownProvider(t *testing.T) {
	cfg := config.NewConfig().Embeddings
	cfg.Provider = "openai"

	result := New().CheckEmbedder(context.Background(), cfg)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "unknown embeddings provider")
}

func TestChecker_CheckIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("missing store is not built", func(t *testing.T) {
		dir := t.TempDir() + "/chroma"

		result := New().CheckIndex(ctx, dir)

		assert.Equal(t, StatusWarn, result.Status)
		assert.Equal(t, "not built", result.Message)
		assert.NoDirExists(t, dir)
	})

	t.Run("empty store", func(t *testing.T) {
		dir := t.TempDir()
		coll, err := store.Open(ctx, dir)
		require.NoError(t, err)
		require.NoError(t, coll.Close())

		result := New().CheckIndex(ctx, dir)

		assert.Equal(t, StatusWarn, result.Status)
		assert.Equal(t, "empty", result.Message)
	})

	t.Run("populated store", func(t *testing.T) {
		dir := t.TempDir()
		coll, err := store.Open(ctx, dir)
		require.NoError(t, err)
		require.NoError(t, coll.Add(ctx, []store.Entry{{
			Chunk: document.Chunk{
				ID:       "panel___doc/index.md___0",
				ParentID: "panel___doc/index.md",
				Content:  "Panel builds dashboards.",
				Metadata: document.Metadata{Project: "panel", SourcePath: "doc/index.md"},
			},
			Embedding: []float32{1, 0, 0},
		}}))
		require.NoError(t, coll.Close())

		result := New().CheckIndex(ctx, dir)

		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "1 chunks", result.Message)
	})
}
