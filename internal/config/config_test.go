package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/configs"
	"github.com/Aman-CERP/amandocs/internal/doctext"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// isolate points HOME at a temp dir and clears AMANDOCS_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"AMANDOCS_DATA_DIR", "AMANDOCS_REPOS_DIR", "AMANDOCS_EMBEDDER",
		"AMANDOCS_OLLAMA_HOST", "AMANDOCS_LOG_LEVEL", "AMANDOCS_INGEST_WORKERS", "AMANDOCS_TELEMETRY"} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultIndexPatterns, cfg.Docs.IndexPatterns)
	assert.Contains(t, cfg.Docs.IndexPatterns, "**/*.ipynb")
	assert.Equal(t, int64(1024*1024), cfg.Docs.MaxFileSize)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 10000, cfg.Search.MaxContentChars)
	assert.Equal(t, 100, cfg.Search.MinChunkChars)
	assert.Equal(t, 500, cfg.Search.ContextChars)
	assert.Equal(t, ProviderStatic, cfg.Embeddings.Provider)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)
	assert.Equal(t, 1000, cfg.Embeddings.CacheSize)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Empty(t, cfg.Docs.Repositories)
}

func TestLoad_NoUserConfigUsesCatalogue(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".amandocs"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".amandocs", "repos"), cfg.ReposDir)
	assert.Equal(t, filepath.Join(home, ".amandocs", "chroma"), cfg.StoreDir)
	assert.Equal(t, filepath.Join(home, ".amandocs", "chroma.bak"), cfg.BackupDir())
	assert.Equal(t, filepath.Join(home, ".amandocs", "best-practices"), cfg.BestPracticesDir())

	require.Contains(t, cfg.Docs.Repositories, "panel")
	panel := cfg.Docs.Repositories["panel"]
	assert.Equal(t, "https://panel.holoviz.org", panel.BaseURL)
	assert.Equal(t, Folders{{Name: "doc"}, {Name: "examples/reference", URLPath: "/reference"}}, panel.Folders)

	tr, err := cfg.Docs.Repositories["datashader"].Transform()
	require.NoError(t, err)
	assert.Equal(t, doctext.TransformDatashader, tr)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	home := isolate(t)
	data := filepath.Join(home, "data")
	path := writeFile(t, filepath.Join(home, "cfg.yaml"), `
data_dir: `+data+`
docs:
  repositories:
    panel:
      url: https://github.com/me/panel-fork.git
      base_url: https://fork.example.org
      tag: v1.5.0
    mylib:
      url: https://dev.azure.com/org/proj/_git/mylib
      base_url: https://mylib.example.org/
      folders: [docs, guides]
  index_patterns: ["**/*.md"]
search:
  max_results: 8
embeddings:
  provider: ollama
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, data, cfg.DataDir)
	assert.Equal(t, filepath.Join(data, "chroma"), cfg.StoreDir)
	assert.Equal(t, filepath.Join(data, "repos"), cfg.ReposDir)

	// panel replaced whole, other catalogue entries kept
	panel := cfg.Docs.Repositories["panel"]
	assert.Equal(t, "v1.5.0", panel.Tag)
	assert.Empty(t, panel.Folders)
	assert.Equal(t, Folders{{Name: "doc"}}, panel.EffectiveFolders())
	assert.Contains(t, cfg.Docs.Repositories, "hvplot")
	assert.Equal(t, Folders{{Name: "docs"}, {Name: "guides"}}, cfg.Docs.Repositories["mylib"].Folders)

	assert.Equal(t, []string{"**/*.md"}, cfg.Docs.IndexPatterns)
	assert.Equal(t, 8, cfg.Search.MaxResults)
	assert.Equal(t, 10000, cfg.Search.MaxContentChars)
	assert.Equal(t, ProviderOllama, cfg.Embeddings.Provider)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeConfigNotFound, amerrors.GetCode(err))
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "bad.yaml"), "docs: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeConfigInvalid, amerrors.GetCode(err))
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := isolate(t)
	t.Setenv("AMANDOCS_DATA_DIR", filepath.Join(home, "env-data"))
	t.Setenv("AMANDOCS_REPOS_DIR", filepath.Join(home, "env-repos"))
	t.Setenv("AMANDOCS_EMBEDDER", "ollama")
	t.Setenv("AMANDOCS_OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("AMANDOCS_LOG_LEVEL", "debug")
	t.Setenv("AMANDOCS_INGEST_WORKERS", "2")
	t.Setenv("AMANDOCS_TELEMETRY", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "env-data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, "env-repos"), cfg.ReposDir)
	assert.Equal(t, filepath.Join(home, "env-data", "chroma"), cfg.StoreDir)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "http://gpu-box:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Ingest.Workers)
	assert.True(t, cfg.Telemetry.Disabled)
	assert.Equal(t, filepath.Join(home, "env-data", "metrics.db"), cfg.MetricsPath())
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "cfg.yaml"), "data_dir: ~/docs-data\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "docs-data"), cfg.DataDir)
}

func TestUserConfigTemplate_IsValid(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "template.yaml"), configs.UserConfigTemplate)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Docs.Repositories, "panel")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.Docs.Repositories["p"] = RepositoryConfig{URL: "https://github.com/o/p.git", BaseURL: "https://p.org"}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing url", func(c *Config) {
			c.Docs.Repositories["p"] = RepositoryConfig{BaseURL: "https://p.org"}
		}, "docs.repositories.p.url"},
		{"missing base_url", func(c *Config) {
			c.Docs.Repositories["p"] = RepositoryConfig{URL: "https://x/p.git"}
		}, "base_url"},
		{"two refs", func(c *Config) {
			c.Docs.Repositories["p"] = RepositoryConfig{URL: "u", BaseURL: "b", Branch: "main", Tag: "v1"}
		}, "at most one"},
		{"unknown transform", func(c *Config) {
			c.Docs.Repositories["p"] = RepositoryConfig{URL: "u", BaseURL: "b", URLTransform: "sphinx"}
		}, "url_transform"},
		{"escaping folder", func(c *Config) {
			c.Docs.Repositories["p"] = RepositoryConfig{URL: "u", BaseURL: "b", Folders: Folders{{Name: "../etc"}}}
		}, "invalid folder"},
		{"project with slash", func(c *Config) {
			c.Docs.Repositories["a/b"] = RepositoryConfig{URL: "u", BaseURL: "b"}
		}, "plain directory name"},
		{"no patterns", func(c *Config) { c.Docs.IndexPatterns = nil }, "index_patterns"},
		{"zero results", func(c *Config) { c.Search.MaxResults = -1 }, "search.max_results"},
		{"batch too big", func(c *Config) { c.Embeddings.BatchSize = 1000 }, "batch_size"},
		{"bad provider", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"bad level", func(c *Config) { c.Server.LogLevel = "loud" }, "server.log_level"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, amerrors.CategoryConfig, amerrors.GetCategory(err))
		})
	}
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	cfg := NewConfig()
	cfg.Docs.Repositories["p"] = RepositoryConfig{
		URL:     "https://github.com/o/p.git",
		BaseURL: "https://p.org",
		Folders: Folders{{Name: "doc"}, {Name: "examples", URLPath: "/gallery"}},
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg.Docs.Repositories["p"].Folders, back.Docs.Repositories["p"].Folders)
}
