package cmd

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/config"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	base := []string{"-c", "user.name=test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// newDocsOrigin creates a git repository holding files on branch main and
// returns its file:// URL.
func newDocsOrigin(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "origin")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	git(t, dir, "init", "-q")
	git(t, dir, "checkout", "-q", "-b", "main")
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "docs")
	return "file://" + dir
}

// panelConfig points a test configuration at a local panel repository.
func panelConfig(t *testing.T) *config.Config {
	t.Helper()
	intro := strings.Repeat("Panel builds dashboards in Python. ", 4)
	url := newDocsOrigin(t, map[string]string{
		"doc/index.md":                    "# Panel\n\n" + intro,
		"doc/how_to/styling.md":           "# Styling\n\nUse CSS stylesheets to style components.",
		"doc/reference/widgets/Button.md": "# Button\n\nThe Button widget triggers a callback when clicked.",
		"README.md":                       "# Not indexed\n\nOutside the doc folder.",
	})

	cfg := testConfig(t)
	cfg.Docs.Repositories = map[string]config.RepositoryConfig{
		"panel": {URL: url, Branch: "main", BaseURL: "https://panel.holoviz.org"},
	}
	return cfg
}

func TestIndexCmd_NoRepositories(t *testing.T) {
	// Given: a configuration with no documentation sources
	useConfig(t, testConfig(t))

	// When: indexing
	_, err := execute(t, "index")

	// Then: the rebuild fails without documents
	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeIndexFailed, amerrors.GetCode(err))
}

func TestCLI_IndexThenQuery(t *testing.T) {
	requireGit(t)

	// Given: one local documentation repository
	useConfig(t, panelConfig(t))

	// When: building the index
	out, err := execute(t, "index")

	// Then: the summary counts the three documents under doc/
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 documents")
	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "panel")

	t.Run("status", func(t *testing.T) {
		out, err := execute(t, "status", "--format", "json")
		require.NoError(t, err)

		var report struct {
			Indexed    bool     `json:"indexed"`
			Chunks     int      `json:"chunks"`
			Projects   []string `json:"projects"`
			HasBackup  bool     `json:"has_backup"`
			Configured []string `json:"configured_projects"`
			Embeddings struct {
				Provider string `json:"provider"`
			} `json:"embeddings"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.True(t, report.Indexed)
		assert.Positive(t, report.Chunks)
		assert.Equal(t, []string{"panel"}, report.Projects)
		assert.Equal(t, []string{"panel"}, report.Configured)
		assert.Equal(t, "static", report.Embeddings.Provider)
	})

	t.Run("projects", func(t *testing.T) {
		out, err := execute(t, "projects")
		require.NoError(t, err)
		assert.Equal(t, "## Indexed Projects\n\n- panel\n", out)
	})

	t.Run("search", func(t *testing.T) {
		out, err := execute(t, "search", "CSS", "stylesheets", "--format", "json", "--content", "full")
		require.NoError(t, err)

		var docs []struct {
			Project    string  `json:"project"`
			SourcePath string  `json:"source_path"`
			Content    *string `json:"content"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &docs))
		require.NotEmpty(t, docs)
		seen := map[string]bool{}
		for _, d := range docs {
			assert.Equal(t, "panel", d.Project)
			assert.False(t, seen[d.SourcePath], "duplicate source path %s", d.SourcePath)
			seen[d.SourcePath] = true
			assert.NotNil(t, d.Content)
		}
	})

	t.Run("search markdown", func(t *testing.T) {
		out, err := execute(t, "search", "dashboards", "--limit", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "## Search Results for \"dashboards\"")
		assert.Contains(t, out, "Found 1 result")
	})

	t.Run("reference", func(t *testing.T) {
		out, err := execute(t, "reference", "Button")
		require.NoError(t, err)
		assert.Contains(t, out, "## Reference Guide for \"Button\"")
		assert.Contains(t, out, "doc/reference/widgets/Button.md")
	})

	t.Run("get", func(t *testing.T) {
		out, err := execute(t, "get", "panel", "doc/how_to/styling.md")
		require.NoError(t, err)
		assert.Contains(t, out, "# Styling")
		assert.Contains(t, out, "Use CSS stylesheets to style components.")
	})

	t.Run("get missing document", func(t *testing.T) {
		_, err := execute(t, "get", "panel", "doc/missing.md")
		require.Error(t, err)
		assert.Equal(t, amerrors.ErrCodeNotFound, amerrors.GetCode(err))
	})
}

func TestCLI_ReindexKeepsBackup(t *testing.T) {
	requireGit(t)
	cfg := panelConfig(t)
	useConfig(t, cfg)

	// Given: an index built once
	_, err := execute(t, "index", "--format", "json")
	require.NoError(t, err)

	// When: rebuilding again
	out, err := execute(t, "index", "--format", "json")
	require.NoError(t, err)

	// Then: the summary is JSON and the previous store was backed up
	var summary index.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 1, summary.Projects["panel"].Reference)
	assert.NotEmpty(t, summary.RunID)
	assert.DirExists(t, cfg.BackupDir())
}
