package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/glob"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func paths(files []*FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScanner_Collect(t *testing.T) {
	// Given: a checkout with docs, examples and noise
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md":                               "# Root",
		"doc/index.md":                            "# Index",
		"doc/how_to/guide.rst":                    "Guide",
		"doc/notes.txt":                           "notes",
		"doc/conf.py":                             "x = 1",
		"doc/_build/html/index.md":                "# built",
		"doc/node_modules/pkg/README.md":          "# dep",
		"examples/reference/widgets/Button.ipynb": "{}",
		"examples/binary.md":                      "a\x00b",
	})

	opts := &ScanOptions{
		RootDir:         root,
		Folders:         []string{"doc", "examples/reference", "examples", "missing"},
		IncludePatterns: mustSet(t, "**/*.md", "**/*.rst", "**/*.txt", "**/*.ipynb"),
		ExcludePatterns: mustSet(t, "**/node_modules/**", "**/_build/**"),
	}

	// When
	files, err := New().Collect(context.Background(), opts)

	// Then: folder order is kept, duplicates and excluded files are gone
	require.NoError(t, err)
	assert.Equal(t, []string{
		"doc/how_to/guide.rst",
		"doc/index.md",
		"doc/notes.txt",
		"examples/reference/widgets/Button.ipynb",
	}, paths(files))
	assert.Equal(t, filepath.Join(root, "doc", "index.md"), files[1].AbsPath)
	assert.EqualValues(t, len("# Index"), files[1].Size)
}

func TestScanner_IncludePatternsAreFolderRelative(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"doc/top.md":        "# Top",
		"doc/nested/sub.md": "# Sub",
	})

	files, err := New().Collect(context.Background(), &ScanOptions{
		RootDir:         root,
		Folders:         []string{"doc"},
		IncludePatterns: mustSet(t, "*.md"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"doc/top.md"}, paths(files))
}

func TestScanner_SkipsLargeFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"big.md":   strings.Repeat("x", 200),
		"small.md": "# ok",
	})

	files, err := New().Collect(context.Background(), &ScanOptions{RootDir: root, MaxFileSize: 100})

	require.NoError(t, err)
	assert.Equal(t, []string{"small.md"}, paths(files))
}

func TestScanner_RootErrors(t *testing.T) {
	_, err := New().Scan(context.Background(), &ScanOptions{RootDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New().Scan(context.Background(), &ScanOptions{RootDir: file})
	assert.ErrorContains(t, err, "not a directory")
}

func TestScanner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "# A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Collect(ctx, &ScanOptions{RootDir: root})
	assert.ErrorIs(t, err, context.Canceled)
}

func mustSet(t *testing.T, patterns ...string) glob.Set {
	t.Helper()
	set, err := glob.CompileAll(patterns)
	require.NoError(t, err)
	return set
}
