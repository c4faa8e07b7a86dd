package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{"-c", "user.name=test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

// newOrigin creates a repository with one commit on main and returns its
// file:// URL, directory and commit hash.
func newOrigin(t *testing.T) (string, string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "origin")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "doc"), 0o755))
	git(t, dir, "init", "-q")
	git(t, dir, "checkout", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc", "index.md"), []byte("# hvPlot\n"), 0o644))
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "initial")
	git(t, dir, "tag", "v1.0")
	return "file://" + dir, dir, git(t, dir, "rev-parse", "HEAD")
}

func TestRef_Name(t *testing.T) {
	assert.Equal(t, "main", Ref{}.Name())
	assert.Equal(t, "dev", Ref{Branch: "dev", Tag: "v1"}.Name())
	assert.Equal(t, "v1", Ref{Tag: "v1"}.Name())
	assert.Equal(t, "abc123", Ref{Commit: "abc123"}.Name())
}

func TestGitCLI_CloneThenUpdate(t *testing.T) {
	requireGit(t)
	url, origin, _ := newOrigin(t)
	dest := filepath.Join(t.TempDir(), "repos", "hvplot")
	g := NewGitCLI()
	ctx := context.Background()

	// Given: a fresh clone of main
	path, err := g.CloneOrUpdate(ctx, url, Ref{Branch: "main"}, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)
	assert.FileExists(t, filepath.Join(dest, "doc", "index.md"))

	// When: origin gets a new commit and we update
	require.NoError(t, os.WriteFile(filepath.Join(origin, "doc", "new.md"), []byte("# New\n"), 0o644))
	git(t, origin, "add", ".")
	git(t, origin, "commit", "-q", "-m", "second")

	_, err = g.CloneOrUpdate(ctx, url, Ref{Branch: "main"}, dest)

	// Then: the checkout is fast-forwarded
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "doc", "new.md"))
}

func TestGitCLI_CloneTagAndCommit(t *testing.T) {
	requireGit(t)
	url, _, head := newOrigin(t)
	g := NewGitCLI()
	ctx := context.Background()

	tagDest := filepath.Join(t.TempDir(), "tagged")
	_, err := g.CloneOrUpdate(ctx, url, Ref{Tag: "v1.0"}, tagDest)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(tagDest, "doc", "index.md"))

	// pinned refs are reused without touching the network
	_, err = g.CloneOrUpdate(ctx, url, Ref{Tag: "v1.0"}, tagDest)
	require.NoError(t, err)

	commitDest := filepath.Join(t.TempDir(), "pinned")
	_, err = g.CloneOrUpdate(ctx, url, Ref{Commit: head}, commitDest)
	require.NoError(t, err)
	assert.Equal(t, head, git(t, commitDest, "rev-parse", "HEAD"))
}

func TestGitCLI_Failures(t *testing.T) {
	requireGit(t)
	g := NewGitCLI()
	ctx := context.Background()

	t.Run("missing remote", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "nope")
		_, err := g.CloneOrUpdate(ctx, "file://"+filepath.Join(t.TempDir(), "missing"), Ref{}, dest)

		require.Error(t, err)
		assert.Equal(t, amerrors.ErrCodeCloneFailed, amerrors.GetCode(err))
		assert.True(t, amerrors.IsRetryable(err))
		assert.NoDirExists(t, dest, "partial clone is removed")
	})

	t.Run("destination is not a checkout", func(t *testing.T) {
		dest := t.TempDir()
		_, err := g.CloneOrUpdate(ctx, "file:///unused", Ref{}, dest)

		var aerr *amerrors.AmanError
		require.ErrorAs(t, err, &aerr)
		assert.Contains(t, aerr.Cause.Error(), "not a git checkout")
	})

	t.Run("cancelled", func(t *testing.T) {
		url, _, _ := newOrigin(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := g.CloneOrUpdate(cctx, url, Ref{}, filepath.Join(t.TempDir(), "c"))

		require.Error(t, err)
		assert.True(t, amerrors.IsCancellation(err))
	})
}
