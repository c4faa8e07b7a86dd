// Package gitrepo clones and updates documentation repositories with the
// git command line.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Ref selects what to check out. At most one field is expected to be set;
// Branch wins over Tag, Tag over Commit. All empty means the remote default.
type Ref struct {
	Branch string
	Tag    string
	Commit string
}

// Name is the ref used in links to the hosted source, defaulting to "main".
func (r Ref) Name() string {
	switch {
	case r.Branch != "":
		return r.Branch
	case r.Tag != "":
		return r.Tag
	case r.Commit != "":
		return r.Commit
	}
	return "main"
}

// pinned refs never move, so an existing checkout is reused as is.
func (r Ref) pinned() bool {
	return r.Branch == "" && (r.Tag != "" || r.Commit != "")
}

// Cloner makes a local checkout of a repository available.
type Cloner interface {
	// CloneOrUpdate clones url into dest, or updates dest when it already
	// holds a checkout, and returns the local path.
	CloneOrUpdate(ctx context.Context, url string, ref Ref, dest string) (string, error)
}

// GitCLI implements Cloner using the git binary.
type GitCLI struct {
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewGitCLI creates a Cloner that runs "git" from PATH.
func NewGitCLI() *GitCLI {
	return &GitCLI{}
}

// CloneOrUpdate clones shallowly (--depth 1) for branches and tags. A commit
// needs the history, so it is cloned fully and then checked out. Existing
// branch checkouts are fast-forwarded with pull --ff-only.
func (g *GitCLI) CloneOrUpdate(ctx context.Context, url string, ref Ref, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		if _, err := os.Stat(filepath.Join(dest, ".git")); err != nil {
			return "", cloneError(url, fmt.Errorf("%s exists but is not a git checkout", dest))
		}
		if ref.pinned() {
			return dest, nil
		}
		if err := g.run(ctx, "", "-C", dest, "pull", "--ff-only"); err != nil {
			return "", cloneError(url, err)
		}
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", amerrors.IOError("failed to create repository directory", err)
	}

	args := []string{"clone"}
	switch {
	case ref.Branch != "":
		args = append(args, "--depth", "1", "--branch", ref.Branch)
	case ref.Tag != "":
		args = append(args, "--depth", "1", "--branch", ref.Tag)
	case ref.Commit != "":
		args = append(args, "--no-checkout")
	default:
		args = append(args, "--depth", "1")
	}
	args = append(args, "--", url, dest)

	if err := g.run(ctx, "", args...); err != nil {
		_ = os.RemoveAll(dest)
		return "", cloneError(url, err)
	}
	if ref.Branch == "" && ref.Tag == "" && ref.Commit != "" {
		if err := g.run(ctx, "", "-C", dest, "checkout", "--detach", ref.Commit); err != nil {
			_ = os.RemoveAll(dest)
			return "", cloneError(url, err)
		}
	}
	return dest, nil
}

func (g *GitCLI) run(ctx context.Context, dir string, args ...string) error {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	// Never prompt for credentials; stdin is the MCP transport.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return nil
}

func cloneError(url string, err error) error {
	if amerrors.IsCancellation(err) {
		return err
	}
	return amerrors.New(amerrors.ErrCodeCloneFailed, "failed to clone or update repository", err).
		WithDetail("url", url)
}
