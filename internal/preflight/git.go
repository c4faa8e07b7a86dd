package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var defaultLookPath = exec.LookPath

// CheckGit checks that git is on PATH and runs.
func (c *Checker) CheckGit(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "git",
		Required: true,
	}

	path, err := c.lookPath("git")
	if err != nil {
		result.Status = StatusFail
		result.Message = "git not found on PATH"
		result.Details = "Install git; repositories are cloned with it"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("git --version failed: %v", err)
		return result
	}

	result.Status = StatusPass
	result.Message = strings.TrimSpace(string(out))
	result.Details = path
	return result
}
