package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/store"
)

// CheckEmbedder builds the configured embedder. An unreachable Ollama fails
// the check because indexing cannot proceed without it; the static
// embedder passes with a warning about search quality.
func (c *Checker) CheckEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	e, err := embed.NewFromConfig(ctx, cfg)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		var ae *amerrors.AmanError
		if errors.As(err, &ae) {
			result.Details = ae.Suggestion
		}
		return result
	}
	defer func() { _ = e.Close() }()

	info := embed.GetInfo(ctx, e)
	msg := fmt.Sprintf("%s / %s (%d dimensions)", info.Provider, info.Model, info.Dimensions)
	switch {
	case !info.Available:
		result.Status = StatusFail
		result.Message = msg + " unavailable"
	case info.Provider == embed.ProviderStatic:
		result.Status = StatusWarn
		result.Message = msg
		result.Details = "Hash embeddings match words, not meaning; set embeddings.provider to ollama for semantic search"
	default:
		result.Status = StatusPass
		result.Message = msg
	}
	return result
}

// CheckIndex reports whether the store under dir holds chunks. It never
// creates the store.
func (c *Checker) CheckIndex(ctx context.Context, dir string) CheckResult {
	result := CheckResult{Name: "index"}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		result.Status = StatusWarn
		result.Message = "not built"
		result.Details = "Run 'amandocs index', or start the server to build it in the background"
		return result
	}

	coll, err := store.Open(ctx, dir)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot open store: %v", err)
		result.Details = "The next rebuild restores from the backup or starts fresh"
		return result
	}
	defer func() { _ = coll.Close() }()

	n, err := coll.Count(ctx)
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot count chunks: %v", err)
	case n == 0:
		result.Status = StatusWarn
		result.Message = "empty"
		result.Details = "Run 'amandocs index' to build it"
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d chunks", n)
		result.Details = dir
	}
	return result
}
