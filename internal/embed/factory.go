package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/config"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings.
	ProviderOllama ProviderType = config.ProviderOllama

	// ProviderStatic uses hash-based embeddings and needs nothing external.
	ProviderStatic ProviderType = config.ProviderStatic
)

// NewFromConfig creates the embedder selected by cfg, wrapped in a query cache.
// A failing Ollama is an error; there is no silent fallback to static vectors,
// since vectors from two models cannot share one index.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch ParseProvider(cfg.Provider) {
	case ProviderOllama:
		ocfg := DefaultOllamaConfig()
		if cfg.OllamaHost != "" {
			ocfg.Host = cfg.OllamaHost
		}
		if cfg.Model != "" {
			ocfg.Model = cfg.Model
		}
		if cfg.BatchSize > 0 {
			ocfg.BatchSize = cfg.BatchSize
		}
		embedder, err = NewOllamaEmbedder(ctx, ocfg)
	case ProviderStatic:
		embedder = NewStaticEmbedder()
	default:
		return nil, amerrors.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q (valid: %s)", cfg.Provider, strings.Join(ValidProviders(), ", ")), nil)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("embedder_selected",
		slog.String("provider", cfg.Provider),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

// ParseProvider converts a config string to a ProviderType. Empty means static.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.ProviderStatic:
		return ProviderStatic
	case config.ProviderOllama:
		return ProviderOllama
	default:
		return ProviderType(s)
	}
}

// String returns the string representation
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderOllama)}
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Available  bool         `json:"available"`
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Provider:   ProviderStatic,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}
	if _, ok := inner.(*OllamaEmbedder); ok {
		info.Provider = ProviderOllama
	}
	return info
}
