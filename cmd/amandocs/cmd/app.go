package cmd

import (
	"context"
	"errors"

	"github.com/Aman-CERP/amandocs/internal/config"
	"github.com/Aman-CERP/amandocs/internal/embed"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/ingest"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// loadConfig reads the effective configuration for a command.
// Tests replace it to point commands at local repositories.
var loadConfig = func() (*config.Config, error) {
	return config.Load(configPath)
}

// app is the wired dependency graph shared by the commands.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	index    *index.Manager
	engine   *search.Engine
}

// newApp builds the embedder, ingester, index manager and search engine
// for cfg. Rebuild progress goes to reporter.
func newApp(ctx context.Context, cfg *config.Config, reporter logging.Reporter) (*app, error) {
	embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	ingester, err := ingest.New(cfg, ingest.WithReporter(reporter))
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	mgr, err := index.New(ctx, cfg, ingester, embedder, index.WithReporter(reporter))
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	engine, err := search.NewEngine(mgr, embedder, search.ConfigFromSearch(cfg.Search))
	if err != nil {
		_ = mgr.Close()
		_ = embedder.Close()
		return nil, err
	}

	return &app{cfg: cfg, embedder: embedder, index: mgr, engine: engine}, nil
}

// Close releases the index store and the embedder.
func (a *app) Close() error {
	return errors.Join(a.index.Close(), a.embedder.Close())
}

// openApp loads configuration and builds the app with slog reporting.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logging.NewSlogReporter(nil))
}
