package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/async"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		warm      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio.

stdout carries JSON-RPC only; logs go to {data_dir}/logs/server.log.
When the store is empty the index is built in the background while the
server answers; index_status reports its progress. With --warm=false the
index is built on the first query instead. update_index rebuilds on demand.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport, warm)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport override (default from server.transport)")
	cmd.Flags().BoolVar(&warm, "warm", true, "Build an empty index in the background at startup")

	return cmd
}

// runServe wires the app and serves MCP until the client disconnects or a
// signal arrives. Nothing is written to stdout before the transport starts.
func runServe(ctx context.Context, transport string, warm bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel, logging.LogPathIn(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := async.NewTracker(mcp.NewSessionReporter(nil), len(cfg.Docs.Repositories))
	a, err := newApp(ctx, cfg, tracker)
	if err != nil {
		slog.Error("server_init_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("server_close_failed", slog.String("error", err.Error()))
		}
	}()

	searcher, closeMetrics := instrument(ctx, cfg, a.engine)
	defer closeMetrics()

	srv, err := mcp.NewServer(searcher, a.index, a.embedder, cfg)
	if err != nil {
		return err
	}
	srv.SetProgress(tracker)

	if warm && !a.index.IsIndexed(ctx) {
		bg := async.NewBackgroundIndexer(a.index.EnsureIndexed)
		bg.Start(ctx)
		// Stop before the deferred Close so the store is not closed mid-write.
		defer bg.Stop()
		slog.Info("background_index_started",
			slog.Int("projects", len(cfg.Docs.Repositories)))
	}

	return srv.Serve(ctx, transport)
}
