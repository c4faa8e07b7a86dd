package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for MCP stdio serving.
// stdout carries JSON-RPC exclusively, so logs go to the file only and
// stderr is never written. An empty path uses DefaultLogPath.
func SetupMCPMode(level, path string) (func(), error) {
	if path == "" {
		path = DefaultLogPath()
	}
	cfg := Config{
		Level:         level,
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	cleanup, err := SetupDefault(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", parseLevel(level).String()))

	return cleanup, nil
}
