// Package logging configures structured slog output for amandocs.
//
// Logs are JSON lines written to a size-rotated file under ~/.amandocs/logs/,
// optionally teed to stderr. Without a log file, an interactive terminal gets
// a human-readable text handler instead. In MCP stdio mode nothing is ever
// written to stdout or stderr.
package logging
