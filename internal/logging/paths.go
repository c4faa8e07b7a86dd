package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.amandocs/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amandocs", "logs")
	}
	return filepath.Join(home, ".amandocs", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// LogPathIn returns the server log path below a data directory.
func LogPathIn(dataDir string) string {
	if dataDir == "" {
		return DefaultLogPath()
	}
	return filepath.Join(dataDir, "logs", "server.log")
}
