// Package scanner discovers documentation files inside the configured
// folders of a repository checkout.
package scanner

import (
	"time"

	"github.com/Aman-CERP/amandocs/internal/glob"
)

// DefaultMaxFileSize is used when ScanOptions.MaxFileSize is unset.
const DefaultMaxFileSize = 1024 * 1024

// FileInfo describes one discovered file.
type FileInfo struct {
	Path    string // Slash-separated, relative to RootDir
	AbsPath string
	Size    int64
	ModTime time.Time
}

// ScanOptions configures a scan.
type ScanOptions struct {
	// RootDir is the repository checkout.
	RootDir string

	// Folders are RootDir-relative directories to walk. Empty walks RootDir.
	// Missing folders are skipped.
	Folders []string

	// IncludePatterns are matched against the path relative to the folder
	// being walked. Empty includes everything.
	IncludePatterns glob.Set

	// ExcludePatterns are matched against the RootDir-relative path, for
	// directories and files alike.
	ExcludePatterns glob.Set

	// MaxFileSize in bytes (0 = DefaultMaxFileSize). Larger files are
	// skipped with a warning.
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links to files.
	FollowSymlinks bool
}

// ScanResult carries a file or a fatal walk error.
type ScanResult struct {
	File  *FileInfo
	Error error
}
