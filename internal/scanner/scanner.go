package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// Scanner walks documentation folders.
type Scanner struct{}

// New creates a new Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan streams the files under opts.Folders that match the include patterns.
// A file reachable from two folders is reported once. The channel is closed
// when scanning is complete.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	folders := opts.Folders
	if len(folders) == 0 {
		folders = []string{"."}
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		seen := make(map[string]bool)
		for _, folder := range folders {
			if ctx.Err() != nil {
				return
			}
			s.scanFolder(ctx, absRoot, folder, opts, maxFileSize, seen, results)
		}
	}()
	return results, nil
}

// Collect drains Scan into a slice, returning the first walk error.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) ([]*FileInfo, error) {
	ch, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	var files []*FileInfo
	var firstErr error
	for r := range ch {
		if r.Error != nil {
			if firstErr == nil {
				firstErr = r.Error
			}
			continue
		}
		files = append(files, r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return files, firstErr
}

func (s *Scanner) scanFolder(ctx context.Context, absRoot, folder string, opts *ScanOptions, maxFileSize int64, seen map[string]bool, results chan<- ScanResult) {
	absFolder := filepath.Join(absRoot, filepath.FromSlash(folder))
	if fi, err := os.Stat(absFolder); err != nil || !fi.IsDir() {
		slog.Debug("docs_folder_missing", slog.String("root", absRoot), slog.String("folder", folder))
		return
	}

	err := filepath.WalkDir(absFolder, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		relRoot, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil
		}
		relRoot = filepath.ToSlash(relRoot)

		if d.IsDir() {
			if p != absFolder && opts.ExcludePatterns.MatchDir(relRoot) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if seen[relRoot] || opts.ExcludePatterns.Match(relRoot) {
			return nil
		}

		relFolder, err := filepath.Rel(absFolder, p)
		if err != nil {
			return nil
		}
		if len(opts.IncludePatterns) > 0 && !opts.IncludePatterns.Match(filepath.ToSlash(relFolder)) {
			return nil
		}

		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return nil
		}
		if info.Size() > maxFileSize {
			slog.Warn("file_too_large",
				slog.String("path", relRoot),
				slog.Int64("size", info.Size()),
				slog.Int64("max_file_size", maxFileSize))
			return nil
		}
		if path.Ext(relRoot) != ".ipynb" && isBinaryFile(p) {
			return nil
		}

		seen[relRoot] = true
		select {
		case results <- ScanResult{File: &FileInfo{
			Path:    relRoot,
			AbsPath: p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// isBinaryFile checks if a file is binary by looking for null bytes.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}
