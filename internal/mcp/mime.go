package mcp

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps documentation file extensions to MIME types of the content
// served for them. Notebooks are served converted to markdown.
var mimeTypes = map[string]string{
	".md":    "text/markdown",
	".mdx":   "text/markdown",
	".ipynb": "text/markdown",
	".rst":   "text/x-rst",
	".txt":   "text/plain",
	".html":  "text/html",
	".htm":   "text/html",
}

// MimeTypeForPath returns the MIME type for a document source path.
// Returns "text/plain" for unknown types.
func MimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
