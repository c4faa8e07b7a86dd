package doctext

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// URLTransform selects how a source path becomes a published URL path.
type URLTransform int

const (
	// TransformDefault swaps the source extension for .html.
	TransformDefault URLTransform = iota
	// TransformPlotly produces pretty directory URLs: a/b.md -> a/b/, index.md -> "".
	TransformPlotly
	// TransformDatashader strips numeric ordering prefixes: 10_Performance -> Performance.
	TransformDatashader
)

var transformNames = map[URLTransform]string{
	TransformDefault:    "default",
	TransformPlotly:     "plotly",
	TransformDatashader: "datashader",
}

func (t URLTransform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return fmt.Sprintf("URLTransform(%d)", int(t))
}

// ParseURLTransform maps a configured name to a transform. Empty means default.
func ParseURLTransform(name string) (URLTransform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return TransformDefault, nil
	case "plotly":
		return TransformPlotly, nil
	case "datashader":
		return TransformDatashader, nil
	default:
		return TransformDefault, fmt.Errorf("unknown url transform %q (use default, plotly or datashader)", name)
	}
}

// htmlExtensions are rewritten to .html; other extensions are kept.
var htmlExtensions = map[string]bool{".md": true, ".ipynb": true, ".rst": true}

var orderingPrefix = regexp.MustCompile(`^\d+[_-]`)

// PathToURL converts a slash-separated relative source path into a URL path,
// dropping the first strip segments. The result has no leading slash.
func PathToURL(relPath string, t URLTransform, strip int) string {
	parts := strings.Split(strings.Trim(path.Clean("/"+relPath), "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	if strip > len(parts) {
		strip = len(parts)
	}
	if strip > 0 {
		parts = parts[strip:]
	}
	if len(parts) == 0 {
		return ""
	}

	last := parts[len(parts)-1]
	ext := path.Ext(last)
	stem := strings.TrimSuffix(last, ext)

	switch t {
	case TransformPlotly:
		dirs := parts[:len(parts)-1]
		if stem != "index" {
			dirs = append(dirs, stem)
		}
		if len(dirs) == 0 {
			return ""
		}
		return strings.Join(dirs, "/") + "/"

	case TransformDatashader:
		for i := range parts[:len(parts)-1] {
			parts[i] = orderingPrefix.ReplaceAllString(parts[i], "")
		}
		stem = orderingPrefix.ReplaceAllString(stem, "")
	}

	if htmlExtensions[ext] {
		ext = ".html"
	}
	parts[len(parts)-1] = stem + ext
	return strings.Join(parts, "/")
}

// JoinURL joins a base URL, an optional folder URL path and a converted
// document path, collapsing duplicate slashes outside the scheme.
func JoinURL(baseURL, folderURLPath, docPath string) string {
	full := strings.TrimRight(baseURL, "/") + folderURLPath + "/" + docPath

	scheme := ""
	if i := strings.Index(full, "://"); i >= 0 {
		scheme, full = full[:i+3], full[i+3:]
	}
	for strings.Contains(full, "//") {
		full = strings.ReplaceAll(full, "//", "/")
	}
	return scheme + full
}
