package search

import (
	"strconv"
	"strings"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// ContentMode selects how much text a result carries.
type ContentMode string

const (
	// ContentNone returns metadata only.
	ContentNone ContentMode = "none"
	// ContentChunk returns the matching chunk only.
	ContentChunk ContentMode = "chunk"
	// ContentTruncated returns the whole document cut to the content budget,
	// keeping the parts relevant to the query.
	ContentTruncated ContentMode = "truncated"
	// ContentFull returns the whole document.
	ContentFull ContentMode = "full"
)

// DefaultContentMode is used when the caller gives no mode.
const DefaultContentMode = ContentTruncated

// ValidContentModes lists the accepted mode names.
var ValidContentModes = []string{"false", "true", "chunk", "truncated", "full"}

// ParseContentMode accepts "chunk", "truncated" and "full" plus the legacy
// booleans: "false" disables content and "true" means truncated.
// An empty value selects DefaultContentMode.
func ParseContentMode(v string) (ContentMode, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case "":
		return DefaultContentMode, nil
	case string(ContentChunk), string(ContentTruncated), string(ContentFull):
		return ContentMode(s), nil
	case string(ContentNone):
		return ContentNone, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return ContentModeFromBool(b), nil
	}
	return "", amerrors.New(amerrors.ErrCodeInvalidContentMode,
		"unknown content mode "+strconv.Quote(v), nil).
		WithSuggestion("Use one of: " + strings.Join(ValidContentModes, ", "))
}

// ContentModeFromBool maps the legacy boolean flag onto a mode.
func ContentModeFromBool(b bool) ContentMode {
	if b {
		return ContentTruncated
	}
	return ContentNone
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Project restricts results to one project; empty searches all.
	Project string

	// Content selects the returned text; empty means DefaultContentMode.
	Content ContentMode

	// Limit is the maximum number of distinct documents returned.
	Limit int

	// MaxContentChars overrides the engine budget for truncated content.
	MaxContentChars int
}

// ReferenceOptions configures a reference guide lookup.
type ReferenceOptions struct {
	// Project restricts matches to one project; empty searches all.
	Project string

	// Content selects the returned text; empty means DefaultContentMode.
	Content ContentMode

	// MaxContentChars overrides the engine budget for truncated content.
	MaxContentChars int
}

// applyDefaults fills in default values for search options.
func (e *Engine) applyDefaults(opts SearchOptions) (SearchOptions, error) {
	mode, err := e.resolveMode(opts.Content)
	if err != nil {
		return opts, err
	}
	opts.Content = mode
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = e.config.MaxContentChars
	}
	return opts, nil
}

func (e *Engine) resolveMode(mode ContentMode) (ContentMode, error) {
	switch mode {
	case ContentNone, ContentChunk, ContentTruncated, ContentFull:
		return mode, nil
	default:
		return ParseContentMode(string(mode))
	}
}
