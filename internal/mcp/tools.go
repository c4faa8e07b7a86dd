package mcp

import (
	"github.com/Aman-CERP/amandocs/internal/async"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query           string `json:"query" jsonschema:"natural language query, e.g. how to add a sidebar to a template"`
	Project         string `json:"project,omitempty" jsonschema:"restrict results to one project, e.g. panel or hvplot"`
	Content         any    `json:"content,omitempty" jsonschema:"content mode: chunk, truncated (default) or full; true and false are accepted as truncated and none"`
	Limit           int    `json:"limit,omitempty" jsonschema:"maximum number of documents, default 5"`
	MaxContentChars int    `json:"max_content_chars,omitempty" jsonschema:"character budget for truncated content, default 10000"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []search.Document `json:"results" jsonschema:"matching documents, at most one per source file, best first"`
}

// GetDocumentInput defines the input schema for the get_document tool.
type GetDocumentInput struct {
	Path    string `json:"path" jsonschema:"source path relative to the repository root, e.g. doc/index.md"`
	Project string `json:"project" jsonschema:"project name, e.g. panel"`
}

// GetReferenceGuideInput defines the input schema for the get_reference_guide tool.
type GetReferenceGuideInput struct {
	Component       string `json:"component" jsonschema:"exact component name, e.g. Button or scatter"`
	Project         string `json:"project,omitempty" jsonschema:"restrict matches to one project"`
	Content         any    `json:"content,omitempty" jsonschema:"content mode: chunk, truncated (default) or full; true and false are accepted as truncated and none"`
	MaxContentChars int    `json:"max_content_chars,omitempty" jsonschema:"character budget for truncated content, default 10000"`
}

// ReferenceGuideOutput defines the output schema for the get_reference_guide tool.
type ReferenceGuideOutput struct {
	Results []search.Document `json:"results" jsonschema:"reference pages for the component, sorted by project and path"`
}

// ListProjectsInput defines the input schema for the list_projects tool (no parameters).
type ListProjectsInput struct{}

// ListProjectsOutput defines the output schema for the list_projects tool.
type ListProjectsOutput struct {
	Projects []string `json:"projects" jsonschema:"indexed project names, sorted"`
}

// UpdateIndexInput defines the input schema for the update_index tool (no parameters).
type UpdateIndexInput struct{}

// UpdateIndexOutput defines the output schema for the update_index tool.
type UpdateIndexOutput struct {
	Message   string                          `json:"message"`
	RunID     string                          `json:"run_id"`
	Projects  map[string]index.ProjectSummary `json:"projects" jsonschema:"per project document and chunk counts"`
	Documents int                             `json:"documents"`
	Chunks    int                             `json:"chunks"`
	// DurationMS is the wall time of the rebuild in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Indexed    bool            `json:"indexed"`
	Chunks     int             `json:"chunks"`
	Projects   []string        `json:"projects"`
	StoreDir   string          `json:"store_dir"`
	HasBackup  bool            `json:"has_backup"`
	LastRun    string          `json:"last_run,omitempty" jsonschema:"run id of the last rebuild in this process"`
	Embeddings EmbeddingInfo   `json:"embeddings"`
	Rebuild    *async.Snapshot `json:"rebuild,omitempty" jsonschema:"progress of the rebuild started by this server"`
}

// GetBestPracticesInput defines the input schema for the get_best_practices tool.
type GetBestPracticesInput struct {
	Package string `json:"package" jsonschema:"package name, e.g. panel or panel-material-ui"`
}

// ListBestPracticesInput defines the input schema for the list_best_practices tool (no parameters).
type ListBestPracticesInput struct{}

// ListBestPracticesOutput defines the output schema for the list_best_practices tool.
type ListBestPracticesOutput struct {
	Packages []string `json:"packages" jsonschema:"package names with best practices, sorted"`
}

// EmbeddingInfo contains information about the embedding configuration.
type EmbeddingInfo struct {
	// Config values
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`

	// Runtime state
	ActualProvider   string `json:"actual_provider"`    // "ollama" or "static"
	ActualModel      string `json:"actual_model"`       // e.g. "nomic-embed-text" or "static"
	Dimensions       int    `json:"dimensions"`         // model dependent, 256 for static
	IsFallbackActive bool   `json:"is_fallback_active"` // true when the hash embedder is serving
	SemanticQuality  string `json:"semantic_quality"`   // "high" (ollama) or "low" (static)
}
