// Package store persists chunks together with their embeddings.
// Rows live in SQLite; nearest-neighbour search over the whole collection
// goes through an HNSW graph kept beside the database.
package store

import (
	"context"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/document"
)

// Entry is one chunk staged for insertion.
type Entry struct {
	Chunk     document.Chunk
	Embedding []float32
}

// Match is a query hit. Distance is cosine distance: 0 for identical
// direction, 2 for opposite.
type Match struct {
	Chunk    document.Chunk
	Distance float32
}

// Where restricts queries and lookups to chunks whose metadata equals every
// non-empty field.
type Where struct {
	Project        string
	SourcePath     string
	SourcePathStem string
	ParentID       string
	IsReference    *bool
}

// Bool returns a pointer to v, for Where.IsReference.
func Bool(v bool) *bool {
	return &v
}

// IsZero reports whether w matches every chunk.
func (w Where) IsZero() bool {
	return w.Project == "" && w.SourcePath == "" && w.SourcePathStem == "" &&
		w.ParentID == "" && w.IsReference == nil
}

// sql renders w as a SQL condition over the chunks table.
func (w Where) sql() (string, []any) {
	var (
		conds []string
		args  []any
	)
	eq := func(col, v string) {
		if v != "" {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	eq("project", w.Project)
	eq("source_path", w.SourcePath)
	eq("source_path_stem", w.SourcePathStem)
	eq("parent_id", w.ParentID)
	if w.IsReference != nil {
		conds = append(conds, "is_reference = ?")
		args = append(args, boolToInt(*w.IsReference))
	}
	return strings.Join(conds, " AND "), args
}

// GetRequest selects chunks by id and/or metadata.
type GetRequest struct {
	IDs   []string
	Where Where

	// Limit caps the number of chunks returned; 0 means no limit.
	Limit int

	// MetadataOnly leaves Content empty.
	MetadataOnly bool
}

// Collection is the persistent chunk store the index manager writes to and
// the search engine reads from.
type Collection interface {
	// Add inserts entries, replacing any with the same chunk id.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to n chunks closest to vector, nearest first.
	Query(ctx context.Context, vector []float32, n int, where Where) ([]Match, error)

	// Get returns matching chunks in insertion order.
	Get(ctx context.Context, req GetRequest) ([]document.Chunk, error)

	// Delete removes chunks by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset drops every chunk and forgets the embedding dimension.
	Reset(ctx context.Context) error

	Close() error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
