// Package document defines the records that flow from ingestion through the
// chunker into the vector store and back out of the search engine.
package document

import (
	"fmt"
	"path"
	"strings"
)

// Metadata is the per-document information copied onto every chunk and
// stored beside each index entry.
type Metadata struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Project        string `json:"project"`
	SourcePath     string `json:"source_path"`
	SourcePathStem string `json:"source_path_stem"`
	SourceURL      string `json:"source_url"`
	Description    string `json:"description"`
	IsReference    bool   `json:"is_reference"`
}

// Document is one ingested source file with its normalized content.
type Document struct {
	ID string `json:"id"`
	Metadata
	Content string `json:"content"`
}

// Chunk is a contiguous slice of a Document and the unit stored in the index.
type Chunk struct {
	ID         string `json:"id"`
	ParentID   string `json:"parent_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Metadata
}

// NewID derives the stable document ID for a repository-relative path:
// "panel" + "doc/index.md" -> "panel___doc___index_md".
func NewID(project, relPath string) string {
	readable := strings.ReplaceAll(strings.ReplaceAll(relPath, "/", "___"), ".", "_")
	return project + "___" + readable
}

// ChunkID returns the ID of the n-th chunk of parentID.
func ChunkID(parentID string, n int) string {
	return fmt.Sprintf("%s___chunk_%d", parentID, n)
}

// Stem returns the file name of relPath without its extension.
func Stem(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Validate checks the fields every later stage relies on.
func (d *Document) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("document has no id")
	case d.Project == "":
		return fmt.Errorf("document %s has no project", d.ID)
	case d.SourcePath == "":
		return fmt.Errorf("document %s has no source path", d.ID)
	case d.Title == "":
		return fmt.Errorf("document %s has no title", d.ID)
	}
	return nil
}
