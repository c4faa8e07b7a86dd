// Package chunk splits documents into index chunks at level-1 and level-2
// markdown headings.
package chunk

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/amandocs/internal/document"
)

// DefaultMinChunkChars is the smallest section kept as its own chunk,
// counted in runes after leading and trailing whitespace is trimmed.
const DefaultMinChunkChars = 100

// headingPattern matches "# Title" and "## Title" but not "### Title".
var headingPattern = regexp.MustCompile(`^#{1,2}(\s|$)`)

// Chunker splits documents at heading boundaries.
type Chunker struct {
	minChunkChars int
}

// New creates a chunker. minChunkChars <= 0 selects DefaultMinChunkChars.
func New(minChunkChars int) *Chunker {
	if minChunkChars <= 0 {
		minChunkChars = DefaultMinChunkChars
	}
	return &Chunker{minChunkChars: minChunkChars}
}

// MinChunkChars returns the section length threshold. A section's length is
// its rune count with surrounding whitespace trimmed, so blank lines between
// headings never lift a section over the threshold.
func (c *Chunker) MinChunkChars() int {
	return c.minChunkChars
}

// Chunk splits doc into chunks. Every chunk's content is the document title,
// a blank line and the section text. Sections whose trimmed text is shorter
// than the threshold are dropped; when nothing survives the whole document
// becomes chunk 0. Kept sections are stored untrimmed so Reassemble can
// reproduce the content.
func (c *Chunker) Chunk(doc *document.Document) []document.Chunk {
	prefix := TitlePrefix(doc.Title)

	var chunks []document.Chunk
	for _, text := range splitSections(doc.Content) {
		if sectionLen(text) < c.minChunkChars {
			continue
		}
		chunks = append(chunks, newChunk(doc, len(chunks), prefix+text))
	}

	if len(chunks) == 0 {
		chunks = append(chunks, newChunk(doc, 0, prefix+doc.Content))
	}
	return chunks
}

// sectionLen is the length the threshold applies to.
func sectionLen(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

func newChunk(doc *document.Document, n int, content string) document.Chunk {
	return document.Chunk{
		ID:         document.ChunkID(doc.ID, n),
		ParentID:   doc.ID,
		ChunkIndex: n,
		Content:    content,
		Metadata:   doc.Metadata,
	}
}

// splitSections cuts content before each level-1/2 heading that is outside
// a fenced code block. The preamble before the first heading is the first
// section. Concatenating the sections reproduces content exactly.
func splitSections(content string) []string {
	var (
		sections []string
		current  strings.Builder
		inFence  bool
	)

	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "```") {
			inFence = !inFence
		} else if !inFence && headingPattern.MatchString(trimmed) {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	return append(sections, current.String())
}

// TitlePrefix is the text every chunk of a document titled title starts with.
func TitlePrefix(title string) string {
	return title + "\n\n"
}

// Reassemble rebuilds document text from its chunks in chunk_index order,
// keeping the title prefix on the first chunk only. chunks is not modified.
func Reassemble(chunks []document.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	ordered := make([]document.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ChunkIndex < ordered[j].ChunkIndex })

	var sb strings.Builder
	sb.WriteString(ordered[0].Content)
	for _, ch := range ordered[1:] {
		sb.WriteString(strings.TrimPrefix(ch.Content, TitlePrefix(ch.Title)))
	}
	return sb.String()
}
