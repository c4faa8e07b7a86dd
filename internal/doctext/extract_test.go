package doctext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amandocs/internal/glob"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		fallback string
		want     string
	}{
		{"first h1", "# hvPlot\n\nText", "", "hvPlot"},
		{"skips h2", "Intro\n## Sub\n# Real Title\n# Second", "", "Real Title"},
		{"indented heading", "   # Indented  \n", "", "Indented"},
		{"fallback title-cased", "no heading", "dev_experience.md", "Dev Experience"},
		{"fallback from path", "", "examples/reference/widgets/Button.ipynb", "Button"},
		{"fallback lowercases rest", "", "HOW_TO.md", "How To"},
		{"no space after hash", "#NoSpace", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.content, tt.fallback))
		})
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"first paragraph", "# T\n\nFirst line one\nline two\n\nSecond para", "First line one line two"},
		{"stops at heading", "# T\n## Sub\ntext", ""},
		{"stops at fence", "# T\nText\n```python\ncode", "Text"},
		{"stops at rule", "# T\nText\n---\nmore", "Text"},
		{"no title", "para only\nmore", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDescription(tt.content, DefaultDescriptionLength))
		})
	}
}

func TestExtractDescription_Truncates(t *testing.T) {
	content := "# T\n\n" + strings.Repeat("word ", 60)

	desc := ExtractDescription(content, 200)

	assert.True(t, strings.HasSuffix(desc, "..."))
	assert.LessOrEqual(t, len(desc), 203)

	short := ExtractDescription("# T\n\nshort text", 200)
	assert.Equal(t, "short text", short)
}

func TestIsReferenceDocument(t *testing.T) {
	button := "examples/reference/widgets/Button.ipynb"

	// fallback heuristic without patterns
	assert.True(t, IsReferenceDocument(button, nil))
	assert.True(t, IsReferenceDocument("doc/reference/api.md", nil))
	assert.False(t, IsReferenceDocument("doc/references/api.md", nil))
	assert.False(t, IsReferenceDocument("doc/how_to/index.md", nil))

	// configured patterns decide alone
	patterns, err := glob.CompileAll([]string{"examples/reference/**/*.ipynb"})
	assert.NoError(t, err)
	assert.True(t, IsReferenceDocument(button, patterns))
	assert.False(t, IsReferenceDocument("doc/reference/api.md", patterns))
}
