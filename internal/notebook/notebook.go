// Package notebook renders Jupyter notebooks (nbformat 4) as markdown.
package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// Converter turns a notebook file into markdown text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// multiline is nbformat's string-or-list-of-strings field.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*m = multiline(strings.Join(parts, ""))
	return nil
}

type notebookFile struct {
	NBFormat int `json:"nbformat"`
	Metadata struct {
		Kernelspec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	Cells []cell `json:"cells"`
}

type cell struct {
	CellType string    `json:"cell_type"`
	Source   multiline `json:"source"`
	Outputs  []output  `json:"outputs"`
}

type output struct {
	OutputType string               `json:"output_type"`
	Text       multiline            `json:"text"`
	Data       map[string]multiline `json:"data"`
	EName      string               `json:"ename"`
	EValue     string               `json:"evalue"`
}

// MarkdownConverter is the default Converter.
type MarkdownConverter struct {
	// IncludeOutputs renders text outputs of code cells.
	IncludeOutputs bool
}

// NewMarkdownConverter returns a converter that keeps text outputs.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{IncludeOutputs: true}
}

// Convert reads and renders the notebook at path.
func (c *MarkdownConverter) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", amerrors.IOError("failed to read notebook", err).WithDetail("path", path)
	}
	out, err := c.Render(data)
	if err != nil {
		return "", amerrors.New(amerrors.ErrCodeConversion, "failed to convert notebook", err).
			WithDetail("path", path)
	}
	return out, nil
}

// Render converts raw notebook JSON to markdown. Markdown and raw cells are
// copied verbatim, code cells become fenced blocks in the kernel language.
func (c *MarkdownConverter) Render(data []byte) (string, error) {
	var nb notebookFile
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", err
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return "", fmt.Errorf("unsupported nbformat %d", nb.NBFormat)
	}

	lang := nb.Metadata.LanguageInfo.Name
	if lang == "" {
		lang = nb.Metadata.Kernelspec.Language
	}
	if lang == "" {
		lang = "python"
	}

	var blocks []string
	for _, cl := range nb.Cells {
		src := strings.TrimRight(string(cl.Source), "\n")
		switch cl.CellType {
		case "markdown", "raw":
			if strings.TrimSpace(src) != "" {
				blocks = append(blocks, src)
			}
		case "code":
			if strings.TrimSpace(src) != "" {
				blocks = append(blocks, fence(lang, src))
			}
			if c.IncludeOutputs {
				for _, o := range cl.Outputs {
					if text := outputText(o); text != "" {
						blocks = append(blocks, fence("", text))
					}
				}
			}
		}
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

func fence(lang, body string) string {
	return "```" + lang + "\n" + body + "\n```"
}

// outputText picks the plain-text rendering of one output, if any.
func outputText(o output) string {
	var text string
	switch o.OutputType {
	case "stream":
		text = string(o.Text)
	case "execute_result", "display_data":
		if plain, ok := o.Data["text/plain"]; ok {
			text = string(plain)
		} else {
			// Deterministic pick among the remaining text mimetypes.
			keys := make([]string, 0, len(o.Data))
			for k := range o.Data {
				if strings.HasPrefix(k, "text/") && k != "text/html" {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			if len(keys) > 0 {
				text = string(o.Data[keys[0]])
			}
		}
	case "error":
		text = o.EName + ": " + o.EValue
	}
	return strings.TrimRight(text, "\n")
}
