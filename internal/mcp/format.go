package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/search"
)

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []search.Document) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	writeCount(&sb, len(results))

	for i := range results {
		formatResult(&sb, i+1, &results[i])
	}

	return sb.String()
}

// FormatReferenceResults formats reference guide matches as markdown.
func FormatReferenceResults(component string, results []search.Document) string {
	if len(results) == 0 {
		return fmt.Sprintf("No reference guide found for \"%s\"", component)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Reference Guide for \"%s\"\n\n", component)
	writeCount(&sb, len(results))

	for i := range results {
		formatResult(&sb, i+1, &results[i])
	}

	return sb.String()
}

// FormatDocument formats one document with its full content as markdown.
func FormatDocument(doc *search.Document) string {
	if doc == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", displayTitle(doc))
	writeLinks(&sb, doc)
	if doc.Content != nil {
		sb.WriteString(*doc.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatProjects formats the project list as markdown.
func FormatProjects(projects []string) string {
	if len(projects) == 0 {
		return "No projects indexed."
	}

	var sb strings.Builder
	sb.WriteString("## Indexed Projects\n\n")
	for _, p := range projects {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	return sb.String()
}

// FormatBestPractices formats the packages that have best practices.
func FormatBestPractices(packages []string) string {
	if len(packages) == 0 {
		return "No best practices available."
	}

	var sb strings.Builder
	sb.WriteString("## Best Practices\n\n")
	for _, p := range packages {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	return sb.String()
}

func writeCount(sb *strings.Builder, n int) {
	fmt.Fprintf(sb, "Found %d result", n)
	if n != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
}

// formatResult formats a single result. Markdown content is kept as-is.
func formatResult(sb *strings.Builder, num int, d *search.Document) {
	fmt.Fprintf(sb, "### %d. %s", num, displayTitle(d))
	if d.Relevance != nil {
		fmt.Fprintf(sb, " (score: %.2f)", *d.Relevance)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "**Project:** %s  \n**Path:** `%s`", d.Project, d.SourcePath)
	if d.IsReference {
		sb.WriteString("  \n**Reference guide**")
	}
	sb.WriteString("\n")
	writeLinks(sb, d)

	if d.Description != "" {
		fmt.Fprintf(sb, "> %s\n\n", d.Description)
	}

	if d.Content != nil {
		sb.WriteString(*d.Content)
		sb.WriteString("\n\n---\n\n")
	}
}

func writeLinks(sb *strings.Builder, d *search.Document) {
	if d.URL != "" {
		fmt.Fprintf(sb, "**URL:** %s\n", d.URL)
	}
	if d.SourceURL != "" {
		fmt.Fprintf(sb, "**Source:** %s\n", d.SourceURL)
	}
	sb.WriteString("\n")
}

func displayTitle(d *search.Document) string {
	if d.Title != "" {
		return d.Title
	}
	return d.SourcePath
}
