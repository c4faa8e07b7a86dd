package doctext

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultContextChars is the context kept around each keyword cluster.
	DefaultContextChars = 500

	// ExcerptSeparator joins non-adjacent excerpt windows.
	ExcerptSeparator = "\n\n[...]\n\n"

	// TruncationMarker ends head-truncated content.
	TruncationMarker = "\n\n[... content truncated ...]"

	// wordBoundarySlack bounds how far a window edge moves to reach whitespace.
	wordBoundarySlack = 40
)

type window struct {
	start, end int
	keywords   map[string]bool
}

// ExtractRelevantExcerpt returns content unchanged when it fits in maxChars.
// Otherwise it keeps the windows around keyword clusters of query that fit
// the budget, preferring clusters that cover more distinct keywords and then
// earlier ones. Matches closer than contextChars share a window. Without any
// match it falls back to the head of content plus TruncationMarker.
// Lengths are measured in bytes.
func ExtractRelevantExcerpt(content, query string, maxChars, contextChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	if contextChars < 0 {
		contextChars = 0
	}

	matches := FindKeywordMatches(content, ExtractKeywords(query))
	if len(matches) == 0 {
		return headTruncate(content, maxChars)
	}

	// Cluster matches that are within contextChars of each other.
	var clusters []window
	for _, m := range matches {
		if n := len(clusters); n > 0 && m.Start-clusters[n-1].end <= contextChars {
			c := &clusters[n-1]
			if m.End > c.end {
				c.end = m.End
			}
			c.keywords[m.Keyword] = true
			continue
		}
		clusters = append(clusters, window{start: m.Start, end: m.End, keywords: map[string]bool{m.Keyword: true}})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].keywords) != len(clusters[j].keywords) {
			return len(clusters[i].keywords) > len(clusters[j].keywords)
		}
		return clusters[i].start < clusters[j].start
	})

	budget := maxChars
	var selected []window
	for _, c := range clusters {
		start := max(0, c.start-contextChars)
		end := min(len(content), c.end+contextChars)
		if end-start > budget {
			if len(selected) > 0 {
				continue
			}
			// The best cluster always gets in, centred and clipped to budget.
			start, end = centre(c.start, c.end, budget, len(content))
		}
		selected = append(selected, window{start: start, end: end})
		budget -= end - start
		if budget <= 0 {
			break
		}
	}

	for i := range selected {
		selected[i].start, selected[i].end = snapToWords(content, selected[i].start, selected[i].end)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].start < selected[j].start })
	selected = mergeWindows(selected)

	var sb strings.Builder
	if selected[0].start > 0 {
		sb.WriteString("[...]\n\n")
	}
	for i, w := range selected {
		if i > 0 {
			sb.WriteString(ExcerptSeparator)
		}
		sb.WriteString(strings.TrimSpace(content[w.start:w.end]))
	}
	if selected[len(selected)-1].end < len(content) {
		sb.WriteString("\n\n[...]")
	}
	return sb.String()
}

// centre returns a window of at most size bytes centred on [start, end).
func centre(start, end, size, limit int) (int, int) {
	mid := (start + end) / 2
	s := max(0, mid-size/2)
	e := min(limit, s+size)
	s = max(0, e-size)
	return s, e
}

func mergeWindows(ws []window) []window {
	out := ws[:1]
	for _, w := range ws[1:] {
		last := &out[len(out)-1]
		if w.start <= last.end {
			last.end = max(last.end, w.end)
			continue
		}
		out = append(out, w)
	}
	return out
}

// snapToWords widens [start, end) outwards to whitespace, moving each edge at
// most wordBoundarySlack bytes, and keeps both edges on rune boundaries.
func snapToWords(content string, start, end int) (int, int) {
	s := start
	for s > 0 && start-s < wordBoundarySlack && !isSpaceBefore(content, s) {
		s--
	}
	if s > 0 && !isSpaceBefore(content, s) {
		s = start
	}
	for s > 0 && !utf8.RuneStart(content[s]) {
		s--
	}

	e := end
	for e < len(content) && e-end < wordBoundarySlack && !unicode.IsSpace(rune(content[e])) {
		e++
	}
	if e < len(content) && !unicode.IsSpace(rune(content[e])) {
		e = end
	}
	for e < len(content) && !utf8.RuneStart(content[e]) {
		e++
	}
	return s, e
}

func isSpaceBefore(content string, i int) bool {
	return unicode.IsSpace(rune(content[i-1]))
}

func headTruncate(content string, maxChars int) string {
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + TruncationMarker
}

// TruncateContent limits content to maxChars. nil stays nil and maxChars <= 0
// means no limit. With a query the relevant excerpt is kept, otherwise the
// head of the content followed by TruncationMarker.
func TruncateContent(content *string, maxChars int, query string) *string {
	if content == nil || maxChars <= 0 || len(*content) <= maxChars {
		return content
	}
	var out string
	if strings.TrimSpace(query) != "" {
		out = ExtractRelevantExcerpt(*content, query, maxChars, DefaultContextChars)
	} else {
		out = headTruncate(*content, maxChars)
	}
	return &out
}
