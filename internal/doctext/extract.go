package doctext

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultDescriptionLength caps extracted descriptions.
const DefaultDescriptionLength = 200

// ExtractTitle returns the text of the first level-1 heading. Without one it
// falls back to the file stem with underscores as spaces, title-cased.
func ExtractTitle(content, fallbackFilename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(line[2:]); title != "" {
				return title
			}
		}
	}
	if fallbackFilename == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(fallbackFilename, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	return titleCase(strings.ReplaceAll(stem, "_", " "))
}

// titleCase upper-cases the first letter of each run of letters and
// lower-cases the rest: "dev experience" -> "Dev Experience".
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ExtractDescription returns the first paragraph after the level-1 title,
// stopping at a blank line, a heading, a code fence or a rule. Text longer
// than maxLength characters is cut and ends with "...".
func ExtractDescription(content string, maxLength int) string {
	var lines []string
	foundTitle := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !foundTitle {
			foundTitle = strings.HasPrefix(line, "# ")
			continue
		}
		if line == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "---") {
			break
		}
		lines = append(lines, line)
	}

	desc := strings.Join(lines, " ")
	if maxLength > 0 && utf8.RuneCountInString(desc) > maxLength {
		runes := []rune(desc)
		desc = strings.TrimRightFunc(string(runes[:maxLength]), unicode.IsSpace) + "..."
	}
	return desc
}
