// Package glob matches slash-separated relative paths against shell-style
// patterns with `**` support.
//
//	*    any run of characters except '/'
//	?    one character except '/'
//	[..] character class
//	**/  zero or more leading directories
//	/**  everything below a directory
//
// Patterns are anchored at both ends: "doc/*.md" matches "doc/a.md" but not
// "x/doc/a.md" or "doc/sub/a.md".
package glob

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Pattern is a compiled glob.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile converts a glob into an anchored regular expression.
func Compile(pattern string) (*Pattern, error) {
	p := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(pattern)), "/")
	if p == "" {
		return nil, fmt.Errorf("empty glob pattern")
	}
	re, err := regexp.Compile("^" + toRegex(p) + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return &Pattern{raw: pattern, re: re}, nil
}

// MustCompile is Compile that panics on error, for package-level patterns.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the relative path matches.
func (p *Pattern) Match(relPath string) bool {
	return p.re.MatchString(normalize(relPath))
}

// MatchDir reports whether a directory, or everything under it, matches.
// "**/build/**" matches the directory "a/build".
func (p *Pattern) MatchDir(relPath string) bool {
	rel := normalize(relPath)
	return p.re.MatchString(rel) || p.re.MatchString(rel+"/")
}

func (p *Pattern) String() string { return p.raw }

// Set is a list of patterns matched with OR semantics.
type Set []*Pattern

// CompileAll compiles every pattern, failing on the first invalid one.
func CompileAll(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// Match reports whether any pattern matches relPath.
func (s Set) Match(relPath string) bool {
	for _, p := range s {
		if p.Match(relPath) {
			return true
		}
	}
	return false
}

// MatchDir reports whether any pattern matches the directory relPath.
func (s Set) MatchDir(relPath string) bool {
	for _, p := range s {
		if p.MatchDir(relPath) {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	return strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
}

func toRegex(pattern string) string {
	var sb strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' &&
				(i == 0 || pattern[i-1] == '/') {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ - any number of directories, including none
					sb.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i+2 == len(pattern) {
					sb.WriteString(".*")
					i += 2
					continue
				}
			}
			sb.WriteString("[^/]*")
			i++

		case '?':
			sb.WriteString("[^/]")
			i++

		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				class := pattern[i+1 : j]
				if strings.HasPrefix(class, "!") {
					class = "^" + class[1:]
				}
				sb.WriteString("[" + class + "]")
				i = j + 1
			} else {
				sb.WriteString(regexp.QuoteMeta("["))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				sb.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				sb.WriteString(regexp.QuoteMeta("\\"))
				i++
			}

		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return sb.String()
}
