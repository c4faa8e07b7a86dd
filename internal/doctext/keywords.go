package doctext

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all also am an and any are as at
		be because been before being below between both but by can could
		did do does doing down during each few for from further get got
		had has have having he her here hers herself him himself his how
		i if in into is it its itself just me more most my myself no nor
		not now of off on once only or other our ours ourselves out over
		own same she should so some such than that the their theirs them
		themselves then there these they this those through to too under
		until up use used using very via was we were what when where
		which while who whom why will with would you your yours yourself`) {
		stopwords[w] = true
	}
}

// IsStopword reports whether w (lower-case) is ignored as a keyword.
func IsStopword(w string) bool {
	return stopwords[w]
}

// ExtractKeywords returns the distinct lower-case words of query longer than
// two characters that are not stopwords, in first-seen order.
func ExtractKeywords(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if len([]rune(w)) <= 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// KeywordMatch is one occurrence of a keyword in content.
// Start and End are byte offsets into the original content.
type KeywordMatch struct {
	Start   int
	End     int
	Keyword string
}

// FindKeywordMatches finds every case-insensitive occurrence of each keyword,
// sorted by start offset.
func FindKeywordMatches(content string, keywords []string) []KeywordMatch {
	var matches []KeywordMatch
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
		for _, loc := range re.FindAllStringIndex(content, -1) {
			matches = append(matches, KeywordMatch{Start: loc[0], End: loc[1], Keyword: kw})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	return matches
}
