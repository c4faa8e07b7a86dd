package doctext

import (
	"strings"

	"github.com/Aman-CERP/amandocs/internal/glob"
)

// IsReferenceDocument reports whether relPath (relative to the repository
// root) is a reference guide. Configured patterns decide when present;
// otherwise any path segment named "reference" qualifies.
func IsReferenceDocument(relPath string, patterns glob.Set) bool {
	if len(patterns) > 0 {
		return patterns.Match(relPath)
	}
	for _, seg := range strings.Split(strings.ReplaceAll(relPath, "\\", "/"), "/") {
		if seg == "reference" {
			return true
		}
	}
	return false
}
