package processors

import (
	"regexp"
	"sort"
)

// urlPattern matches absolute http(s) URLs inside source text.
var urlPattern = regexp.MustCompile(`https?://[^\s'"` + "`" + `)\]}>]+`)

// quotedPathPattern matches quoted site-relative URLs such as '/api/users'.
var quotedPathPattern = regexp.MustCompile(`['"` + "`" + `](/[A-Za-z0-9_./-]+)['"` + "`" + `]`)

// extractURLs harvests absolute and quoted site-relative URLs from a source
// span, deduplicated and sorted for deterministic props.
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	for _, match := range urlPattern.FindAllString(text, -1) {
		seen[match] = true
	}
	for _, match := range quotedPathPattern.FindAllStringSubmatch(text, -1) {
		seen[match[1]] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// isConstantName reports whether a name follows the ALL_CAPS constant
// naming convention.
func isConstantName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, ch := range name {
		if ch >= 'a' && ch <= 'z' {
			return false
		}
	}
	return true
}
