package matching

import (
	"regexp"
	"strings"
)

// markerExpr matches a leading provisional marker, "[À VÉRIFIER]" or the
// older "[TO VERIFY]", in any case. Other bracketed prefixes are title text.
var markerExpr = regexp.MustCompile(`(?i)^\s*\[\s*(?:à vérifier|a verifier|to verify)\s*\]\s*`)

// NormalizeTitle strips the provisional marker, trims and lowercases a title.
func NormalizeTitle(title string) string {
	title = markerExpr.ReplaceAllString(title, "")
	return strings.ToLower(strings.TrimSpace(title))
}

// titlesOverlap reports whether either normalized title contains the other.
func titlesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func sharesCaseNumber(left, right []string) bool {
	if len(left) == 0 || len(right) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(left))
	for _, n := range left {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
	for _, n := range right {
		if _, ok := set[strings.TrimSpace(n)]; ok {
			return true
		}
	}
	return false
}

func cleanCaseNumbers(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
