package retrieval

import (
	"regexp"
	"strings"
)

// Completion output formatting is not contractually guaranteed, so the
// suggestion parser lives here as an independently testable utility.

// bulletPrefix strips leading bullets, numbering and punctuation like
// "1.", "2)", "-", "*" or "•" from a suggestion line.
var bulletPrefix = regexp.MustCompile(`^[\s\-\*\x{2022}\d\.\)]+`)

// defaultSuggestions cover products whose context yields nothing usable.
var defaultSuggestions = []string{
	"What is this product about?",
	"How do I use this product?",
	"What are the main features?",
}

// ParseSuggestions extracts up to n cleaned suggestion lines from raw
// completion output, deduplicating case-insensitively and padding with
// defaults when the output comes up short.
func ParseSuggestions(raw string, n int) []string {
	if n <= 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		s = bulletPrefix.ReplaceAllString(s, "")
		s = strings.Trim(s, `"' `)
		if s != "" {
			lines = append(lines, s)
		}
	}

	seen := make(map[string]struct{}, len(lines))
	results := make([]string, 0, n)
	for _, line := range lines {
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, line)
		if len(results) >= n {
			return results
		}
	}

	for _, d := range defaultSuggestions {
		if len(results) >= n {
			break
		}
		if _, dup := seen[strings.ToLower(d)]; !dup {
			results = append(results, d)
			seen[strings.ToLower(d)] = struct{}{}
		}
	}
	return results
}

// DefaultSuggestions returns up to n generic suggestions.
func DefaultSuggestions(n int) []string {
	if n > len(defaultSuggestions) {
		n = len(defaultSuggestions)
	}
	return append([]string(nil), defaultSuggestions[:n]...)
}
