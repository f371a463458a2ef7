package retrieval

import "strings"

// CanonicalFallback is the single stored form of every "no grounded answer"
// response. Conversation history, the failed-query log and the UI all see
// this exact sentence regardless of how the model phrased it.
const CanonicalFallback = "I don't have info on that yet. Try rephrasing or contact support."

// fallbackPhrases are the recognized no-answer phrasings, matched
// case-insensitively as substrings. Models drift between apostrophe
// variants, so all near-duplicate spellings are listed.
var fallbackPhrases = []string{
	"i don't have that information",
	"i dont have that information",
	"i don’t have that information",
	"i don't have info",
	"no answer",
	"no data",
	"no results",
}

// FallbackClassifier decides whether an assistant answer is a grounded
// response or a no-answer fallback, and rewrites fallbacks to the canonical
// sentence. Kept behind a type so alternate phrasings or locales can be
// added without touching call sites.
type FallbackClassifier struct {
	phrases []string
}

// NewFallbackClassifier creates a classifier with the default phrase set.
func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{phrases: fallbackPhrases}
}

// Failed reports whether the answer is empty or a recognized no-answer
// phrasing.
func (c *FallbackClassifier) Failed(answer string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(answer))
	if trimmed == "" {
		return true
	}
	for _, phrase := range c.phrases {
		if strings.Contains(trimmed, phrase) {
			return true
		}
	}
	return false
}

// Normalize rewrites failed answers to CanonicalFallback and returns
// grounded answers unchanged.
func (c *FallbackClassifier) Normalize(answer string) string {
	if c.Failed(answer) {
		return CanonicalFallback
	}
	return answer
}
