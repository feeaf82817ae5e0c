// Package similarity provides term extraction and set similarity used to
// decide whether two claims talk about the same subject.
package similarity

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// Tokenize lowercases text and splits it on anything that is not a letter,
// digit or underscore.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '\'')
	})
}

// IsStopword reports whether word carries no subject meaning.
func IsStopword(word string) bool {
	return english.Contains(word)
}

// Stem strips a few common English suffixes so inflections compare equal
// ("increasing", "increases" -> "increas").
func Stem(word string) string {
	switch {
	case len(word) > 5 && strings.HasSuffix(word, "ing"):
		return word[:len(word)-3]
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 4 && strings.HasSuffix(word, "es") && strings.ContainsAny(word[len(word)-3:len(word)-2], "sxz"):
		return word[:len(word)-2]
	case len(word) > 5 && (strings.HasSuffix(word, "ches") || strings.HasSuffix(word, "shes")):
		return word[:len(word)-2]
	case len(word) > 4 && strings.HasSuffix(word, "ed"):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	}
	return word
}

// Terms returns the stemmed, stopword-free term set of words.
func Terms(words []string) map[string]bool {
	terms := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" || IsStopword(w) {
			continue
		}
		terms[Stem(w)] = true
	}
	return terms
}

// TextTerms tokenizes text and returns its term set.
func TextTerms(text string) map[string]bool {
	return Terms(Tokenize(text))
}

// JaccardSimilarity calculates the Jaccard similarity between two term sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// Associated reports whether two non-empty term sets overlap at least
// threshold by Jaccard similarity.
func Associated(set1, set2 map[string]bool, threshold float64) bool {
	if len(set1) == 0 || len(set2) == 0 {
		return false
	}
	return JaccardSimilarity(set1, set2) >= threshold
}
