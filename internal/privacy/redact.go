// Package privacy removes caller-marked content from thoughts before they
// are stored in the ledger.
package privacy

import (
	"regexp"
	"strings"
)

// Tags whose content never reaches the ledger. <ledger-context> marks
// digests the worker handed back to the caller; re-storing them would
// duplicate earlier steps.
var tagNames = []string{"private", "ledger-context"}

var tagRegexes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(tagNames))
	for _, name := range tagNames {
		m[name] = regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(name) + `>.*?</` + regexp.QuoteMeta(name) + `>`)
	}
	return m
}()

// StripTag removes every <name>...</name> block from text. Unknown tag
// names are left untouched.
func StripTag(text, name string) string {
	re, ok := tagRegexes[name]
	if !ok {
		return text
	}
	return re.ReplaceAllString(text, "")
}

// Redact strips all ledger privacy tags and trims the result. It also
// reports how many blocks were removed.
func Redact(text string) (string, int) {
	removed := 0
	for _, name := range tagNames {
		re := tagRegexes[name]
		removed += len(re.FindAllStringIndex(text, -1))
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text), removed
}

// IsEntirelyPrivate reports whether nothing is left of text once the
// privacy tags are removed.
func IsEntirelyPrivate(text string) bool {
	cleaned, _ := Redact(text)
	return cleaned == ""
}
