package consistency

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/thebtf/reasonledger/pkg/similarity"
)

const (
	subjectWindow   = 3
	predicateBefore = 2
	predicateAfter  = 3
	negationReach   = 2
)

// assignmentPattern recognizes one way of binding a numeric value to a
// variable. name and value are submatch indexes.
type assignmentPattern struct {
	re    *regexp.Regexp
	kind  string
	name  int
	value int
}

var assignmentPatterns = []assignmentPattern{
	{kind: "equals_sign", re: regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(-?\d+(?:\.\d+)?)\b`), name: 1, value: 2},
	{kind: "equals_word", re: regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s+(?i:equals|is equal to)\s+(-?\d+(?:\.\d+)?)\b`), name: 1, value: 2},
	{kind: "let_be", re: regexp.MustCompile(`\b(?i:let)\s+([A-Za-z_][A-Za-z0-9_]*)\s+(?i:be)\s+(-?\d+(?:\.\d+)?)\b`), name: 1, value: 2},
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"isn't": true, "aren't": true, "wasn't": true, "weren't": true,
	"doesn't": true, "don't": true, "didn't": true, "cannot": true,
	"can't": true, "won't": true, "shouldn't": true,
}

// assignment is the final value a step gives a variable.
type assignment struct {
	name  string
	raw   string
	num   float64
	isNum bool
	pos   int
}

func (a assignment) sameValue(b assignment) bool {
	if a.isNum && b.isNum {
		d := a.num - b.num
		return d < 1e-9 && d > -1e-9
	}
	return a.raw == b.raw
}

// claim is a vocabulary term asserted about a subject.
type claim struct {
	terms    map[string]bool
	subject  string
	term     string
	pair     int
	positive bool
	negated  bool
}

type stepFacts struct {
	assignments []assignment
	claims      []claim
	index       int
	step        int
}

type token struct {
	text   string
	start  int
	end    int
	clause int
}

// extractAssignments returns the last value each variable receives in text,
// ordered by first appearance.
func extractAssignments(text string) []assignment {
	var found []assignment
	for _, p := range assignmentPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if isOperand(text, m[0], m[1]) {
				continue
			}
			a := assignment{
				name: strings.ToLower(text[m[2*p.name]:m[2*p.name+1]]),
				raw:  text[m[2*p.value]:m[2*p.value+1]],
				pos:  m[0],
			}
			if f, err := strconv.ParseFloat(a.raw, 64); err == nil {
				a.num, a.isNum = f, true
			}
			found = append(found, a)
		}
	}
	if len(found) == 0 {
		return nil
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	order := make([]string, 0, len(found))
	last := make(map[string]assignment, len(found))
	for _, a := range found {
		if _, seen := last[a.name]; !seen {
			order = append(order, a.name)
		}
		last[a.name] = a
	}

	out := make([]assignment, 0, len(order))
	for _, name := range order {
		out = append(out, last[name])
	}
	return out
}

// isOperand reports whether the match at [start,end) is part of a larger
// arithmetic expression ("2 * x = 10", "x = 5 + y") rather than a binding.
func isOperand(text string, start, end int) bool {
	i := start - 1
	for i >= 0 && text[i] == ' ' {
		i--
	}
	if i >= 0 && strings.IndexByte("+-*/^%", text[i]) >= 0 && !isBullet(text, i) {
		return true
	}
	j := end
	for j < len(text) && text[j] == ' ' {
		j++
	}
	return j < len(text) && strings.IndexByte("+-*/^%", text[j]) >= 0
}

// isBullet reports whether the operator at i only has whitespace before it
// on its line, as in a markdown list item.
func isBullet(text string, i int) bool {
	for k := i - 1; k >= 0; k-- {
		switch text[k] {
		case '\n':
			return true
		case ' ', '\t':
			continue
		default:
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' ||
		b == '_' || b == '\'' || b == '-' || b >= 0x80
}

func isClauseBreak(text string, i int) bool {
	switch text[i] {
	case ',', ';', ':', '!', '?', '\n':
		return true
	case '.':
		return i+1 >= len(text) || text[i+1] < '0' || text[i+1] > '9'
	}
	return false
}

// tokenize splits lowered text into words tagged with their clause.
func tokenize(text string) []token {
	var tokens []token
	clause := 0
	for i := 0; i < len(text); {
		if isClauseBreak(text, i) {
			clause++
			i++
			continue
		}
		if !isWordByte(text[i]) || text[i] == '-' || text[i] == '\'' {
			i++
			continue
		}
		start := i
		for i < len(text) && isWordByte(text[i]) && text[i] != '-' {
			i++
		}
		tokens = append(tokens, token{text: text[start:i], start: start, end: i, clause: clause})
	}
	return tokens
}

type span struct {
	start, end int
	ref        termRef
}

// extractClaims scans lowered text for vocabulary terms and attaches each
// to the subject words around it.
func (c *Checker) extractClaims(lowered string) []claim {
	matches := c.ac.FindAllOverlapping([]byte(lowered))
	if len(matches) == 0 {
		return nil
	}

	spans := make([]span, 0, len(matches))
	for _, m := range matches {
		if m.Start > 0 && isWordByte(lowered[m.Start-1]) {
			continue
		}
		if m.End < len(lowered) && isWordByte(lowered[m.End]) {
			continue
		}
		spans = append(spans, span{start: m.Start, end: m.End, ref: c.terms[m.PatternID]})
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	// Drop terms nested inside a longer match ("safe" in "thread-safe").
	kept := spans[:0]
	reach := -1
	for _, s := range spans {
		if s.end <= reach {
			continue
		}
		kept = append(kept, s)
		reach = s.end
	}
	if len(kept) == 0 {
		return nil
	}

	tokens := tokenize(lowered)
	vocabKind := make([]PairKind, len(tokens))
	first := make([]int, len(kept))
	last := make([]int, len(kept))
	for k, s := range kept {
		first[k] = sort.Search(len(tokens), func(i int) bool { return tokens[i].end > s.start })
		last[k] = first[k]
		for i := first[k]; i < len(tokens) && tokens[i].start < s.end; i++ {
			vocabKind[i] = s.ref.kind
			last[k] = i
		}
	}

	claims := make([]claim, 0, len(kept))
	for k, s := range kept {
		lo, hi := first[k], last[k]
		if lo >= len(tokens) {
			continue
		}
		clause := tokens[lo].clause
		negated := isNegated(tokens, lo, clause)

		var words []string
		if s.ref.kind == KindQuantifier {
			if negated {
				continue
			}
			words = append(window(tokens, vocabKind, KindQuantifier, lo-1, -1, clause, predicateBefore),
				window(tokens, vocabKind, KindQuantifier, hi+1, 1, clause, predicateAfter)...)
		} else {
			words = window(tokens, vocabKind, "", lo-1, -1, clause, subjectWindow)
		}
		if len(words) == 0 {
			continue
		}

		terms := make(map[string]bool, len(words))
		for _, w := range words {
			terms[similarity.Stem(w)] = true
		}

		positive := s.ref.positive
		if negated {
			positive = !positive
		}
		claims = append(claims, claim{
			terms:    terms,
			subject:  strings.Join(words, " "),
			term:     lowered[s.start:s.end],
			pair:     s.ref.pair,
			positive: positive,
			negated:  negated,
		})
	}
	return claims
}

func isNegated(tokens []token, at, clause int) bool {
	for i := at - 1; i >= 0 && i >= at-negationReach; i-- {
		if tokens[i].clause != clause {
			return false
		}
		if negators[tokens[i].text] {
			return true
		}
	}
	return false
}

// window collects up to limit content words walking from i in direction
// dir, staying inside clause. Vocabulary words are skipped; when only is
// set, just the words of that kind. Words are returned in text order.
func window(tokens []token, kinds []PairKind, only PairKind, i, dir, clause, limit int) []string {
	var words []string
	for ; i >= 0 && i < len(tokens) && len(words) < limit; i += dir {
		t := tokens[i]
		if t.clause != clause {
			break
		}
		if kinds[i] != "" && (only == "" || kinds[i] == only) {
			continue
		}
		if !isContent(t.text) {
			continue
		}
		words = append(words, t.text)
	}
	if dir < 0 {
		for l, r := 0, len(words)-1; l < r; l, r = l+1, r-1 {
			words[l], words[r] = words[r], words[l]
		}
	}
	return words
}

// isContent keeps single-letter variable names that stopword lists drop.
func isContent(word string) bool {
	if negators[word] {
		return false
	}
	if len(word) == 1 && word != "a" && word != "i" {
		return true
	}
	return !similarity.IsStopword(word)
}
