// Package consistency detects contradictions between the steps of a
// reasoning chain: variables bound to different values, subjects described
// with opposite properties, and predicates claimed to hold always and never.
package consistency

import (
	"fmt"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"

	"github.com/thebtf/reasonledger/pkg/models"
	"github.com/thebtf/reasonledger/pkg/similarity"
)

// ContradictionType classifies a contradiction.
type ContradictionType string

const (
	ValueReassignment ContradictionType = "value_reassignment"
	SignFlip          ContradictionType = "sign_flip"
	LogicalConflict   ContradictionType = "logical_conflict"
)

// DefaultAssociationThreshold is the minimum Jaccard overlap between two
// claims' subject terms for them to be about the same thing.
const DefaultAssociationThreshold = 0.5

// Contradiction is a pair of steps that disagree about Subject.
type Contradiction struct {
	Type             ContradictionType `json:"type"`
	Subject          string            `json:"subject"`
	OriginalValue    string            `json:"original_value"`
	ConflictingValue string            `json:"conflicting_value"`
	Explanation      string            `json:"explanation"`
	OriginalStep     int               `json:"original_step"`
	ConflictingStep  int               `json:"conflicting_step"`
}

// Result is the outcome of checking a chain.
type Result struct {
	Contradictions    []Contradiction `json:"contradictions"`
	StepsAnalyzed     int             `json:"steps_analyzed"`
	HasContradictions bool            `json:"has_contradictions"`
}

type termRef struct {
	kind     PairKind
	pair     int
	positive bool
}

// Checker holds a compiled vocabulary. It is safe for concurrent use.
type Checker struct {
	ac        *ahocorasick.Automaton
	pairs     []Pair
	terms     []termRef
	threshold float64
}

// NewChecker compiles vocab into a matcher. A nil vocab uses the defaults.
func NewChecker(vocab *Vocabulary) (*Checker, error) {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	c := &Checker{pairs: vocab.Pairs, threshold: DefaultAssociationThreshold}
	seen := make(map[string]bool)
	var patterns []string
	for i, p := range vocab.Pairs {
		for _, side := range []struct {
			words    []string
			positive bool
		}{{p.Positive, true}, {p.Negative, false}} {
			for _, w := range side.words {
				w = strings.ToLower(strings.TrimSpace(w))
				if w == "" || seen[w] {
					continue
				}
				seen[w] = true
				patterns = append(patterns, w)
				c.terms = append(c.terms, termRef{kind: p.Kind, pair: i, positive: side.positive})
			}
		}
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("vocabulary has no terms")
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build vocabulary matcher: %w", err)
	}
	c.ac = ac
	return c, nil
}

var (
	defaultChecker     *Checker
	defaultCheckerOnce sync.Once
)

// Default returns the checker built from DefaultVocabulary.
func Default() *Checker {
	defaultCheckerOnce.Do(func() {
		c, err := NewChecker(DefaultVocabulary())
		if err != nil {
			panic(err)
		}
		defaultChecker = c
	})
	return defaultChecker
}

// CheckConsistency checks a chain with the default checker.
func CheckConsistency(steps []*models.ThoughtRecord) Result {
	return Default().Check(steps)
}

// CheckStepConsistency checks one new step against prior steps with the
// default checker.
func CheckStepConsistency(newStep *models.ThoughtRecord, prior []*models.ThoughtRecord) []Contradiction {
	return Default().CheckStep(newStep, prior)
}

// Check reports every contradiction in steps. Statements within one step
// never contradict each other.
func (c *Checker) Check(steps []*models.ThoughtRecord) Result {
	facts := c.collect(steps)
	found := c.compare(facts, -1)
	return Result{
		Contradictions:    found,
		StepsAnalyzed:     len(facts),
		HasContradictions: len(found) > 0,
	}
}

// CheckStep reports contradictions introduced by newStep relative to prior.
func (c *Checker) CheckStep(newStep *models.ThoughtRecord, prior []*models.ThoughtRecord) []Contradiction {
	if newStep == nil {
		return []Contradiction{}
	}
	all := make([]*models.ThoughtRecord, 0, len(prior)+1)
	all = append(all, prior...)
	all = append(all, newStep)

	facts := c.collect(all)
	return c.compare(facts, len(facts)-1)
}

func (c *Checker) collect(steps []*models.ThoughtRecord) []stepFacts {
	facts := make([]stepFacts, 0, len(steps))
	for _, rec := range steps {
		if rec == nil {
			continue
		}
		idx := len(facts)
		step := rec.StepNumber
		if step == 0 {
			step = idx + 1
		}
		facts = append(facts, stepFacts{
			index:       idx,
			step:        step,
			assignments: extractAssignments(rec.Thought),
			claims:      c.extractClaims(strings.ToLower(rec.Thought)),
		})
	}
	return facts
}

type priorClaim struct {
	claim
	step int
}

// compare walks the chain in order, comparing each step's facts with the
// latest earlier fact on the same subject. With only >= 0, just the
// contradictions raised by that step are returned.
func (c *Checker) compare(facts []stepFacts, only int) []Contradiction {
	found := []Contradiction{}

	type binding struct {
		assignment
		step int
	}
	values := make(map[string]binding)
	byPair := make(map[int][]priorClaim)

	for _, f := range facts {
		report := only < 0 || f.index == only

		for _, a := range f.assignments {
			prev, ok := values[a.name]
			if ok && report && !prev.sameValue(a) {
				found = append(found, Contradiction{
					Type:             ValueReassignment,
					Subject:          a.name,
					OriginalValue:    prev.raw,
					OriginalStep:     prev.step,
					ConflictingValue: a.raw,
					ConflictingStep:  f.step,
					Explanation: fmt.Sprintf("%s was %s at step %d but is %s at step %d",
						a.name, prev.raw, prev.step, a.raw, f.step),
				})
			}
		}

		if report {
			for _, cl := range f.claims {
				prev, ok := c.latestAbout(byPair[cl.pair], cl)
				if !ok || prev.positive == cl.positive {
					continue
				}
				found = append(found, c.claimConflict(prev, cl, f.step))
			}
		}

		// Earlier steps become visible only after the whole step is compared.
		for _, a := range f.assignments {
			values[a.name] = binding{assignment: a, step: f.step}
		}
		for _, cl := range f.claims {
			byPair[cl.pair] = append(byPair[cl.pair], priorClaim{claim: cl, step: f.step})
		}
	}
	return found
}

func (c *Checker) latestAbout(prior []priorClaim, cl claim) (priorClaim, bool) {
	for i := len(prior) - 1; i >= 0; i-- {
		if similarity.Associated(prior[i].terms, cl.terms, c.threshold) {
			return prior[i], true
		}
	}
	return priorClaim{}, false
}

func (c *Checker) claimConflict(prev priorClaim, cl claim, step int) Contradiction {
	kind := SignFlip
	if c.pairs[cl.pair].Kind == KindQuantifier {
		kind = LogicalConflict
	}

	original := polarityLabel(prev.claim)
	conflicting := polarityLabel(cl)

	var explanation string
	if kind == LogicalConflict {
		explanation = fmt.Sprintf("%q holds %s at step %d but %s at step %d",
			cl.subject, original, prev.step, conflicting, step)
	} else {
		explanation = fmt.Sprintf("%q is %s at step %d but %s at step %d",
			cl.subject, original, prev.step, conflicting, step)
	}

	return Contradiction{
		Type:             kind,
		Subject:          cl.subject,
		OriginalValue:    original,
		OriginalStep:     prev.step,
		ConflictingValue: conflicting,
		ConflictingStep:  step,
		Explanation:      explanation,
	}
}

func polarityLabel(cl claim) string {
	if cl.negated {
		return "not " + cl.term
	}
	return cl.term
}
