package consistency

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PairKind selects which contradiction a vocabulary pair produces.
type PairKind string

const (
	// KindPolarity pairs describe a property of a subject (positive/negative).
	KindPolarity PairKind = "polarity"
	// KindQuantifier pairs describe how often a predicate holds (always/never).
	KindQuantifier PairKind = "quantifier"
)

// Pair is a set of mutually exclusive terms. Any Positive term contradicts
// any Negative term about the same subject.
type Pair struct {
	Name     string   `yaml:"name"`
	Kind     PairKind `yaml:"kind"`
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Vocabulary is the opposition table the checker scans for.
type Vocabulary struct {
	Pairs []Pair `yaml:"pairs"`
}

var defaultPairs = []Pair{
	{Name: "sign", Kind: KindPolarity, Positive: []string{"positive"}, Negative: []string{"negative"}},
	{Name: "direction", Kind: KindPolarity,
		Positive: []string{"increasing", "increases", "increase", "rising", "rises", "grows", "growing"},
		Negative: []string{"decreasing", "decreases", "decrease", "falling", "falls", "shrinks", "shrinking"}},
	{Name: "truth", Kind: KindPolarity, Positive: []string{"true"}, Negative: []string{"false"}},
	{Name: "validity", Kind: KindPolarity, Positive: []string{"valid"}, Negative: []string{"invalid"}},
	{Name: "correctness", Kind: KindPolarity, Positive: []string{"correct"}, Negative: []string{"incorrect", "wrong"}},
	{Name: "possibility", Kind: KindPolarity, Positive: []string{"possible", "feasible"}, Negative: []string{"impossible", "infeasible"}},
	{Name: "parity", Kind: KindPolarity, Positive: []string{"even"}, Negative: []string{"odd"}},
	{Name: "primality", Kind: KindPolarity, Positive: []string{"prime"}, Negative: []string{"composite"}},
	{Name: "rationality", Kind: KindPolarity, Positive: []string{"rational"}, Negative: []string{"irrational"}},
	{Name: "finiteness", Kind: KindPolarity, Positive: []string{"finite", "bounded"}, Negative: []string{"infinite", "unbounded"}},
	{Name: "convergence", Kind: KindPolarity,
		Positive: []string{"converges", "convergent", "converging"},
		Negative: []string{"diverges", "divergent", "diverging"}},
	{Name: "order", Kind: KindPolarity,
		Positive: []string{"greater than", "larger than", "more than", "above"},
		Negative: []string{"less than", "smaller than", "fewer than", "below"}},
	{Name: "safety", Kind: KindPolarity, Positive: []string{"safe", "thread-safe"}, Negative: []string{"unsafe", "racy"}},
	{Name: "determinism", Kind: KindPolarity, Positive: []string{"deterministic"}, Negative: []string{"nondeterministic", "non-deterministic"}},
	{Name: "frequency", Kind: KindQuantifier, Positive: []string{"always"}, Negative: []string{"never"}},
	{Name: "coverage", Kind: KindQuantifier, Positive: []string{"all", "every"}, Negative: []string{"none"}},
}

// DefaultVocabulary returns a copy of the built-in opposition table.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{Pairs: make([]Pair, len(defaultPairs))}
	for i, p := range defaultPairs {
		v.Pairs[i] = Pair{
			Name:     p.Name,
			Kind:     p.Kind,
			Positive: append([]string(nil), p.Positive...),
			Negative: append([]string(nil), p.Negative...),
		}
	}
	return v
}

// LoadVocabulary reads extra pairs from a YAML file and merges them into
// the default table. A pair whose name matches a built-in pair extends
// it. A missing file yields the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from user config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vocab, nil
		}
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var extra Vocabulary
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	for _, p := range extra.Pairs {
		if err := vocab.merge(p); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("path", path).
		Int("extra_pairs", len(extra.Pairs)).
		Int("pairs", len(vocab.Pairs)).
		Msg("Loaded contradiction vocabulary")

	return vocab, nil
}

func (v *Vocabulary) merge(p Pair) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("vocabulary pair without name")
	}
	if p.Kind == "" {
		p.Kind = KindPolarity
	}
	if p.Kind != KindPolarity && p.Kind != KindQuantifier {
		return fmt.Errorf("vocabulary pair %q: unknown kind %q", p.Name, p.Kind)
	}
	if len(p.Positive) == 0 || len(p.Negative) == 0 {
		return fmt.Errorf("vocabulary pair %q needs positive and negative terms", p.Name)
	}

	for i := range v.Pairs {
		if v.Pairs[i].Name == p.Name {
			v.Pairs[i].Positive = append(v.Pairs[i].Positive, p.Positive...)
			v.Pairs[i].Negative = append(v.Pairs[i].Negative, p.Negative...)
			return nil
		}
	}
	v.Pairs = append(v.Pairs, p)
	return nil
}
