package consistency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocabulary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultVocabularyIsCopy(t *testing.T) {
	v := DefaultVocabulary()
	v.Pairs[0].Positive[0] = "mutated"

	assert.NotEqual(t, "mutated", DefaultVocabulary().Pairs[0].Positive[0])
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	v, err := LoadVocabulary(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, v.Pairs, len(DefaultVocabulary().Pairs))

	v, err = LoadVocabulary("")
	require.NoError(t, err)
	assert.Len(t, v.Pairs, len(DefaultVocabulary().Pairs))
}

func TestLoadVocabularyMerges(t *testing.T) {
	path := writeVocabulary(t, `
pairs:
  - name: state
    positive: [enabled]
    negative: [disabled]
  - name: sign
    positive: [nonnegative]
    negative: [nonpositive]
`)

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Len(t, v.Pairs, len(DefaultVocabulary().Pairs)+1)

	last := v.Pairs[len(v.Pairs)-1]
	assert.Equal(t, "state", last.Name)
	assert.Equal(t, KindPolarity, last.Kind)
	assert.Contains(t, v.Pairs[0].Positive, "nonnegative")

	checker, err := NewChecker(v)
	require.NoError(t, err)

	res := checker.Check(chain("The cache is enabled", "The cache is disabled"))
	flips := ofType(res.Contradictions, SignFlip)
	require.Len(t, flips, 1)
	assert.Equal(t, "cache", flips[0].Subject)
}

func TestLoadVocabularyErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "pairs: [oops"},
		{"missing name", "pairs:\n  - positive: [a]\n    negative: [b]\n"},
		{"missing side", "pairs:\n  - name: half\n    positive: [up]\n"},
		{"unknown kind", "pairs:\n  - name: odd\n    kind: modal\n    positive: [may]\n    negative: [mayn't]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadVocabulary(writeVocabulary(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewChecker(t *testing.T) {
	c, err := NewChecker(nil)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewChecker(&Vocabulary{})
	assert.Error(t, err)

	assert.Same(t, Default(), Default())
}
