package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		set1     map[string]bool
		set2     map[string]bool
		expected float64
	}{
		{
			name:     "identical sets",
			set1:     map[string]bool{"a": true, "b": true, "c": true},
			set2:     map[string]bool{"a": true, "b": true, "c": true},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			set1:     map[string]bool{"a": true, "b": true},
			set2:     map[string]bool{"c": true, "d": true},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			set1:     map[string]bool{"a": true, "b": true, "c": true},
			set2:     map[string]bool{"b": true, "c": true, "d": true},
			expected: 0.5, // intersection=2, union=4
		},
		{
			name:     "empty sets",
			set1:     map[string]bool{},
			set2:     map[string]bool{},
			expected: 1.0,
		},
		{
			name:     "one empty set",
			set1:     map[string]bool{"a": true},
			set2:     map[string]bool{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, JaccardSimilarity(tt.set1, tt.set2), 0.001)
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "derivative", "of", "f_x", "is", "2x"}, Tokenize("The derivative of f_x is 2x."))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestStem(t *testing.T) {
	assert.Equal(t, Stem("increasing"), Stem("increases"))
	assert.Equal(t, "derivative", Stem("derivative"))
	assert.Equal(t, "value", Stem("values"))
	assert.Equal(t, "class", Stem("class"))
	assert.Equal(t, "x", Stem("x"))
}

func TestTextTerms(t *testing.T) {
	terms := TextTerms("The gradients are decreasing and the loss is stable")

	assert.True(t, terms["gradient"])
	assert.True(t, terms["loss"])
	assert.True(t, terms["decreas"])
	assert.False(t, terms["the"])
	assert.False(t, terms["and"])
}

func TestAssociated(t *testing.T) {
	a := TextTerms("the derivative")
	b := TextTerms("derivative")
	c := TextTerms("sample mean")

	assert.True(t, Associated(a, b, 0.5))
	assert.False(t, Associated(a, c, 0.5))
	assert.False(t, Associated(map[string]bool{}, map[string]bool{}, 0.5))
}
