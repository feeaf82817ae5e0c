package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepID(t *testing.T) {
	assert.Equal(t, "s1:main:3", StepID("s1", "", 3))
	assert.Equal(t, "s1:alt:2", StepID("s1", "alt", 2))
}

func TestBranchDefault(t *testing.T) {
	assert.Equal(t, DefaultBranch, (&ThoughtRecord{}).Branch())
	assert.Equal(t, "alt", (&ThoughtRecord{BranchID: "alt"}).Branch())
}

func TestConfidence(t *testing.T) {
	c, ok := (&ThoughtRecord{}).Confidence()
	assert.False(t, ok)
	assert.Equal(t, DefaultConfidence, c)

	var nilRec *ThoughtRecord
	c, ok = nilRec.Confidence()
	assert.False(t, ok)
	assert.Equal(t, DefaultConfidence, c)

	c, ok = (&ThoughtRecord{Verification: &Verification{Confidence: 0.9}}).Confidence()
	assert.True(t, ok)
	assert.Equal(t, 0.9, c)
}

func TestVerificationDomainValid(t *testing.T) {
	for _, d := range []VerificationDomain{DomainMath, DomainLogic, DomainCode, DomainGeneral} {
		assert.True(t, d.Valid(), d)
	}
	assert.False(t, VerificationDomain("astrology").Valid())
	assert.False(t, VerificationDomain("").Valid())
}

func TestCompressionTotal(t *testing.T) {
	var nilMetrics *CompressionMetrics
	assert.Zero(t, nilMetrics.Total())
	assert.EqualValues(t, 6, (&CompressionMetrics{InputBytesSaved: 1, OutputBytesSaved: 2, ContextBytesSaved: 3}).Total())
}

func TestCloneIsDeep(t *testing.T) {
	orig := &ThoughtRecord{
		StepNumber:   2,
		Thought:      "x = 1",
		Verification: &Verification{Domain: DomainMath, Confidence: 0.7, Passed: true},
		Compression:  &CompressionMetrics{InputBytesSaved: 5},
		Dependencies: []int{1},
	}
	c := orig.Clone()
	require.Equal(t, orig, c)

	c.Verification.Confidence = 0.1
	c.Compression.InputBytesSaved = 0
	c.Dependencies[0] = 9

	assert.Equal(t, 0.7, orig.Verification.Confidence)
	assert.EqualValues(t, 5, orig.Compression.InputBytesSaved)
	assert.Equal(t, []int{1}, orig.Dependencies)

	var nilRec *ThoughtRecord
	assert.Nil(t, nilRec.Clone())
}

func TestThoughtRecordJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(&ThoughtRecord{
		StepNumber:  3,
		BranchID:    "alt",
		BranchFrom:  2,
		RevisesStep: 1,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"step_number", "branch_id", "branch_from", "revises_step", "thought", "next_step_needed"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "verification")
	assert.NotContains(t, fields, "dependencies")
}
