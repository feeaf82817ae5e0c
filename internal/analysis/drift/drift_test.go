package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/reasonledger/pkg/models"
)

func chain(confidences ...float64) []*models.ThoughtRecord {
	out := make([]*models.ThoughtRecord, len(confidences))
	for i, c := range confidences {
		out[i] = &models.ThoughtRecord{
			StepNumber:   i + 1,
			Thought:      "step",
			Verification: &models.Verification{Confidence: c, Passed: true, Domain: models.DomainGeneral},
		}
	}
	return out
}

func TestAnalyzePatterns(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		pattern    Pattern
		unresolved bool
	}{
		{name: "too short", values: []float64{0.9, 0.4}, pattern: PatternInsufficient},
		{name: "v shape", values: []float64{0.9, 0.5, 0.85}, pattern: PatternVShaped, unresolved: true},
		{name: "shallow v is stable", values: []float64{0.8, 0.82, 0.79, 0.81}, pattern: PatternStable},
		{name: "cliff", values: []float64{0.8, 0.82, 0.8, 0.4}, pattern: PatternCliff, unresolved: true},
		{name: "small cliff resolved", values: []float64{0.8, 0.81, 0.8, 0.6}, pattern: PatternCliff},
		{name: "overconfident", values: []float64{0.95, 0.96, 0.95, 0.97}, pattern: PatternStableOverconfident, unresolved: true},
		{name: "declining low", values: []float64{0.9, 0.75, 0.6, 0.45, 0.44}, pattern: PatternDeclining, unresolved: true},
		{name: "improving", values: []float64{0.3, 0.45, 0.6, 0.75, 0.9}, pattern: PatternImproving},
		{name: "oscillating", values: []float64{0.5, 0.7, 0.52, 0.7, 0.5, 0.68}, pattern: PatternOscillating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(chain(tt.values...))
			require.NotNil(t, a)
			assert.Equal(t, tt.pattern, a.Pattern)
			assert.Equal(t, tt.unresolved, a.Unresolved)
			assert.NotEmpty(t, a.Explanation)
			if tt.unresolved {
				assert.NotEmpty(t, a.Suggestion)
			} else {
				assert.Empty(t, a.Suggestion)
			}
			assert.GreaterOrEqual(t, a.DriftScore, 0.0)
			assert.LessOrEqual(t, a.DriftScore, 1.0)
		})
	}
}

func TestVShapedUnresolved(t *testing.T) {
	a := Analyze(chain(0.9, 0.5, 0.85))

	assert.Equal(t, PatternVShaped, a.Pattern)
	assert.True(t, a.Unresolved)
	assert.Equal(t, 2, a.MinStep)
	assert.InDelta(t, 0.5, a.MinConfidence, 1e-9)
	assert.InDelta(t, 0.4, a.MaxDrop, 1e-9)
	assert.InDelta(t, 0.35, a.Recovery, 1e-9)
	assert.InDelta(t, 0.4, a.DriftScore, 1e-9)
	assert.False(t, a.HasRevisionAfterDrop)
	assert.Contains(t, a.Suggestion, "step 2")
	assert.Contains(t, a.Suggestion, "revises_step=2")
}

func TestVShapedResolvedByRevision(t *testing.T) {
	steps := chain(0.9, 0.5, 0.85)
	steps[2].RevisesStep = 2

	a := Analyze(steps)
	assert.Equal(t, PatternVShaped, a.Pattern)
	assert.False(t, a.Unresolved)
	assert.True(t, a.HasRevisionAfterDrop)
	assert.Empty(t, a.Suggestion)
}

func TestRevisionBeforeDipDoesNotResolve(t *testing.T) {
	steps := chain(0.9, 0.85, 0.4, 0.9)
	steps[1].RevisesStep = 1

	a := Analyze(steps)
	assert.Equal(t, PatternVShaped, a.Pattern)
	assert.False(t, a.HasRevisionAfterDrop)
	assert.True(t, a.Unresolved)
}

func TestStableDriftScore(t *testing.T) {
	a := Analyze(chain(0.8, 0.82, 0.79, 0.81))
	assert.Equal(t, PatternStable, a.Pattern)
	assert.Less(t, a.DriftScore, 0.1)
	assert.False(t, a.Unresolved)
}

func TestMissingConfidenceDefaults(t *testing.T) {
	steps := []*models.ThoughtRecord{
		{StepNumber: 1, Thought: "a"},
		{StepNumber: 2, Thought: "b"},
		nil,
		{StepNumber: 3, Thought: "c"},
	}
	a := Analyze(steps)
	assert.Equal(t, 3, a.StepsAnalyzed)
	assert.Equal(t, PatternStable, a.Pattern)
	assert.InDelta(t, 0.5, a.FinalConfidence, 1e-9)
	assert.Zero(t, a.DriftScore)
}

func TestOverconfidentScoreFloor(t *testing.T) {
	a := Analyze(chain(0.9, 0.91, 0.9))
	assert.Equal(t, PatternStableOverconfident, a.Pattern)
	assert.True(t, a.Unresolved)
	assert.InDelta(t, 0.4, a.DriftScore, 1e-9)
}

func TestEmptyInput(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, PatternInsufficient, a.Pattern)
	assert.False(t, a.Unresolved)
	assert.Zero(t, a.StepsAnalyzed)
}

func TestCustomConfig(t *testing.T) {
	values := chain(0.9, 0.5, 0.85)

	a := AnalyzeWithConfig(values, Config{MinSteps: 4})
	assert.Equal(t, PatternInsufficient, a.Pattern)

	a = AnalyzeWithConfig(values, Config{UnresolvedThreshold: 0.5})
	assert.Equal(t, PatternVShaped, a.Pattern)
	assert.False(t, a.Unresolved)
}

func TestConfidenceClamped(t *testing.T) {
	a := Analyze(chain(1.5, -0.2, 1.0))
	assert.InDelta(t, 0.0, a.MinConfidence, 1e-9)
	assert.InDelta(t, 1.0, a.FinalConfidence, 1e-9)
	assert.LessOrEqual(t, a.DriftScore, 1.0)
}
