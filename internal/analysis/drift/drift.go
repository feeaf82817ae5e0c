// Package drift classifies the confidence trajectory of a reasoning chain
// and flags chains that pushed through doubt without addressing it.
package drift

import (
	"math"

	"github.com/thebtf/reasonledger/pkg/models"
)

// Pattern is the shape of a confidence trajectory.
type Pattern string

const (
	PatternInsufficient        Pattern = "insufficient"
	PatternVShaped             Pattern = "v_shaped"
	PatternCliff               Pattern = "cliff"
	PatternStableOverconfident Pattern = "stable_overconfident"
	PatternStable              Pattern = "stable"
	PatternDeclining           Pattern = "declining"
	PatternImproving           Pattern = "improving"
	PatternOscillating         Pattern = "oscillating"
)

// Config holds the analyzer thresholds. Zero fields take the defaults.
type Config struct {
	// MinSteps below which the pattern is insufficient.
	MinSteps int
	// SignificantChange is the drop/recovery size that counts as a swing.
	SignificantChange float64
	// UnresolvedThreshold is the drift score a v-shape needs to be flagged.
	UnresolvedThreshold float64
	// CliffThreshold is the final single-step drop that flags a cliff.
	CliffThreshold float64
	// OverconfidenceThreshold is the floor every value must clear for stable_overconfident.
	OverconfidenceThreshold float64
	// OverconfidentRange is the maximum spread for stable_overconfident.
	OverconfidentRange float64
	// StableRange is the maximum spread for stable.
	StableRange float64
	// TrendRatio is the share of same-direction moves for declining/improving.
	TrendRatio float64
	// MinReversals is the direction changes needed for oscillating.
	MinReversals int
	// DecliningFloor flags a decline that ends below it.
	DecliningFloor float64
	// FlaggedScoreFloor is the minimum score reported for flagged non-v patterns.
	FlaggedScoreFloor float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinSteps:                3,
		SignificantChange:       0.15,
		UnresolvedThreshold:     0.3,
		CliffThreshold:          0.3,
		OverconfidenceThreshold: 0.85,
		OverconfidentRange:      0.05,
		StableRange:             0.1,
		TrendRatio:              0.7,
		MinReversals:            3,
		DecliningFloor:          0.5,
		FlaggedScoreFloor:       0.4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinSteps <= 0 {
		c.MinSteps = d.MinSteps
	}
	if c.SignificantChange <= 0 {
		c.SignificantChange = d.SignificantChange
	}
	if c.UnresolvedThreshold <= 0 {
		c.UnresolvedThreshold = d.UnresolvedThreshold
	}
	if c.CliffThreshold <= 0 {
		c.CliffThreshold = d.CliffThreshold
	}
	if c.OverconfidenceThreshold <= 0 {
		c.OverconfidenceThreshold = d.OverconfidenceThreshold
	}
	if c.OverconfidentRange <= 0 {
		c.OverconfidentRange = d.OverconfidentRange
	}
	if c.StableRange <= 0 {
		c.StableRange = d.StableRange
	}
	if c.TrendRatio <= 0 {
		c.TrendRatio = d.TrendRatio
	}
	if c.MinReversals <= 0 {
		c.MinReversals = d.MinReversals
	}
	if c.DecliningFloor <= 0 {
		c.DecliningFloor = d.DecliningFloor
	}
	if c.FlaggedScoreFloor <= 0 {
		c.FlaggedScoreFloor = d.FlaggedScoreFloor
	}
	return c
}

// Analysis is the verdict for one trajectory.
type Analysis struct {
	Pattern              Pattern `json:"pattern"`
	Explanation          string  `json:"explanation"`
	Suggestion           string  `json:"suggestion,omitempty"`
	DriftScore           float64 `json:"drift_score"`
	MinConfidence        float64 `json:"min_confidence"`
	MaxDrop              float64 `json:"max_drop"`
	Recovery             float64 `json:"recovery"`
	FinalConfidence      float64 `json:"final_confidence"`
	MinStep              int     `json:"min_step"`
	StepsAnalyzed        int     `json:"steps_analyzed"`
	HasRevisionAfterDrop bool    `json:"has_revision_after_drop"`
	Unresolved           bool    `json:"unresolved"`
}

// point is one sample of the trajectory.
type point struct {
	confidence float64
	step       int
	revises    bool
}

// Analyze runs the analyzer with DefaultConfig.
func Analyze(steps []*models.ThoughtRecord) *Analysis {
	return AnalyzeWithConfig(steps, DefaultConfig())
}

// AnalyzeWithConfig classifies the trajectory of steps, which must already
// be in chain order. Missing confidence defaults to 0.5. It never fails.
func AnalyzeWithConfig(steps []*models.ThoughtRecord, cfg Config) *Analysis {
	cfg = cfg.withDefaults()
	pts := points(steps)

	a := &Analysis{StepsAnalyzed: len(pts)}
	if len(pts) < cfg.MinSteps {
		a.Pattern = PatternInsufficient
		if len(pts) > 0 {
			a.FinalConfidence = pts[len(pts)-1].confidence
			a.MinConfidence, a.MinStep = pts[0].confidence, pts[0].step
			for _, p := range pts[1:] {
				if p.confidence < a.MinConfidence {
					a.MinConfidence, a.MinStep = p.confidence, p.step
				}
			}
		}
		a.Explanation = explain(a, cfg)
		return a
	}

	t := measure(pts)
	a.MinConfidence = t.min
	a.MinStep = pts[t.minIdx].step
	a.MaxDrop = t.maxDrop
	a.FinalConfidence = t.final
	a.Recovery = t.final - t.min
	for _, p := range pts[t.minIdx+1:] {
		if p.revises {
			a.HasRevisionAfterDrop = true
			break
		}
	}

	a.Pattern = classify(pts, t, cfg)

	switch a.Pattern {
	case PatternVShaped:
		stepsToRecover := len(pts) - 1 - t.minIdx
		score := t.maxDrop
		if stepsToRecover > 0 {
			score = math.Max(score, t.maxDrop*a.Recovery/float64(stepsToRecover))
		}
		a.DriftScore = clamp(score)
		a.Unresolved = !a.HasRevisionAfterDrop && a.DriftScore >= cfg.UnresolvedThreshold
	case PatternStableOverconfident:
		a.Unresolved = true
	case PatternCliff:
		a.Unresolved = t.finalDrop >= cfg.CliffThreshold
	case PatternDeclining:
		a.Unresolved = t.final < cfg.DecliningFloor
	}

	if a.Pattern != PatternVShaped {
		if a.Unresolved {
			a.DriftScore = clamp(math.Max(cfg.FlaggedScoreFloor, t.maxDrop))
		} else {
			a.DriftScore = clamp(t.maxDrop * 0.5)
		}
	}

	a.Explanation = explain(a, cfg)
	if a.Unresolved {
		a.Suggestion = suggest(a, pts, t)
	}
	return a
}

func points(steps []*models.ThoughtRecord) []point {
	pts := make([]point, 0, len(steps))
	for i, rec := range steps {
		if rec == nil {
			continue
		}
		c, _ := rec.Confidence()
		if math.IsNaN(c) {
			c = models.DefaultConfidence
		}
		step := rec.StepNumber
		if step <= 0 {
			step = i + 1
		}
		pts = append(pts, point{
			confidence: clamp(c),
			step:       step,
			revises:    rec.RevisesStep > 0,
		})
	}
	return pts
}

// trajectory holds the single-pass measurements.
type trajectory struct {
	min       float64
	max       float64
	final     float64
	maxDrop   float64
	finalDrop float64
	avgChange float64
	minIdx    int
	ups       int
	downs     int
	reversals int
}

func measure(pts []point) trajectory {
	n := len(pts)
	t := trajectory{
		min:   pts[0].confidence,
		max:   pts[0].confidence,
		final: pts[n-1].confidence,
	}
	peak := pts[0].confidence
	prevDir := 0
	var changeSum float64

	for i := 1; i < n; i++ {
		v := pts[i].confidence
		if v > peak {
			peak = v
		}
		if drop := peak - v; drop > t.maxDrop {
			t.maxDrop = drop
		}
		if v < t.min {
			t.min, t.minIdx = v, i
		}
		if v > t.max {
			t.max = v
		}

		delta := v - pts[i-1].confidence
		dir := 0
		switch {
		case delta > 0:
			t.ups++
			dir = 1
		case delta < 0:
			t.downs++
			dir = -1
		}
		if dir != 0 {
			if prevDir != 0 && dir != prevDir {
				t.reversals++
			}
			prevDir = dir
		}
		if i < n-1 {
			changeSum += math.Abs(delta)
		}
	}

	t.finalDrop = pts[n-2].confidence - pts[n-1].confidence
	if n > 2 {
		t.avgChange = changeSum / float64(n-2)
	}
	return t
}

func classify(pts []point, t trajectory, cfg Config) Pattern {
	n := len(pts)
	spread := t.max - t.min

	if t.minIdx > 0 && t.minIdx < n-1 &&
		t.maxDrop > cfg.SignificantChange && t.final-t.min > cfg.SignificantChange {
		return PatternVShaped
	}
	if t.minIdx >= n-2 && t.finalDrop > cfg.SignificantChange && t.finalDrop >= 2*t.avgChange {
		return PatternCliff
	}
	if t.min >= cfg.OverconfidenceThreshold && spread < cfg.OverconfidentRange {
		return PatternStableOverconfident
	}
	if spread < cfg.StableRange {
		return PatternStable
	}
	moves := float64(n - 1)
	if float64(t.downs)/moves >= cfg.TrendRatio {
		return PatternDeclining
	}
	if float64(t.ups)/moves >= cfg.TrendRatio {
		return PatternImproving
	}
	if t.reversals >= cfg.MinReversals {
		return PatternOscillating
	}
	return PatternStable
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
