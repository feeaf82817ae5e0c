package drift

import "fmt"

func explain(a *Analysis, cfg Config) string {
	switch a.Pattern {
	case PatternInsufficient:
		return fmt.Sprintf("Only %d steps; at least %d are needed to judge confidence drift.",
			a.StepsAnalyzed, cfg.MinSteps)
	case PatternVShaped:
		s := fmt.Sprintf("Confidence dipped to %.2f at step %d (drop %.2f) and recovered by %.2f.",
			a.MinConfidence, a.MinStep, a.MaxDrop, a.Recovery)
		if a.HasRevisionAfterDrop {
			return s + " A later step revised earlier work, so the doubt was addressed."
		}
		return s + " No later step revised earlier work."
	case PatternCliff:
		return fmt.Sprintf("Confidence fell sharply at the end, reaching %.2f at step %d.",
			a.FinalConfidence, a.MinStep)
	case PatternStableOverconfident:
		return fmt.Sprintf("Confidence stayed at or above %.2f with almost no variation; "+
			"uniformly high confidence on a hard chain is a trap signal.", a.MinConfidence)
	case PatternDeclining:
		return fmt.Sprintf("Confidence declined steadily, ending at %.2f.", a.FinalConfidence)
	case PatternImproving:
		return fmt.Sprintf("Confidence improved steadily, ending at %.2f.", a.FinalConfidence)
	case PatternOscillating:
		return fmt.Sprintf("Confidence oscillated between %.2f and %.2f.",
			a.MinConfidence, a.MinConfidence+a.MaxDrop)
	default:
		return fmt.Sprintf("Confidence held steady around %.2f.", a.FinalConfidence)
	}
}

func suggest(a *Analysis, pts []point, t trajectory) string {
	last := pts[len(pts)-1].step
	switch a.Pattern {
	case PatternVShaped:
		return fmt.Sprintf("Revisit step %d: confidence recovered without revising it. "+
			"Add a step with revises_step=%d that resolves the doubt.", a.MinStep, a.MinStep)
	case PatternCliff:
		return fmt.Sprintf("Step %d dropped confidence by %.2f. Re-examine it before concluding, "+
			"or branch from step %d.", last, t.finalDrop, pts[len(pts)-2].step)
	case PatternStableOverconfident:
		return fmt.Sprintf("Challenge the conclusion at step %d: verify one key assumption "+
			"independently before finishing.", last)
	case PatternDeclining:
		return fmt.Sprintf("Confidence ended at %.2f by step %d. Revise the weakest step "+
			"or branch to an alternative approach.", a.FinalConfidence, last)
	}
	return ""
}
