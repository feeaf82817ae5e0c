package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thebtf/reasonledger/pkg/models"
)

const (
	previewRunes = 160
	// DefaultRecentSteps is how many trailing steps GetCompressed keeps.
	DefaultRecentSteps = 3
)

// GetCompressionStats aggregates compression metrics across the session.
// Unknown sessions return nil.
func (s *Store) GetCompressionStats(sessionID string) *models.CompressionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return nil
	}
	stats := &models.CompressionStats{}
	for _, e := range sess.entries {
		c := e.rec.Compression
		if c == nil {
			continue
		}
		stats.StepCount++
		stats.Breakdown.Input += c.InputBytesSaved
		stats.Breakdown.Output += c.OutputBytesSaved
		stats.Breakdown.Context += c.ContextBytesSaved
	}
	stats.TotalBytesSaved = stats.Breakdown.Input + stats.Breakdown.Output + stats.Breakdown.Context
	return stats
}

// GetAverageConfidence is the mean verification confidence over verified
// records, optionally restricted to one branch. Zero when none qualify.
func (s *Store) GetAverageConfidence(sessionID, branch string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return 0
	}
	return averageConfidence(sess.entries, branch)
}

func averageConfidence(entries []*entry, branch string) float64 {
	var sum float64
	var n int
	for _, e := range entries {
		if branch != "" && e.rec.Branch() != branch {
			continue
		}
		if c, ok := e.rec.Confidence(); ok {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// GetSummary renders a human-readable digest of every step, grouped by
// branch. The second return is false for unknown sessions.
func (s *Store) GetSummary(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return "", false
	}

	var b strings.Builder
	writeHeader(&b, sess)
	for _, branch := range sess.branchOrder {
		records := sess.ordered(branch)
		fmt.Fprintf(&b, "\n[%s]", branch)
		if fork := sess.forks[branch]; fork > 0 {
			fmt.Fprintf(&b, " from step %d", fork)
		}
		b.WriteString("\n")
		for _, rec := range records {
			writeStepLine(&b, rec)
		}
	}
	return b.String(), true
}

// GetCompressed renders a digest limited to steps that passed verification
// plus the last recent steps (DefaultRecentSteps when recent <= 0), in step
// order.
func (s *Store) GetCompressed(sessionID string, recent int) (string, bool) {
	if recent <= 0 {
		recent = DefaultRecentSteps
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return "", false
	}

	all := sess.ordered("")
	cut := len(all) - recent
	kept := 0
	var body strings.Builder
	for i, rec := range all {
		if !passed(rec) && i < cut {
			continue
		}
		kept++
		writeStepLine(&body, rec)
	}

	var b strings.Builder
	writeHeader(&b, sess)
	if omitted := len(all) - kept; omitted > 0 {
		fmt.Fprintf(&b, "(%d unverified earlier steps omitted)\n", omitted)
	}
	b.WriteString(body.String())
	return b.String(), true
}

func passed(rec *models.ThoughtRecord) bool {
	return rec.Verification != nil && rec.Verification.Passed
}

func writeHeader(b *strings.Builder, sess *session) {
	fmt.Fprintf(b, "Session %s: %d steps, %d branches, %d tokens",
		sess.id, len(sess.entries), len(sess.branchOrder), sess.tokens)
	if avg := averageConfidence(sess.entries, ""); avg > 0 {
		fmt.Fprintf(b, ", avg confidence %.2f", avg)
	}
	b.WriteString("\n")
}

func writeStepLine(b *strings.Builder, rec *models.ThoughtRecord) {
	fmt.Fprintf(b, "  #%d", rec.StepNumber)
	if rec.Branch() != models.DefaultBranch {
		fmt.Fprintf(b, " (%s)", rec.Branch())
	}
	if v := rec.Verification; v != nil {
		mark := "FAIL"
		if v.Passed {
			mark = "ok"
		}
		fmt.Fprintf(b, " [%s %.2f %s]", mark, v.Confidence, v.Domain)
	}
	if rec.RevisesStep > 0 {
		fmt.Fprintf(b, " revises #%d", rec.RevisesStep)
	}
	if rec.TotalSteps > 0 {
		fmt.Fprintf(b, " %d/%d", rec.StepNumber, rec.TotalSteps)
	}
	b.WriteString(": ")
	b.WriteString(preview(rec.Thought))
	b.WriteString("\n")
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes-3]) + "..."
}
