package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/reasonledger/internal/analysis/consistency"
	"github.com/thebtf/reasonledger/internal/analysis/drift"
	"github.com/thebtf/reasonledger/pkg/models"
)

// Review is the combined verdict on one branch of a session.
type Review struct {
	Drift       *drift.Analysis    `json:"drift"`
	Consistency consistency.Result `json:"consistency"`
	Session     string             `json:"session"`
	Branch      string             `json:"branch"`
	Steps       int                `json:"steps"`
}

// review runs both analyzers over steps concurrently.
func (s *Service) review(ctx context.Context, steps []*models.ThoughtRecord) (*drift.Analysis, consistency.Result, error) {
	var (
		analysis *drift.Analysis
		result   consistency.Result
	)
	checker := s.Checker()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		analysis = drift.AnalyzeWithConfig(steps, s.driftConfig)
		recordAnalysis("drift", time.Since(start))
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		result = checker.Check(steps)
		recordAnalysis("consistency", time.Since(start))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, consistency.Result{}, err
	}

	recordDriftVerdict(string(analysis.Pattern), analysis.Unresolved)
	for _, c := range result.Contradictions {
		recordContradiction(string(c.Type))
	}
	return analysis, result, nil
}

func (s *Service) handleReview(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = models.DefaultBranch
	}

	steps := s.store.GetThoughts(sessionID, branch)
	if len(steps) == 0 {
		writeError(w, http.StatusNotFound, "no steps for session branch")
		return
	}

	analysis, result, err := s.review(r.Context(), steps)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Review{
		Session:     sessionID,
		Branch:      branch,
		Steps:       len(steps),
		Drift:       analysis,
		Consistency: result,
	})
}
