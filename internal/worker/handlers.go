package worker

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/reasonledger/internal/analysis/consistency"
	"github.com/thebtf/reasonledger/internal/analysis/drift"
	"github.com/thebtf/reasonledger/internal/ledger"
	"github.com/thebtf/reasonledger/internal/privacy"
	"github.com/thebtf/reasonledger/internal/worker/sse"
	"github.com/thebtf/reasonledger/pkg/models"
)

type addThoughtRequest struct {
	models.ThoughtRecord
	Override bool `json:"override,omitempty"`
}

type addThoughtResponse struct {
	Drift          *drift.Analysis             `json:"drift,omitempty"`
	ID             string                      `json:"id,omitempty"`
	Contradictions []consistency.Contradiction `json:"contradictions,omitempty"`
	Redacted       int                         `json:"redacted,omitempty"`
	ledger.AddResult
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Stats   ledger.StoreStats `json:"stats"`
	Clients int               `json:"sse_clients"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Stats:   s.store.Stats(),
		Clients: s.sseBroadcaster.ClientCount(),
	}
	status := http.StatusOK
	if !s.ready.Load() {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Service) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": uuid.NewString()})
}

func (s *Service) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.store.List()})
}

func (s *Service) handleClearAll(w http.ResponseWriter, _ *http.Request) {
	n := s.store.ClearAll()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Service) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Clear(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Service) handleAddThought(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req addThoughtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec := &req.ThoughtRecord

	if limit := s.config.MaxThoughtBytes; limit > 0 && len(rec.Thought) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("thought is %d bytes, limit is %d", len(rec.Thought), limit),
			Code:  "thought_too_large",
			Step:  rec.StepNumber,
		})
		return
	}

	cleaned, redacted := privacy.Redact(rec.Thought)
	if redacted > 0 && cleaned == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "thought is entirely private",
			Code:  "private_thought",
			Step:  rec.StepNumber,
		})
		return
	}
	rec.Thought = cleaned

	var opts []ledger.AddOption
	if req.Override {
		opts = append(opts, ledger.WithOverride())
	}
	if err := s.store.ValidateThought(sessionID, rec, opts...); err != nil {
		writeLedgerError(w, err)
		return
	}

	if err := s.store.AddThought(sessionID, rec, opts...); err != nil {
		writeLedgerError(w, err)
		return
	}

	resp := addThoughtResponse{
		AddResult: ledger.ResultOf(nil),
		ID:        models.StepID(sessionID, rec.Branch(), rec.StepNumber),
		Redacted:  redacted,
	}

	// The lineage of the new step, root first, ending with the step itself.
	path := s.store.GetPath(sessionID, rec.StepNumber)
	var prior []*models.ThoughtRecord
	if n := len(path); n > 0 {
		prior = path[:n-1]
	}

	start := time.Now()
	resp.Contradictions = s.Checker().CheckStep(rec, prior)
	recordAnalysis("consistency_step", time.Since(start))
	for _, c := range resp.Contradictions {
		recordContradiction(string(c.Type))
		s.sseBroadcaster.Publish(sse.Event{Type: sse.EventContradiction, Session: sessionID, Data: c})
	}

	if rec.Verification != nil {
		start = time.Now()
		analysis := drift.AnalyzeWithConfig(path, s.driftConfig)
		recordAnalysis("drift", time.Since(start))
		if analysis.Pattern != drift.PatternInsufficient {
			resp.Drift = analysis
		}
	}

	if len(resp.Contradictions) > 0 {
		log.Info().
			Str("session", sessionID).
			Int("step", rec.StepNumber).
			Int("contradictions", len(resp.Contradictions)).
			Msg("Step contradicts earlier reasoning")
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) handleGetThoughts(w http.ResponseWriter, r *http.Request) {
	thoughts := s.store.GetThoughts(chi.URLParam(r, "id"), r.URL.Query().Get("branch"))
	writeJSON(w, http.StatusOK, map[string]any{"thoughts": thoughts})
}

func stepParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || step < 1 {
		writeError(w, http.StatusBadRequest, "step must be a positive integer")
		return 0, false
	}
	return step, true
}

func (s *Service) handleGetStep(w http.ResponseWriter, r *http.Request) {
	step, ok := stepParam(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "id")

	var rec *models.ThoughtRecord
	if branch := r.URL.Query().Get("branch"); branch != "" {
		rec, ok = s.store.GetBranchStep(sessionID, branch, step)
	} else {
		rec, ok = s.store.GetStep(sessionID, step)
	}
	if !ok {
		writeError(w, http.StatusNotFound, "step not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleGetPath(w http.ResponseWriter, r *http.Request) {
	step, ok := stepParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": s.store.GetPath(chi.URLParam(r, "id"), step)})
}

func (s *Service) handleGetRevisions(w http.ResponseWriter, r *http.Request) {
	step, ok := stepParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": s.store.GetRevisionChain(chi.URLParam(r, "id"), step)})
}

func (s *Service) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	step, ok := stepParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"depth": s.store.CalculateBranchDepth(chi.URLParam(r, "id"), step)})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	stats := s.store.GetCompressionStats(sessionID)
	if stats == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"compression":        stats,
		"average_confidence": s.store.GetAverageConfidence(sessionID, r.URL.Query().Get("branch")),
	})
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.store.GetSummary(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Service) handleCompressed(w http.ResponseWriter, r *http.Request) {
	recent := ledger.DefaultRecentSteps
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "recent must be a non-negative integer")
			return
		}
		recent = n
	}

	digest, ok := s.store.GetCompressed(chi.URLParam(r, "id"), recent)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"compressed": digest})
}
