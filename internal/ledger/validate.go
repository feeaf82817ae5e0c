package ledger

import (
	"github.com/thebtf/reasonledger/pkg/models"
)

// ValidateThought checks rec against the session's current contents without
// storing it: reference ordering, referenced steps existing, dependencies
// present on the branch (or its fork lineage) and duplicate step numbers.
// It is the check a transport layer runs before AddThought.
func (s *Store) ValidateThought(sessionID string, rec *models.ThoughtRecord, opts ...AddOption) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if rec == nil {
		return newValidationError(ErrInvalidStep, "invalid_step", 0, 0, "thought record is required")
	}
	step := rec.StepNumber
	if step < 1 {
		return newValidationError(ErrInvalidStep, "invalid_step", step, 0,
			"step number must be positive, got %d", step)
	}
	if v := rec.Verification; v != nil && v.Domain != "" && !v.Domain.Valid() {
		return newValidationError(ErrInvalidVerification, "invalid_verification", step, 0,
			"unknown verification domain %q", v.Domain)
	}
	if rec.RevisesStep < 0 || rec.BranchFrom < 0 {
		return newValidationError(ErrInvalidReference, "invalid_reference", step, 0,
			"step references must not be negative")
	}
	if rec.RevisesStep > 0 && rec.RevisesStep >= step {
		return newValidationError(ErrInvalidReference, "invalid_reference", step, rec.RevisesStep,
			"cannot revise step %d from step %d", rec.RevisesStep, step)
	}
	if rec.BranchFrom > 0 && rec.BranchFrom >= step {
		return newValidationError(ErrInvalidReference, "invalid_reference", step, rec.BranchFrom,
			"cannot branch from step %d at step %d", rec.BranchFrom, step)
	}

	var cfg addConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	branch := rec.Branch()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sessions[sessionID]
	exists := func(n int) bool {
		if sess == nil {
			return false
		}
		_, ok := sess.byStep[n]
		return ok
	}

	if sess != nil && !cfg.override {
		if _, dup := sess.byKey[stepKey{branch: branch, step: step}]; dup {
			return newValidationError(ErrDuplicateStep, "duplicate_step", step, step,
				"step %d already exists on branch %q", step, branch)
		}
	}
	if rec.RevisesStep > 0 && !exists(rec.RevisesStep) {
		return newValidationError(ErrInvalidReference, "invalid_reference", step, rec.RevisesStep,
			"cannot revise step %d from step %d: step %d does not exist", rec.RevisesStep, step, rec.RevisesStep)
	}
	if rec.BranchFrom > 0 && !exists(rec.BranchFrom) {
		return newValidationError(ErrInvalidReference, "invalid_reference", step, rec.BranchFrom,
			"cannot branch from step %d: step does not exist", rec.BranchFrom)
	}

	fork := rec.BranchFrom
	if sess != nil {
		if f, ok := sess.forks[branch]; ok {
			fork = f
		}
	}
	for _, dep := range rec.Dependencies {
		if dep < 1 || dep >= step {
			return newValidationError(ErrMissingDependency, "missing_dependency", step, dep,
				"step %d cannot depend on step %d", step, dep)
		}
		if sess != nil {
			if _, ok := sess.byKey[stepKey{branch: branch, step: dep}]; ok {
				continue
			}
		}
		if fork > 0 && dep <= fork && exists(dep) {
			continue
		}
		return newValidationError(ErrMissingDependency, "missing_dependency", step, dep,
			"step %d depends on step %d which is absent from branch %q", step, dep, branch)
	}
	return nil
}
