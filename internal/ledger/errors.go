package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySessionID is returned when a write names no session.
	ErrEmptySessionID = errors.New("session id is required")
	// ErrInvalidStep is returned for step numbers below 1.
	ErrInvalidStep = errors.New("step number must be positive")
	// ErrDuplicateStep is returned when a step number is reused without override.
	ErrDuplicateStep = errors.New("duplicate step")
	// ErrInvalidReference is returned when revises_step or branch_from is not an earlier, existing step.
	ErrInvalidReference = errors.New("invalid step reference")
	// ErrMissingDependency is returned when a dependency is absent from the branch.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrInvalidVerification is returned for an unknown verification domain.
	ErrInvalidVerification = errors.New("invalid verification")
	// ErrStoreFull is returned when the store-wide record cap is reached.
	ErrStoreFull = errors.New("ledger is full")
	// ErrStoreClosed is returned after Destroy.
	ErrStoreClosed = errors.New("ledger is closed")
)

// ValidationError is a typed caller error. It unwraps to one of the
// sentinel errors above.
type ValidationError struct {
	err  error
	Msg  string `json:"message"`
	Code string `json:"code"`
	Step int    `json:"step"`
	Ref  int    `json:"ref,omitempty"`
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return e.err }

func newValidationError(sentinel error, code string, step, ref int, format string, args ...any) *ValidationError {
	return &ValidationError{
		err:  sentinel,
		Code: code,
		Step: step,
		Ref:  ref,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// AddResult is the transport form of an insert outcome.
type AddResult struct {
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// ResultOf converts an AddThought error into an AddResult.
func ResultOf(err error) AddResult {
	if err != nil {
		return AddResult{Success: false, Error: err.Error()}
	}
	return AddResult{Success: true}
}
