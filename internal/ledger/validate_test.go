package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/reasonledger/pkg/models"
)

func TestValidateThought(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 1, Thought: "a"}))
	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 2, Thought: "b"}))
	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 3, Thought: "alt", BranchID: "alt", BranchFrom: 2}))

	tests := []struct {
		rec      *models.ThoughtRecord
		sentinel error
		name     string
		session  string
		message  string
		opts     []AddOption
	}{
		{name: "valid next step", session: "s", rec: &models.ThoughtRecord{StepNumber: 3}},
		{name: "valid revision", session: "s", rec: &models.ThoughtRecord{StepNumber: 3, RevisesStep: 1}},
		{name: "valid dependency", session: "s", rec: &models.ThoughtRecord{StepNumber: 3, Dependencies: []int{1, 2}}},
		{name: "dependency through fork", session: "s", rec: &models.ThoughtRecord{StepNumber: 4, BranchID: "alt", Dependencies: []int{1, 3}}},
		{name: "first step of new session", session: "fresh", rec: &models.ThoughtRecord{StepNumber: 1}},
		{name: "override allowed", session: "s", rec: &models.ThoughtRecord{StepNumber: 2}, opts: []AddOption{WithOverride()}},
		{
			name: "empty session", session: "", rec: &models.ThoughtRecord{StepNumber: 1},
			sentinel: ErrEmptySessionID,
		},
		{
			name: "non-positive step", session: "s", rec: &models.ThoughtRecord{StepNumber: 0},
			sentinel: ErrInvalidStep,
		},
		{
			name: "revise future step", session: "s", rec: &models.ThoughtRecord{StepNumber: 3, RevisesStep: 5},
			sentinel: ErrInvalidReference, message: "cannot revise step 5 from step 3",
		},
		{
			name: "revise self", session: "s", rec: &models.ThoughtRecord{StepNumber: 3, RevisesStep: 3},
			sentinel: ErrInvalidReference,
		},
		{
			name: "revise missing step", session: "fresh", rec: &models.ThoughtRecord{StepNumber: 3, RevisesStep: 1},
			sentinel: ErrInvalidReference,
		},
		{
			name: "branch from future", session: "s", rec: &models.ThoughtRecord{StepNumber: 4, BranchID: "x", BranchFrom: 4},
			sentinel: ErrInvalidReference,
		},
		{
			name: "branch from missing", session: "s", rec: &models.ThoughtRecord{StepNumber: 10, BranchID: "x", BranchFrom: 9},
			sentinel: ErrInvalidReference,
		},
		{
			name: "unknown verification domain", session: "s",
			rec:      &models.ThoughtRecord{StepNumber: 3, Verification: &models.Verification{Domain: "astrology", Confidence: 0.9}},
			sentinel: ErrInvalidVerification, message: `unknown verification domain "astrology"`,
		},
		{
			name: "duplicate step", session: "s", rec: &models.ThoughtRecord{StepNumber: 2},
			sentinel: ErrDuplicateStep,
		},
		{
			name: "dependency absent from branch", session: "s", rec: &models.ThoughtRecord{StepNumber: 4, Dependencies: []int{3}},
			sentinel: ErrMissingDependency,
		},
		{
			name: "dependency on later step", session: "s", rec: &models.ThoughtRecord{StepNumber: 3, Dependencies: []int{3}},
			sentinel: ErrMissingDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateThought(tt.session, tt.rec, tt.opts...)
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestValidateThoughtDoesNotStore(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.ValidateThought("s", &models.ThoughtRecord{StepNumber: 1}))
	assert.Empty(t, store.List())
}
