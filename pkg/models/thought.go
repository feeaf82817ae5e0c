// Package models contains domain models for the reasoning ledger.
package models

import (
	"fmt"
	"time"
)

// DefaultBranch is the branch a record belongs to when none is given.
const DefaultBranch = "main"

// DefaultConfidence is used for steps that carry no verification.
const DefaultConfidence = 0.5

// VerificationDomain names the verifier that checked a step.
type VerificationDomain string

const (
	DomainMath    VerificationDomain = "math"
	DomainLogic   VerificationDomain = "logic"
	DomainCode    VerificationDomain = "code"
	DomainGeneral VerificationDomain = "general"
)

// Valid reports whether d is one of the known domains.
func (d VerificationDomain) Valid() bool {
	switch d {
	case DomainMath, DomainLogic, DomainCode, DomainGeneral:
		return true
	}
	return false
}

// Verification is attached by an external verifier before a record is stored.
type Verification struct {
	Domain     VerificationDomain `json:"domain"`
	Confidence float64            `json:"confidence"`
	Passed     bool               `json:"passed"`
}

// CompressionMetrics holds byte savings reported by the compression layer.
// Purely informational.
type CompressionMetrics struct {
	InputBytesSaved   int64 `json:"input_bytes_saved"`
	OutputBytesSaved  int64 `json:"output_bytes_saved"`
	ContextBytesSaved int64 `json:"context_bytes_saved"`
}

// Total returns the sum of all savings counters.
func (c *CompressionMetrics) Total() int64 {
	if c == nil {
		return 0
	}
	return c.InputBytesSaved + c.OutputBytesSaved + c.ContextBytesSaved
}

// ThoughtRecord is one reasoning step.
//
// RevisesStep and BranchFrom are step numbers; zero means unset since step
// numbers start at 1.
type ThoughtRecord struct {
	Timestamp      time.Time           `json:"timestamp"`
	Verification   *Verification       `json:"verification,omitempty"`
	Compression    *CompressionMetrics `json:"compression,omitempty"`
	ID             string              `json:"id"`
	Thought        string              `json:"thought"`
	BranchID       string              `json:"branch_id"`
	Dependencies   []int               `json:"dependencies,omitempty"`
	StepNumber     int                 `json:"step_number"`
	RevisesStep    int                 `json:"revises_step,omitempty"`
	BranchFrom     int                 `json:"branch_from,omitempty"`
	TotalSteps     int                 `json:"total_steps,omitempty"`
	NextStepNeeded bool                `json:"next_step_needed"`
}

// StepID formats the identifier of a step: "session:branch:step".
func StepID(sessionID, branch string, step int) string {
	if branch == "" {
		branch = DefaultBranch
	}
	return fmt.Sprintf("%s:%s:%d", sessionID, branch, step)
}

// Branch returns the record's branch, falling back to DefaultBranch.
func (t *ThoughtRecord) Branch() string {
	if t.BranchID == "" {
		return DefaultBranch
	}
	return t.BranchID
}

// Confidence returns the verified confidence, or DefaultConfidence and false
// when the step was never verified.
func (t *ThoughtRecord) Confidence() (float64, bool) {
	if t == nil || t.Verification == nil {
		return DefaultConfidence, false
	}
	return t.Verification.Confidence, true
}

// IsRevision reports whether the record supersedes an earlier step.
func (t *ThoughtRecord) IsRevision() bool {
	return t.RevisesStep > 0
}

// Clone returns a deep copy so stored records cannot be mutated by callers.
func (t *ThoughtRecord) Clone() *ThoughtRecord {
	if t == nil {
		return nil
	}
	c := *t
	if t.Verification != nil {
		v := *t.Verification
		c.Verification = &v
	}
	if t.Compression != nil {
		m := *t.Compression
		c.Compression = &m
	}
	if t.Dependencies != nil {
		c.Dependencies = append([]int(nil), t.Dependencies...)
	}
	return &c
}
