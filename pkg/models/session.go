// Package models contains domain models for the reasoning ledger.
package models

import "time"

// SessionInfo is the metadata reported by the ledger's list operation.
type SessionInfo struct {
	CreatedAt   time.Time `json:"created_at"`
	LastAccess  time.Time `json:"last_access"`
	ID          string    `json:"id"`
	Branches    []string  `json:"branches"`
	StepCount   int       `json:"step_count"`
	BranchCount int       `json:"branch_count"`
	Tokens      int       `json:"tokens"`
}

// CompressionBreakdown splits saved bytes by origin.
type CompressionBreakdown struct {
	Input   int64 `json:"input"`
	Output  int64 `json:"output"`
	Context int64 `json:"context"`
}

// CompressionStats aggregates CompressionMetrics over a session.
// StepCount counts only steps that carried compression metrics.
type CompressionStats struct {
	Breakdown       CompressionBreakdown `json:"breakdown"`
	TotalBytesSaved int64                `json:"total_bytes_saved"`
	StepCount       int                  `json:"step_count"`
}
