package model

import "time"

// RunStats is the per-run count summary produced by the adjudication
// pipeline. Every failure path in the engine surfaces in one of these
// counters so a run is auditable from its summary alone.
type RunStats struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	PendingClaims    int `json:"pending_claims"`
	InitialApproved  int `json:"initial_approved"`
	InitialRejected  int `json:"initial_rejected"`
	AppealsSubmitted int `json:"appeals_submitted"`
	AppealsApproved  int `json:"appeals_approved"`
	AppealsRejected  int `json:"appeals_rejected"`

	SkippedDocuments int `json:"skipped_documents"` // appeal documents that could not be loaded
	LeftPending      int `json:"left_pending"`      // claims deferred on oracle failure
	ConsensusRuns    int `json:"consensus_runs"`
	HumanReviewFlags int `json:"human_review_flags"`
}
