package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// ClaimStatus is the adjudication state of a claim.
// Transitions are monotonic: pending_judge_review -> approved | rejected.
// A rejected claim is terminal for its claim_id; an appeal produces a new
// claim with a new content-derived id, never a reopened one.
type ClaimStatus string

const (
	StatusPendingJudgeReview ClaimStatus = "pending_judge_review"
	StatusApproved           ClaimStatus = "approved"
	StatusRejected           ClaimStatus = "rejected"
)

// Terminal reports whether the status can no longer change in place.
func (s ClaimStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ConfidenceLevel is the oracle's self-reported confidence in a verdict.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Claim asserts that a document's text supports a specific sub-requirement.
type Claim struct {
	ClaimID        string      `json:"claim_id"`
	DocumentID     string      `json:"document_id"`
	Pillar         string      `json:"pillar"`
	SubRequirement string      `json:"sub_requirement"`
	EvidenceText   string      `json:"evidence_text"`
	ClaimSummary   string      `json:"claim_summary,omitempty"`
	Status         ClaimStatus `json:"status"`

	EvidenceQuality   *EvidenceQuality   `json:"evidence_quality,omitempty"`
	ConsensusMetadata *ConsensusMetadata `json:"consensus_metadata,omitempty"`

	JudgeNotes     string `json:"judge_notes,omitempty"`
	JudgeTimestamp string `json:"judge_timestamp,omitempty"`
}

// EvidenceQuality is the 6-dimension score attached to an adjudicated claim.
type EvidenceQuality struct {
	Strength        int             `json:"strength"`   // 1-5
	Rigor           int             `json:"rigor"`      // 1-5
	Relevance       int             `json:"relevance"`  // 1-5
	Directness      int             `json:"directness"` // 1-3
	IsRecent        bool            `json:"is_recent"`
	Reproducibility int             `json:"reproducibility"` // 1-5
	CompositeScore  float64         `json:"composite_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level,omitempty"`
}

// FloorQuality is the fixed evidence-quality floor assigned when a claim is
// rejected without an oracle call (e.g. its requirement could not be
// resolved against the taxonomy).
func FloorQuality() *EvidenceQuality {
	return &EvidenceQuality{
		Strength:        1,
		Rigor:           1,
		Relevance:       1,
		Directness:      1,
		IsRecent:        false,
		Reproducibility: 1,
		CompositeScore:  1.0,
		ConfidenceLevel: ConfidenceHigh,
	}
}

// ConsensusStatus classifies how strongly a multi-judge vote agreed.
type ConsensusStatus string

const (
	ConsensusStrong ConsensusStatus = "strong_consensus"
	ConsensusWeak   ConsensusStatus = "weak_consensus"
)

// VoteBreakdown counts the verdicts cast during a consensus vote.
type VoteBreakdown struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ConsensusMetadata is attached to a claim only when the borderline-score
// escalation actually ran; its absence means the single-judge verdict stood.
type ConsensusMetadata struct {
	TotalJudges           int             `json:"total_judges"`
	VoteBreakdown         VoteBreakdown   `json:"vote_breakdown"`
	AgreementRate         float64         `json:"agreement_rate"`
	ConsensusStatus       ConsensusStatus `json:"consensus_status"`
	RequiresHumanReview   bool            `json:"requires_human_review"`
	AverageCompositeScore float64         `json:"average_composite_score"`
}

// NewClaimID derives a claim's content fingerprint from its document, its
// canonical sub-requirement, and its evidence text. Re-deriving the id for
// the same inputs always yields the same value, which makes re-judging
// idempotent by construction.
func NewClaimID(documentID, subRequirement, evidenceText string) string {
	sum := sha256.Sum256([]byte(documentID + "|" + subRequirement + "|" + evidenceText))
	return hex.EncodeToString(sum[:])[:16]
}
