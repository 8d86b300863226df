package model

import "time"

// ChangeStatus names what triggered a ledger version.
type ChangeStatus string

const (
	ChangeJudgeUpdate ChangeStatus = "judge_update"
	ChangeDRAAppeal   ChangeStatus = "dra_appeal"
)

// Changes describes the delta that produced a version entry.
type Changes struct {
	Status        ChangeStatus `json:"status"`
	UpdatedClaims int          `json:"updated_claims,omitempty"`
	NewClaims     int          `json:"new_claims,omitempty"`
	ClaimIDs      []string     `json:"claim_ids"`
}

// Review is the per-document claim set inside a version entry. The claim
// list lives under the legacy "Requirement(s)" key, which is the only key
// downstream consumers read.
type Review struct {
	DocumentTitle string  `json:"document_title,omitempty"`
	Requirements  []Claim `json:"Requirement(s)"`
}

// VersionEntry is an immutable snapshot of one document's full claim set.
// Entries are only ever appended; the current state of a document is always
// the last entry in its list.
type VersionEntry struct {
	Timestamp string  `json:"timestamp"`
	Review    Review  `json:"review"`
	Changes   Changes `json:"changes"`
}

// NewVersionEntry stamps a version entry with the current UTC time.
func NewVersionEntry(review Review, changes Changes) VersionEntry {
	return VersionEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Review:    review,
		Changes:   changes,
	}
}
