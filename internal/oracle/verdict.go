package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adjudex/adjudex/internal/model"
)

// Verdict is the structured adjudication response from the oracle. The
// verdict field is the oracle's own decision; callers re-check it against
// the approval criteria and surface both, never silently reconcile them.
type Verdict struct {
	Verdict         model.ClaimStatus     `json:"verdict"`
	EvidenceQuality model.EvidenceQuality `json:"evidence_quality"`
	JudgeNotes      string                `json:"judge_notes"`
}

// Validate rejects responses with missing keys, out-of-range scores, or a
// bad enum value. An invalid verdict is discarded upstream; the claim stays
// pending rather than being adjudicated on bad data.
func (v *Verdict) Validate() error {
	if v.Verdict != model.StatusApproved && v.Verdict != model.StatusRejected {
		return fmt.Errorf("verdict %q is not approved/rejected", v.Verdict)
	}

	q := v.EvidenceQuality
	for _, dim := range []struct {
		name     string
		val      int
		min, max int
	}{
		{"strength", q.Strength, 1, 5},
		{"rigor", q.Rigor, 1, 5},
		{"relevance", q.Relevance, 1, 5},
		{"directness", q.Directness, 1, 3},
		{"reproducibility", q.Reproducibility, 1, 5},
	} {
		if dim.val < dim.min || dim.val > dim.max {
			return fmt.Errorf("%s %d out of range [%d, %d]", dim.name, dim.val, dim.min, dim.max)
		}
	}

	switch q.ConfidenceLevel {
	case model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh:
	default:
		return fmt.Errorf("confidence_level %q is not low/medium/high", q.ConfidenceLevel)
	}

	return nil
}

// parseVerdict decodes a judge completion into a Verdict. The is_recent
// field must be a real boolean; a numeric or string stand-in is malformed.
func parseVerdict(completion string) (*Verdict, error) {
	raw := extractJSON(completion)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in oracle response")
	}

	// Decode loosely first so a non-boolean is_recent is caught instead of
	// being coerced.
	var probe struct {
		EvidenceQuality map[string]json.RawMessage `json:"evidence_quality"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if probe.EvidenceQuality == nil {
		return nil, fmt.Errorf("verdict missing evidence_quality")
	}
	recent, ok := probe.EvidenceQuality["is_recent"]
	if !ok {
		return nil, fmt.Errorf("verdict missing is_recent")
	}
	trimmed := strings.TrimSpace(string(recent))
	if trimmed != "true" && trimmed != "false" {
		return nil, fmt.Errorf("is_recent %s is not a boolean", trimmed)
	}

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	return &v, nil
}

// parseAppeal decodes an appeal completion into candidate claims.
func parseAppeal(completion string) (*AppealResponse, error) {
	raw := extractJSON(completion)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in oracle response")
	}

	var resp AppealResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("parse appeal response: %w", err)
	}

	return &resp, nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} object in the completion, or "" if none.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
