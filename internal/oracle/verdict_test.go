package oracle

import (
	"strings"
	"testing"

	"github.com/adjudex/adjudex/internal/model"
)

const validVerdict = `{
	"verdict": "approved",
	"evidence_quality": {
		"strength": 4, "rigor": 5, "relevance": 4,
		"directness": 3, "is_recent": true, "reproducibility": 4,
		"composite_score": 3.8, "confidence_level": "high"
	},
	"judge_notes": "well supported"
}`

func TestParseVerdict_Valid(t *testing.T) {
	v, err := parseVerdict(validVerdict)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Verdict != model.StatusApproved {
		t.Errorf("verdict = %s", v.Verdict)
	}
	if v.EvidenceQuality.Strength != 4 || !v.EvidenceQuality.IsRecent {
		t.Errorf("quality = %+v", v.EvidenceQuality)
	}
	if v.JudgeNotes != "well supported" {
		t.Errorf("notes = %q", v.JudgeNotes)
	}
}

func TestParseVerdict_MarkdownFences(t *testing.T) {
	fenced := "Here is my assessment:\n```json\n" + validVerdict + "\n```"
	v, err := parseVerdict(fenced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Verdict != model.StatusApproved {
		t.Errorf("verdict = %s", v.Verdict)
	}
}

func TestParseVerdict_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"prose only", "The claim looks approved to me."},
		{"missing evidence_quality", `{"verdict":"approved","judge_notes":"x"}`},
		{"missing is_recent", strings.Replace(validVerdict, `"is_recent": true, `, "", 1)},
		{"numeric is_recent", strings.Replace(validVerdict, `"is_recent": true`, `"is_recent": 1`, 1)},
		{"strength out of range", strings.Replace(validVerdict, `"strength": 4`, `"strength": 6`, 1)},
		{"directness out of range", strings.Replace(validVerdict, `"directness": 3`, `"directness": 4`, 1)},
		{"bad verdict", strings.Replace(validVerdict, `"approved"`, `"escalated"`, 1)},
		{"bad confidence", strings.Replace(validVerdict, `"high"`, `"certain"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseVerdict(tt.in); err == nil {
				t.Error("expected parse to fail")
			}
		})
	}
}

func TestParseAppeal(t *testing.T) {
	resp, err := parseAppeal(`{"candidates":[{"original_claim_id":"c1","evidence_text":"Section 3 states...","claim_summary":"direct support"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].OriginalClaimID != "c1" {
		t.Errorf("candidates = %+v", resp.Candidates)
	}

	// Zero candidates is a valid answer, not an error.
	resp, err = parseAppeal(`{"candidates":[]}`)
	if err != nil || len(resp.Candidates) != 0 {
		t.Errorf("empty candidates: resp=%+v err=%v", resp, err)
	}

	if _, err := parseAppeal("no json here"); err == nil {
		t.Error("expected parse to fail on prose")
	}
}
