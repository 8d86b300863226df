package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/adjudex/adjudex/internal/model"
	"github.com/adjudex/adjudex/internal/oracle"
	"github.com/adjudex/adjudex/internal/taxonomy"
)

// scriptedProvider replays canned completions (or errors) in call order,
// repeating the last entry once exhausted.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	return p.responses[idx], nil
}

func verdictJSON(verdict string, strength, rigor, relevance, directness int, recent bool, reproducibility int) string {
	return fmt.Sprintf(`{
		"verdict": %q,
		"evidence_quality": {
			"strength": %d, "rigor": %d, "relevance": %d,
			"directness": %d, "is_recent": %t, "reproducibility": %d,
			"composite_score": 0, "confidence_level": "medium"
		},
		"judge_notes": "scripted rationale"
	}`, verdict, strength, rigor, relevance, directness, recent, reproducibility)
}

func testIndex() *taxonomy.Index {
	return taxonomy.NewIndex(taxonomy.Definitions{
		"Pillar 1: Model Quality": {
			Requirements: map[string][]string{
				"Requirement 1.2": {"Sub-1.2.3: Conclusive Model"},
			},
		},
	})
}

func testClaim() model.Claim {
	return model.Claim{
		ClaimID:        "abc123",
		DocumentID:     "paper-1",
		Pillar:         "pillar 1 model quality",
		SubRequirement: "conclusive model",
		EvidenceText:   "Section 4 shows conclusive results.",
		Status:         model.StatusPendingJudgeReview,
	}
}

func newTestJudge(p oracle.Provider) *SingleJudge {
	client := oracle.NewClient(p,
		model.RateLimitConfig{CallsPerMinute: 60000, Burst: 1000},
		model.RetryConfig{MaxAttempts: 1},
		nil, false)
	return NewSingleJudge(client, testIndex(), 0.2, false, false)
}

func TestSingleJudge_UnresolvedRequirementRejectsWithoutOracleCall(t *testing.T) {
	p := &scriptedProvider{responses: []string{verdictJSON("approved", 5, 5, 5, 3, true, 5)}}
	j := newTestJudge(p)

	claim := testClaim()
	claim.SubRequirement = "completely unrelated nonsense requirement"

	got, err := j.Adjudicate(context.Background(), claim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusRejected {
		t.Errorf("status = %s, want rejected", got.Status)
	}
	if got.EvidenceQuality == nil || got.EvidenceQuality.CompositeScore != 1.0 {
		t.Errorf("expected composite floor 1.0, got %+v", got.EvidenceQuality)
	}
	if got.EvidenceQuality.Strength != 1 {
		t.Errorf("expected all dimensions floored, got %+v", got.EvidenceQuality)
	}
	if !strings.Contains(got.JudgeNotes, "could not resolve") {
		t.Errorf("notes must name the unresolved requirement: %q", got.JudgeNotes)
	}
	if p.calls != 0 {
		t.Errorf("oracle must not be called on resolution failure, saw %d call(s)", p.calls)
	}
}

func TestSingleJudge_ApprovesAndCanonicalizes(t *testing.T) {
	p := &scriptedProvider{responses: []string{verdictJSON("approved", 4, 5, 4, 3, true, 4)}}
	j := newTestJudge(p)

	got, err := j.Adjudicate(context.Background(), testClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
	if got.SubRequirement != "Sub-1.2.3: Conclusive Model" {
		t.Errorf("sub-requirement not canonicalized: %q", got.SubRequirement)
	}
	if got.Pillar != "Pillar 1: Model Quality" {
		t.Errorf("pillar not canonicalized: %q", got.Pillar)
	}
	// Composite is recomputed locally, not trusted from the oracle.
	if got.EvidenceQuality.CompositeScore != 3.8 {
		t.Errorf("composite = %.2f, want 3.80", got.EvidenceQuality.CompositeScore)
	}
	if got.JudgeTimestamp == "" {
		t.Error("judge timestamp must be set")
	}
}

func TestSingleJudge_SurfacesOracleDisagreement(t *testing.T) {
	// Oracle says rejected, but the dimensions clear every threshold.
	p := &scriptedProvider{responses: []string{verdictJSON("rejected", 4, 5, 4, 3, true, 4)}}
	j := newTestJudge(p)

	got, err := j.Adjudicate(context.Background(), testClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusApproved {
		t.Errorf("criteria-based status must win, got %s", got.Status)
	}
	if !strings.Contains(got.JudgeNotes, "disagrees") {
		t.Errorf("disagreement must be surfaced in notes: %q", got.JudgeNotes)
	}
}

func TestSingleJudge_MalformedResponseLeavesClaimPending(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think this claim is fine."},
		{"missing is_recent", `{"verdict":"approved","evidence_quality":{"strength":4,"rigor":4,"relevance":4,"directness":3,"reproducibility":4,"composite_score":3.5,"confidence_level":"high"},"judge_notes":"x"}`},
		{"non-boolean is_recent", `{"verdict":"approved","evidence_quality":{"strength":4,"rigor":4,"relevance":4,"directness":3,"is_recent":"yes","reproducibility":4,"composite_score":3.5,"confidence_level":"high"},"judge_notes":"x"}`},
		{"out-of-range strength", verdictJSON("approved", 7, 4, 4, 3, true, 4)},
		{"bad verdict enum", verdictJSON("maybe", 4, 4, 4, 3, true, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newTestJudge(&scriptedProvider{responses: []string{tt.response}})

			got, err := j.Adjudicate(context.Background(), testClaim())
			if err == nil {
				t.Fatal("expected an error for malformed oracle response")
			}
			if got.Status != model.StatusPendingJudgeReview {
				t.Errorf("claim must stay pending on bad data, got %s", got.Status)
			}
		})
	}
}

func TestSingleJudge_OracleFailurePropagates(t *testing.T) {
	p := &scriptedProvider{responses: []string{""}, errs: []error{errors.New("boom")}}
	j := newTestJudge(p)

	got, err := j.Adjudicate(context.Background(), testClaim())
	if err == nil {
		t.Fatal("expected error when oracle call fails")
	}
	if got.Status != model.StatusPendingJudgeReview {
		t.Errorf("claim must stay pending, got %s", got.Status)
	}
}
