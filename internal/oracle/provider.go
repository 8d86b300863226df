package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adjudex/adjudex/internal/model"
)

// Provider is the vendor-facing half of the oracle: it turns a prompt into
// raw text. Throttling, retries, caching, and response parsing live in
// Client, so providers stay thin transports.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a prompt and returns the raw completion text.
	// Temperature varies sampling so consensus judges are not identical.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// apiError carries the HTTP status of a failed provider call so the retry
// layer can distinguish rate limits from other transient failures.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("oracle API error (%d): %s", e.StatusCode, e.Message)
}

// RateLimited reports whether err is a rate-limit signal from the oracle.
func RateLimited(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.StatusCode == 429
	}
	return false
}

// NewProvider creates an oracle provider based on configuration.
func NewProvider(cfg model.OracleConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}

const judgeSystemPrompt = "You are an evidentiary reviewer. You adjudicate whether a document excerpt " +
	"supports a stated sub-requirement. Respond with a single JSON object and nothing else."

// buildJudgePrompt constructs the adjudication prompt for one claim against
// its canonical requirement text.
func buildJudgePrompt(claim model.Claim, requirement string) string {
	var b strings.Builder

	b.WriteString("Adjudicate the following claim.\n\n")
	fmt.Fprintf(&b, "Requirement (canonical): %s\n", requirement)
	fmt.Fprintf(&b, "Pillar: %s\n", claim.Pillar)
	fmt.Fprintf(&b, "Document: %s\n\n", claim.DocumentID)
	fmt.Fprintf(&b, "Claim summary: %s\n", claim.ClaimSummary)
	fmt.Fprintf(&b, "Evidence text:\n%s\n\n", claim.EvidenceText)

	b.WriteString(`Score the evidence and decide a verdict. Reply with exactly this JSON shape:
{
  "verdict": "approved" | "rejected",
  "evidence_quality": {
    "strength": 1-5,
    "rigor": 1-5,
    "relevance": 1-5,
    "directness": 1-3,
    "is_recent": true | false,
    "reproducibility": 1-5,
    "composite_score": number,
    "confidence_level": "low" | "medium" | "high"
  },
  "judge_notes": "one-paragraph rationale"
}

Approve only when the evidence directly and strongly supports the requirement.
`)

	return b.String()
}

// buildAppealPrompt constructs the batch re-evidence prompt for one
// document chunk and every rejected claim attached to that document. The
// system message stays the judge persona; the role switch to evidence
// search is stated here in the user prompt.
func buildAppealPrompt(req AppealRequest) string {
	var b strings.Builder

	b.WriteString("You are now searching a document for stronger evidence on behalf of rejected claims.\n")
	fmt.Fprintf(&b, "Document %s was reviewed and the claims below were rejected.\n", req.DocumentID)
	b.WriteString("Search the document text for stronger evidence for each claim.\n\n")

	b.WriteString("Rejected claims:\n")
	for _, c := range req.Claims {
		fmt.Fprintf(&b, "- claim_id: %s\n  sub_requirement: %s\n  rejected because: %s\n", c.ClaimID, c.SubRequirement, c.RejectionReason)
	}

	fmt.Fprintf(&b, "\nDocument text:\n%s\n\n", req.DocumentText)

	b.WriteString(`For each claim where you find a stronger supporting excerpt, emit a candidate.
Omit claims with no better evidence. Reply with exactly this JSON shape:
{
  "candidates": [
    {
      "original_claim_id": "id of the rejected claim",
      "evidence_text": "verbatim excerpt from the document",
      "claim_summary": "one-line rationale"
    }
  ]
}
`)

	return b.String()
}
