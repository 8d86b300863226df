package judge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adjudex/adjudex/internal/model"
	"github.com/adjudex/adjudex/internal/oracle"
	"github.com/adjudex/adjudex/internal/taxonomy"
)

// SingleJudge adjudicates one claim per oracle call. Claims whose pillar or
// sub-requirement cannot be resolved against the taxonomy are rejected
// deterministically, without spending an oracle call.
type SingleJudge struct {
	oracle      *oracle.Client
	index       *taxonomy.Index
	temperature float64
	bypassCache bool
	verbose     bool
}

// NewSingleJudge creates a judge over a taxonomy index and an oracle client.
func NewSingleJudge(client *oracle.Client, index *taxonomy.Index, temperature float64, bypassCache, verbose bool) *SingleJudge {
	return &SingleJudge{
		oracle:      client,
		index:       index,
		temperature: temperature,
		bypassCache: bypassCache,
		verbose:     verbose,
	}
}

// Adjudicate judges one claim. On success the returned claim carries a
// terminal status, evidence quality, notes, and timestamp. A non-nil error
// means the oracle could not produce a usable verdict; the claim is
// returned unchanged so the caller leaves it pending for a future run.
func (j *SingleJudge) Adjudicate(ctx context.Context, claim model.Claim) (model.Claim, error) {
	resolved, ok := j.resolve(claim)
	if !ok {
		return rejectUnresolved(claim), nil
	}

	verdict, err := j.call(ctx, resolved, j.temperature)
	if err != nil {
		return claim, err
	}

	return j.apply(resolved, verdict), nil
}

// resolve canonicalizes the claim's pillar and sub-requirement. A false
// return means at least one could not be matched; per the resolution
// contract the caller must reject, never guess.
func (j *SingleJudge) resolve(claim model.Claim) (model.Claim, bool) {
	sub, ok := j.index.ResolveSubRequirement(claim.SubRequirement)
	if !ok {
		return claim, false
	}
	pillar, ok := j.index.ResolvePillar(claim.Pillar)
	if !ok {
		return claim, false
	}

	claim.SubRequirement = sub
	claim.Pillar = pillar
	return claim, true
}

// call makes one oracle judge call at the given temperature and returns a
// validated verdict with its composite recomputed from the dimensions.
func (j *SingleJudge) call(ctx context.Context, claim model.Claim, temperature float64) (*oracle.Verdict, error) {
	verdict, err := j.oracle.Judge(ctx, oracle.JudgeRequest{
		Claim:       claim,
		Requirement: claim.SubRequirement,
		Temperature: temperature,
		BypassCache: j.bypassCache,
	})
	if err != nil {
		return nil, err
	}

	// The composite is recomputed locally so scoring stays deterministic
	// even when the oracle's own arithmetic drifts.
	verdict.EvidenceQuality.CompositeScore = round2(CalculateCompositeScore(verdict.EvidenceQuality))
	return verdict, nil
}

// apply folds a validated verdict into the claim. The terminal status comes
// from the deterministic approval criteria; when the oracle's own verdict
// field disagrees, the disagreement is surfaced in the notes rather than
// silently reconciled.
func (j *SingleJudge) apply(claim model.Claim, verdict *oracle.Verdict) model.Claim {
	quality := verdict.EvidenceQuality

	status := model.StatusRejected
	if MeetsApprovalCriteria(quality) {
		status = model.StatusApproved
	}

	notes := verdict.JudgeNotes
	if verdict.Verdict != status {
		notes = fmt.Sprintf("%s [oracle verdict %q disagrees with score-based decision %q]", notes, verdict.Verdict, status)
		if j.verbose {
			fmt.Fprintf(os.Stderr, "judge: claim %s: oracle said %s, criteria say %s\n", claim.ClaimID, verdict.Verdict, status)
		}
	}

	claim.Status = status
	claim.EvidenceQuality = &quality
	claim.JudgeNotes = notes
	claim.JudgeTimestamp = time.Now().UTC().Format(time.RFC3339)
	return claim
}

// rejectUnresolved is the deterministic path for claims whose requirement
// could not be matched to the taxonomy: rejected with the fixed quality
// floor and a rationale naming the unresolved field.
func rejectUnresolved(claim model.Claim) model.Claim {
	claim.Status = model.StatusRejected
	claim.EvidenceQuality = model.FloorQuality()
	claim.JudgeNotes = fmt.Sprintf(
		"auto-rejected: could not resolve %q / %q against the requirement taxonomy",
		claim.Pillar, claim.SubRequirement)
	claim.JudgeTimestamp = time.Now().UTC().Format(time.RFC3339)
	return claim
}
