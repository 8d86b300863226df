package judge

import (
	"context"
	"fmt"
	"os"

	"github.com/adjudex/adjudex/internal/model"
)

// bandEps absorbs float error at the borderline-band edges; strongEps
// covers 2/3 agreement against the 0.67 strong-consensus threshold.
const (
	bandEps   = 1e-9
	strongEps = 0.005
)

// consensusTemperatures varies sampling on escalation so the extra judges
// do not simply replay the first answer.
var consensusTemperatures = []float64{0.3, 0.6, 0.9}

// Coordinator wraps SingleJudge with borderline-score escalation: when the
// single-judge composite lands in the configured band, the claim goes to a
// multi-judge vote. Outside the band the single-judge result is final and
// no extra oracle calls are spent.
type Coordinator struct {
	judge *SingleJudge
	cfg   model.ConsensusConfig
}

// NewCoordinator creates a consensus coordinator over a single judge.
func NewCoordinator(judge *SingleJudge, cfg model.ConsensusConfig) *Coordinator {
	if cfg.Judges <= 0 {
		cfg.Judges = 3
	}
	if cfg.MinValid <= 0 {
		cfg.MinValid = 2
	}
	if cfg.StrongRate == 0 {
		cfg.StrongRate = 0.67
	}
	if cfg.BandLow == 0 {
		cfg.BandLow = 2.5
	}
	if cfg.BandHigh == 0 {
		cfg.BandHigh = 3.5
	}
	return &Coordinator{judge: judge, cfg: cfg}
}

// Adjudicate runs the single judge and escalates borderline results. A
// non-nil error means the claim must stay pending, exactly as with
// SingleJudge.
func (c *Coordinator) Adjudicate(ctx context.Context, claim model.Claim) (model.Claim, error) {
	result, err := c.judge.Adjudicate(ctx, claim)
	if err != nil {
		return claim, err
	}

	if !c.cfg.Enabled || result.EvidenceQuality == nil || !c.borderline(result.EvidenceQuality.CompositeScore) {
		return result, nil
	}

	return c.escalate(ctx, claim, result), nil
}

func (c *Coordinator) borderline(composite float64) bool {
	return composite >= c.cfg.BandLow-bandEps && composite <= c.cfg.BandHigh+bandEps
}

// vote is one consensus judge's contribution.
type vote struct {
	verdict   model.ClaimStatus
	composite float64
	quality   model.EvidenceQuality
	notes     string
}

// escalate issues the extra independent judge calls and aggregates a
// majority verdict. Oracle flakiness degrades gracefully: with fewer than
// MinValid usable responses the original single-judge result stands,
// explicitly without consensus metadata so downstream cannot mistake it
// for a voted outcome.
func (c *Coordinator) escalate(ctx context.Context, original, single model.Claim) model.Claim {
	// The escalation judges re-see the resolved claim, not the raw one.
	resolved := single
	resolved.Status = original.Status
	resolved.EvidenceQuality = nil
	resolved.JudgeNotes = original.JudgeNotes
	resolved.JudgeTimestamp = ""

	var votes []vote
	for i := 0; i < c.cfg.Judges; i++ {
		temp := consensusTemperatures[i%len(consensusTemperatures)]
		verdict, err := c.judge.call(ctx, resolved, temp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "consensus: judge %d/%d failed for claim %s: %v\n", i+1, c.cfg.Judges, single.ClaimID, err)
			continue
		}

		v := model.StatusRejected
		if MeetsApprovalCriteria(verdict.EvidenceQuality) {
			v = model.StatusApproved
		}
		votes = append(votes, vote{
			verdict:   v,
			composite: verdict.EvidenceQuality.CompositeScore,
			quality:   verdict.EvidenceQuality,
			notes:     verdict.JudgeNotes,
		})
	}

	if len(votes) < c.cfg.MinValid {
		fmt.Fprintf(os.Stderr, "consensus: only %d/%d judges responded for claim %s; keeping single-judge result\n", len(votes), c.cfg.Judges, single.ClaimID)
		return single
	}

	return c.aggregate(single, votes)
}

// aggregate applies majority vote with ties broken toward rejection, the
// conservative outcome.
func (c *Coordinator) aggregate(claim model.Claim, votes []vote) model.Claim {
	approved, rejected := 0, 0
	sum := 0.0
	for _, v := range votes {
		if v.verdict == model.StatusApproved {
			approved++
		} else {
			rejected++
		}
		sum += v.composite
	}

	majority := model.StatusRejected
	if approved > rejected {
		majority = model.StatusApproved
	}

	agreeing := rejected
	if majority == model.StatusApproved {
		agreeing = approved
	}
	agreementRate := float64(agreeing) / float64(len(votes))

	status := model.ConsensusWeak
	if agreementRate >= c.cfg.StrongRate-strongEps {
		status = model.ConsensusStrong
	}

	average := round2(sum / float64(len(votes)))

	quality := *claim.EvidenceQuality
	quality.CompositeScore = average

	claim.Status = majority
	claim.EvidenceQuality = &quality
	claim.ConsensusMetadata = &model.ConsensusMetadata{
		TotalJudges:           len(votes),
		VoteBreakdown:         model.VoteBreakdown{Approved: approved, Rejected: rejected},
		AgreementRate:         round2(agreementRate),
		ConsensusStatus:       status,
		RequiresHumanReview:   status == model.ConsensusWeak,
		AverageCompositeScore: average,
	}
	claim.JudgeNotes = fmt.Sprintf("consensus %d-%d (%s): %s", approved, rejected, status, claim.JudgeNotes)
	return claim
}
