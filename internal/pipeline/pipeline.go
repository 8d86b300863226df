package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/adjudex/adjudex/internal/appeal"
	"github.com/adjudex/adjudex/internal/ledger"
	"github.com/adjudex/adjudex/internal/model"
)

// Adjudicator judges one claim to a terminal status, or errors when the
// claim must stay pending. Satisfied by judge.SingleJudge and
// judge.Coordinator.
type Adjudicator interface {
	Adjudicate(ctx context.Context, claim model.Claim) (model.Claim, error)
}

// Appealer runs the deep re-evidence loop over rejected claims. Satisfied
// by appeal.Batcher.
type Appealer interface {
	Appeal(ctx context.Context, rejected []model.Claim) appeal.Result
}

// Pipeline orchestrates one adjudication run in four phases: judge pending
// claims, appeal the rejected ones, judge the appeal claims, persist every
// transition into the ledger. Execution is sequential; the ledger is only
// mutated in the persist phase, so a killed run never leaves partial
// version entries.
type Pipeline struct {
	ledger   *ledger.Ledger
	judge    Adjudicator
	appealer Appealer // nil disables the appeal phase
	dryRun   bool
	verbose  bool
}

// New creates a pipeline. A nil appealer disables the appeal phase.
func New(l *ledger.Ledger, judge Adjudicator, appealer Appealer, dryRun, verbose bool) *Pipeline {
	return &Pipeline{
		ledger:   l,
		judge:    judge,
		appealer: appealer,
		dryRun:   dryRun,
		verbose:  verbose,
	}
}

// Run executes the four phases and returns the run statistics.
func (p *Pipeline) Run(ctx context.Context) (model.RunStats, error) {
	stats := model.RunStats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	// Phase 1: judge everything pending.
	pending := p.ledger.ExtractPending()
	stats.PendingClaims = len(pending)
	if p.verbose {
		fmt.Fprintf(os.Stderr, "pipeline: %d pending claim(s)\n", len(pending))
	}

	var updates []model.Claim
	var rejected []model.Claim
	for _, claim := range pending {
		judged, err := p.judge.Adjudicate(ctx, claim)
		if err != nil {
			stats.LeftPending++
			fmt.Fprintf(os.Stderr, "pipeline: claim %s left pending: %v\n", claim.ClaimID, err)
			continue
		}

		p.tally(&stats, judged, &stats.InitialApproved, &stats.InitialRejected)
		updates = append(updates, judged)
		if judged.Status == model.StatusRejected {
			rejected = append(rejected, judged)
		}
	}

	// Phase 2: appeal the rejections.
	var newClaims []model.Claim
	if p.appealer != nil && len(rejected) > 0 {
		result := p.appealer.Appeal(ctx, rejected)
		stats.AppealsSubmitted = len(result.NewClaims)
		stats.SkippedDocuments = result.SkippedDocuments
		newClaims = result.NewClaims
		if p.verbose {
			fmt.Fprintf(os.Stderr, "pipeline: appeal produced %d new claim(s), skipped %d document(s)\n",
				len(result.NewClaims), result.SkippedDocuments)
		}
	}

	// Phase 3: judge the appeal claims.
	for _, claim := range newClaims {
		judged, err := p.judge.Adjudicate(ctx, claim)
		if err != nil {
			stats.LeftPending++
			fmt.Fprintf(os.Stderr, "pipeline: appeal claim %s left pending: %v\n", claim.ClaimID, err)
			continue
		}

		p.tally(&stats, judged, &stats.AppealsApproved, &stats.AppealsRejected)
		updates = append(updates, judged)
	}

	// Phase 4: persist. New claims first (dra_appeal version, still
	// pending), then every judged transition (judge_update version).
	if !p.dryRun {
		if len(newClaims) > 0 {
			p.ledger.AppendNewClaims(newClaims)
		}
		if len(updates) > 0 {
			p.ledger.ApplyUpdates(updates)
		}
		if err := p.ledger.Save(); err != nil {
			return stats, fmt.Errorf("persist ledger: %w", err)
		}
	}

	stats.FinishedAt = time.Now().UTC()
	return stats, nil
}

func (p *Pipeline) tally(stats *model.RunStats, judged model.Claim, approved, rejected *int) {
	switch judged.Status {
	case model.StatusApproved:
		*approved++
	case model.StatusRejected:
		*rejected++
	}
	if judged.ConsensusMetadata != nil {
		stats.ConsensusRuns++
		if judged.ConsensusMetadata.RequiresHumanReview {
			stats.HumanReviewFlags++
		}
	}
}
