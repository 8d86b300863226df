package judge

import (
	"math"

	"github.com/adjudex/adjudex/internal/model"
)

// Approval thresholds: a claim is approved only when the weighted composite
// clears 3.0 and both strength and relevance individually clear 3.
const (
	approvalComposite = 3.0
	approvalStrength  = 3
	approvalRelevance = 3
)

// CalculateCompositeScore reproduces the canonical weighted average over
// the six evidence-quality dimensions:
//
//	0.30*strength + 0.25*rigor + 0.25*relevance
//	+ 0.10*(directness/3) + 0.05*recency + 0.05*reproducibility
//
// The formula is deterministic so re-scoring the same dimensions always
// yields the same composite regardless of what the oracle reported.
func CalculateCompositeScore(q model.EvidenceQuality) float64 {
	recent := 0.0
	if q.IsRecent {
		recent = 1.0
	}

	return 0.30*float64(q.Strength) +
		0.25*float64(q.Rigor) +
		0.25*float64(q.Relevance) +
		0.10*(float64(q.Directness)/3.0) +
		0.05*recent +
		0.05*float64(q.Reproducibility)
}

// MeetsApprovalCriteria applies the deterministic approval rule to an
// evidence-quality score. It reads the stored composite, so callers must
// populate CompositeScore first.
func MeetsApprovalCriteria(q model.EvidenceQuality) bool {
	return q.CompositeScore >= approvalComposite &&
		q.Strength >= approvalStrength &&
		q.Relevance >= approvalRelevance
}

// round2 rounds to two decimal places, the precision the ledger stores.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
