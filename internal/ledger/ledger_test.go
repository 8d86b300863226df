package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/adjudex/adjudex/internal/model"
)

func newTestLedger(t *testing.T, docs map[string][]model.VersionEntry) *Ledger {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.json")
	data, err := json.Marshal(docs)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l
}

func claimFixture(id, doc string, status model.ClaimStatus) model.Claim {
	return model.Claim{
		ClaimID:        id,
		DocumentID:     doc,
		Pillar:         "Pillar 1",
		SubRequirement: "Sub-1.1.1: Example",
		EvidenceText:   "evidence for " + id,
		Status:         status,
	}
}

func versionFixture(claims ...model.Claim) model.VersionEntry {
	return model.NewVersionEntry(
		model.Review{Requirements: claims},
		model.Changes{Status: model.ChangeJudgeUpdate},
	)
}

func TestOpen_MissingFileYieldsEmptyLedger(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(l.Documents()) != 0 {
		t.Errorf("expected empty ledger, got %d documents", len(l.Documents()))
	}
}

func TestExtractPending_OnlyLatestVersionCounts(t *testing.T) {
	l := newTestLedger(t, map[string][]model.VersionEntry{
		"doc-a": {
			versionFixture(claimFixture("c1", "doc-a", model.StatusPendingJudgeReview)),
			versionFixture(
				claimFixture("c1", "doc-a", model.StatusApproved),
				claimFixture("c2", "doc-a", model.StatusPendingJudgeReview),
			),
		},
		"doc-b": {
			versionFixture(claimFixture("c3", "doc-b", model.StatusRejected)),
		},
	})

	pending := l.ExtractPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending claim, got %d", len(pending))
	}
	if pending[0].ClaimID != "c2" {
		t.Errorf("expected c2, got %s", pending[0].ClaimID)
	}
	if pending[0].DocumentID != "doc-a" {
		t.Errorf("pending claim must be tagged with its document, got %q", pending[0].DocumentID)
	}
}

func TestApplyUpdates_AppendsExactlyOneVersion(t *testing.T) {
	l := newTestLedger(t, map[string][]model.VersionEntry{
		"doc-a": {versionFixture(
			claimFixture("c1", "doc-a", model.StatusPendingJudgeReview),
			claimFixture("c2", "doc-a", model.StatusPendingJudgeReview),
		)},
	})

	prior := l.Versions("doc-a")[0]
	priorCopy, _ := json.Marshal(prior)

	update := claimFixture("c1", "doc-a", model.StatusApproved)
	update.JudgeNotes = "supported"
	if got := l.ApplyUpdates([]model.Claim{update}); got != 1 {
		t.Fatalf("expected 1 document appended, got %d", got)
	}

	versions := l.Versions("doc-a")
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}

	// The prior version is byte-for-byte unchanged.
	afterCopy, _ := json.Marshal(versions[0])
	if string(priorCopy) != string(afterCopy) {
		t.Error("prior version was mutated")
	}

	latest := versions[1]
	if latest.Changes.Status != model.ChangeJudgeUpdate {
		t.Errorf("changes status = %s", latest.Changes.Status)
	}
	if !reflect.DeepEqual(latest.Changes.ClaimIDs, []string{"c1"}) {
		t.Errorf("claim ids = %v", latest.Changes.ClaimIDs)
	}
	if latest.Review.Requirements[0].Status != model.StatusApproved {
		t.Error("c1 not updated in latest version")
	}
	if latest.Review.Requirements[1].Status != model.StatusPendingJudgeReview {
		t.Error("c2 must be untouched")
	}
}

func TestApplyUpdates_NoOpWhenNothingChanges(t *testing.T) {
	c1 := claimFixture("c1", "doc-a", model.StatusApproved)
	l := newTestLedger(t, map[string][]model.VersionEntry{
		"doc-a": {versionFixture(c1)},
	})

	// Re-applying the identical claim must not create a version.
	if got := l.ApplyUpdates([]model.Claim{c1}); got != 0 {
		t.Fatalf("expected no appended version, got %d", got)
	}
	if len(l.Versions("doc-a")) != 1 {
		t.Errorf("expected 1 version, got %d", len(l.Versions("doc-a")))
	}
}

func TestApplyUpdates_UnknownDocumentUntouched(t *testing.T) {
	l := newTestLedger(t, map[string][]model.VersionEntry{
		"doc-a": {versionFixture(claimFixture("c1", "doc-a", model.StatusPendingJudgeReview))},
	})

	if got := l.ApplyUpdates([]model.Claim{claimFixture("c9", "doc-z", model.StatusApproved)}); got != 0 {
		t.Fatalf("expected 0 documents appended, got %d", got)
	}
	if len(l.Versions("doc-a")) != 1 {
		t.Error("doc-a must be untouched")
	}
}

func TestAppendNewClaims_RecordsDRAAppeal(t *testing.T) {
	l := newTestLedger(t, map[string][]model.VersionEntry{
		"doc-a": {versionFixture(claimFixture("c1", "doc-a", model.StatusRejected))},
	})

	fresh := claimFixture("c2", "doc-a", model.StatusPendingJudgeReview)
	if got := l.AppendNewClaims([]model.Claim{fresh}); got != 1 {
		t.Fatalf("expected 1 document appended, got %d", got)
	}

	versions := l.Versions("doc-a")
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}

	latest := versions[1]
	if latest.Changes.Status != model.ChangeDRAAppeal {
		t.Errorf("changes status = %s", latest.Changes.Status)
	}
	if latest.Changes.NewClaims != 1 {
		t.Errorf("new claim count = %d", latest.Changes.NewClaims)
	}
	if len(latest.Review.Requirements) != 2 {
		t.Fatalf("expected 2 claims in latest version, got %d", len(latest.Review.Requirements))
	}
	// The rejected original remains embedded in history.
	if latest.Review.Requirements[0].Status != model.StatusRejected {
		t.Error("original rejected claim must stay in the claim set")
	}
}

func TestSaveAndReopen_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	l.AppendNewClaims([]model.Claim{claimFixture("c1", "doc-a", model.StatusPendingJudgeReview)})
	if err := l.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	pending := reopened.ExtractPending()
	if len(pending) != 1 || pending[0].ClaimID != "c1" {
		t.Errorf("round trip lost claims: %+v", pending)
	}
}

func TestDetectCircularRefs(t *testing.T) {
	acyclic := map[string]any{
		"doc": []any{
			map[string]any{"claims": []any{"a", "b"}},
			map[string]any{"claims": []any{"a", "b"}},
		},
	}
	if err := DetectCircularRefs(acyclic); err != nil {
		t.Errorf("acyclic structure flagged: %v", err)
	}

	child := map[string]any{}
	parent := map[string]any{"child": child}
	child["parent"] = parent
	if err := DetectCircularRefs(parent); err == nil {
		t.Error("expected cycle to be detected")
	}

	// A slice reaching back to itself is also a cycle.
	s := []any{nil}
	s[0] = s
	if err := DetectCircularRefs(s); err == nil {
		t.Error("expected self-referencing slice to be detected")
	}

	// The same leaf referenced twice from siblings is aliasing, not a cycle.
	shared := []any{"x"}
	if err := DetectCircularRefs(map[string]any{"a": shared, "b": shared}); err != nil {
		t.Errorf("shared acyclic container flagged: %v", err)
	}
}
