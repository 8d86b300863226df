package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/adjudex/adjudex/internal/model"
)

// Ledger is the append-only per-document version store. Each document maps
// to an ordered list of version entries; the current state of a document is
// always the last entry. Entries are never mutated in place.
type Ledger struct {
	path string
	docs map[string][]model.VersionEntry
}

// Open loads the ledger at path. A missing file yields an empty ledger,
// not an error, so first runs need no setup step.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		docs: make(map[string][]model.VersionEntry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	// Guard against aliased containers before committing to the typed
	// decode; a cyclic ledger would otherwise hang the marshal on save.
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	if err := DetectCircularRefs(raw); err != nil {
		return nil, fmt.Errorf("ledger integrity: %w", err)
	}

	if err := json.Unmarshal(data, &l.docs); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}

	return l, nil
}

// Save writes the whole ledger. The write goes to a temp file followed by a
// rename, so a killed process never leaves a torn ledger visible.
func (l *Ledger) Save() error {
	data, err := json.MarshalIndent(l.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}

	return nil
}

// Documents returns the known document ids in stable order.
func (l *Ledger) Documents() []string {
	ids := make([]string, 0, len(l.docs))
	for id := range l.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Versions returns the full version history of a document.
func (l *Ledger) Versions(documentID string) []model.VersionEntry {
	return l.docs[documentID]
}

// Latest returns the current version entry of a document.
func (l *Ledger) Latest(documentID string) (model.VersionEntry, bool) {
	versions := l.docs[documentID]
	if len(versions) == 0 {
		return model.VersionEntry{}, false
	}
	return versions[len(versions)-1], true
}

// ExtractPending returns every claim across every document whose latest
// version has status pending_judge_review, tagged with its document id.
func (l *Ledger) ExtractPending() []model.Claim {
	var pending []model.Claim
	for _, docID := range l.Documents() {
		latest, ok := l.Latest(docID)
		if !ok {
			continue
		}
		for _, claim := range latest.Review.Requirements {
			if claim.Status == model.StatusPendingJudgeReview {
				claim.DocumentID = docID
				pending = append(pending, claim)
			}
		}
	}
	return pending
}

// ApplyUpdates overwrites matching claims by claim_id in a copy of each
// affected document's latest claim list and appends a judge_update version.
// Documents with no matching claim are left untouched, and a document gets
// no new version when the matching claims are already byte-identical, so
// re-running an unchanged adjudication appends nothing.
func (l *Ledger) ApplyUpdates(updated []model.Claim) int {
	byDoc := groupByDocument(updated)

	appended := 0
	for _, docID := range sortedKeys(byDoc) {
		latest, ok := l.Latest(docID)
		if !ok {
			continue
		}

		claims := copyClaims(latest.Review.Requirements)
		var changedIDs []string
		for _, update := range byDoc[docID] {
			for i := range claims {
				if claims[i].ClaimID != update.ClaimID {
					continue
				}
				if !reflect.DeepEqual(claims[i], update) {
					claims[i] = update
					changedIDs = append(changedIDs, update.ClaimID)
				}
				break
			}
		}
		if len(changedIDs) == 0 {
			continue
		}

		review := latest.Review
		review.Requirements = claims
		l.docs[docID] = append(l.docs[docID], model.NewVersionEntry(review, model.Changes{
			Status:        model.ChangeJudgeUpdate,
			UpdatedClaims: len(changedIDs),
			ClaimIDs:      changedIDs,
		}))
		appended++
	}

	return appended
}

// AppendNewClaims appends appeal-produced claims to a copy of each target
// document's latest claim list and records a dra_appeal version.
func (l *Ledger) AppendNewClaims(newClaims []model.Claim) int {
	byDoc := groupByDocument(newClaims)

	appended := 0
	for _, docID := range sortedKeys(byDoc) {
		var review model.Review
		if latest, ok := l.Latest(docID); ok {
			review = latest.Review
			review.Requirements = copyClaims(latest.Review.Requirements)
		}

		var ids []string
		for _, claim := range byDoc[docID] {
			review.Requirements = append(review.Requirements, claim)
			ids = append(ids, claim.ClaimID)
		}

		l.docs[docID] = append(l.docs[docID], model.NewVersionEntry(review, model.Changes{
			Status:    model.ChangeDRAAppeal,
			NewClaims: len(ids),
			ClaimIDs:  ids,
		}))
		appended++
	}

	return appended
}

func groupByDocument(claims []model.Claim) map[string][]model.Claim {
	byDoc := make(map[string][]model.Claim)
	for _, c := range claims {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}
	return byDoc
}

func sortedKeys(m map[string][]model.Claim) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyClaims(claims []model.Claim) []model.Claim {
	out := make([]model.Claim, len(claims))
	copy(out, claims)
	return out
}
