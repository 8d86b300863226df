package appeal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/adjudex/adjudex/internal/model"
	"github.com/adjudex/adjudex/internal/oracle"
)

// Batcher gives rejected claims one more chance: it re-reads each source
// document once, regardless of how many of its claims were rejected, and
// asks the oracle for stronger evidence in a single batch call per
// document (chunked when the document is large).
type Batcher struct {
	oracle      *oracle.Client
	loader      DocumentLoader
	chunkSize   int
	bypassCache bool
	verbose     bool
}

// NewBatcher creates an appeal batcher.
func NewBatcher(client *oracle.Client, loader DocumentLoader, chunkSize int, bypassCache, verbose bool) *Batcher {
	if chunkSize <= 0 {
		chunkSize = 24000
	}
	return &Batcher{
		oracle:      client,
		loader:      loader,
		chunkSize:   chunkSize,
		bypassCache: bypassCache,
		verbose:     verbose,
	}
}

// Result summarizes one appeal pass. Skips and drops are counted, never
// silent.
type Result struct {
	NewClaims          []model.Claim
	SubmittedDocuments int
	SkippedDocuments   int
	SkippedClaims      int
	DroppedCandidates  int
}

// Appeal processes all rejected claims, grouped by source document, and
// returns the replacement claims to feed back into adjudication. The
// originals stay rejected; every new claim chains back to the rejection it
// appeals.
func (b *Batcher) Appeal(ctx context.Context, rejected []model.Claim) Result {
	var res Result

	byDoc := groupByDocument(rejected)
	for _, docID := range sortedKeys(byDoc) {
		claims := byDoc[docID]

		text, ok := b.loader.Load(docID)
		if !ok {
			res.SkippedDocuments++
			res.SkippedClaims += len(claims)
			fmt.Fprintf(os.Stderr, "appeal: document %s unavailable, skipping %d rejected claim(s)\n", docID, len(claims))
			continue
		}

		res.SubmittedDocuments++
		candidates := b.appealDocument(ctx, docID, text, claims)

		byID := make(map[string]model.Claim, len(claims))
		for _, c := range claims {
			byID[c.ClaimID] = c
		}

		for _, cand := range candidates {
			original, known := byID[cand.OriginalClaimID]
			if !known {
				res.DroppedCandidates++
				fmt.Fprintf(os.Stderr, "appeal: dropping candidate for unknown claim id %q (document %s)\n", cand.OriginalClaimID, docID)
				continue
			}
			res.NewClaims = append(res.NewClaims, newClaimFrom(original, cand))
		}
	}

	return res
}

// appealDocument submits one document's rejected claims, chunk by chunk,
// and merges the candidates. Candidates with identical evidence text across
// chunks are duplicates of the same excerpt; the first occurrence wins.
func (b *Batcher) appealDocument(ctx context.Context, docID, text string, claims []model.Claim) []oracle.AppealCandidate {
	rejectedReqs := make([]oracle.RejectedClaim, len(claims))
	for i, c := range claims {
		rejectedReqs[i] = oracle.RejectedClaim{
			ClaimID:         c.ClaimID,
			SubRequirement:  c.SubRequirement,
			EvidenceText:    c.EvidenceText,
			RejectionReason: c.JudgeNotes,
		}
	}

	var merged []oracle.AppealCandidate
	seen := make(map[string]bool)

	for i, chunk := range chunkText(text, b.chunkSize) {
		resp, err := b.oracle.Appeal(ctx, oracle.AppealRequest{
			DocumentID:   docID,
			DocumentText: chunk,
			Claims:       rejectedReqs,
			BypassCache:  b.bypassCache,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "appeal: oracle call failed for document %s chunk %d: %v\n", docID, i+1, err)
			continue
		}

		for _, cand := range resp.Candidates {
			if cand.EvidenceText == "" || seen[cand.EvidenceText] {
				continue
			}
			seen[cand.EvidenceText] = true
			merged = append(merged, cand)
		}
	}

	return merged
}

// newClaimFrom synthesizes the replacement claim: original pillar and
// sub-requirement, fresh evidence, a fresh content-derived id, pending
// status, and notes chaining back to the rejection it appeals.
func newClaimFrom(original model.Claim, cand oracle.AppealCandidate) model.Claim {
	return model.Claim{
		ClaimID:        model.NewClaimID(original.DocumentID, original.SubRequirement, cand.EvidenceText),
		DocumentID:     original.DocumentID,
		Pillar:         original.Pillar,
		SubRequirement: original.SubRequirement,
		EvidenceText:   cand.EvidenceText,
		ClaimSummary:   cand.ClaimSummary,
		Status:         model.StatusPendingJudgeReview,
		JudgeNotes: fmt.Sprintf("appeal of %s; original rejection: %s",
			original.ClaimID, original.JudgeNotes),
	}
}

// chunkText splits a document into chunks of at most size bytes,
// breaking at the last newline inside each window when one exists. The
// hard split never lands inside a multibyte rune.
func chunkText(text string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	for len(text) > size {
		cut := size
		if idx := lastNewline(text[:size]); idx > size/2 {
			cut = idx + 1
		} else {
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = size
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

func lastNewline(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
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
