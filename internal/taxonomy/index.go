package taxonomy

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// fuzzyCutoff is the minimum similarity ratio for a fuzzy resolution.
// Matches below it are treated as misses, not guesses.
const fuzzyCutoff = 0.8

// numberingPrefix matches leading requirement-numbering variants such as
// "Sub-1.2.3:", "SR2.1:", "1.2 -", "Sub 4:".
var numberingPrefix = regexp.MustCompile(`(?i)^\s*(?:sub[-\s]?|sr[-\s]?)?\d+(?:\.\d+)*\s*[:.\-–)]\s*`)

// Normalize canonicalizes requirement/pillar text for lookup: strips a
// leading numbering prefix, lowercases, removes punctuation, and collapses
// whitespace. Empty input yields the empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = numberingPrefix.ReplaceAllString(s, "")
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped entirely.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Index maps arbitrary claim-supplied pillar/sub-requirement strings onto
// the canonical taxonomy strings. It is an explicit object, constructed per
// taxonomy, so multiple taxonomies can coexist in one process.
type Index struct {
	subRequirements map[string]string // normalized -> canonical
	pillars         map[string]string // normalized -> canonical
}

// NewIndex builds the lookup tables from taxonomy definitions. Duplicate
// normalized keys are logged, not fatal; the first insertion wins.
func NewIndex(defs Definitions) *Index {
	idx := &Index{
		subRequirements: make(map[string]string),
		pillars:         make(map[string]string),
	}

	for _, pillar := range defs.Pillars() {
		idx.insert(idx.pillars, pillar, pillar)
	}
	for _, pillar := range defs.Pillars() {
		for _, subs := range defs[pillar].Requirements {
			for _, sub := range subs {
				idx.insert(idx.subRequirements, sub, sub)
			}
		}
	}

	return idx
}

func (idx *Index) insert(m map[string]string, raw, canonical string) {
	key := Normalize(raw)
	if key == "" {
		return
	}
	if existing, ok := m[key]; ok {
		if existing != canonical {
			fmt.Fprintf(os.Stderr, "taxonomy: duplicate normalized key %q (%q kept, %q ignored)\n", key, existing, canonical)
		}
		return
	}
	m[key] = canonical
}

// ResolveSubRequirement maps claim text to a canonical sub-requirement.
// The boolean is false when no exact or fuzzy match clears the cutoff;
// callers must treat that as "could not resolve" and reject, never guess.
func (idx *Index) ResolveSubRequirement(text string) (string, bool) {
	return resolve(idx.subRequirements, text)
}

// ResolvePillar maps claim text to a canonical pillar name.
func (idx *Index) ResolvePillar(text string) (string, bool) {
	return resolve(idx.pillars, text)
}

func resolve(m map[string]string, text string) (string, bool) {
	key := Normalize(text)
	if key == "" {
		return "", false
	}

	if canonical, ok := m[key]; ok {
		return canonical, true
	}

	// Fuzzy fallback: best similarity ratio above the fixed cutoff.
	bestScore := 0.0
	bestCanonical := ""
	for candidate, canonical := range m {
		score := Ratio(key, candidate)
		if score > bestScore {
			bestScore = score
			bestCanonical = canonical
		}
	}

	if bestScore >= fuzzyCutoff {
		return bestCanonical, true
	}
	return "", false
}
