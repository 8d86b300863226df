package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Definitions is the canonical three-level taxonomy:
// pillar -> requirement -> ordered sub-requirement strings.
type Definitions map[string]PillarDefinition

// PillarDefinition holds one pillar's requirements.
type PillarDefinition struct {
	Requirements map[string][]string `json:"requirements"`
}

// Load reads taxonomy definitions from a JSON file.
func Load(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	var defs Definitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	return defs, nil
}

// Pillars returns the canonical pillar names in stable order.
func (d Definitions) Pillars() []string {
	pillars := make([]string, 0, len(d))
	for p := range d {
		pillars = append(pillars, p)
	}
	sort.Strings(pillars)
	return pillars
}

// SubRequirements returns every canonical sub-requirement string across all
// pillars, in stable order.
func (d Definitions) SubRequirements() []string {
	var subs []string
	for _, pillar := range d.Pillars() {
		reqs := d[pillar].Requirements
		names := make([]string, 0, len(reqs))
		for r := range reqs {
			names = append(names, r)
		}
		sort.Strings(names)
		for _, r := range names {
			subs = append(subs, reqs[r]...)
		}
	}
	return subs
}
