// Package trust implements source-based confidence weighting for ingested
// content (the "Suspicion Protocol"). The policy is a declarative lookup
// table evaluated once at ingestion: pattern -> confidence cap + default
// tags. Pure functions only.
package trust

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NeutralCap is the confidence ceiling for sources no table entry matches.
const NeutralCap = 0.7

// LowTrustCap is the ceiling applied to known low-trust sources.
const LowTrustCap = 0.55

// TagUnverified marks content from low-trust sources pending verification.
const TagUnverified = "unverified"

// Entry maps a source pattern to its confidence cap and default tags.
// Pattern is matched as a case-insensitive substring of the source string
// (domain, connector name, or full URL).
type Entry struct {
	Pattern       string   `yaml:"pattern"`
	ConfidenceCap float64  `yaml:"confidence_cap"`
	Tags          []string `yaml:"tags"`
}

// Table is an ordered trust table; the first matching entry wins.
type Table []Entry

// Prior is the resolved trust prior for one source.
type Prior struct {
	ConfidenceCap float64
	Tags          []string
}

// Seed returns the built-in trust table. Extend via a YAML table file rather
// than by adding conditionals at the ingestion site.
func Seed() Table {
	return Table{
		{Pattern: "reddit", ConfidenceCap: 1.0, Tags: []string{"reddit"}},
		{Pattern: "moltbook", ConfidenceCap: LowTrustCap, Tags: []string{TagUnverified}},
		{Pattern: "blogspot", ConfidenceCap: LowTrustCap, Tags: []string{TagUnverified}},
		{Pattern: "web", ConfidenceCap: NeutralCap, Tags: []string{"web"}},
	}
}

// Load reads a trust table from a YAML file. The file fully replaces the seed
// table so operators can tighten or relax policy without code changes.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust table: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse trust table: %w", err)
	}

	for i, e := range t {
		if e.Pattern == "" {
			return nil, fmt.Errorf("trust table entry %d has empty pattern", i)
		}
		if e.ConfidenceCap < 0 || e.ConfidenceCap > 1 {
			return nil, fmt.Errorf("trust table entry %q has cap %v outside [0,1]", e.Pattern, e.ConfidenceCap)
		}
	}

	return t, nil
}

// Evaluate resolves the trust prior for a source string. Sources with no
// matching entry get the neutral prior.
func (t Table) Evaluate(source string) Prior {
	s := strings.ToLower(source)
	for _, e := range t {
		if strings.Contains(s, strings.ToLower(e.Pattern)) {
			return Prior{ConfidenceCap: e.ConfidenceCap, Tags: append([]string(nil), e.Tags...)}
		}
	}
	return Prior{ConfidenceCap: NeutralCap}
}

// Apply caps a fetcher-reported confidence by the prior and clamps to [0,1].
func (p Prior) Apply(confidence float64) float64 {
	if confidence > p.ConfidenceCap {
		confidence = p.ConfidenceCap
	}
	return Clamp(confidence)
}

// Clamp bounds a confidence value to [0,1].
func Clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
