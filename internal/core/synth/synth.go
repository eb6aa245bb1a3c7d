// Package synth contains the pure similarity/link-selection logic for the
// synthesis engine. No I/O; the service layer feeds it nodes and existing
// pairs and persists what it selects.
package synth

import (
	"errors"
	"sort"
	"strings"
	"unicode"
)

// ErrThresholdOutOfRange is returned when the similarity threshold is not in [0,1].
var ErrThresholdOutOfRange = errors.New("similarity threshold out of range")

// Params bounds one synthesis pass. TopK <= 0 disables the per-node cap,
// MaxLinks <= 0 disables the global cap.
type Params struct {
	Threshold float64
	TopK      int
	MaxLinks  int
}

// Node is one candidate entity (finding or artifact) with its feature set.
type Node struct {
	ID     string
	Tokens map[string]struct{}
}

// Pair is a canonically ordered undirected pair: From < To.
type Pair struct {
	From string
	To   string
}

// Canonical orders two ids into the undirected-pair form used for dedup.
func Canonical(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{From: a, To: b}
}

// Candidate is a scored pair that cleared the threshold.
type Candidate struct {
	Pair
	Score float64
}

// Result summarizes one selection pass.
type Result struct {
	Candidates      int
	Selected        []Candidate
	SkippedExisting int
}

// ScoreFunc computes similarity between two feature sets in [0,1].
type ScoreFunc func(a, b map[string]struct{}) float64

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "with": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "has": {}, "have": {}, "not": {},
	"but": {}, "its": {}, "can": {}, "will": {}, "you": {}, "your": {},
}

// Tokenize produces the normalized token set of a text: lowercased, split on
// non-alphanumerics, stopwords and tokens shorter than 3 runes dropped.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(field)) < 3 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// Jaccard is the default similarity score: |a∩b| / |a∪b|.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Select scores every node pair and picks the links a pass should create.
//
// Determinism: candidates are ordered by score descending, then ascending
// canonical pair ids, so identical inputs always select identical links.
// Existing pairs are never re-selected and still consume per-node budget;
// that is what makes a repeated pass a strict no-op.
func Select(nodes []Node, existing []Pair, p Params, score ScoreFunc) (Result, error) {
	if p.Threshold < 0 || p.Threshold > 1 {
		return Result{}, ErrThresholdOutOfRange
	}
	if score == nil {
		score = Jaccard
	}

	existingSet := make(map[Pair]struct{}, len(existing))
	degree := make(map[string]int)
	for _, pair := range existing {
		existingSet[pair] = struct{}{}
		degree[pair.From]++
		degree[pair.To]++
	}

	var candidates []Candidate
	skippedExisting := 0
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			s := score(nodes[i].Tokens, nodes[j].Tokens)
			if s < p.Threshold {
				continue
			}
			pair := Canonical(nodes[i].ID, nodes[j].ID)
			if _, ok := existingSet[pair]; ok {
				skippedExisting++
				continue
			}
			candidates = append(candidates, Candidate{Pair: pair, Score: s})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].From != candidates[j].From {
			return candidates[i].From < candidates[j].From
		}
		return candidates[i].To < candidates[j].To
	})

	result := Result{
		Candidates:      len(candidates) + skippedExisting,
		SkippedExisting: skippedExisting,
	}
	for _, c := range candidates {
		if p.MaxLinks > 0 && len(result.Selected) >= p.MaxLinks {
			break
		}
		if p.TopK > 0 && (degree[c.From] >= p.TopK || degree[c.To] >= p.TopK) {
			continue
		}
		degree[c.From]++
		degree[c.To]++
		result.Selected = append(result.Selected, c)
	}

	return result, nil
}
