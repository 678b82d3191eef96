// Package match picks the search-result candidate that best corresponds to a
// tracked product, by lexical overlap between the product description and
// candidate titles.
package match

import "strings"

// Candidate is one (title, price) pair extracted from a search results page.
type Candidate struct {
	Title string
	Price int64
}

// Grade classifies how a candidate was selected.
type Grade int

const (
	// NoMatch means the candidate list was empty; there is nothing to return.
	NoMatch Grade = iota
	// Guess means no candidate cleared the acceptance threshold and the first
	// candidate was returned as a last-resort, low-confidence pick. Showing
	// some price signal is preferred over showing none; callers that want
	// strict precision can suppress guesses.
	Guess
	// Confident means the winning candidate cleared the threshold.
	Confident
)

// Result carries the selected candidate together with its grade and raw score.
type Result struct {
	Candidate Candidate
	Grade     Grade
	Score     int
}

// BestMatch selects the candidate whose title shares the most terms with
// name+variant. Terms are lowercase tokens longer than two characters; a term
// matches when it is a literal substring of the lowercased title. Ties break
// to the earliest candidate. Acceptance requires a score of at least
// min(2, number of terms); below that the first candidate is returned as a
// Guess rather than rejecting outright.
func BestMatch(name, variant string, candidates []Candidate) Result {
	if len(candidates) == 0 {
		return Result{Grade: NoMatch}
	}

	terms := Terms(name, variant)

	best := 0
	bestIdx := 0
	for i, c := range candidates {
		title := strings.ToLower(c.Title)
		score := 0
		for _, t := range terms {
			if strings.Contains(title, t) {
				score++
			}
		}
		if score > best {
			best = score
			bestIdx = i
		}
	}

	threshold := len(terms)
	if threshold > 2 {
		threshold = 2
	}
	if best >= threshold && threshold > 0 {
		return Result{Candidate: candidates[bestIdx], Grade: Confident, Score: best}
	}
	return Result{Candidate: candidates[0], Grade: Guess, Score: best}
}

// Terms tokenizes a product description into scoring terms: lowercase fields
// of length greater than two. Duplicates are kept; a repeated term simply
// counts twice, matching how titles are scored.
func Terms(name, variant string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(name + " " + variant)) {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
