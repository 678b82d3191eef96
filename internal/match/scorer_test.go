package match

import "testing"

func TestBestMatchPrefersHighestTermOverlap(t *testing.T) {
	candidates := []Candidate{
		{Title: "Pixel 8 Pro 256GB", Price: 80000},
		{Title: "Google Pixel 8 128GB Obsidian", Price: 55000},
	}

	res := BestMatch("Pixel 8", "128GB", candidates)

	if res.Grade != Confident {
		t.Fatalf("expected confident match, got grade %v", res.Grade)
	}
	if res.Candidate.Title != "Google Pixel 8 128GB Obsidian" {
		t.Fatalf("expected second candidate, got %q", res.Candidate.Title)
	}
	if res.Candidate.Price != 55000 {
		t.Fatalf("expected price 55000, got %d", res.Candidate.Price)
	}
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	res := BestMatch("Widget X", "", nil)
	if res.Grade != NoMatch {
		t.Fatalf("expected no match for empty candidate list, got %v", res.Grade)
	}
}

func TestBestMatchFallsBackToFirstCandidate(t *testing.T) {
	candidates := []Candidate{{Title: "Totally Unrelated Gadget", Price: 999}}

	res := BestMatch("Widget X", "", candidates)

	if res.Grade != Guess {
		t.Fatalf("expected low-confidence guess, got %v", res.Grade)
	}
	if res.Candidate.Price != 999 {
		t.Fatalf("expected fallback candidate, got %+v", res.Candidate)
	}
}

func TestBestMatchStableTieBreak(t *testing.T) {
	candidates := []Candidate{
		{Title: "Acme Blender 500W", Price: 3000},
		{Title: "Acme Blender 500W (Renewed)", Price: 2500},
	}

	res := BestMatch("Acme Blender", "", candidates)

	if res.Candidate.Price != 3000 {
		t.Fatalf("tie should keep the earliest candidate, got %+v", res.Candidate)
	}
	if res.Grade != Confident {
		t.Fatalf("expected confident match, got %v", res.Grade)
	}
}

func TestBestMatchSingleTermThreshold(t *testing.T) {
	// One usable term means the threshold is 1, not 2.
	candidates := []Candidate{
		{Title: "Mixer grinder deluxe", Price: 1500},
		{Title: "Kettle electric", Price: 1200},
	}

	res := BestMatch("Kettle", "", candidates)

	if res.Grade != Confident {
		t.Fatalf("expected confident match with single-term target, got %v", res.Grade)
	}
	if res.Candidate.Price != 1200 {
		t.Fatalf("expected kettle candidate, got %+v", res.Candidate)
	}
}

func TestTermsDropShortTokens(t *testing.T) {
	terms := Terms("Pixel 8", "128GB")
	want := []string{"pixel", "128gb"}
	if len(terms) != len(want) {
		t.Fatalf("expected %v, got %v", want, terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, terms)
		}
	}
}
