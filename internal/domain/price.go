package domain

// Confidence grades how a price was matched to the tracked product.
type Confidence string

const (
	// ConfidenceExact marks a price read from the item's own product page.
	ConfidenceExact Confidence = "exact"
	// ConfidenceConfident marks a search result that cleared the term-overlap
	// acceptance threshold.
	ConfidenceConfident Confidence = "confident"
	// ConfidenceGuess marks the first-result fallback used when no search
	// candidate cleared the threshold. Callers may choose to surface this to
	// the user instead of presenting it as authoritative.
	ConfidenceGuess Confidence = "guess"
)

// PriceResult is the outcome of one resolution attempt. Resolved is false for
// every failure mode (transport error, timeout, missing price token); resolver
// failures never escape as errors.
type PriceResult struct {
	Resolved   bool
	Price      int64
	Confidence Confidence
}

// Unresolved is the zero result returned when no strategy produced a price.
func Unresolved() PriceResult { return PriceResult{} }

// ResolvedPrice builds a successful result.
func ResolvedPrice(price int64, conf Confidence) PriceResult {
	return PriceResult{Resolved: true, Price: price, Confidence: conf}
}

// ReceiptProduct is the structured record extracted from a receipt image by
// the receipt-understanding collaborator.
type ReceiptProduct struct {
	Name     string `json:"name"`
	Variant  string `json:"variant,omitempty"`
	Price    int64  `json:"price"`
	Platform string `json:"platform,omitempty"`
	URL      string `json:"url,omitempty"`
}
