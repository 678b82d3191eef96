package scrape

import (
	"net/url"
	"strconv"
	"strings"
)

// Platform identifies a marketplace with known page structure.
type Platform string

const (
	// PlatformAmazon is the default when an item carries no recognizable
	// platform tag.
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// DetectPlatform maps an item's free-text platform tag onto a known
// marketplace by case-insensitive substring, defaulting to Amazon.
func DetectPlatform(tag string) Platform {
	t := strings.ToLower(tag)
	switch {
	case strings.Contains(t, "flipkart"):
		return PlatformFlipkart
	default:
		return PlatformAmazon
	}
}

// SearchURL builds the platform's search endpoint for a name+variant query.
func (p Platform) SearchURL(name, variant string) string {
	query := strings.TrimSpace(name + " " + variant)
	switch p {
	case PlatformFlipkart:
		return "https://www.flipkart.com/search?q=" + url.QueryEscape(query)
	default:
		return "https://www.amazon.in/s?k=" + url.QueryEscape(query)
	}
}

// priceSelectors are the ordered extraction rules for product pages: the
// primary platform pattern first, then the generic fallback. Marketplace
// markup churns; a selector that stops matching degrades to Unresolved and is
// retried with fresh rules on the next deploy.
var priceSelectors = []string{
	".a-price-whole", // Amazon India
	"._30jeq3",       // Flipkart fallback
}

// resultSelectors describe where search-result candidates live per platform.
type resultSelectors struct {
	container string
	title     string
	price     string
}

func (p Platform) results() resultSelectors {
	switch p {
	case PlatformFlipkart:
		return resultSelectors{
			container: "div._2kHMtA, div._1AtVbE",
			title:     "div._4rR01T, a.s1Q9rs",
			price:     "div._30jeq3",
		}
	default:
		return resultSelectors{
			container: "div[data-component-type='s-search-result']",
			title:     "h2 span",
			price:     "span.a-price-whole",
		}
	}
}

// parsePrice turns a raw price token into a whole-rupee amount. Thousands
// separators, currency symbols and a trailing paise fraction are stripped.
func parsePrice(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer("₹", "", ",", "", ".", "", " ", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
