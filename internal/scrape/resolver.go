// Package scrape resolves the current live market price of a tracked item.
//
// Two independent strategies run in fallback order: a direct fetch of the
// item's product page when a URL is known, then a search-and-match pass over
// the inferred platform's results. The direct strategy is authoritative and
// suppresses search when it succeeds. Every failure mode degrades to an
// Unresolved result; a resolver call never returns an error to its caller.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/match"
)

// Resolver implements best-effort price resolution for tracked items.
type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewResolver constructs a Resolver around the given fetcher.
func NewResolver(fetcher Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Resolve produces the item's current price or Unresolved. URL-based lookup
// wins when available; search is the heuristic fallback.
func (r *Resolver) Resolve(ctx context.Context, item domain.TrackedItem) domain.PriceResult {
	if item.URL != "" {
		if price, ok := r.resolveDirect(ctx, item.URL); ok {
			return domain.ResolvedPrice(price, domain.ConfidenceExact)
		}
	}
	if item.Name != "" {
		if res, ok := r.resolveSearch(ctx, item); ok {
			return res
		}
	}
	return domain.Unresolved()
}

func (r *Resolver) resolveDirect(ctx context.Context, url string) (int64, bool) {
	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.logger.Debug("direct fetch failed", "url", url, "error", err)
		return 0, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		r.logger.Debug("direct parse failed", "url", url, "error", err)
		return 0, false
	}

	price, err := priceFromDocument(doc)
	if err != nil {
		r.logger.Debug("direct resolve failed", "url", url, "error", err)
		return 0, false
	}
	return price, true
}

// ErrNoPrice reports a fetched page carrying none of the known price tokens.
var ErrNoPrice = errors.New("no price token on page")

func priceFromDocument(doc *goquery.Document) (int64, error) {
	for _, sel := range priceSelectors {
		if price, ok := parsePrice(doc.Find(sel).First().Text()); ok {
			return price, nil
		}
	}
	return 0, ErrNoPrice
}

func (r *Resolver) resolveSearch(ctx context.Context, item domain.TrackedItem) (domain.PriceResult, bool) {
	platform := DetectPlatform(item.Platform)
	searchURL := platform.SearchURL(item.Name, item.Variant)

	body, err := r.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		r.logger.Debug("search fetch failed", "platform", platform, "error", err)
		return domain.PriceResult{}, false
	}

	candidates, err := extractCandidates(platform, body)
	if err != nil {
		r.logger.Debug("search parse failed", "platform", platform, "error", err)
		return domain.PriceResult{}, false
	}

	res := match.BestMatch(item.Name, item.Variant, candidates)
	switch res.Grade {
	case match.Confident:
		return domain.ResolvedPrice(res.Candidate.Price, domain.ConfidenceConfident), true
	case match.Guess:
		r.logger.Debug("low-confidence search match",
			"item", item.Name, "picked", res.Candidate.Title, "score", res.Score)
		return domain.ResolvedPrice(res.Candidate.Price, domain.ConfidenceGuess), true
	default:
		return domain.PriceResult{}, false
	}
}

// extractCandidates pulls (title, price) pairs out of a search results page.
func extractCandidates(platform Platform, body []byte) ([]match.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	sel := platform.results()
	var candidates []match.Candidate
	doc.Find(sel.container).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(sel.title).First().Text())
		price, ok := parsePrice(s.Find(sel.price).First().Text())
		if title == "" || !ok {
			return
		}
		candidates = append(candidates, match.Candidate{Title: title, Price: price})
	})
	return candidates, nil
}
