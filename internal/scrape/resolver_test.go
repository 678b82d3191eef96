package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/logging"
)

type stubFetcher struct {
	responses map[string]string
	err       error
	calls     []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.calls = append(s.calls, url)
	if s.err != nil {
		return nil, s.err
	}
	for prefix, body := range s.responses {
		if strings.HasPrefix(url, prefix) {
			return []byte(body), nil
		}
	}
	return nil, errors.New("no canned response")
}

const productPage = `<html><body>
  <span class="a-price-whole">2,500</span>
</body></html>`

const amazonSearchPage = `<html><body>
  <div data-component-type="s-search-result">
    <h2><span>Pixel 8 Pro 256GB</span></h2>
    <span class="a-price-whole">80,000</span>
  </div>
  <div data-component-type="s-search-result">
    <h2><span>Google Pixel 8 128GB Obsidian</span></h2>
    <span class="a-price-whole">55,000</span>
  </div>
</body></html>`

func TestResolveDirectStrategy(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]string{"https://shop.example/p/1": productPage}}
	r := NewResolver(fetcher, logging.Discard())

	res := r.Resolve(context.Background(), domain.TrackedItem{
		ID: 1, Name: "Shoe A", URL: "https://shop.example/p/1", PricePaid: 3000,
	})

	if !res.Resolved || res.Price != 2500 {
		t.Fatalf("expected resolved price 2500, got %+v", res)
	}
	if res.Confidence != domain.ConfidenceExact {
		t.Fatalf("expected exact confidence, got %s", res.Confidence)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("direct success must not trigger the search strategy, got calls %v", fetcher.calls)
	}
}

func TestResolveFallsBackToSearch(t *testing.T) {
	// The product page has no price token; search must take over.
	fetcher := &stubFetcher{responses: map[string]string{
		"https://shop.example/p/2":  "<html><body>temporarily unavailable</body></html>",
		"https://www.amazon.in/s?k": amazonSearchPage,
	}}
	r := NewResolver(fetcher, logging.Discard())

	res := r.Resolve(context.Background(), domain.TrackedItem{
		ID: 2, Name: "Pixel 8", Variant: "128GB", URL: "https://shop.example/p/2", PricePaid: 70000,
	})

	if !res.Resolved || res.Price != 55000 {
		t.Fatalf("expected search match at 55000, got %+v", res)
	}
	if res.Confidence != domain.ConfidenceConfident {
		t.Fatalf("expected confident match, got %s", res.Confidence)
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("expected direct then search fetch, got %v", fetcher.calls)
	}
}

func TestResolveSearchOnlyItem(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]string{
		"https://www.amazon.in/s?k": amazonSearchPage,
	}}
	r := NewResolver(fetcher, logging.Discard())

	res := r.Resolve(context.Background(), domain.TrackedItem{
		ID: 3, Name: "Pixel 8", Variant: "128GB", PricePaid: 70000,
	})

	if !res.Resolved || res.Price != 55000 {
		t.Fatalf("expected search resolution, got %+v", res)
	}
}

func TestResolveUnresolvedWhenEverythingFails(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	r := NewResolver(fetcher, logging.Discard())

	res := r.Resolve(context.Background(), domain.TrackedItem{
		ID: 4, Name: "Pixel 8", URL: "https://shop.example/p/4", PricePaid: 70000,
	})

	if res.Resolved {
		t.Fatalf("expected unresolved result, got %+v", res)
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("both strategies should have been attempted, got %v", fetcher.calls)
	}
}

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		tag  string
		want Platform
	}{
		{"Flipkart", PlatformFlipkart},
		{"flipkart.com order", PlatformFlipkart},
		{"Amazon.in", PlatformAmazon},
		{"", PlatformAmazon},
		{"some unknown shop", PlatformAmazon},
	}
	for _, tc := range cases {
		if got := DetectPlatform(tc.tag); got != tc.want {
			t.Fatalf("DetectPlatform(%q) = %s, want %s", tc.tag, got, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"2,500", 2500, true},
		{"2,500.", 2500, true},
		{"₹1,29,999", 129999, true},
		{"  999 ", 999, true},
		{"", 0, false},
		{"out of stock", 0, false},
		{"0", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePrice(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parsePrice(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHTTPFetcherHeadersAndStatus(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/blocked" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPFetcherOptions{UserAgent: "test-agent"})

	body, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != "test-agent" {
		t.Fatalf("expected custom user agent, got %q", gotUA)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/blocked"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
}

func TestPriceFromDocumentNoToken(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div class="stock">Currently unavailable</div></body></html>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := priceFromDocument(doc); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice for a page without price tokens, got %v", err)
	}
}
