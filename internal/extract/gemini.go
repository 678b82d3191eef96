package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vigilx/pricewatch/internal/domain"
)

const receiptPrompt = "Extract the Product Name, Variant (Color/Storage), and Total Price Paid " +
	"from this Indian e-commerce receipt. Return JSON: { name, variant, price, platform }"

// Gemini extracts receipt data through the Gemini generateContent REST API.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GeminiOptions configures the Gemini extractor.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewGemini validates options and builds the extractor.
func NewGemini(opts GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	model := opts.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:     opts.APIKey,
		model:      model,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract sends the image to Gemini and parses the model's JSON answer.
func (g *Gemini) Extract(ctx context.Context, image []byte) (domain.ReceiptProduct, error) {
	if len(image) == 0 {
		return domain.ReceiptProduct{}, fmt.Errorf("empty receipt image")
	}

	payload := generateRequest{Contents: []content{{Parts: []part{
		{Text: receiptPrompt},
		{InlineData: &inlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ReceiptProduct{}, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ReceiptProduct{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.ReceiptProduct{}, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ReceiptProduct{}, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ReceiptProduct{}, fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return domain.ReceiptProduct{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return domain.ReceiptProduct{}, ErrNoProduct
	}

	return parseProductJSON(gr.Candidates[0].Content.Parts[0].Text)
}

// parseProductJSON decodes the model's answer, tolerating markdown code fences
// and a numeric-or-string price field.
func parseProductJSON(text string) (domain.ReceiptProduct, error) {
	text = stripCodeFence(text)

	var loose struct {
		Name     string `json:"name"`
		Variant  string `json:"variant"`
		Price    any    `json:"price"` // models answer numbers or quoted numbers
		Platform string `json:"platform"`
		URL      string `json:"url"`
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&loose); err != nil {
		return domain.ReceiptProduct{}, fmt.Errorf("%w: unparseable answer", ErrNoProduct)
	}

	name := strings.TrimSpace(loose.Name)
	if name == "" {
		return domain.ReceiptProduct{}, ErrNoProduct
	}

	price, err := parseLoosePrice(loose.Price)
	if err != nil || price <= 0 {
		return domain.ReceiptProduct{}, fmt.Errorf("%w: bad price %v", ErrNoProduct, loose.Price)
	}

	return domain.ReceiptProduct{
		Name:     name,
		Variant:  strings.TrimSpace(loose.Variant),
		Price:    price,
		Platform: strings.TrimSpace(loose.Platform),
		URL:      strings.TrimSpace(loose.URL),
	}, nil
}

func parseLoosePrice(v any) (int64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.NewReplacer("₹", "", ",", "").Replace(strings.TrimSpace(t))
	default:
		return 0, fmt.Errorf("price has type %T", v)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f + 0.5), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
