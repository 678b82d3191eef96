// Package claim renders price-protection refund letters. Drafting is a pure
// function of the user and item snapshot: it never mutates tracking state, and
// repeated requests for the same item with unchanged data produce identical
// text.
package claim

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/notify"
)

// CardDetails identifies the card the claim is filed against. The bot has no
// access to real card data, so callers pass placeholders the user fills in.
type CardDetails struct {
	BankName  string
	LastFour  string
	OrderID   string
	UserName  string
	UserPhone string
}

// DefaultCardDetails returns the placeholder details used when the user has
// not supplied their own.
func DefaultCardDetails(userName string) CardDetails {
	return CardDetails{
		BankName:  "Your Bank",
		LastFour:  "XXXX",
		OrderID:   "ORDER_ID",
		UserName:  userName,
		UserPhone: "[Mobile Number]",
	}
}

var letter = template.Must(template.New("claim").Parse(strings.TrimLeft(`
To: The Claims Department / Nodal Officer, {{.Bank}} Credit Card Division
Subject: Claim for Price Protection Benefit - Order ID: {{.OrderID}}

Dear Sir/Madam,

I am writing to formally submit a claim under the "Price Protection" benefit provided on my {{.Bank}} Credit Card (Ending in {{.LastFour}}).

Details of the Purchase:
- Product Name: {{.Product}}
- Date of Purchase: {{.PurchaseDate}}
- Platform: {{.Platform}}
- Original Price Paid: ₹{{.PricePaid}}
- Current Lower Market Price: ₹{{.CurrentPrice}}
- Total Claim Amount: ₹{{.Refund}}

As per the terms of my cardholder agreement, I am eligible for a refund of the price difference if the same product is advertised at a lower price within the 30-day protection window.

Attached to this email, please find:
1. The original invoice for the purchase.
2. A timestamped screenshot of the current lower price on the e-commerce platform.

Kindly process this refund and credit the amount of ₹{{.Refund}} back to my credit card account.

I look forward to a swift resolution.

Regards,
{{.Name}}
Phone: {{.Phone}}
`, "\n")))

type letterData struct {
	Bank         string
	OrderID      string
	LastFour     string
	Product      string
	PurchaseDate string
	Platform     string
	PricePaid    string
	CurrentPrice string
	Refund       string
	Name         string
	Phone        string
}

// Draft renders the refund letter for one tracked item. When the item has no
// resolved price yet the price paid stands in, making the claim amount zero.
func Draft(card CardDetails, item domain.TrackedItem) (string, error) {
	current := item.EffectivePrice()
	refund := item.PricePaid - current
	if refund < 0 {
		refund = 0
	}

	platform := item.Platform
	if platform == "" {
		platform = "Amazon.in / Flipkart"
	}

	product := item.Name
	if item.Variant != "" {
		product = item.Name + " (" + item.Variant + ")"
	}

	var sb strings.Builder
	err := letter.Execute(&sb, letterData{
		Bank:         card.BankName,
		OrderID:      card.OrderID,
		LastFour:     card.LastFour,
		Product:      product,
		PurchaseDate: item.AddedAt.Format("02/01/2006"),
		Platform:     platform,
		PricePaid:    notify.FormatINR(item.PricePaid),
		CurrentPrice: notify.FormatINR(current),
		Refund:       notify.FormatINR(refund),
		Name:         card.UserName,
		Phone:        card.UserPhone,
	})
	if err != nil {
		return "", fmt.Errorf("render claim draft: %w", err)
	}
	return sb.String(), nil
}
