package domain

import (
	"errors"
	"strings"
	"time"
)

// TrackedItem is one product under price-drop surveillance for a user.
//
// ID is derived from the creation timestamp (unix milliseconds) and is unique
// within the owning user; it is the join key for claim actions and must never
// be reused. PricePaid is immutable once set. CurrentPrice stays nil until the
// first successful resolution and is overwritten wholesale on each subsequent
// one; a failed resolution leaves it untouched.
type TrackedItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Variant      string    `json:"variant,omitempty"`
	URL          string    `json:"url,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	PricePaid    int64     `json:"pricePaid"`
	CurrentPrice *int64    `json:"currentPrice,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// ErrInvalidItem flags an item record that cannot be tracked at all.
var ErrInvalidItem = errors.New("tracked item is missing both url and name")

// Resolvable reports whether the item carries enough information for a price
// lookup. Items that are not resolvable are skipped by the tracker.
func (it TrackedItem) Resolvable() bool {
	return it.URL != "" || it.Name != ""
}

// Refund returns the derived refund amount, zero when no drop is in effect.
// The value is never stored; it is recomputed from the price pair on demand.
func (it TrackedItem) Refund() int64 {
	if it.CurrentPrice == nil {
		return 0
	}
	if d := it.PricePaid - *it.CurrentPrice; d > 0 {
		return d
	}
	return 0
}

// EffectivePrice is the best known market price: the last resolved price, or
// the price paid when nothing has been resolved yet.
func (it TrackedItem) EffectivePrice() int64 {
	if it.CurrentPrice != nil {
		return *it.CurrentPrice
	}
	return it.PricePaid
}

func (it *TrackedItem) normalize() {
	it.Name = strings.TrimSpace(it.Name)
	it.Variant = strings.TrimSpace(it.Variant)
	it.URL = strings.TrimSpace(it.URL)
	it.Platform = strings.TrimSpace(it.Platform)
	if it.AddedAt.IsZero() && it.ID > 0 {
		it.AddedAt = time.UnixMilli(it.ID).UTC()
	}
}

// Validate rejects records whose shape makes them unusable. Stored documents
// come from an external collaborator, so the shape is checked on read rather
// than trusted.
func (it TrackedItem) Validate() error {
	if it.ID <= 0 {
		return errors.New("tracked item id must be positive")
	}
	if it.PricePaid < 0 {
		return errors.New("price paid cannot be negative")
	}
	if !it.Resolvable() {
		return ErrInvalidItem
	}
	return nil
}
