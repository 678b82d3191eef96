// Package extract turns receipt images into structured product records via an
// external vision/LLM collaborator.
package extract

import (
	"context"
	"errors"

	"github.com/vigilx/pricewatch/internal/domain"
)

// ErrNoProduct indicates the collaborator answered but no usable product could
// be extracted from the image. This surfaces to the original requester as a
// user-visible failure; no item is created.
var ErrNoProduct = errors.New("no product information in receipt")

// Extractor is the receipt-understanding contract. Implementations are opaque
// to the rest of the system: image bytes in, product record or failure out.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (domain.ReceiptProduct, error)
}
