// Package notify turns detected price drops into transport-agnostic
// notification payloads and hands them to the chat transport for delivery.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vigilx/pricewatch/internal/domain"
)

// Action is an inline action attached to a message. Tokens are not single-use:
// claim drafting is read-only, so replaying a token is harmless and yields the
// same draft.
type Action struct {
	Label string
	Token string
}

// Message is the payload handed to the transport.
type Message struct {
	Text    string
	Actions []Action
}

// Transport delivers messages to a chat account. Implementations live at the
// edge (Telegram in production, stubs in tests).
type Transport interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// ClaimTokenPrefix prefixes every claim action token.
const ClaimTokenPrefix = "claim_"

// ClaimToken builds the action token that locates a tracked item later.
func ClaimToken(itemID int64) string {
	return ClaimTokenPrefix + strconv.FormatInt(itemID, 10)
}

// ParseClaimToken extracts the item id from a claim action token.
func ParseClaimToken(token string) (int64, bool) {
	raw, ok := strings.CutPrefix(token, ClaimTokenPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Dispatcher builds drop notifications. It owns formatting; delivery is the
// transport's problem.
type Dispatcher struct {
	transport Transport
}

// NewDispatcher wires a Dispatcher to its transport.
func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport}
}

// NotifyDrop sends one price-drop alert carrying the idempotent claim action.
func (d *Dispatcher) NotifyDrop(ctx context.Context, chatID int64, item domain.TrackedItem, refund int64) error {
	if item.CurrentPrice == nil {
		return fmt.Errorf("drop notification for %q without a resolved price", item.Name)
	}

	msg := Message{
		Text: fmt.Sprintf("🚨 Price drop!\n%s dropped to ₹%s (paid ₹%s).",
			item.Name, FormatINR(*item.CurrentPrice), FormatINR(item.PricePaid)),
		Actions: []Action{{
			Label: fmt.Sprintf("💸 Claim ₹%s Refund", FormatINR(refund)),
			Token: ClaimToken(item.ID),
		}},
	}
	return d.transport.Send(ctx, chatID, msg)
}

// FormatINR renders an amount with Indian digit grouping (12,34,567).
func FormatINR(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		s = strings.Join(append(groups, tail), ",")
	}
	if neg {
		return "-" + s
	}
	return s
}
