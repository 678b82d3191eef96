package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/logging"
	"github.com/vigilx/pricewatch/internal/notify"
	"github.com/vigilx/pricewatch/internal/store"
)

type stubAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (s *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *stubAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.requests = append(s.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *stubAPI) GetFile(tgbotapi.FileConfig) (tgbotapi.File, error) {
	return tgbotapi.File{}, nil
}

func (s *stubAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (s *stubAPI) sentTexts() []string {
	var out []string
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func newTestBot(api *stubAPI, st store.Store) *Bot {
	return newWithAPI(api, Options{Token: "test-token"}, st, nil, logging.Discard())
}

func TestHandleStartOnboards(t *testing.T) {
	api := &stubAPI{}
	st := store.NewMemory()
	b := newTestBot(api, st)

	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 42},
		From: &tgbotapi.User{FirstName: "Asha"},
	}
	b.handleStart(context.Background(), msg)

	u, err := st.GetUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("user not onboarded: %v", err)
	}
	if u.Name != "Asha" {
		t.Fatalf("unexpected name %q", u.Name)
	}

	// Repeating /start is a no-op.
	b.handleStart(context.Background(), msg)
	again, _ := st.GetUser(context.Background(), 42)
	if !again.CreatedAt.Equal(u.CreatedAt) {
		t.Fatal("re-onboarding must not recreate the user")
	}

	texts := api.sentTexts()
	if len(texts) != 2 || !strings.Contains(texts[0], "Pricewatch active") {
		t.Fatalf("unexpected replies %v", texts)
	}
}

func TestHandleCallbackProducesIdempotentDraft(t *testing.T) {
	api := &stubAPI{}
	st := store.NewMemory()
	ctx := context.Background()
	_ = st.UpsertUser(ctx, 42, "Asha")

	current := int64(2500)
	_ = st.AppendItem(ctx, 42, domain.TrackedItem{
		ID: 1001, Name: "Shoe A", PricePaid: 3000, CurrentPrice: &current,
		AddedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	b := newTestBot(api, st)
	query := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    notify.ClaimToken(1001),
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	}

	b.handleCallback(ctx, query)
	b.handleCallback(ctx, query)

	texts := api.sentTexts()
	if len(texts) != 2 {
		t.Fatalf("expected two claim drafts, got %v", texts)
	}
	if texts[0] != texts[1] {
		t.Fatal("replaying a claim token must produce identical draft text")
	}
	if !strings.Contains(texts[0], "Shoe A") || !strings.Contains(texts[0], "₹500") {
		t.Fatalf("draft missing item data:\n%s", texts[0])
	}
	if len(api.requests) != 2 {
		t.Fatalf("each callback must be answered, got %d", len(api.requests))
	}
}

func TestHandleCallbackUnknownItem(t *testing.T) {
	api := &stubAPI{}
	st := store.NewMemory()
	_ = st.UpsertUser(context.Background(), 42, "Asha")
	b := newTestBot(api, st)

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb-2",
		Data:    notify.ClaimToken(999),
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
	})

	if len(api.sent) != 0 {
		t.Fatalf("no draft expected for unknown item, got %v", api.sentTexts())
	}
	if len(api.requests) != 1 {
		t.Fatal("the callback must still be answered")
	}
}

func TestNewTrackedItemNeverReusesIDs(t *testing.T) {
	now := time.UnixMilli(1712345678901)
	product := domain.ReceiptProduct{Name: "Shoe A", Price: 3000}

	first := NewTrackedItem(product, now, nil)
	if first.ID != 1712345678901 {
		t.Fatalf("id must derive from creation time, got %d", first.ID)
	}

	// A second receipt within the same millisecond bumps past the existing id.
	second := NewTrackedItem(product, now, []domain.TrackedItem{first})
	if second.ID != first.ID+1 {
		t.Fatalf("expected bumped id %d, got %d", first.ID+1, second.ID)
	}
}

func TestConfirmationTextDefaults(t *testing.T) {
	text := confirmationText(domain.TrackedItem{Name: "Shoe A", PricePaid: 3000})
	for _, want := range []string{"Shoe A", "₹3,000", "Variant: N/A", "Platform: Unknown"} {
		if !strings.Contains(text, want) {
			t.Fatalf("confirmation missing %q:\n%s", want, text)
		}
	}
}

func TestTransportAttachesActions(t *testing.T) {
	api := &stubAPI{}
	tr := NewTransport(api)

	err := tr.Send(context.Background(), 42, notify.Message{
		Text:    "drop",
		Actions: []notify.Action{{Label: "Claim", Token: "claim_1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", api.sent[0])
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("unexpected keyboard shape %+v", markup.InlineKeyboard)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.CallbackData == nil || *btn.CallbackData != "claim_1" {
		t.Fatalf("unexpected callback data %+v", btn)
	}
}

func TestConnectTransportRequiresToken(t *testing.T) {
	if _, err := ConnectTransport(""); err == nil {
		t.Fatal("expected error for missing token")
	}
}
