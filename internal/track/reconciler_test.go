package track

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/logging"
	"github.com/vigilx/pricewatch/internal/store"
)

type stubResolver struct {
	prices map[int64]int64 // item id -> resolved price; absent = unresolved
	calls  int
}

func (s *stubResolver) Resolve(_ context.Context, item domain.TrackedItem) domain.PriceResult {
	s.calls++
	if price, ok := s.prices[item.ID]; ok {
		return domain.ResolvedPrice(price, domain.ConfidenceExact)
	}
	return domain.Unresolved()
}

type recordedDrop struct {
	chatID int64
	itemID int64
	refund int64
	token  string
}

type stubNotifier struct {
	drops []recordedDrop
	err   error
}

func (s *stubNotifier) NotifyDrop(_ context.Context, chatID int64, item domain.TrackedItem, refund int64) error {
	if s.err != nil {
		return s.err
	}
	s.drops = append(s.drops, recordedDrop{
		chatID: chatID,
		itemID: item.ID,
		refund: refund,
		token:  "claim_" + itoa(item.ID),
	})
	return nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

func seedUser(t *testing.T, st *store.Memory, chatID int64, name string, items ...domain.TrackedItem) {
	t.Helper()
	ctx := context.Background()
	if err := st.UpsertUser(ctx, chatID, name); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, it := range items {
		if err := st.AppendItem(ctx, chatID, it); err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
}

func TestRunPassDetectsDropAndPersistsOnce(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st, 42, "Asha", domain.TrackedItem{
		ID: 1001, Name: "Shoe A", URL: "https://shop.example/p/1", PricePaid: 3000,
	})

	resolver := &stubResolver{prices: map[int64]int64{1001: 2500}}
	notifier := &stubNotifier{}
	rec := NewReconciler(st, resolver, notifier, logging.Discard())

	report, err := rec.RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected pass error: %v", err)
	}

	if report.Drops != 1 || report.Notified != 1 {
		t.Fatalf("expected one drop and one notification, got %+v", report)
	}
	if len(notifier.drops) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.drops))
	}
	d := notifier.drops[0]
	if d.chatID != 42 || d.refund != 500 || d.token != "claim_1001" {
		t.Fatalf("unexpected drop %+v", d)
	}

	u, err := st.GetUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	item := u.FindItem(1001)
	if item == nil || item.CurrentPrice == nil || *item.CurrentPrice != 2500 {
		t.Fatalf("expected persisted current price 2500, got %+v", item)
	}
	if item.PricePaid != 3000 {
		t.Fatalf("price paid must be immutable, got %d", item.PricePaid)
	}
	if calls := st.ReplaceCalls(42); calls != 1 {
		t.Fatalf("per-item mutations must batch into one write, got %d", calls)
	}
}

func TestRunPassNoNotificationWithoutDrop(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st, 42, "Asha",
		domain.TrackedItem{ID: 1, Name: "Same", URL: "https://x/1", PricePaid: 3000},
		domain.TrackedItem{ID: 2, Name: "Higher", URL: "https://x/2", PricePaid: 3000},
	)

	resolver := &stubResolver{prices: map[int64]int64{1: 3000, 2: 3500}}
	notifier := &stubNotifier{}
	rec := NewReconciler(st, resolver, notifier, logging.Discard())

	report, err := rec.RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected pass error: %v", err)
	}

	if len(notifier.drops) != 0 {
		t.Fatalf("no notifications expected when price >= paid, got %+v", notifier.drops)
	}
	if report.ItemsResolved != 2 {
		t.Fatalf("expected both items resolved, got %+v", report)
	}

	// Current price is refreshed even without a drop.
	u, _ := st.GetUser(context.Background(), 42)
	if it := u.FindItem(2); it.CurrentPrice == nil || *it.CurrentPrice != 3500 {
		t.Fatalf("current price should refresh on any resolution, got %+v", it)
	}
}

func TestRunPassLeavesPriceOnUnresolved(t *testing.T) {
	st := store.NewMemory()
	old := int64(2800)
	seedUser(t, st, 42, "Asha", domain.TrackedItem{
		ID: 1, Name: "Shoe A", URL: "https://x/1", PricePaid: 3000, CurrentPrice: &old,
	})

	resolver := &stubResolver{} // resolves nothing
	rec := NewReconciler(st, resolver, &stubNotifier{}, logging.Discard())

	if _, err := rec.RunPass(context.Background()); err != nil {
		t.Fatalf("unexpected pass error: %v", err)
	}

	u, _ := st.GetUser(context.Background(), 42)
	if it := u.FindItem(1); it.CurrentPrice == nil || *it.CurrentPrice != 2800 {
		t.Fatalf("unresolved pass must leave current price untouched, got %+v", it)
	}
}

func TestRunPassSkipsUntrackableItems(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st, 42, "Asha",
		domain.TrackedItem{ID: 1, PricePaid: 1000}, // no url, no name
		domain.TrackedItem{ID: 2, Name: "Usable", PricePaid: 1000},
	)

	resolver := &stubResolver{prices: map[int64]int64{2: 900}}
	rec := NewReconciler(st, resolver, &stubNotifier{}, logging.Discard())

	report, err := rec.RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected pass error: %v", err)
	}
	if resolver.calls != 1 || report.ItemsChecked != 1 {
		t.Fatalf("untrackable item must be skipped before resolution, got calls=%d report=%+v",
			resolver.calls, report)
	}
}

func TestRunPassIsolatesStoreFailures(t *testing.T) {
	st := store.NewMemory()
	for _, chatID := range []int64{1, 2, 3} {
		seedUser(t, st, chatID, "User", domain.TrackedItem{
			ID: chatID * 10, Name: "Item", URL: "https://x", PricePaid: 1000,
		})
	}
	st.FailWritesFor(2, errors.New("disk full"))

	resolver := &stubResolver{prices: map[int64]int64{10: 800, 20: 800, 30: 800}}
	notifier := &stubNotifier{}
	rec := NewReconciler(st, resolver, notifier, logging.Discard())

	report, err := rec.RunPass(context.Background())

	var passErr *PassError
	if !errors.As(err, &passErr) || len(passErr.Failures) != 1 || passErr.Failures[0].ChatID != 2 {
		t.Fatalf("expected one recorded failure for user 2, got %v", err)
	}
	if report.WriteFailures != 1 {
		t.Fatalf("expected one write failure in report, got %+v", report)
	}

	// Users 1 and 3 are persisted and notified despite user 2 failing.
	if len(notifier.drops) != 3 {
		t.Fatalf("notifications are independent of the store write, got %d", len(notifier.drops))
	}
	for _, chatID := range []int64{1, 3} {
		u, _ := st.GetUser(context.Background(), chatID)
		if it := u.FindItem(chatID * 10); it.CurrentPrice == nil || *it.CurrentPrice != 800 {
			t.Fatalf("user %d should have been persisted, got %+v", chatID, it)
		}
	}
	u, _ := st.GetUser(context.Background(), 2)
	if it := u.FindItem(20); it.CurrentPrice != nil {
		t.Fatalf("failed write must leave user 2 unchanged, got %+v", it)
	}
}

func TestRunPassFailsWhenListingUsersFails(t *testing.T) {
	rec := NewReconciler(failingStore{}, &stubResolver{}, &stubNotifier{}, logging.Discard())
	if _, err := rec.RunPass(context.Background()); err == nil {
		t.Fatal("expected error when the user listing fails")
	}
}

type failingStore struct{ store.Store }

func (failingStore) GetAllUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("store offline")
}

func TestRunPassEndToEndShoeA(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st, 7, "Ravi", domain.TrackedItem{
		ID: 555, Name: "Shoe A", URL: "https://shop.example/shoe-a", PricePaid: 3000,
		AddedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	resolver := &stubResolver{prices: map[int64]int64{555: 2500}}
	notifier := &stubNotifier{}
	rec := NewReconciler(st, resolver, notifier, logging.Discard())

	if _, err := rec.RunPass(context.Background()); err != nil {
		t.Fatalf("unexpected pass error: %v", err)
	}

	u, _ := st.GetUser(context.Background(), 7)
	it := u.FindItem(555)
	if it.CurrentPrice == nil || *it.CurrentPrice != 2500 {
		t.Fatalf("expected current price 2500, got %+v", it)
	}
	if len(notifier.drops) != 1 || notifier.drops[0].refund != 500 || notifier.drops[0].token != "claim_555" {
		t.Fatalf("expected one notification with refund 500 and claim_555, got %+v", notifier.drops)
	}
	if rec.LastReport() == nil || rec.LastReport().Drops != 1 {
		t.Fatalf("expected last report to record the drop, got %+v", rec.LastReport())
	}
}
