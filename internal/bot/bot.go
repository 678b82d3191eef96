// Package bot is the Telegram edge: onboarding, receipt-photo intake and
// claim-draft callbacks. All tracking logic lives elsewhere; this package only
// translates chat traffic into store/extractor/claim calls.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vigilx/pricewatch/internal/claim"
	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/extract"
	"github.com/vigilx/pricewatch/internal/notify"
	"github.com/vigilx/pricewatch/internal/store"
)

// API is the slice of the Telegram client the bot needs; *tgbotapi.BotAPI
// satisfies it, tests use a stub.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// Options configures the bot.
type Options struct {
	Token           string
	PollTimeout     time.Duration
	DownloadTimeout time.Duration
}

// Bot wires Telegram updates to the intake and claim paths.
type Bot struct {
	api             API
	token           string
	store           store.Store
	extractor       extract.Extractor
	logger          *slog.Logger
	pollTimeout     time.Duration
	downloadTimeout time.Duration
	httpClient      *http.Client
	nowFn           func() time.Time
}

// New connects to Telegram and builds the bot.
func New(opts Options, st store.Store, extractor extract.Extractor, logger *slog.Logger) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	b := newWithAPI(api, opts, st, extractor, logger)
	return b, nil
}

func newWithAPI(api API, opts Options, st store.Store, extractor extract.Extractor, logger *slog.Logger) *Bot {
	poll := opts.PollTimeout
	if poll <= 0 {
		poll = 30 * time.Second
	}
	download := opts.DownloadTimeout
	if download <= 0 {
		download = 30 * time.Second
	}
	return &Bot{
		api:             api,
		token:           opts.Token,
		store:           st,
		extractor:       extractor,
		logger:          logger,
		pollTimeout:     poll,
		downloadTimeout: download,
		httpClient:      &http.Client{},
		nowFn:           time.Now,
	}
}

// Run consumes Telegram updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout.Seconds())

	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info("telegram intake started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram intake stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
	case update.Message.IsCommand() && update.Message.Command() == "start":
		b.handleStart(ctx, update.Message)
	case len(update.Message.Photo) > 0:
		b.handlePhoto(ctx, update.Message)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}
	if err := b.store.UpsertUser(ctx, msg.Chat.ID, name); err != nil {
		b.logger.Error("onboarding failed", "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg.Chat.ID, "Something went wrong, please try /start again.")
		return
	}
	b.reply(msg.Chat.ID, "Pricewatch active. Send me a receipt to start the hunt.")
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.reply(chatID, "🔍 Auditing receipt...")

	image, err := b.downloadPhoto(ctx, msg.Photo)
	if err != nil {
		b.logger.Error("photo download failed", "chat_id", chatID, "error", err)
		b.reply(chatID, intakeFailureText(err))
		return
	}

	product, err := b.extractor.Extract(ctx, image)
	if err != nil {
		b.logger.Warn("receipt extraction failed", "chat_id", chatID, "error", err)
		b.reply(chatID, intakeFailureText(err))
		return
	}

	item, err := b.addProduct(ctx, chatID, product)
	if err != nil {
		b.logger.Error("storing tracked item failed", "chat_id", chatID, "error", err)
		b.reply(chatID, intakeFailureText(err))
		return
	}

	b.reply(chatID, confirmationText(item))
}

// downloadPhoto fetches the largest rendition of the receipt photo, bounded by
// the download timeout.
func (b *Bot) downloadPhoto(ctx context.Context, photos []tgbotapi.PhotoSize) ([]byte, error) {
	if len(photos) == 0 {
		return nil, errors.New("no photo attached")
	}
	fileID := photos[len(photos)-1].FileID

	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file: %w", err)
	}
	if file.FilePath == "" {
		return nil, errors.New("telegram returned no file path")
	}

	ctx, cancel := context.WithTimeout(ctx, b.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("downloaded image is empty")
	}
	return data, nil
}

// addProduct turns an extracted product into a tracked item and appends it.
func (b *Bot) addProduct(ctx context.Context, chatID int64, product domain.ReceiptProduct) (domain.TrackedItem, error) {
	user, err := b.store.GetUser(ctx, chatID)
	if err != nil && !store.IsNotFound(err) {
		return domain.TrackedItem{}, err
	}
	if store.IsNotFound(err) {
		// Photo before /start; onboard implicitly.
		if err := b.store.UpsertUser(ctx, chatID, ""); err != nil {
			return domain.TrackedItem{}, err
		}
	}

	item := NewTrackedItem(product, b.nowFn(), user.Tracking)
	if err := b.store.AppendItem(ctx, chatID, item); err != nil {
		return domain.TrackedItem{}, err
	}
	return item, nil
}

// NewTrackedItem derives the item id from the creation timestamp (unix
// milliseconds), bumping past any id already present so ids are never reused
// within a user even when two receipts land in the same millisecond.
func NewTrackedItem(product domain.ReceiptProduct, now time.Time, existing []domain.TrackedItem) domain.TrackedItem {
	id := now.UnixMilli()
	for _, it := range existing {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	return domain.TrackedItem{
		ID:        id,
		Name:      product.Name,
		Variant:   product.Variant,
		URL:       product.URL,
		Platform:  product.Platform,
		PricePaid: product.Price,
		AddedAt:   now.UTC(),
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	itemID, ok := notify.ParseClaimToken(query.Data)
	if !ok {
		b.answerCallback(query.ID, "Unknown action.")
		return
	}

	user, err := b.store.GetUser(ctx, chatID)
	if err != nil {
		b.logger.Error("claim lookup failed", "chat_id", chatID, "error", err)
		b.answerCallback(query.ID, "Could not load your tracking list.")
		return
	}

	item := user.FindItem(itemID)
	if item == nil {
		b.answerCallback(query.ID, "That item is no longer tracked.")
		return
	}

	// Drafting is read-only; replaying the same token yields the same letter.
	text, err := claim.Draft(claim.DefaultCardDetails(user.Name), *item)
	if err != nil {
		b.logger.Error("claim draft failed", "chat_id", chatID, "item_id", itemID, "error", err)
		b.answerCallback(query.ID, "Could not generate the claim draft.")
		return
	}

	b.reply(chatID, "📝 Claim Draft:\n\n"+text)
	b.answerCallback(query.ID, "Claim draft generated!")
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("sending message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.logger.Error("answering callback failed", "error", err)
	}
}

func confirmationText(item domain.TrackedItem) string {
	variant := item.Variant
	if variant == "" {
		variant = "N/A"
	}
	platform := item.Platform
	if platform == "" {
		platform = "Unknown"
	}
	return fmt.Sprintf("✅ Watchlist: %s\nVariant: %s\nPrice: ₹%s\nPlatform: %s\n\nMonitoring starts now.",
		item.Name, variant, notify.FormatINR(item.PricePaid), platform)
}

func intakeFailureText(err error) string {
	return fmt.Sprintf("❌ Failed to process receipt.\n\nError: %v\n\nPlease ensure:\n"+
		"• The image is clear and readable\n"+
		"• The receipt shows product name and price\n"+
		"• Try taking a better photo and send again", err)
}
