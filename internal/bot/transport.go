package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vigilx/pricewatch/internal/notify"
)

// Transport adapts the Telegram API to the notification dispatcher's contract.
type Transport struct {
	api API
}

// NewTransport builds the Telegram-backed notification transport.
func NewTransport(api API) *Transport {
	return &Transport{api: api}
}

// Transport reuses the bot's Telegram connection.
func (b *Bot) Transport() *Transport {
	return NewTransport(b.api)
}

// ConnectTransport dials Telegram and returns only the notification
// transport, for processes that send messages but never consume updates.
func ConnectTransport(token string) (*Transport, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return NewTransport(api), nil
}

// Send delivers one message, attaching actions as inline keyboard buttons.
func (t *Transport) Send(_ context.Context, chatID int64, msg notify.Message) error {
	out := tgbotapi.NewMessage(chatID, msg.Text)
	if len(msg.Actions) > 0 {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Token))
		}
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	_, err := t.api.Send(out)
	return err
}
