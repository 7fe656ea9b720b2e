package alerts

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramAlerter sends signal alerts to a Telegram chat
type TelegramAlerter struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramAlerter(botToken string, chatID int64) (*TelegramAlerter, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("chat id is required")
	}

	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	log.Info().
		Str("bot_username", api.Self.UserName).
		Msg("Telegram alerter initialized")

	return &TelegramAlerter{api: api, chatID: chatID}, nil
}

func (t *TelegramAlerter) Send(ctx context.Context, alert Alert) error {
	msg := tgbotapi.NewMessage(t.chatID, formatAlert(alert))
	msg.ParseMode = "Markdown"

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

func formatAlert(alert Alert) string {
	text := fmt.Sprintf("*%s %s*", alert.Action, alert.Symbol)
	if alert.Strategy != "" {
		text += fmt.Sprintf(" (%s)", alert.Strategy)
	}
	if alert.Price > 0 {
		text += fmt.Sprintf("\nPrice: $%.2f", alert.Price)
	}
	if alert.Reason != "" {
		text += fmt.Sprintf("\n%s", alert.Reason)
	}
	return text
}
