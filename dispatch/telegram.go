package dispatch

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxMsgLen leaves headroom under the 4096 character API limit.
const telegramMaxMsgLen = 4000

// messageSender is the part of tgbotapi.BotAPI the sink needs.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink sends the payload directly through a Telegram bot instead of
// opening a link. The normalized recipient is used as the chat ID, so only
// positive (user) chat IDs are reachable.
type TelegramSink struct {
	bot messageSender
}

// NewTelegramSink connects a bot with token.
func NewTelegramSink(token string) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{bot: bot}, nil
}

// Deliver sends payload to the recipient chat, splitting long payloads.
func (s *TelegramSink) Deliver(ctx context.Context, recipient, payload string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", recipient, err)
	}
	for _, part := range splitMessage(payload, telegramMaxMsgLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// splitMessage splits text into rune-safe chunks of at most limit runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		n := limit
		if len(runes) < n {
			n = len(runes)
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}

var _ Sink = (*TelegramSink)(nil)
