package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramForwarder relays notifications into one chat, e.g. the meet
// officials' group.
type TelegramForwarder struct {
	sender Sender
	chatID int64
}

func NewTelegramForwarder(sender Sender, chatID int64) *TelegramForwarder {
	return &TelegramForwarder{sender: sender, chatID: chatID}
}

// NewTelegramBot authenticates against the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	slog.Info("telegram bot authorized", "username", bot.Self.UserName)
	return bot, nil
}

// Run forwards notifications until ctx is done or the channel is closed.
func (f *TelegramForwarder) Run(ctx context.Context, notifications <-chan Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if _, err := f.sender.Send(tgbotapi.NewMessage(f.chatID, Format(n))); err != nil {
				slog.Error("telegram send failed", "error", err, "title", n.Title)
			}
		}
	}
}

func Format(n Notification) string {
	icon := "ℹ️"
	switch n.Type {
	case Success:
		icon = "✅"
	case Error:
		icon = "❌"
	case Warning:
		icon = "⚠️"
	}
	if n.Message == "" {
		return fmt.Sprintf("%s %s", icon, n.Title)
	}
	return fmt.Sprintf("%s %s\n%s", icon, n.Title, n.Message)
}
