package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink posts live match commentary into group chats.
type Sink struct {
	bot *Bot
}

func (b *Bot) Sink() *Sink {
	return &Sink{bot: b}
}

func (s *Sink) Send(ctx context.Context, chatID int64, text string) (int, error) {
	return s.bot.send(ctx, tgbotapi.NewMessage(chatID, text), chatID)
}

// Replace removes the previous commentary message before posting text, so a
// chat only ever shows the latest state of a match.
func (s *Sink) Replace(ctx context.Context, prev int, chatID int64, text string) (int, error) {
	s.bot.DeleteMessage(chatID, prev)
	return s.Send(ctx, chatID, text)
}
