package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender delivers scheduler reminders through the bot API behind a
// rate limiter (Telegram caps bots around 30 messages per second;
// staying under it keeps bursts of simultaneous birthdays safe).
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

// Deliver implements scheduler.Notifier.
func (s *Sender) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
