// Package notify announces new complaints on a Telegram chat.
package notify

import (
	"context"
	"fmt"

	"fixmycity/backend/internal/localization"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const queueSize = 100

// Notifier is told about complaint changes. Implementations must not block.
type Notifier interface {
	ComplaintCreated(ctx context.Context, v models.ComplaintView)
	StatusChanged(ctx context.Context, v models.ComplaintView)
}

// Sender is the part of the bot API used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram queues messages for one chat and sends them from a single
// goroutine started by Run.
type Telegram struct {
	bot    Sender
	chatID int64
	lang   string
	loc    *localization.Localizer
	queue  chan tgbotapi.MessageConfig
	log    zerolog.Logger
}

// NewTelegram authorizes the bot token.
func NewTelegram(token string, chatID int64, lang string, loc *localization.Localizer) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = false
	logging.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier authorized")
	return NewTelegramWithSender(bot, chatID, lang, loc), nil
}

func NewTelegramWithSender(bot Sender, chatID int64, lang string, loc *localization.Localizer) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		lang:   lang,
		loc:    loc,
		queue:  make(chan tgbotapi.MessageConfig, queueSize),
		log:    logging.With("notify"),
	}
}

// Run sends queued messages until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.queue:
			if _, err := t.bot.Send(msg); err != nil {
				t.log.Warn().Err(err).Int64("chat", t.chatID).Msg("telegram send failed")
			}
		}
	}
}

func (t *Telegram) ComplaintCreated(ctx context.Context, v models.ComplaintView) {
	t.enqueue(ctx, t.loc.Format(t.lang, "notify_new_complaint", map[string]string{
		"id":          v.ID,
		"type":        v.TypeName,
		"subtype":     v.SubType,
		"area":        v.Address.Area,
		"city":        v.Address.City,
		"description": v.Description,
	}))
}

func (t *Telegram) StatusChanged(ctx context.Context, v models.ComplaintView) {
	t.enqueue(ctx, t.loc.Format(t.lang, "notify_status_changed", map[string]string{
		"id":     v.ID,
		"status": string(v.Status),
	}))
}

func (t *Telegram) enqueue(ctx context.Context, text string) {
	select {
	case t.queue <- tgbotapi.NewMessage(t.chatID, text):
	default:
		logging.Ctx(ctx).Warn().Msg("telegram queue full, notification dropped")
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) ComplaintCreated(context.Context, models.ComplaintView) {}
func (Nop) StatusChanged(context.Context, models.ComplaintView)    {}
