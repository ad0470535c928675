package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 30

// StartCommand is the bot command that begins a registration.
const StartCommand = "start"

// Bot is the subset of *tgbotapi.BotAPI used by this package.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Submitter accepts inbound events. *dispatch.Dispatcher satisfies it.
type Submitter interface {
	Submit(ctx context.Context, ev domain.Event) error
}

// ParseChatID parses a numeric Telegram chat id such as an admin channel.
func ParseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", s, err)
	}
	return id, nil
}

// Messenger delivers dispatch.Outbound messages through a Bot.
type Messenger struct {
	bot Bot
}

// NewMessenger creates a Messenger.
func NewMessenger(bot Bot) *Messenger {
	return &Messenger{bot: bot}
}

// Send implements dispatch.Messenger.
func (m *Messenger) Send(ctx context.Context, msg dispatch.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := MessageConfig(msg)
	if err != nil {
		return dispatch.Permanent(err)
	}
	if _, err := m.bot.Send(cfg); err != nil {
		return classify(err)
	}
	return nil
}

// MessageConfig converts an outbound message into a Bot API send request.
func MessageConfig(msg dispatch.Outbound) (tgbotapi.MessageConfig, error) {
	chatID, err := ParseChatID(msg.To)
	if err != nil {
		return tgbotapi.MessageConfig{}, err
	}

	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	cfg.ParseMode = tgbotapi.ModeHTML

	switch {
	case len(msg.Buttons) > 0:
		row := make([]tgbotapi.KeyboardButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			row = append(row, tgbotapi.NewKeyboardButton(b))
		}
		kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(row...))
		kb.ResizeKeyboard = true
		cfg.ReplyMarkup = kb
	case msg.RemoveButtons:
		cfg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	return cfg, nil
}

// classify marks client-side API errors as permanent. Rate limits and
// server errors stay retryable.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return err
		}
		if apiErr.Code >= http.StatusBadRequest {
			return dispatch.Permanent(err)
		}
	}
	return err
}

// EventFromUpdate maps a Telegram update to a domain event. Updates
// without a text-bearing message from a user are skipped.
func EventFromUpdate(u tgbotapi.Update) (domain.Event, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.Event{}, false
	}

	ev := domain.Event{
		ID:      strconv.Itoa(msg.MessageID),
		UserID:  strconv.FormatInt(msg.From.ID, 10),
		ChatID:  strconv.FormatInt(msg.Chat.ID, 10),
		Text:    msg.Text,
		IsStart: msg.IsCommand() && msg.Command() == StartCommand,
	}
	if ev.Text == "" && !ev.IsStart {
		return domain.Event{}, false
	}
	return ev, true
}

// Poller reads updates by long polling and submits them as events.
type Poller struct {
	bot     Bot
	sink    Submitter
	timeout int
	logger  *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) PollerOption {
	return func(p *Poller) {
		if seconds > 0 {
			p.timeout = seconds
		}
	}
}

// WithLogger sets the poller's logger.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller creates a Poller.
func NewPoller(bot Bot, sink Submitter, opts ...PollerOption) *Poller {
	p := &Poller{
		bot:     bot,
		sink:    sink,
		timeout: DefaultPollTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled or the update channel closes.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.bot.GetUpdatesChan(cfg)
	defer p.bot.StopReceivingUpdates()

	p.logger.Info("telegram polling started", "timeout", p.timeout)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram polling stopped")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := EventFromUpdate(u)
			if !ok {
				p.logger.Debug("update skipped", "update_id", u.UpdateID)
				continue
			}
			// Queued events outlive the poll loop so shutdown can drain them.
			if err := p.sink.Submit(context.WithoutCancel(ctx), ev); err != nil {
				p.logger.Warn("event not accepted", "user_id", ev.UserID, "event_id", ev.ID, "err", err)
			}
		}
	}
}
