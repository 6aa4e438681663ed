package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram sends events to one chat and answers operator commands from it.
type Telegram struct {
	api    telegramAPI
	chatID int64
	logger *logrus.Logger
}

func NewTelegram(token string, chatID int64, logger *logrus.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	logger.WithField("username", api.Self.UserName).Info("Telegram connected")
	return newTelegram(api, chatID, logger), nil
}

func newTelegram(api telegramAPI, chatID int64, logger *logrus.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, logger: logger}
}

// Notify sends the event to the configured chat. Stop moves are too chatty
// for Telegram and are dropped.
func (t *Telegram) Notify(_ context.Context, e Event) error {
	if e.Kind == KindStopMoved {
		return nil
	}
	return t.send(t.chatID, Format(e))
}

func (t *Telegram) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// Controller is what operator commands act on.
type Controller interface {
	Status() string
	Pause(bot string) error
	Resume(bot string) error
	RecentTrades(n int) string
}

// Listen answers commands sent from the configured chat until ctx is done.
// Messages from other chats are ignored.
func (t *Telegram) Listen(ctx context.Context, ctl Controller) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			if up.Message == nil || up.Message.Chat == nil || up.Message.Chat.ID != t.chatID {
				continue
			}
			reply := t.handle(strings.TrimSpace(up.Message.Text), ctl)
			if err := t.send(t.chatID, reply); err != nil {
				t.logger.WithError(err).Warn("Failed to answer telegram command")
			}
		}
	}
}

func (t *Telegram) handle(text string, ctl Controller) string {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return help
	}

	switch parts[0] {
	case "/status":
		return ctl.Status()
	case "/trades":
		n := 5
		if len(parts) > 1 {
			if v, err := strconv.Atoi(parts[1]); err == nil && v > 0 {
				n = v
			}
		}
		return ctl.RecentTrades(n)
	case "/pause", "/resume":
		if len(parts) < 2 {
			return "usage: " + parts[0] + " <bot>"
		}
		var err error
		if parts[0] == "/pause" {
			err = ctl.Pause(parts[1])
		} else {
			err = ctl.Resume(parts[1])
		}
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%s: %s ok", parts[1], strings.TrimPrefix(parts[0], "/"))
	default:
		return help
	}
}

const help = "commands: /status, /trades [n], /pause <bot>, /resume <bot>"
