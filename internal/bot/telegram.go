package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/internal/config"
)

// TelegramSender sends messages through the Telegram Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (t *TelegramSender) Send(chatID int64, replyTo int, text string, markdown bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// MessageFromTelegram converts an update message for the Handler.
func MessageFromTelegram(m *tgbotapi.Message) Message {
	msg := Message{
		MessageID: m.MessageID,
		Text:      m.Text,
		Command:   m.Command(),
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	return msg
}

// Bot long-polls Telegram and dispatches each message to the Handler on its
// own goroutine.
type Bot struct {
	api         *tgbotapi.BotAPI
	handler     *Handler
	pollTimeout int
	logger      *logrus.Logger
	wg          sync.WaitGroup
}

func NewTelegramAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug
	return api, nil
}

func NewBot(api *tgbotapi.BotAPI, handler *Handler, cfg config.TelegramConfig, logger *logrus.Logger) *Bot {
	return &Bot{
		api:         api,
		handler:     handler,
		pollTimeout: cfg.PollingTimeout,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Infof("Authorized on account %s, polling for updates", b.api.Self.UserName)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			msg := MessageFromTelegram(update.Message)
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handler.Handle(ctx, msg)
			}()
		}
	}
}
