package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// credentialCommands carry a password in their arguments; the bot deletes
// them from the chat once handled.
var credentialCommands = map[string]bool{
	"login":    true,
	"register": true,
}

type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	handler *Handler
	chatID  int64
}

func NewTelegramBot(token string, chatID int64, handler *Handler) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &TelegramBot{
		bot:     bot,
		handler: handler,
		chatID:  chatID,
	}, nil
}

func (t *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Authorized on account", "username", t.bot.Self.UserName)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if t.chatID != 0 && update.Message.Chat.ID != t.chatID {
				slog.Warn("Ignoring command from another chat", "chat_id", update.Message.Chat.ID)
				continue
			}

			msg := t.handler.HandleCommand(ctx, update)
			if credentialCommands[strings.ToLower(update.Message.Command())] {
				t.deleteMessage(update.Message.Chat.ID, update.Message.MessageID)
			}
			if msg.Text == "" {
				continue
			}
			if _, err := t.bot.Send(msg); err != nil {
				slog.Error("Error sending message", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *TelegramBot) deleteMessage(chatID int64, messageID int) {
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		slog.Warn("Error deleting credential message", "error", err)
	}
}

func (t *TelegramBot) SendMessage(text string) error {
	if t.chatID == 0 {
		slog.Error("Chat ID not set")
		return fmt.Errorf("chat ID not set")
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(msg)
	if err != nil {
		slog.Error("Error sending message", "error", err)
	}
	return err
}

// RedirectToLogin runs after the portal rejected the stored session. The
// selection and team cache are dropped and the chat is asked to log in.
func (t *TelegramBot) RedirectToLogin() {
	t.handler.ResetView()
	if err := t.SendMessage(msgExpired); err != nil {
		slog.Warn("Login prompt not delivered", "error", err)
	}
}

// SendDigest posts the prediction history when someone is logged in.
func (t *TelegramBot) SendDigest(ctx context.Context) {
	text, ok, err := t.handler.Digest(ctx)
	if err != nil {
		slog.Error("Error building digest", "error", err)
		return
	}
	if !ok {
		slog.Info("Skipping digest, nobody is logged in")
		return
	}
	_ = t.SendMessage(text)
}
