package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new StartHandler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{logger: logger}
}

// Handle processes the /start command.
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text := `🎁 *Welcome to Wishkeeper!*

I keep your wishlist in one place, synced across your devices.

Quick start:
• ` + "`/add Red Shoes | https://shop.example/shoes`" + ` — add a wish
• ` + "`/list`" + ` — see your wishlist
• ` + "`/done 3`" + ` — mark wish #3 as received

Use /help for the full command list.`

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)

	h.logger.WithField("chat_id", message.Chat.ID).Info("Start command handled")
	return nil
}
