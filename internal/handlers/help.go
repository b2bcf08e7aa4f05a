package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

// NewHelpHandler creates a new HelpHandler
func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

// Handle processes the /help command.
func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text := `🎁 *Wishkeeper commands*

*Wishes*
• ` + "`/add <text> [| <link>]`" + ` — add a wish, link optional
• ` + "`/list [newest|oldest|priceLow|priceHigh]`" + ` — show the wishlist
• ` + "`/find <text>`" + ` — search text, category and notes
• ` + "`/done <id>`" + ` — mark received / pending again
• ` + "`/delete <id>`" + ` — remove a wish
• ` + "`/set <id> <field> <value>`" + ` — edit a field
   (fields: text, category, link, price, notes, image)
• ` + "`/stats`" + ` — totals and outstanding price

*Profiles*
• ` + "`/profiles`" + ` — list profiles
• ` + "`/profile new <name>`" + ` — create and switch to a profile
• ` + "`/profile use <id>`" + ` — switch profiles
• ` + "`/profile delete`" + ` — delete the current profile`

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)

	h.logger.WithField("chat_id", message.Chat.ID).Info("Help command handled")
	return nil
}
