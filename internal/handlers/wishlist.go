package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/query"
	"github.com/avoskres/wishkeeper/internal/store"
)

func reply(bot *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
}

// formatItems renders a projected item list the way the web UI orders it:
// pending first in the chosen sort, received items at the bottom.
func formatItems(items []*models.Item) string {
	var sb strings.Builder
	for _, it := range items {
		if it.Done {
			sb.WriteString("✔️ ")
		} else {
			sb.WriteString("☐ ")
		}
		sb.WriteString(fmt.Sprintf("*#%d* %s", it.ID, it.Text))
		if it.Price != nil {
			sb.WriteString(fmt.Sprintf(" — _%s_", *it.Price))
		}
		if it.Category != nil {
			sb.WriteString(fmt.Sprintf(" [%s]", *it.Category))
		}
		if it.Link != nil {
			sb.WriteString(fmt.Sprintf("\n   🔗 %s", *it.Link))
		}
		if it.Notes != nil {
			sb.WriteString(fmt.Sprintf("\n   📝 %s", *it.Notes))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseID reads an item id argument.
func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	return id, err == nil
}

// ---------------------------------------------------------------------------
// AddHandler – /add <text> [| <link>]
// ---------------------------------------------------------------------------

// AddHandler handles the /add command. Everything after an optional pipe is
// the item's link.
type AddHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewAddHandler creates a new AddHandler.
func NewAddHandler(st *store.Store, logger *logrus.Logger) *AddHandler {
	return &AddHandler{store: st, logger: logger}
}

// Handle processes the /add command.
func (h *AddHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	text, link := strings.Join(args, " "), ""
	if idx := strings.Index(text, "|"); idx >= 0 {
		text, link = text[:idx], text[idx+1:]
	}

	item, err := h.store.Add(text, link)
	if err != nil {
		if errors.Is(err, store.ErrEmptyText) {
			reply(bot, message.Chat.ID,
				"❌ Please provide a wish.\nUsage: `/add Red Shoes | https://shop.example/shoes`")
			return nil
		}
		return fmt.Errorf("add item: %w", err)
	}

	reply(bot, message.Chat.ID, fmt.Sprintf("🎁 *Added to your wishlist!*\n\n*#%d* — %s", item.ID, item.Text))

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"item_id": item.ID,
	}).Info("Wish added")
	return nil
}

// ---------------------------------------------------------------------------
// ListHandler – /list [sort]
// ---------------------------------------------------------------------------

// ListHandler handles the /list command. An optional argument switches the
// session's sort mode before rendering.
type ListHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewListHandler creates a new ListHandler.
func NewListHandler(st *store.Store, logger *logrus.Logger) *ListHandler {
	return &ListHandler{store: st, logger: logger}
}

// Handle processes the /list command.
func (h *ListHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) > 0 {
		if err := h.store.SetSort(models.SortMode(args[0])); err != nil {
			reply(bot, message.Chat.ID,
				"❌ Unknown sort. Use one of: `newest`, `oldest`, `priceLow`, `priceHigh`")
			return nil
		}
	}

	items, categories := h.store.Projection()
	profile := h.store.CurrentProfile()

	if len(items) == 0 {
		reply(bot, message.Chat.ID,
			fmt.Sprintf("🎁 *%s* is empty.\n\nAdd a wish with `/add <text>`", profile.Name))
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎁 *%s* (%s)\n\n", profile.Name, h.store.View().Sort))
	sb.WriteString(formatItems(items))
	if len(categories) > 0 {
		sb.WriteString("\n🏷 " + strings.Join(categories, ", "))
	}
	reply(bot, message.Chat.ID, sb.String())
	return nil
}

// ---------------------------------------------------------------------------
// FindHandler – /find <text>
// ---------------------------------------------------------------------------

// FindHandler handles the /find command: a one-off search across text,
// category and notes that leaves the session's view state alone.
type FindHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewFindHandler creates a new FindHandler.
func NewFindHandler(st *store.Store, logger *logrus.Logger) *FindHandler {
	return &FindHandler{store: st, logger: logger}
}

// Handle processes the /find command.
func (h *FindHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		reply(bot, message.Chat.ID, "❌ Please provide a search.\nUsage: `/find shoes`")
		return nil
	}

	needle := strings.Join(args, " ")
	profile := h.store.CurrentProfile()
	items := query.Project(profile.Wishlist, query.Params{
		Search: needle,
		Sort:   h.store.View().Sort,
	})

	if len(items) == 0 {
		reply(bot, message.Chat.ID, fmt.Sprintf("🔍 Nothing matches _%s_.", needle))
		return nil
	}
	reply(bot, message.Chat.ID, fmt.Sprintf("🔍 *Matches for* _%s_\n\n%s", needle, formatItems(items)))
	return nil
}

// ---------------------------------------------------------------------------
// DoneHandler – /done <id>
// ---------------------------------------------------------------------------

// DoneHandler handles the /done command, toggling the received flag.
type DoneHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewDoneHandler creates a new DoneHandler.
func NewDoneHandler(st *store.Store, logger *logrus.Logger) *DoneHandler {
	return &DoneHandler{store: st, logger: logger}
}

// Handle processes the /done command.
func (h *DoneHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		reply(bot, message.Chat.ID, "❌ Please provide a wish id.\nUsage: `/done 3`")
		return nil
	}
	id, ok := parseID(args[0])
	if !ok {
		reply(bot, message.Chat.ID, "❌ The id must be a number, see `/list`.")
		return nil
	}

	item, ok := h.store.ToggleDone(id)
	if !ok {
		reply(bot, message.Chat.ID, fmt.Sprintf("Wish *#%d* is already gone.", id))
		return nil
	}

	if item.Done {
		reply(bot, message.Chat.ID, fmt.Sprintf("✔️ *#%d* %s — received!", item.ID, item.Text))
	} else {
		reply(bot, message.Chat.ID, fmt.Sprintf("☐ *#%d* %s — back on the list.", item.ID, item.Text))
	}
	return nil
}

// ---------------------------------------------------------------------------
// DeleteHandler – /delete <id>
// ---------------------------------------------------------------------------

// DeleteHandler handles the /delete command.
type DeleteHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewDeleteHandler creates a new DeleteHandler.
func NewDeleteHandler(st *store.Store, logger *logrus.Logger) *DeleteHandler {
	return &DeleteHandler{store: st, logger: logger}
}

// Handle processes the /delete command.
func (h *DeleteHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		reply(bot, message.Chat.ID, "❌ Please provide a wish id.\nUsage: `/delete 3`")
		return nil
	}
	id, ok := parseID(args[0])
	if !ok {
		reply(bot, message.Chat.ID, "❌ The id must be a number, see `/list`.")
		return nil
	}

	if h.store.Delete(id) {
		reply(bot, message.Chat.ID, fmt.Sprintf("🗑 Wish *#%d* deleted.", id))
	} else {
		reply(bot, message.Chat.ID, fmt.Sprintf("Wish *#%d* is already gone.", id))
	}
	return nil
}

// ---------------------------------------------------------------------------
// SetHandler – /set <id> <field> <value>
// ---------------------------------------------------------------------------

// SetHandler handles the /set command. It runs a full edit session around a
// single field change: open a draft on the item, replace one field, commit.
// Clearing a field is `/set 3 notes -`; an emptied category becomes "Other".
type SetHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewSetHandler creates a new SetHandler.
func NewSetHandler(st *store.Store, logger *logrus.Logger) *SetHandler {
	return &SetHandler{store: st, logger: logger}
}

// Handle processes the /set command.
func (h *SetHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) < 3 {
		reply(bot, message.Chat.ID,
			"❌ Usage: `/set <id> <field> <value>`\nFields: text, category, link, price, notes, image. Use `-` to clear.")
		return nil
	}
	id, ok := parseID(args[0])
	if !ok {
		reply(bot, message.Chat.ID, "❌ The id must be a number, see `/list`.")
		return nil
	}

	value := strings.Join(args[2:], " ")
	if value == "-" {
		value = ""
	}

	draft, ok := h.store.BeginEdit(id)
	if !ok {
		reply(bot, message.Chat.ID, fmt.Sprintf("Wish *#%d* is already gone.", id))
		return nil
	}

	field := strings.ToLower(args[1])
	switch field {
	case "text":
		draft.Text = value
	case "category":
		draft.Category = value
	case "link":
		draft.Link = value
	case "price":
		draft.Price = value
	case "notes":
		draft.Notes = value
	case "image":
		draft.CustomImage = value
	default:
		h.store.CancelEdit()
		reply(bot, message.Chat.ID,
			fmt.Sprintf("❌ Unknown field `%s`. Fields: text, category, link, price, notes, image.", field))
		return nil
	}

	if _, err := h.store.UpdateDraft(draft.EditFields); err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	item, err := h.store.SaveEdit()
	if err != nil {
		h.store.CancelEdit()
		if errors.Is(err, store.ErrEmptyText) {
			reply(bot, message.Chat.ID, "❌ The text cannot be cleared, give it a new value instead.")
			return nil
		}
		return fmt.Errorf("save edit: %w", err)
	}
	if item == nil {
		reply(bot, message.Chat.ID, fmt.Sprintf("Wish *#%d* is already gone.", id))
		return nil
	}

	reply(bot, message.Chat.ID, fmt.Sprintf("✏️ Updated %s of *#%d*.", field, item.ID))

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"item_id": item.ID,
		"field":   field,
	}).Info("Wish edited")
	return nil
}

// ---------------------------------------------------------------------------
// StatsHandler – /stats
// ---------------------------------------------------------------------------

// StatsHandler handles the /stats command.
type StatsHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(st *store.Store, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{store: st, logger: logger}
}

// Handle processes the /stats command.
func (h *StatsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	st := h.store.Stats()
	profile := h.store.CurrentProfile()

	reply(bot, message.Chat.ID, fmt.Sprintf(
		"📊 *%s*\n\nTotal: %d\nReceived: %d\nRemaining: %d\nOutstanding: %s",
		profile.Name, st.Total, st.Received, st.Remaining, st.OutstandingTotal))
	return nil
}
