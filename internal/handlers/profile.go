package handlers

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/store"
)

// ---------------------------------------------------------------------------
// ProfilesHandler – /profiles
// ---------------------------------------------------------------------------

// ProfilesHandler handles the /profiles command, listing all profiles with
// the active one marked.
type ProfilesHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewProfilesHandler creates a new ProfilesHandler.
func NewProfilesHandler(st *store.Store, logger *logrus.Logger) *ProfilesHandler {
	return &ProfilesHandler{store: st, logger: logger}
}

// Handle processes the /profiles command.
func (h *ProfilesHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	current := h.store.CurrentProfile()

	var sb strings.Builder
	sb.WriteString("👤 *Profiles*\n\n")
	for _, p := range h.store.Profiles() {
		marker := "  "
		if p.ID == current.ID {
			marker = "▶ "
		}
		sb.WriteString(fmt.Sprintf("%s*%s* (%d items)\n   `%s`\n", marker, p.Name, len(p.Wishlist), p.ID))
	}
	sb.WriteString("\nSwitch with `/profile use <id>`")

	reply(bot, message.Chat.ID, sb.String())
	return nil
}

// ---------------------------------------------------------------------------
// ProfileHandler – /profile new|use|delete
// ---------------------------------------------------------------------------

// ProfileHandler handles the /profile command with its new/use/delete
// subcommands.
type ProfileHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(st *store.Store, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{store: st, logger: logger}
}

// Handle processes the /profile command.
func (h *ProfileHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		reply(bot, message.Chat.ID,
			"❌ Usage: `/profile new <name>`, `/profile use <id>` or `/profile delete`")
		return nil
	}

	switch args[0] {
	case "new":
		profile, err := h.store.CreateProfile(strings.Join(args[1:], " "))
		if err != nil {
			if errors.Is(err, store.ErrEmptyName) {
				reply(bot, message.Chat.ID, "❌ Please provide a profile name.\nUsage: `/profile new Gifts`")
				return nil
			}
			return fmt.Errorf("create profile: %w", err)
		}
		reply(bot, message.Chat.ID,
			fmt.Sprintf("👤 Created and switched to *%s* (`%s`).", profile.Name, profile.ID))

		h.logger.WithFields(logrus.Fields{
			"chat_id":    message.Chat.ID,
			"profile_id": profile.ID,
		}).Info("Profile created")

	case "use":
		if len(args) < 2 {
			reply(bot, message.Chat.ID, "❌ Usage: `/profile use <id>` — ids are shown by /profiles")
			return nil
		}
		if !h.store.SwitchProfile(args[1]) {
			reply(bot, message.Chat.ID, fmt.Sprintf("❌ No profile `%s`, see /profiles.", args[1]))
			return nil
		}
		profile := h.store.CurrentProfile()
		reply(bot, message.Chat.ID,
			fmt.Sprintf("👤 Switched to *%s* (%d items).", profile.Name, len(profile.Wishlist)))

	case "delete":
		deleted := h.store.CurrentProfile()
		if err := h.store.DeleteProfile(); err != nil {
			if errors.Is(err, store.ErrLastProfile) {
				reply(bot, message.Chat.ID, "❌ You must keep at least one profile.")
				return nil
			}
			return fmt.Errorf("delete profile: %w", err)
		}
		profile := h.store.CurrentProfile()
		reply(bot, message.Chat.ID,
			fmt.Sprintf("🗑 Deleted *%s*, now on *%s*.", deleted.Name, profile.Name))

		h.logger.WithFields(logrus.Fields{
			"chat_id":    message.Chat.ID,
			"profile_id": deleted.ID,
		}).Info("Profile deleted")

	default:
		reply(bot, message.Chat.ID,
			"❌ Usage: `/profile new <name>`, `/profile use <id>` or `/profile delete`")
	}
	return nil
}
