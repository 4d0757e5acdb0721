package handlers

import (
	"context"
	"fmt"

	"channel-relay-bot/internal/auth"
	"channel-relay-bot/internal/hints"
	"channel-relay-bot/internal/locales"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// ResendPrompter sends the resend confirmation prompt for a stream.
// Implemented by the relay consumer.
type ResendPrompter interface {
	PromptResend(ctx context.Context, message telego.Message) error
}

// Command maps a command string to its description key and handler.
type Command struct {
	Command     string
	Description string
	Handler     func(context.Context, telegoapi.BotAPI, telego.Message) error
}

// MessageHandler handles direct messages to one bot identity: the
// command set, hint lookups, and delegation of the resend prompt.
type MessageHandler struct {
	streamName string
	commands   []Command
	hints      *hints.Index
	admin      *auth.AdminChecker
	prompter   ResendPrompter
}

// NewMessageHandler creates a handler for one stream's bot.
func NewMessageHandler(streamName string, hintIndex *hints.Index, admin *auth.AdminChecker, prompter ResendPrompter) (*MessageHandler, error) {
	if hintIndex == nil {
		return nil, fmt.Errorf("hint index cannot be nil")
	}
	if admin == nil {
		return nil, fmt.Errorf("admin checker cannot be nil")
	}
	if prompter == nil {
		return nil, fmt.Errorf("resend prompter cannot be nil")
	}
	h := &MessageHandler{
		streamName: streamName,
		hints:      hintIndex,
		admin:      admin,
		prompter:   prompter,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDescription", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDescription", Handler: h.HandleHelp},
		{Command: "hint", Description: "CmdHintDescription", Handler: h.HandleHint},
		{Command: "resend", Description: "CmdResendDescription", Handler: h.HandleResend},
	}
	return h, nil
}

// GetCommandHandler returns the handler for a command string, or nil
// when the command is unknown.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// getLocalizer builds a localizer from the user's language, falling
// back to the default language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	lang := ""
	if user != nil {
		lang = user.LanguageCode
	}
	if lang == "" {
		lang = locales.GetDefaultLanguageTag().String()
	}
	return locales.NewLocalizer(lang)
}
