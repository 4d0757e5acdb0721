package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"channel-relay-bot/internal/hints"
	"channel-relay-bot/internal/locales"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// HandleStart handles /start: registers the command menu and greets.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.setupCommands(ctx, bot); err != nil {
		log.Printf("[Cmd:start Stream:%s] Failed to set up commands: %v", h.streamName, err)
	}
	localizer := h.getLocalizer(message.From)
	return h.reply(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgStart", nil, nil))
}

// HandleHelp handles /help: lists the commands visible to the user.
// The resend command is admin-only and hidden from everyone else.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	isAdmin := message.From != nil && h.admin.IsAdmin(message.From.ID)

	var helpText strings.Builder
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range h.commands {
		if cmd.Command == "resend" && !isAdmin {
			continue
		}
		desc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		helpText.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, desc))
	}
	return h.reply(ctx, bot, message.Chat.ID, helpText.String())
}

// HandleHint handles /hint <keyword>: exact tag matches send the
// resource, near misses list the candidate tags.
func (h *MessageHandler) HandleHint(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	_, query, _ := strings.Cut(strings.TrimSpace(message.Text), " ")
	query = strings.TrimSpace(query)
	if query == "" {
		return h.reply(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgHintUsage", nil, nil))
	}

	result := h.hints.Search(query)
	switch result.Kind {
	case hints.Match:
		return h.sendHintResource(ctx, bot, message.Chat.ID, result)
	case hints.Suspect:
		return h.reply(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgHintSuspect", map[string]interface{}{
			"Tags": strings.Join(result.SuspectTags, ", "),
		}, nil))
	default:
		return h.reply(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgHintNoMatch", nil, nil))
	}
}

// HandleResend handles /resend by delegating to the stream's resend
// prompter, which enforces the admin gate.
func (h *MessageHandler) HandleResend(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	return h.prompter.PromptResend(ctx, message)
}

// sendHintResource delivers a matched hint resource: media with its
// caption, or the caption alone when the resource has no file.
func (h *MessageHandler) sendHintResource(ctx context.Context, bot telegoapi.BotAPI, chatID int64, result hints.Result) error {
	resource := result.Resource
	if resource.FileID == "" {
		return h.reply(ctx, bot, chatID, resource.Caption)
	}
	return sendResourceMedia(ctx, bot, chatID, resource)
}

// setupCommands registers the command menu with the platform.
func (h *MessageHandler) setupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}
	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
