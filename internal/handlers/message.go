package handlers

import (
	"context"
	"log"
	"strings"

	"channel-relay-bot/internal/database/models"
	"channel-relay-bot/internal/locales"
	"channel-relay-bot/internal/relay"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// HandleMessage dispatches a direct message. Only private-chat command
// messages are acted on; everything else is ignored so channel traffic
// never collides with the command surface.
func (h *MessageHandler) HandleMessage(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if message.Chat.Type != telego.ChatTypePrivate {
		return nil
	}
	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	command := parseCommand(text)
	handler := h.GetCommandHandler(command)
	if handler == nil {
		log.Printf("[Stream:%s] Unknown command %q from user chat %d", h.streamName, command, message.Chat.ID)
		localizer := h.getLocalizer(message.From)
		return h.reply(ctx, bot, message.Chat.ID, locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil))
	}
	return handler(ctx, bot, message)
}

// parseCommand extracts the bare command name from "/cmd@botname args".
func parseCommand(text string) string {
	command := strings.TrimPrefix(text, "/")
	if idx := strings.IndexAny(command, " \t"); idx >= 0 {
		command = command[:idx]
	}
	if idx := strings.Index(command, "@"); idx >= 0 {
		command = command[:idx]
	}
	return strings.ToLower(command)
}

// reply sends a plain text response to the chat.
func (h *MessageHandler) reply(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

// sendResourceMedia sends a hint resource's media file with its caption.
func sendResourceMedia(ctx context.Context, bot telegoapi.BotAPI, chatID int64, resource *models.Resource) error {
	return relay.SendMediaItem(ctx, bot, chatID, resource.Kind, resource.FileID, resource.Caption)
}
