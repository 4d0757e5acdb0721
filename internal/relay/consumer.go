package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"channel-relay-bot/internal/auth"
	"channel-relay-bot/internal/database"
	"channel-relay-bot/internal/database/models"
	"channel-relay-bot/internal/locales"
	"channel-relay-bot/internal/mediagroups"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Stream identifies one relay pipeline: which channel it consumes,
// where it publishes, how its serials are prefixed, and whether the
// decoration pipeline applies. The primary stream decorates; the
// secondary relays text verbatim.
type Stream struct {
	Name            string
	SerialPrefix    string
	CommChannelID   int64
	PublicChannelID int64
	Decorate        bool
}

// ResendTrigger starts the bulk resend workflow for a stream.
// Implemented by the resend orchestrator.
type ResendTrigger interface {
	// Trigger starts a run, reporting progress to notifyChatID; when
	// statusMessageID is non-zero that message is edited in place.
	Trigger(notifyChatID int64, statusMessageID int)
	// CallbackData is the inline-button payload that triggers this stream's resend.
	CallbackData() string
}

// Consumer is the single entry point for one bot identity's updates.
// It classifies channel posts (pure text, single media, grouped media),
// drives decoration, deduplication and serial allocation, and delegates
// admin commands and callbacks to the resend workflow.
type Consumer struct {
	stream    Stream
	bot       telegoapi.BotAPI
	posts     database.PostRepository
	serials   *SerialAllocator
	decorator *Decorator
	dedup     *DuplicateDetector
	buffer    *mediagroups.Buffer
	resender  ResendTrigger
	admin     *auth.AdminChecker
	debug     bool
}

// ConsumerDeps holds the dependencies required by a Consumer.
type ConsumerDeps struct {
	Stream          Stream
	Bot             telegoapi.BotAPI
	Posts           database.PostRepository
	Serials         *SerialAllocator
	Decorator       *Decorator
	Dedup           *DuplicateDetector
	Resender        ResendTrigger
	Admin           *auth.AdminChecker
	MediaGroupDelay time.Duration
	Debug           bool
}

// NewConsumer creates a Consumer and its media group buffer.
// Returns an error if dependencies are missing.
func NewConsumer(deps ConsumerDeps) (*Consumer, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("bot instance cannot be nil")
	}
	if deps.Posts == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if deps.Serials == nil {
		return nil, fmt.Errorf("serial allocator cannot be nil")
	}
	if deps.Decorator == nil {
		return nil, fmt.Errorf("decorator cannot be nil")
	}
	if deps.Dedup == nil {
		return nil, fmt.Errorf("duplicate detector cannot be nil")
	}
	if deps.Resender == nil {
		return nil, fmt.Errorf("resend trigger cannot be nil")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("admin checker cannot be nil")
	}
	if deps.Stream.CommChannelID == 0 || deps.Stream.PublicChannelID == 0 {
		return nil, fmt.Errorf("stream %q channel IDs cannot be zero", deps.Stream.Name)
	}

	c := &Consumer{
		stream:    deps.Stream,
		bot:       deps.Bot,
		posts:     deps.Posts,
		serials:   deps.Serials,
		decorator: deps.Decorator,
		dedup:     deps.Dedup,
		resender:  deps.Resender,
		admin:     deps.Admin,
		debug:     deps.Debug,
	}
	c.buffer = mediagroups.NewBuffer(deps.MediaGroupDelay, mediagroups.DefaultMaxGroupSize, c.flushMediaGroup)
	return c, nil
}

// Stream returns the consumer's stream configuration.
func (c *Consumer) Stream() Stream {
	return c.stream
}

// HandleUpdate routes one inbound update. Events for a source chat
// other than the communication channel are ignored.
func (c *Consumer) HandleUpdate(ctx context.Context, update telego.Update) {
	if c.debug {
		if raw, err := json.Marshal(update); err == nil {
			log.Printf("[Relay Stream:%s] Received update json=%s", c.stream.Name, raw)
		}
	}
	if update.CallbackQuery != nil {
		c.handleCallback(ctx, *update.CallbackQuery)
	}
	if update.ChannelPost == nil {
		return
	}

	post := *update.ChannelPost
	if post.Chat.ID != c.stream.CommChannelID {
		return
	}

	switch {
	case isPureText(post):
		c.relayText(ctx, post)
	case post.MediaGroupID != "":
		c.buffer.Append(post)
	default:
		c.relaySingleMedia(ctx, post)
	}
}

// Shutdown cancels pending media group flush timers.
func (c *Consumer) Shutdown() {
	c.buffer.Shutdown()
}

// isPureText reports whether the message is text-only: non-empty text
// and no attachment of any kind.
func isPureText(message telego.Message) bool {
	return message.Text != "" && !hasAnyMedia(message)
}

// relayText handles the pure-text branch: decorate, send, persist, ack.
func (c *Consumer) relayText(ctx context.Context, post telego.Message) {
	logPrefix := fmt.Sprintf("[Relay Stream:%s Msg:%d]", c.stream.Name, post.MessageID)
	origin := extractForwardOrigin(post)
	serial := c.serials.Next()
	processed, output := c.decorate(ctx, serial, post.Text, origin)

	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(c.stream.PublicChannelID), output)); err != nil {
		log.Printf("%s Failed to send text to public channel: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s send text: %w", logPrefix, err))
	}

	c.persistAndAck(ctx, post, serial, origin, post.Text, processed, output, nil)
	log.Printf("%s Relayed text with serial %s to %d", logPrefix, serial, c.stream.PublicChannelID)
}

// relaySingleMedia handles the single-attachment branch. Duplicates are
// noticed and skipped; unsupported attachments are dropped with a warning.
func (c *Consumer) relaySingleMedia(ctx context.Context, post telego.Message) {
	logPrefix := fmt.Sprintf("[Relay Stream:%s Msg:%d]", c.stream.Name, post.MessageID)
	item, ok := ExtractMediaItem(post)
	if !ok {
		log.Printf("%s Unsupported media type, dropping message", logPrefix)
		return
	}

	dup, err := c.dedup.IsDuplicate(ctx, item.FileID)
	if err != nil {
		log.Printf("%s Duplicate check failed, relaying anyway: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s duplicate check: %w", logPrefix, err))
	}
	if dup {
		c.sendDuplicateNotice(ctx, post.MessageID)
		return
	}

	origin := extractForwardOrigin(post)
	serial := c.serials.Next()
	processed, output := c.decorate(ctx, serial, post.Caption, origin)

	if err := SendMediaItem(ctx, c.bot, c.stream.PublicChannelID, item.Kind, item.FileID, output); err != nil {
		log.Printf("%s Failed to send media to public channel: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s send media: %w", logPrefix, err))
	}

	c.persistAndAck(ctx, post, serial, origin, post.Caption, processed, output, []MediaItem{item})
	log.Printf("%s Relayed %s with serial %s to %d", logPrefix, item.Kind, serial, c.stream.PublicChannelID)
}

// flushMediaGroup is the buffer's ProcessFunc: one flushed batch becomes
// one outbound batch send and one persisted post.
func (c *Consumer) flushMediaGroup(ctx context.Context, groupID string, messages []telego.Message) error {
	logPrefix := fmt.Sprintf("[Relay Stream:%s Group:%s]", c.stream.Name, groupID)
	first := messages[0]

	items := make([]MediaItem, 0, len(messages))
	for _, message := range messages {
		item, ok := ExtractMediaItem(message)
		if !ok {
			log.Printf("%s Unsupported media in group, skipping message %d", logPrefix, message.MessageID)
			continue
		}
		items = append(items, item)
	}

	dup, err := c.dedup.AnyDuplicate(ctx, items)
	if err != nil {
		log.Printf("%s Duplicate check failed, relaying anyway: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s group duplicate check: %w", logPrefix, err))
	}
	if dup {
		// Partial relay of a group is disallowed; one duplicate rejects all.
		c.sendDuplicateNotice(ctx, first.MessageID)
		return nil
	}

	origin := extractForwardOrigin(first)
	serial := c.serials.Next()
	originalText := extractGroupText(messages)
	processed, output := c.decorate(ctx, serial, originalText, origin)

	medias := make([]telego.InputMedia, 0, len(items))
	captionApplied := false
	for _, item := range items {
		itemCaption := ""
		if !captionApplied && output != "" {
			itemCaption = output
		}
		media, ok := BuildInputMedia(item.Kind, item.FileID, itemCaption)
		if !ok {
			continue
		}
		captionApplied = captionApplied || itemCaption != ""
		medias = append(medias, media)
	}
	if len(medias) == 0 {
		log.Printf("%s No deliverable media in group, skipping send", logPrefix)
		return nil
	}

	if _, err := c.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
		ChatID: tu.ID(c.stream.PublicChannelID),
		Media:  medias,
	}); err != nil {
		log.Printf("%s Failed to send media group: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s send media group: %w", logPrefix, err))
	}

	c.persistAndAck(ctx, first, serial, origin, originalText, processed, output, items)
	log.Printf("%s Relayed group with serial %s, %d item(s)", logPrefix, serial, len(items))
	return nil
}

// decorate runs the decoration pipeline when the stream has it enabled;
// otherwise the text passes through unchanged.
func (c *Consumer) decorate(ctx context.Context, serial, originalText string, origin forwardOrigin) (processed, output string) {
	if !c.stream.Decorate {
		return originalText, originalText
	}
	processed = c.decorator.Process(ctx, originalText)
	suffix := c.decorator.PickSuffix(ctx, origin.chatIDString())
	promo := c.decorator.PickPromo(ctx)
	return processed, BuildOutputText(suffix, processed, serial, promo)
}

// persistAndAck records the relayed unit and replies the serial to the
// source message. Persistence failure after the send is logged, never
// retracted.
func (c *Consumer) persistAndAck(ctx context.Context, post telego.Message, serial string, origin forwardOrigin, originalText, processedText, outputText string, items []MediaItem) {
	logPrefix := fmt.Sprintf("[Relay Stream:%s Msg:%d]", c.stream.Name, post.MessageID)

	record := &models.RelayedPost{
		Serial:             serial,
		SourceChatID:       post.Chat.ID,
		SourceMessageID:    post.MessageID,
		SourceMediaGroupID: post.MediaGroupID,
		OriginChatID:       origin.chatID,
		OriginChatTitle:    origin.chatTitle,
		OriginUserID:       origin.userID,
		OriginUserUsername: origin.userUsername,
		OriginUserName:     origin.userName,
		OriginalText:       originalText,
		ProcessedText:      processedText,
		OutputText:         outputText,
		CreatedAt:          time.Now(),
	}
	media := make([]models.RelayedMediaItem, 0, len(items))
	for i, item := range items {
		media = append(media, models.RelayedMediaItem{Kind: item.Kind, FileID: item.FileID, SortOrder: i})
	}

	if _, err := c.posts.CreatePost(ctx, record, media); err != nil {
		log.Printf("%s Failed to persist relayed post (already sent, not retracted): %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s persist post: %w", logPrefix, err))
	}

	ack := tu.Message(tu.ID(c.stream.CommChannelID), serial)
	ack.ReplyParameters = &telego.ReplyParameters{MessageID: post.MessageID}
	if _, err := c.bot.SendMessage(ctx, ack); err != nil {
		log.Printf("%s Failed to send acknowledgement: %v", logPrefix, err)
	}
}

// sendDuplicateNotice replies to the source message that the content
// was already relayed.
func (c *Consumer) sendDuplicateNotice(ctx context.Context, replyToMessageID int) {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	notice := tu.Message(tu.ID(c.stream.CommChannelID), locales.GetMessage(localizer, "MsgDuplicateNotice", nil, nil))
	notice.ReplyParameters = &telego.ReplyParameters{MessageID: replyToMessageID}
	if _, err := c.bot.SendMessage(ctx, notice); err != nil {
		log.Printf("[Relay Stream:%s] Failed to send duplicate notice: %v", c.stream.Name, err)
	}
}

// handleCallback processes a button press. Every callback is answered
// immediately so the platform UI does not show a stuck spinner; the
// privileged resend action proceeds only for the configured admin.
func (c *Consumer) handleCallback(ctx context.Context, query telego.CallbackQuery) {
	logPrefix := fmt.Sprintf("[Relay Stream:%s Callback:%s]", c.stream.Name, query.ID)
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	_ = c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            locales.GetMessage(localizer, "MsgResendCallbackReceived", nil, nil),
	})

	if !c.admin.Configured() {
		log.Printf("%s No admin configured, ignoring callback", logPrefix)
		return
	}
	if !c.admin.IsAdmin(query.From.ID) {
		log.Printf("%s Non-admin user %d pressed resend button", logPrefix, query.From.ID)
		return
	}
	if query.Data != c.resender.CallbackData() {
		return
	}

	notifyChatID := query.From.ID
	statusMessageID := 0
	if msg, ok := query.Message.(*telego.Message); ok && msg != nil {
		notifyChatID = msg.Chat.ID
		statusMessageID = msg.MessageID
		// Turn the confirmation prompt into the editable status message.
		if _, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(notifyChatID),
			MessageID: statusMessageID,
			Text:      locales.GetMessage(localizer, "MsgResendInProgress", nil, nil),
		}); err != nil {
			log.Printf("%s Failed to edit prompt into status message: %v", logPrefix, err)
		}
		if msg.ReplyMarkup != nil {
			if _, err := c.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
				ChatID:    tu.ID(notifyChatID),
				MessageID: statusMessageID,
			}); err != nil {
				log.Printf("%s Failed to clear prompt reply markup: %v", logPrefix, err)
			}
		}
	}

	c.resender.Trigger(notifyChatID, statusMessageID)
}

// PromptResend reacts to the admin's private "/resend" command by
// sending a confirmation prompt with the start button. Non-admin and
// non-private requests are silently ignored.
func (c *Consumer) PromptResend(ctx context.Context, message telego.Message) error {
	if message.Chat.Type != telego.ChatTypePrivate || message.From == nil {
		return nil
	}
	if !c.admin.IsAdmin(message.From.ID) {
		log.Printf("[Relay Stream:%s] Non-admin user %d requested resend prompt", c.stream.Name, message.From.ID)
		return nil
	}

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	prompt := tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgResendConfirmPrompt", nil, nil))
	prompt.ReplyMarkup = tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgResendButtonStart", nil, nil)).
				WithCallbackData(c.resender.CallbackData()),
		),
	)
	if _, err := c.bot.SendMessage(ctx, prompt); err != nil {
		return fmt.Errorf("failed to send resend prompt: %w", err)
	}
	return nil
}

// forwardOrigin carries the optional forward-provenance fields of a
// source event.
type forwardOrigin struct {
	chatID       int64
	chatTitle    string
	userID       int64
	userUsername string
	userName     string
}

func (o forwardOrigin) chatIDString() string {
	if o.chatID == 0 {
		return ""
	}
	return strconv.FormatInt(o.chatID, 10)
}

// extractForwardOrigin reads provenance from a forwarded message.
// Non-forwarded messages yield the zero value.
func extractForwardOrigin(message telego.Message) forwardOrigin {
	switch origin := message.ForwardOrigin.(type) {
	case *telego.MessageOriginChannel:
		return forwardOrigin{chatID: origin.Chat.ID, chatTitle: origin.Chat.Title}
	case *telego.MessageOriginChat:
		return forwardOrigin{chatID: origin.SenderChat.ID, chatTitle: origin.SenderChat.Title}
	case *telego.MessageOriginUser:
		name := strings.TrimSpace(origin.SenderUser.FirstName + " " + origin.SenderUser.LastName)
		return forwardOrigin{userID: origin.SenderUser.ID, userUsername: origin.SenderUser.Username, userName: name}
	case *telego.MessageOriginHiddenUser:
		return forwardOrigin{userName: origin.SenderUserName}
	default:
		return forwardOrigin{}
	}
}

// extractGroupText returns the first non-blank caption or text found in
// the ordered batch, used as the group's representative original text.
func extractGroupText(messages []telego.Message) string {
	for _, message := range messages {
		if strings.TrimSpace(message.Caption) != "" {
			return message.Caption
		}
		if strings.TrimSpace(message.Text) != "" {
			return message.Text
		}
	}
	return ""
}
