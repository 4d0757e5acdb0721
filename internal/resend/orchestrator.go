package resend

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"channel-relay-bot/internal/database"
	"channel-relay-bot/internal/database/models"
	"channel-relay-bot/internal/locales"
	"channel-relay-bot/internal/relay"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Orchestrator replays a stream's full relay history to its resend
// destination, one post per interval tick. At most one run per stream
// is active at a time; concurrent triggers are rejected, not queued.
type Orchestrator struct {
	ctx          context.Context
	streamName   string
	callbackData string
	bot          telegoapi.BotAPI
	posts        database.PostRepository
	destChatID   int64
	interval     time.Duration
	running      atomic.Bool
}

// NewOrchestrator creates an orchestrator for one stream. destChatID is
// the resend destination; zero means no destination is configured and
// every triggered run fails fast. ctx bounds the lifetime of runs.
func NewOrchestrator(ctx context.Context, streamName, callbackData string, bot telegoapi.BotAPI, posts database.PostRepository, destChatID int64, interval time.Duration) (*Orchestrator, error) {
	if bot == nil {
		return nil, fmt.Errorf("bot instance cannot be nil")
	}
	if posts == nil {
		return nil, fmt.Errorf("post repository cannot be nil")
	}
	if callbackData == "" {
		return nil, fmt.Errorf("callback data cannot be empty")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("resend interval must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Orchestrator{
		ctx:          ctx,
		streamName:   streamName,
		callbackData: callbackData,
		bot:          bot,
		posts:        posts,
		destChatID:   destChatID,
		interval:     interval,
	}, nil
}

// CallbackData returns the inline-button payload that triggers this
// orchestrator.
func (o *Orchestrator) CallbackData() string {
	return o.callbackData
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Trigger starts a resend run in the background. If one is already
// active, the caller is notified and nothing else happens. Progress is
// reported to notifyChatID; when statusMessageID is non-zero that
// message is edited in place instead of sending new ones.
func (o *Orchestrator) Trigger(notifyChatID int64, statusMessageID int) {
	logPrefix := fmt.Sprintf("[Resend Stream:%s]", o.streamName)
	if !o.running.CompareAndSwap(false, true) {
		log.Printf("%s Trigger ignored, run already active", logPrefix)
		o.notifyOnce(notifyChatID, "MsgResendAlreadyRunning")
		return
	}
	go o.run(notifyChatID, statusMessageID)
}

func (o *Orchestrator) run(notifyChatID int64, statusMessageID int) {
	defer o.running.Store(false)
	logPrefix := fmt.Sprintf("[Resend Stream:%s]", o.streamName)
	reporter := &statusReporter{bot: o.bot, chatID: notifyChatID, messageID: statusMessageID}
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	if o.destChatID == 0 {
		log.Printf("%s No destination configured, aborting run", logPrefix)
		reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendNoDestination", nil, nil))
		return
	}

	// Snapshot once; posts relayed after this point are not replayed.
	history, err := o.posts.FindAllOrderByCreatedAtAsc(o.ctx)
	if err != nil {
		log.Printf("%s Failed to load relay history: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s load history: %w", logPrefix, err))
		reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendLoadFailed", nil, nil))
		return
	}
	total := len(history)
	if total == 0 {
		reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendNothing", nil, nil))
		return
	}

	step := total / 20
	if step < 1 {
		step = 1
	}
	log.Printf("%s Starting run: %d post(s), interval %s, progress step %d", logPrefix, total, o.interval, step)
	reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendProgress", map[string]interface{}{
		"Sent":    0,
		"Total":   total,
		"Percent": 0,
	}, nil))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	sent := 0
	for i, post := range history {
		// The first post goes out immediately; only subsequent posts
		// wait for a tick.
		if i > 0 {
			select {
			case <-o.ctx.Done():
				log.Printf("%s Run cancelled after %d/%d", logPrefix, sent, total)
				return
			case <-ticker.C:
			}
		}

		if err := o.resendPost(o.ctx, post); err != nil {
			// One failed post never aborts the run.
			log.Printf("%s Failed to resend post %s: %v", logPrefix, post.Serial, err)
			sentry.CaptureException(fmt.Errorf("%s resend post %s: %w", logPrefix, post.Serial, err))
		}
		sent++
		if sent%step == 0 && sent != total {
			reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendProgress", map[string]interface{}{
				"Sent":    sent,
				"Total":   total,
				"Percent": sent * 100 / total,
			}, nil))
		}
	}

	reporter.report(o.ctx, locales.GetMessage(localizer, "MsgResendDone", map[string]interface{}{"Total": total}, nil))
	log.Printf("%s Run complete: %d post(s)", logPrefix, total)
}

// resendPost replays one persisted post: text-only posts as a message,
// single media directly, multi-item posts as a batch.
func (o *Orchestrator) resendPost(ctx context.Context, post models.RelayedPost) error {
	media, err := o.posts.FindMediaByPostID(ctx, post.ID.Hex())
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}

	switch len(media) {
	case 0:
		if post.OutputText == "" {
			return nil
		}
		_, err := o.bot.SendMessage(ctx, tu.Message(tu.ID(o.destChatID), post.OutputText))
		return err
	case 1:
		return relay.SendMediaItem(ctx, o.bot, o.destChatID, media[0].Kind, media[0].FileID, post.OutputText)
	default:
		medias := relay.BuildInputMediaFromRecords(media, post.OutputText)
		if len(medias) == 0 {
			return nil
		}
		_, err := o.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
			ChatID: tu.ID(o.destChatID),
			Media:  medias,
		})
		return err
	}
}

// notifyOnce sends a single localized message outside of any run.
func (o *Orchestrator) notifyOnce(chatID int64, messageID string) {
	if chatID == 0 {
		return
	}
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	if _, err := o.bot.SendMessage(o.ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, messageID, nil, nil))); err != nil {
		log.Printf("[Resend Stream:%s] Failed to send notice: %v", o.streamName, err)
	}
}

// statusReporter edits one status message in place, falling back to
// plain sends when there is no message to edit or an edit fails.
type statusReporter struct {
	bot       telegoapi.BotAPI
	chatID    int64
	messageID int
}

func (r *statusReporter) report(ctx context.Context, text string) {
	if r.chatID == 0 {
		return
	}
	if r.messageID != 0 {
		_, err := r.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(r.chatID),
			MessageID: r.messageID,
			Text:      text,
		})
		if err == nil {
			return
		}
		log.Printf("[Resend] Failed to edit status message %d, sending instead: %v", r.messageID, err)
	}
	msg, err := r.bot.SendMessage(ctx, tu.Message(tu.ID(r.chatID), text))
	if err != nil {
		log.Printf("[Resend] Failed to send status message: %v", err)
		return
	}
	if msg != nil {
		r.messageID = msg.MessageID
	}
}
