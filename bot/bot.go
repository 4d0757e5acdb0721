package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"channel-relay-bot/internal/handlers"
	"channel-relay-bot/internal/relay"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"
)

// Bot wraps one bot identity's update loop. It reads the update channel
// and routes channel posts and callbacks to the relay consumer, and
// direct messages to the command handler. Updates are processed
// strictly in arrival order: the relay semantics (serial numbering,
// media group ordering) depend on it, so there is no per-update
// goroutine fan-out.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	consumer    *relay.Consumer
	handler     *handlers.MessageHandler
	ratelimiter ratelimit.Limiter
	debug       bool
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Consumer    *relay.Consumer
	Handler     *handlers.MessageHandler
	Debug       bool
}

// New creates a Bot instance from its dependencies.
// Returns an error if dependencies are missing.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	if deps.Consumer == nil {
		return nil, fmt.Errorf("relay consumer cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		consumer:    deps.Consumer,
		handler:     deps.Handler,
		ratelimiter: ratelimit.New(20),
		debug:       deps.Debug,
	}, nil
}

// processUpdate routes one update to the consumer or the command
// handler. Panics in handlers never kill the update loop.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch {
	case update.ChannelPost != nil, update.CallbackQuery != nil:
		b.consumer.HandleUpdate(processingCtx, update)
	case update.Message != nil:
		message := *update.Message
		if err := b.handler.HandleMessage(processingCtx, b.bot, message); err != nil {
			logPrefix := fmt.Sprintf("[Msg:%d Chat:%d]", message.MessageID, message.Chat.ID)
			log.Printf("%s Handler error: %v", logPrefix, err)
			sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
		}
	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type: %+v", update)
		}
	}
}

// Start runs the update processing loop until the context is done or
// the updates channel closes. Processing is sequential on purpose.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Listening for updates...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			b.consumer.Shutdown()
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				b.consumer.Shutdown()
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}
