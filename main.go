package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-relay-bot/internal/auth"
	"channel-relay-bot/internal/botclient"
	"channel-relay-bot/internal/config"
	"channel-relay-bot/internal/database"
	"channel-relay-bot/internal/handlers"
	"channel-relay-bot/internal/hints"
	"channel-relay-bot/internal/locales"
	"channel-relay-bot/internal/relay"
	"channel-relay-bot/internal/resend"

	relayBot "channel-relay-bot/bot"

	sentry "github.com/getsentry/sentry-go"
	"go.mongodb.org/mongo-driver/mongo"
)

const hintRefreshInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init(cfg.DefaultLanguage)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to MongoDB
	client, db, err := database.ConnectDB(cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err = client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}()

	// Shared repositories and services
	contentRepo := database.NewMongoContentRepository(db)
	poolRepo := database.NewMongoPoolRepository(db)
	decorator := relay.NewDecorator(contentRepo, contentRepo, contentRepo)
	adminChecker := auth.NewAdminChecker(cfg.AdminID)
	log.Printf("Using %s", adminChecker)

	hintIndex := hints.NewIndex(poolRepo)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hintIndex.Rebuild(ctx); err != nil {
		log.Printf("Warning: initial hint index build failed: %v", err)
		sentry.CaptureException(err)
	} else {
		log.Printf("Hint index built with %d tag(s)", hintIndex.Size())
	}
	go refreshHintIndex(ctx, hintIndex)

	clients := botclient.NewCache(cfg.Debug)
	clients.Register("main", cfg.BotToken)
	if cfg.SubBotToken != "" {
		clients.Register("sub", cfg.SubBotToken)
	}

	streams := []streamSetup{
		{
			identity: "main",
			stream: relay.Stream{
				Name:            "main",
				SerialPrefix:    "",
				CommChannelID:   cfg.CommChannelID,
				PublicChannelID: cfg.PublicChannelID,
				Decorate:        true,
			},
			resendChannelID: cfg.ResendChannelID,
			callbackData:    "resend_all",
			postCollection:  database.PrimaryPostCollection,
			mediaCollection: database.PrimaryMediaCollection,
		},
	}
	if cfg.SubBotToken != "" {
		streams = append(streams, streamSetup{
			identity: "sub",
			stream: relay.Stream{
				Name:            "sub",
				SerialPrefix:    "SUB-",
				CommChannelID:   cfg.SubCommChannelID,
				PublicChannelID: cfg.SubPublicChannelID,
				Decorate:        false,
			},
			resendChannelID: cfg.SubResendChannelID,
			callbackData:    "sub_resend_all",
			postCollection:  database.SecondaryPostCollection,
			mediaCollection: database.SecondaryMediaCollection,
		})
	}

	for _, setup := range streams {
		startStream(ctx, cfg, db, clients, decorator, adminChecker, hintIndex, setup)
	}

	// Wait for context cancellation (e.g., SIGINT, SIGTERM)
	<-ctx.Done()
	log.Println("Bot shutdown complete.")
}

// streamSetup carries the per-stream wiring that differs between the
// primary and secondary relay pipelines.
type streamSetup struct {
	identity        string
	stream          relay.Stream
	resendChannelID int64
	callbackData    string
	postCollection  string
	mediaCollection string
}

// startStream wires one stream's repositories, consumer, orchestrator
// and update loop, and launches the loop. Failures here are fatal:
// a partially started stream is worse than none.
func startStream(
	ctx context.Context,
	cfg *config.Config,
	db *mongo.Database,
	clients *botclient.Cache,
	decorator *relay.Decorator,
	adminChecker *auth.AdminChecker,
	hintIndex *hints.Index,
	setup streamSetup,
) {
	botClient, err := clients.Get(setup.identity)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create bot client for stream %s: %v", setup.stream.Name, err)
	}

	posts := database.NewMongoPostRepository(db, setup.postCollection, setup.mediaCollection)

	allocator := relay.NewSerialAllocator(setup.stream.SerialPrefix)
	if err := allocator.Recover(ctx, posts); err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to recover serial counter for stream %s: %v", setup.stream.Name, err)
	}

	// The resend channel is the preferred destination; the public channel
	// is the fallback.
	resendDest := setup.resendChannelID
	if resendDest == 0 {
		resendDest = setup.stream.PublicChannelID
	}
	orchestrator, err := resend.NewOrchestrator(ctx, setup.stream.Name, setup.callbackData, botClient, posts, resendDest, cfg.ResendInterval)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create resend orchestrator for stream %s: %v", setup.stream.Name, err)
	}

	consumer, err := relay.NewConsumer(relay.ConsumerDeps{
		Stream:          setup.stream,
		Bot:             botClient,
		Posts:           posts,
		Serials:         allocator,
		Decorator:       decorator,
		Dedup:           relay.NewDuplicateDetector(posts),
		Resender:        orchestrator,
		Admin:           adminChecker,
		MediaGroupDelay: cfg.MediaGroupDelay,
		Debug:           cfg.Debug,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create relay consumer for stream %s: %v", setup.stream.Name, err)
	}

	messageHandler, err := handlers.NewMessageHandler(setup.stream.Name, hintIndex, adminChecker, consumer)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create message handler for stream %s: %v", setup.stream.Name, err)
	}

	updates, err := botClient.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling for stream %s: %v", setup.stream.Name, err)
	}

	appBot, err := relayBot.New(relayBot.BotDeps{
		Bot:         botClient,
		UpdatesChan: updates,
		Consumer:    consumer,
		Handler:     messageHandler,
		Debug:       cfg.Debug,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	log.Printf("Starting update loop for stream %s", setup.stream.Name)
	go appBot.Start(ctx)
}

// refreshHintIndex rebuilds the hint index periodically so pool edits
// become visible without a restart.
func refreshHintIndex(ctx context.Context, index *hints.Index) {
	ticker := time.NewTicker(hintRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := index.Rebuild(ctx); err != nil {
				log.Printf("Warning: hint index refresh failed: %v", err)
				continue
			}
			log.Printf("Hint index refreshed with %d tag(s)", index.Size())
		}
	}
}
