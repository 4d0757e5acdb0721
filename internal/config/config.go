package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Debug     bool
	Version   string
	SentryDSN string

	MongoDBURI      string
	MongoDBDatabase string

	DefaultLanguage string

	// Primary relay stream.
	BotToken        string
	CommChannelID   int64
	PublicChannelID int64
	ResendChannelID int64
	AdminID         int64

	// Secondary relay stream. Entirely optional; the stream is disabled
	// when SubBotToken is empty.
	SubBotToken        string
	SubCommChannelID   int64
	SubPublicChannelID int64
	SubResendChannelID int64

	// Delay between two resend items.
	ResendInterval time.Duration
	// Debounce window for media group buffering.
	MediaGroupDelay time.Duration
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	commChannelID, err := getEnvInt64("COMM_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	publicChannelID, err := getEnvInt64("PUBLIC_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	resendChannelID, err := getEnvInt64("RESEND_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	adminID, err := getEnvInt64("ADMIN_ID")
	if err != nil {
		return nil, err
	}
	subCommChannelID, err := getEnvInt64("SUB_COMM_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	subPublicChannelID, err := getEnvInt64("SUB_PUBLIC_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	subResendChannelID, err := getEnvInt64("SUB_RESEND_CHANNEL_ID")
	if err != nil {
		return nil, err
	}

	resendIntervalMs, err := strconv.Atoi(getEnv("RESEND_INTERVAL_MS", "2000"))
	if err != nil || resendIntervalMs <= 0 {
		return nil, fmt.Errorf("invalid RESEND_INTERVAL_MS: %q", getEnv("RESEND_INTERVAL_MS", "2000"))
	}
	mediaGroupDelayMs, err := strconv.Atoi(getEnv("MEDIA_GROUP_DELAY_MS", "2000"))
	if err != nil || mediaGroupDelayMs <= 0 {
		return nil, fmt.Errorf("invalid MEDIA_GROUP_DELAY_MS: %q", getEnv("MEDIA_GROUP_DELAY_MS", "2000"))
	}

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Debug:              debug,
		Version:            getEnv("VERSION", "dev"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		MongoDBURI:         getEnv("MONGODB_URI", ""),
		MongoDBDatabase:    getEnv("MONGODB_DATABASE", ""),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),
		BotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		CommChannelID:      commChannelID,
		PublicChannelID:    publicChannelID,
		ResendChannelID:    resendChannelID,
		AdminID:            adminID,
		SubBotToken:        getEnv("SUB_TELEGRAM_BOT_TOKEN", ""),
		SubCommChannelID:   subCommChannelID,
		SubPublicChannelID: subPublicChannelID,
		SubResendChannelID: subResendChannelID,
		ResendInterval:     time.Duration(resendIntervalMs) * time.Millisecond,
		MediaGroupDelay:    time.Duration(mediaGroupDelayMs) * time.Millisecond,
	}

	// Basic validation for essential variables
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.CommChannelID == 0 {
		return nil, fmt.Errorf("COMM_CHANNEL_ID is required")
	}
	if cfg.PublicChannelID == 0 {
		return nil, fmt.Errorf("PUBLIC_CHANNEL_ID is required")
	}
	if cfg.AdminID == 0 {
		log.Println("Warning: ADMIN_ID is not set. Resend trigger disabled.")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MongoDBDatabase == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE is required")
	}
	if cfg.SubBotToken != "" && (cfg.SubCommChannelID == 0 || cfg.SubPublicChannelID == 0) {
		return nil, fmt.Errorf("SUB_COMM_CHANNEL_ID and SUB_PUBLIC_CHANNEL_ID are required when SUB_TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt64 parses an optional int64 environment variable; unset or
// empty yields 0.
func getEnvInt64(key string) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
