package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	EventsWebhookURL string
	MessagesDir      string

	MatchmakingTick  time.Duration
	QueueEntryTTL    time.Duration
	PrivateRoomTTL   time.Duration
	DrawOfferTTL     time.Duration
	SessionCacheTTL  time.Duration
	LeaderboardTTL   time.Duration
	MoveRateLimit    int
	MoveRateWindow   time.Duration
	BotDefaultLevel  string
	ShutdownDeadline time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*AppConfig, error) {
	// .env는 선택 사항
	_ = godotenv.Load()

	cfg := &AppConfig{
		HTTPAddr:         ":8080",
		DatabaseURL:      "memory",
		MatchmakingTick:  2 * time.Second,
		QueueEntryTTL:    300 * time.Second,
		PrivateRoomTTL:   3600 * time.Second,
		DrawOfferTTL:     30 * time.Second,
		SessionCacheTTL:  time.Hour,
		LeaderboardTTL:   60 * time.Second,
		MoveRateLimit:    5,
		MoveRateWindow:   10 * time.Second,
		BotDefaultLevel:  "medium",
		ShutdownDeadline: 10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.EventsWebhookURL = strings.TrimSpace(os.Getenv("EVENTS_WEBHOOK_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("MATCHMAKING_TICK_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchmakingTick = time.Duration(n) * time.Millisecond
		}
	}
	cfg.QueueEntryTTL = secondsEnv("QUEUE_ENTRY_TTL_SEC", cfg.QueueEntryTTL)
	cfg.PrivateRoomTTL = secondsEnv("PRIVATE_ROOM_TTL_SEC", cfg.PrivateRoomTTL)
	cfg.DrawOfferTTL = secondsEnv("DRAW_OFFER_TTL_SEC", cfg.DrawOfferTTL)
	cfg.SessionCacheTTL = secondsEnv("SESSION_CACHE_TTL_SEC", cfg.SessionCacheTTL)
	cfg.LeaderboardTTL = secondsEnv("LEADERBOARD_CACHE_TTL_SEC", cfg.LeaderboardTTL)
	cfg.MoveRateWindow = secondsEnv("MOVE_RATE_WINDOW_SEC", cfg.MoveRateWindow)
	cfg.ShutdownDeadline = secondsEnv("SHUTDOWN_DEADLINE_SEC", cfg.ShutdownDeadline)
	if v := strings.TrimSpace(os.Getenv("MOVE_RATE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MoveRateLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_DEFAULT_DIFFICULTY")); v != "" {
		cfg.BotDefaultLevel = strings.ToLower(v)
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func secondsEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
