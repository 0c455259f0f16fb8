package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MatchmakingTick != 2*time.Second || cfg.DrawOfferTTL != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DatabaseURL != "memory" || cfg.MoveRateLimit != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("MATCHMAKING_TICK_MS", "500")
	t.Setenv("PRIVATE_ROOM_TTL_SEC", "60")
	t.Setenv("QUEUE_ENTRY_TTL_SEC", "bogus")
	t.Setenv("BOT_DEFAULT_DIFFICULTY", "Expert")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MatchmakingTick != 500*time.Millisecond {
		t.Fatalf("tick override ignored: %v", cfg.MatchmakingTick)
	}
	if cfg.PrivateRoomTTL != time.Minute {
		t.Fatalf("room ttl override ignored: %v", cfg.PrivateRoomTTL)
	}
	if cfg.QueueEntryTTL != 300*time.Second {
		t.Fatalf("invalid value should keep default: %v", cfg.QueueEntryTTL)
	}
	if cfg.BotDefaultLevel != "expert" {
		t.Fatalf("difficulty not normalised: %q", cfg.BotDefaultLevel)
	}
}

func TestLoadRequiresRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without REDIS_URL")
	}
}
