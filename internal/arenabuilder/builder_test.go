package arenabuilder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-arena/internal/config"
)

func testConfig(redisURL string) *config.AppConfig {
	return &config.AppConfig{
		RedisURL:        redisURL,
		DatabaseURL:     "memory",
		QueueEntryTTL:   300 * time.Second,
		PrivateRoomTTL:  time.Hour,
		DrawOfferTTL:    30 * time.Second,
		SessionCacheTTL: time.Hour,
		LeaderboardTTL:  time.Minute,
		MoveRateLimit:   5,
		MoveRateWindow:  10 * time.Second,
		BotDefaultLevel: "hard",
	}
}

func TestNewWiresServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	d, err := New(context.Background(), testConfig("redis://"+mr.Addr()+"/0"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	rec := httptest.NewRecorder()
	d.HTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if d.Webhook != nil {
		t.Fatalf("webhook should be off without EVENTS_WEBHOOK_URL")
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil config should fail")
	}
	if _, err := New(context.Background(), testConfig("not-a-url"), nil); err == nil {
		t.Fatalf("bad redis url should fail")
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cfg := testConfig("redis://" + mr.Addr())
	cfg.BotDefaultLevel = "grandmaster"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("unknown difficulty should fail")
	}
	cfg = testConfig("redis://" + mr.Addr())
	cfg.DatabaseURL = "mysql://nope"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("unsupported store should fail")
	}
}
