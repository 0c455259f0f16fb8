// Package arenabuilder wires the arena components from configuration.
package arenabuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/bot"
	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/egress"
	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/httpapi"
	"github.com/park285/chess-arena/internal/leaderboard"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/realtime"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/internal/store"
)

type Deps struct {
	Redis       *redis.Client
	Store       store.Repository
	Games       *game.Manager
	Matchmaking *matchmaking.Manager
	Leaderboard *leaderboard.Service
	Hub         *realtime.Hub
	Webhook     *egress.Webhook
	HTTP        *httpapi.Server
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repo, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	d := &Deps{Redis: rdb, Store: repo}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	level, err := bot.ParseDifficulty(cfg.BotDefaultLevel, bot.Medium)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("BOT_DEFAULT_DIFFICULTY: %w", err)
	}

	d.Hub = realtime.NewHub(catalog, realtime.Config{
		MoveLimit:  cfg.MoveRateLimit,
		MoveWindow: cfg.MoveRateWindow,
	}, logger.Named("ws"))

	sinks := []egress.Sink{d.Hub}
	if u := strings.TrimSpace(cfg.EventsWebhookURL); u != "" {
		d.Webhook = egress.NewWebhook(egress.NewClient(u), 256, false, logger.Named("webhook"))
		sinks = append(sinks, d.Webhook)
	}
	events := egress.NewFanout(sinks...)

	oracle := rules.NewChessOracle()
	d.Games, err = game.NewManager(game.Deps{
		Store:  repo,
		Oracle: oracle,
		Bot:    bot.NewEngine(oracle),
		Cache:  game.NewCache(rdb, cfg.SessionCacheTTL),
		Events: events,
		Logger: logger.Named("game"),
	}, game.Config{
		DrawOfferTTL:      cfg.DrawOfferTTL,
		DefaultDifficulty: level,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Hub.Attach(d.Games)

	d.Matchmaking, err = matchmaking.NewManager(rdb, d.Games, repo, events, matchmaking.Config{
		EntryTTL: cfg.QueueEntryTTL,
		RoomTTL:  cfg.PrivateRoomTTL,
	}, matchmaking.WithLogger(logger.Named("mm")))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Leaderboard, err = leaderboard.NewService(repo, rdb, cfg.LeaderboardTTL, logger.Named("leaderboard"))
	if err != nil {
		d.Close()
		return nil, err
	}

	d.HTTP = httpapi.New(httpapi.Deps{
		Games:       d.Games,
		Matchmaking: d.Matchmaking,
		Leaderboard: d.Leaderboard,
		Realtime:    d.Hub,
		Catalog:     catalog,
		Logger:      logger.Named("http"),
	})
	return d, nil
}

// Close releases everything New opened, in reverse order.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Games != nil {
		d.Games.Close()
	}
	if d.Webhook != nil {
		d.Webhook.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
