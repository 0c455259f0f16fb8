package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arenabuilder"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := arenabuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("arena_init_failed", zap.Error(err))
	}
	defer deps.Close()

	// 매칭 틱
	go deps.Matchmaking.Run(ctx, cfg.MatchmakingTick)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deps.HTTP,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("http_serve_failed", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if hub := deps.Hub; hub != nil && hub.Connections() > 0 {
		logger.Info("ws_open_at_shutdown", zap.Int("connections", hub.Connections()))
	}
}
