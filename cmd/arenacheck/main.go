// Command arenacheck probes a running arena: GET /healthz over HTTP and a
// websocket handshake that joins a game.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-arena/internal/wsclient"
	"github.com/park285/chess-arena/pkg/chessdto"
)

func main() {
	baseURL := strings.TrimRight(os.Getenv("ARENA_BASE_URL"), "/")
	wsURL := os.Getenv("ARENA_WS_URL")
	playerID := os.Getenv("ARENA_PLAYER_ID")
	gameID := os.Getenv("ARENA_GAME_ID")

	if baseURL == "" {
		log.Fatal("ARENA_BASE_URL is required")
	}
	if playerID == "" {
		playerID = "arenacheck"
	}

	status, body, err := fasthttp.GetTimeout(nil, baseURL+"/healthz", 5*time.Second)
	if err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz status=%d body=%s", status, strings.TrimSpace(string(body)))
	}

	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	}
	ws := wsclient.New(wsURL, 3, time.Second)
	ws.SetHeaderProvider(func() map[string]string { return map[string]string{"X-Player-Id": playerID} })
	ws.OnStateChange(func(s wsclient.State) { log.Printf("WS state: %s", s) })
	ws.OnEvent(func(env chessdto.Envelope) {
		fmt.Printf("WS event type=%s game=%s payload=%s\n", env.Type, env.GameID, string(env.Payload))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	if gameID != "" {
		if err := ws.Send(cctx, "join_game", gameID, nil); err != nil {
			log.Printf("join_game error: %v", err)
		}
	}

	// 잠시 이벤트 관찰
	t := time.NewTimer(5 * time.Second)
	<-t.C
	_ = ws.Close(context.Background())
}
