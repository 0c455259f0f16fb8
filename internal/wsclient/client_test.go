package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/pkg/chessdto"
)

// echoServer answers every frame with a "game_state" frame for the same game
// and records the handshake player header.
func echoServer(t *testing.T, seen chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("X-Player-Id")
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var env chessdto.Envelope
			if err := wsjson.Read(r.Context(), conn, &env); err != nil {
				return
			}
			if err := wsjson.Write(r.Context(), conn, chessdto.Envelope{Type: "game_state", GameID: env.GameID}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendAndReceive(t *testing.T) {
	seen := make(chan string, 1)
	srv := echoServer(t, seen)

	c := New("ws"+strings.TrimPrefix(srv.URL, "http"), 0, 0)
	c.SetHeaderProvider(func() map[string]string { return map[string]string{"X-Player-Id": "alice", "": "x"} })

	var (
		mu     sync.Mutex
		states []State
	)
	c.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	got := make(chan chessdto.Envelope, 1)
	c.OnEvent(func(env chessdto.Envelope) { got <- env })

	if err := c.Send(context.Background(), "join_game", "g1", nil); err != ErrNotConnected {
		t.Fatalf("send before connect: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if h := <-seen; h != "alice" {
		t.Fatalf("handshake header = %q", h)
	}
	if err := c.Send(context.Background(), "join_game", "g1", map[string]string{"gameId": "g1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case env := <-got:
		if env.Type != "game_state" || env.GameID != "g1" {
			t.Fatalf("unexpected frame: %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state after close: %s", c.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Fatalf("state transitions: %v", states)
	}
}

func TestConnectFailureWithoutRetries(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws", 0, 0)
	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %s", c.State())
	}
}
