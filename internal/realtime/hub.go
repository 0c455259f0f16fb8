// Package realtime is the websocket gateway: it routes core events to
// connected players and turns client commands into game manager calls.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// PlayerHeader carries the authenticated player id, set by the gateway in
// front of this service.
const PlayerHeader = "X-Player-Id"

// Games is the subset of the game manager driven over websocket.
type Games interface {
	State(ctx context.Context, gameID string) (*chessdto.GameState, error)
	SubmitMove(ctx context.Context, gameID, playerID, notation, promotion, moveID string) (*chessdto.MoveResult, bool, error)
	Resign(ctx context.Context, gameID, playerID string) (*domain.Game, error)
	OfferDraw(ctx context.Context, gameID, playerID string) (*game.DrawOffer, error)
	AcceptDraw(ctx context.Context, gameID, playerID string) (*domain.Game, error)
}

type Config struct {
	MoveLimit    int
	MoveWindow   time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

type Hub struct {
	games   Games
	catalog *msgcat.Catalog
	logger  *zap.Logger
	cfg     Config

	mu       sync.Mutex
	conns    map[*client]struct{}
	byPlayer map[string]map[*client]struct{}
	byGame   map[string]map[*client]struct{}
}

// NewHub returns a hub without a game backend; call Attach before serving.
// The game manager publishes into the hub, so the two are wired in two steps.
func NewHub(catalog *msgcat.Catalog, cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MoveLimit <= 0 {
		cfg.MoveLimit = 5
	}
	if cfg.MoveWindow <= 0 {
		cfg.MoveWindow = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Hub{
		catalog:  catalog,
		logger:   logger,
		cfg:      cfg,
		conns:    make(map[*client]struct{}),
		byPlayer: make(map[string]map[*client]struct{}),
		byGame:   make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) Attach(games Games) {
	h.mu.Lock()
	h.games = games
	h.mu.Unlock()
}

// Publish delivers ev to everyone watching the game plus the players in
// ev.To. Slow connections drop frames instead of blocking the caller.
func (h *Hub) Publish(_ context.Context, ev chessdto.Event) {
	frame, err := encode(ev.Type, ev.GameID, ev.Payload)
	if err != nil {
		h.logger.Warn("ws_encode_failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	targets := make(map[*client]struct{})
	for c := range h.byGame[ev.GameID] {
		targets[c] = struct{}{}
	}
	for _, p := range ev.To {
		for c := range h.byPlayer[p] {
			targets[c] = struct{}{}
		}
	}
	h.mu.Unlock()
	for c := range targets {
		c.enqueue(frame)
	}
}

// ServeHTTP upgrades the request and serves one player connection until it
// closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if playerID == "" {
		playerID = strings.TrimSpace(r.URL.Query().Get("playerId"))
	}
	if playerID == "" || playerID == domain.BotPlayerID {
		http.Error(w, "missing player id", http.StatusUnauthorized)
		return
	}
	h.mu.Lock()
	ready := h.games != nil
	h.mu.Unlock()
	if !ready {
		http.Error(w, "game backend not attached", http.StatusServiceUnavailable)
		return
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("ws_accept_failed", zap.Error(err))
		return
	}

	c := &client{
		id:       uuid.NewString(),
		playerID: playerID,
		ws:       ws,
		send:     make(chan []byte, h.cfg.SendBuffer),
		limiter:  rate.NewLimiter(rate.Every(h.cfg.MoveWindow/time.Duration(h.cfg.MoveLimit)), h.cfg.MoveLimit),
		games:    make(map[string]struct{}),
		hub:      h,
	}
	h.register(c)
	h.logger.Info("ws_connected", zap.String("conn_id", c.id), zap.String("player_id", playerID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go c.writeLoop(ctx)
	c.readLoop(ctx)

	h.unregister(c)
	_ = ws.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("ws_disconnected", zap.String("conn_id", c.id), zap.String("player_id", playerID))
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
	set := h.byPlayer[c.playerID]
	if set == nil {
		set = make(map[*client]struct{})
		h.byPlayer[c.playerID] = set
	}
	set[c] = struct{}{}
}

// subscribe reports whether this is the player's first connection on the game.
func (h *Hub) subscribe(c *client, gameID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.games[gameID]; ok {
		return false
	}
	first := !h.watchingLocked(c.playerID, gameID)
	c.games[gameID] = struct{}{}
	set := h.byGame[gameID]
	if set == nil {
		set = make(map[*client]struct{})
		h.byGame[gameID] = set
	}
	set[c] = struct{}{}
	return first
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.conns, c)
	if set := h.byPlayer[c.playerID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byPlayer, c.playerID)
		}
	}
	var gone []string
	for gameID := range c.games {
		if set := h.byGame[gameID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byGame, gameID)
			}
		}
		if !h.watchingLocked(c.playerID, gameID) {
			gone = append(gone, gameID)
		}
	}
	h.mu.Unlock()
	c.close()

	for _, gameID := range gone {
		h.Publish(context.Background(), chessdto.Event{
			Type:    game.EventPlayerDisconnected,
			GameID:  gameID,
			Payload: presence{PlayerID: c.playerID, GameID: gameID},
		})
	}
}

func (h *Hub) watchingLocked(playerID, gameID string) bool {
	for other := range h.byGame[gameID] {
		if other.playerID == playerID {
			return true
		}
	}
	return false
}

// Connections returns the number of open sockets.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

type presence struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`
}

func encode(typ, gameID string, payload any) ([]byte, error) {
	env := chessdto.Envelope{Type: typ, GameID: gameID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// publishExcept sends ev to the game's watchers other than playerID.
func (h *Hub) publishExcept(playerID string, ev chessdto.Event) {
	frame, err := encode(ev.Type, ev.GameID, ev.Payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	var targets []*client
	for c := range h.byGame[ev.GameID] {
		if c.playerID != playerID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		c.enqueue(frame)
	}
}
