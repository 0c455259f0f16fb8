package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	CmdJoinGame   = "join_game"
	CmdMakeMove   = "make_move"
	CmdResign     = "resign"
	CmdOfferDraw  = "offer_draw"
	CmdAcceptDraw = "accept_draw"

	// EventError answers a failed command on the issuing connection only.
	EventError = "error"
)

var (
	ErrRateLimited = chessdto.NewError(chessdto.KindValidation, "rate_limited", "too many moves")
	ErrBadRequest  = chessdto.NewError(chessdto.KindValidation, "bad_request", "malformed command")
)

type client struct {
	id       string
	playerID string
	ws       *websocket.Conn
	send     chan []byte
	limiter  *rate.Limiter
	hub      *Hub

	// games is guarded by hub.mu
	games map[string]struct{}

	closeOnce sync.Once
	sendMu    sync.Mutex
	closed    bool
}

func (c *client) enqueue(frame []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("ws_send_dropped", zap.String("conn_id", c.id), zap.String("player_id", c.playerID))
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}

// writeLoop drains the send queue and pings an idle peer.
func (c *client) writeLoop(ctx context.Context) {
	t := time.NewTicker(c.hub.cfg.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				_ = c.ws.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.ws.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = c.ws.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		var env chessdto.Envelope
		if err := wsjson.Read(ctx, c.ws, &env); err != nil {
			var ce websocket.CloseError
			if !errors.As(err, &ce) && ctx.Err() == nil {
				c.hub.logger.Debug("ws_read_failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.handle(ctx, env)
	}
}

func (c *client) handle(ctx context.Context, env chessdto.Envelope) {
	var req chessdto.MakeMoveRequest
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			c.fail(env.GameID, ErrBadRequest)
			return
		}
	}
	gameID := strings.TrimSpace(env.GameID)
	if gameID == "" {
		gameID = strings.TrimSpace(req.GameID)
	}
	if gameID == "" {
		c.fail("", ErrBadRequest)
		return
	}

	h := c.hub
	var err error
	switch env.Type {
	case CmdJoinGame:
		err = c.join(ctx, gameID)
	case CmdMakeMove:
		if !c.limiter.Allow() {
			err = ErrRateLimited
			break
		}
		h.subscribe(c, gameID)
		var res *chessdto.MoveResult
		var replay bool
		res, replay, err = h.games.SubmitMove(ctx, gameID, c.playerID, req.Move, req.Promotion, req.MoveID)
		if err == nil && replay {
			// 재전송 결과는 요청한 연결에만
			c.reply(game.EventMoveMade, gameID, res)
		}
	case CmdResign:
		_, err = h.games.Resign(ctx, gameID, c.playerID)
	case CmdOfferDraw:
		_, err = h.games.OfferDraw(ctx, gameID, c.playerID)
	case CmdAcceptDraw:
		_, err = h.games.AcceptDraw(ctx, gameID, c.playerID)
	default:
		err = ErrBadRequest
	}
	if err != nil {
		c.fail(gameID, err)
	}
}

// join sends the authoritative state to this connection and tells the other
// watchers that the player is back.
func (c *client) join(ctx context.Context, gameID string) error {
	st, err := c.hub.games.State(ctx, gameID)
	if err != nil {
		return err
	}
	first := c.hub.subscribe(c, gameID)
	c.reply(game.EventGameState, gameID, st)
	if first {
		c.hub.publishExcept(c.playerID, chessdto.Event{
			Type:    game.EventPlayerConnected,
			GameID:  gameID,
			Payload: presence{PlayerID: c.playerID, GameID: gameID},
		})
	}
	return nil
}

func (c *client) reply(typ, gameID string, payload any) {
	frame, err := encode(typ, gameID, payload)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *client) fail(gameID string, err error) {
	var de *chessdto.DomainError
	if !errors.As(err, &de) {
		de = chessdto.Upstream(err).(*chessdto.DomainError)
	}
	if de.Kind == chessdto.KindUpstream {
		c.hub.logger.Warn("ws_command_failed", zap.String("player_id", c.playerID), zap.String("game_id", gameID), zap.Error(err))
	}
	c.reply(EventError, gameID, chessdto.ErrorResponse{
		Kind:      string(de.Kind),
		Code:      de.Code,
		Message:   c.hub.catalog.ErrorText(de.Code, de.Message),
		Retryable: de.Retryable,
	})
}
