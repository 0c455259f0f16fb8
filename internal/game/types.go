package game

import (
	"context"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	EventMatchFound         = "match_found"
	EventMoveMade           = "move_made"
	EventGameOver           = "game_over"
	EventDrawOffered        = "draw_offered"
	EventPlayerConnected    = "player_connected"
	EventPlayerDisconnected = "player_disconnected"
	EventGameState          = "game_state"
)

const (
	MethodCheckmate   = "checkmate"
	MethodResignation = "resignation"
	MethodAgreement   = "agreement"
)

// Broadcaster fans events out to connected players and outbound sinks.
type Broadcaster interface {
	Publish(ctx context.Context, ev chessdto.Event)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(context.Context, chessdto.Event) {}

type DrawOffer struct {
	GameID    string       `json:"gameId"`
	OfferedBy string       `json:"offeredBy"`
	Color     domain.Color `json:"color"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (o *DrawOffer) live(now time.Time) bool {
	return o != nil && now.Before(o.ExpiresAt)
}

// CreateOptions carries seat-independent metadata for a new game.
type CreateOptions struct {
	IsPrivate bool
	RoomCode  string
}

type GameOverPayload struct {
	State   chessdto.GameState      `json:"state"`
	Winner  string                  `json:"winner,omitempty"`
	Reason  string                  `json:"reason"`
	Ratings []chessdto.PlayerRating `json:"ratings,omitempty"`
}
