package chessdto

import "encoding/json"

type CreateBotGameRequest struct {
	Difficulty  string `json:"difficulty"`
	PlayerColor string `json:"playerColor"`
}

type MakeMoveRequest struct {
	GameID    string `json:"gameId,omitempty"`
	Move      string `json:"move"`
	Promotion string `json:"promotion,omitempty"`
	MoveID    string `json:"moveId,omitempty"`
}

type ErrorResponse struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Envelope is the websocket frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	GameID  string          `json:"gameId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is a broadcast produced by the core. To lists players that must
// receive it even when they are not subscribed to the game.
type Event struct {
	Type    string   `json:"type"`
	GameID  string   `json:"gameId"`
	Payload any      `json:"payload,omitempty"`
	To      []string `json:"-"`
}
