package chessdto

import "time"

type Move struct {
	MoveNumber int       `json:"moveNumber"`
	PlayerID   string    `json:"playerId"`
	Color      string    `json:"color"`
	SAN        string    `json:"san"`
	UCI        string    `json:"uci"`
	FEN        string    `json:"fen"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MoveResult summarises one accepted ply.
type MoveResult struct {
	Move  Move      `json:"move"`
	State GameState `json:"state"`
	Check bool      `json:"check"`
}
