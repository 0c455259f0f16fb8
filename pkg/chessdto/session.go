package chessdto

import "time"

// GameState is the wire form of a game session.
type GameState struct {
	GameID        string     `json:"gameId"`
	WhitePlayerID string     `json:"whitePlayerId"`
	BlackPlayerID string     `json:"blackPlayerId"`
	Status        string     `json:"status"`
	Result        string     `json:"result,omitempty"`
	ResultMethod  string     `json:"resultMethod,omitempty"`
	FEN           string     `json:"fen"`
	Turn          string     `json:"turn"`
	MovesSAN      []string   `json:"movesSan"`
	MovesUCI      []string   `json:"movesUci"`
	MoveCount     int        `json:"moveCount"`
	IsBotGame     bool       `json:"isBotGame"`
	BotColor      string     `json:"botColor,omitempty"`
	BotDifficulty string     `json:"botDifficulty,omitempty"`
	IsPrivate     bool       `json:"isPrivate"`
	RoomCode      string     `json:"roomCode,omitempty"`
	DrawOfferBy   string     `json:"drawOfferBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

type QueueStatus struct {
	InQueue     bool   `json:"inQueue"`
	QueueSize   int64  `json:"queueSize"`
	WaitSeconds *int64 `json:"waitTime,omitempty"`
}

type PrivateRoom struct {
	Code      string    `json:"code"`
	OwnerID   string    `json:"ownerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PlayerRating struct {
	PlayerID    string    `json:"playerId"`
	Rating      int       `json:"rating"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MatchFound is sent to both players when a queue or room pairing starts a game.
type MatchFound struct {
	GameID        string `json:"gameId"`
	WhitePlayerID string `json:"whitePlayerId"`
	BlackPlayerID string `json:"blackPlayerId"`
	WhiteRating   int    `json:"whiteRating,omitempty"`
	BlackRating   int    `json:"blackRating,omitempty"`
	IsPrivate     bool   `json:"isPrivate"`
	RoomCode      string `json:"roomCode,omitempty"`
}
