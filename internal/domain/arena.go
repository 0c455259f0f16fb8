package domain

import "time"

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusCompleted  GameStatus = "completed"
	StatusAbandoned  GameStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s GameStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

type GameResult string

const (
	ResultNone     GameResult = ""
	ResultWhiteWin GameResult = "white_win"
	ResultBlackWin GameResult = "black_win"
	ResultDraw     GameResult = "draw"
)

// WinResult maps the winning color to a result.
func WinResult(winner Color) GameResult {
	if winner == White {
		return ResultWhiteWin
	}
	return ResultBlackWin
}

// BotPlayerID is the player id recorded for moves played by the engine.
const BotPlayerID = "bot"

type Game struct {
	ID            string     `json:"id"`
	WhitePlayerID string     `json:"white_player_id"`
	BlackPlayerID string     `json:"black_player_id"`
	Status        GameStatus `json:"status"`
	Result        GameResult `json:"result,omitempty"`
	ResultMethod  string     `json:"result_method,omitempty"`
	FEN           string     `json:"fen"`
	IsPrivate     bool       `json:"is_private"`
	RoomCode      string     `json:"room_code,omitempty"`
	IsBotGame     bool       `json:"is_bot_game"`
	BotColor      Color      `json:"bot_color,omitempty"`
	BotDifficulty string     `json:"bot_difficulty,omitempty"`
	PGN           string     `json:"pgn,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// PlayerColor returns the seat held by playerID.
func (g *Game) PlayerColor(playerID string) (Color, bool) {
	if g == nil || playerID == "" {
		return "", false
	}
	if g.IsBotGame && playerID == BotPlayerID {
		return g.BotColor, true
	}
	switch playerID {
	case g.WhitePlayerID:
		return White, true
	case g.BlackPlayerID:
		return Black, true
	}
	return "", false
}

// PlayerAt returns the player id seated at color.
func (g *Game) PlayerAt(c Color) string {
	if g.IsBotGame && c == g.BotColor {
		return BotPlayerID
	}
	if c == White {
		return g.WhitePlayerID
	}
	return g.BlackPlayerID
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cp := *g
	if g.EndedAt != nil {
		t := *g.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

type Move struct {
	GameID     string    `json:"game_id"`
	PlayerID   string    `json:"player_id"`
	Color      Color     `json:"color"`
	MoveNumber int       `json:"move_number"`
	SAN        string    `json:"san"`
	UCI        string    `json:"uci"`
	FEN        string    `json:"fen"`
	CreatedAt  time.Time `json:"created_at"`
}

type RatingRecord struct {
	PlayerID    string
	Rating      int
	GamesPlayed int
	GamesWon    int
	UpdatedAt   time.Time
}

// RatingChange is what one finished game adds to a player's record. Stores
// apply it as increments so two games ending together both count.
type RatingChange struct {
	PlayerID string
	Delta    int
	Won      bool
	At       time.Time
}
