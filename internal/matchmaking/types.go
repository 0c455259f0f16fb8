package matchmaking

import (
	"time"

	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	defaultEntryTTL = 300 * time.Second
	defaultRoomTTL  = 3600 * time.Second

	// FallbackWait is how long a player waits before any opponent is accepted.
	FallbackWait  = 30 * time.Second
	candidateScan = 10
	maxCodeTries  = 64
	codeLength    = 6
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Entry is one waiting player.
type Entry struct {
	PlayerID   string
	Rating     int
	EnqueuedAt time.Time
}

// Pairing is a game created by a tick.
type Pairing struct {
	GameID      string
	WhiteID     string
	BlackID     string
	WhiteRating int
	BlackRating int
}

// roomRecord is stored as JSON under matchmaking:private_rooms:<code>.
type roomRecord struct {
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrInvalidPlayer   = chessdto.NewError(chessdto.KindValidation, "invalid_player", "player id is required")
	ErrInvalidRoomCode = chessdto.NewError(chessdto.KindValidation, "invalid_room_code", "room code must be 6 characters A-Z or 0-9")
	ErrAlreadyInGame   = chessdto.NewError(chessdto.KindConflict, "already_in_game", "player already has a game in progress")
	ErrSelfJoin        = chessdto.NewError(chessdto.KindConflict, "self_join", "cannot join your own room")
	ErrRoomNotFound    = chessdto.NewError(chessdto.KindNotFound, "room_not_found", "room not found or expired")
	ErrRoomTaken       = &chessdto.DomainError{Kind: chessdto.KindConflict, Code: "room_taken", Message: "room was joined concurrently", Retryable: true}
)

// Window returns the accepted rating distance after waiting w.
func Window(w time.Duration) int {
	switch {
	case w >= 20*time.Second:
		return 500
	case w >= 15*time.Second:
		return 400
	case w >= 10*time.Second:
		return 300
	case w >= 5*time.Second:
		return 200
	default:
		return 100
	}
}
