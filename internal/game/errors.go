package game

import (
	"github.com/park285/chess-arena/pkg/chessdto"
)

var (
	ErrInvalidMove       = chessdto.NewError(chessdto.KindValidation, "invalid_move", "invalid move")
	ErrNotYourTurn       = chessdto.NewError(chessdto.KindValidation, "not_your_turn", "not your turn")
	ErrNotParticipant    = chessdto.NewError(chessdto.KindValidation, "not_participant", "player is not seated in this game")
	ErrInvalidPlayers    = chessdto.NewError(chessdto.KindValidation, "invalid_players", "a game needs two distinct players")
	ErrInvalidDifficulty = chessdto.NewError(chessdto.KindValidation, "invalid_difficulty", "unknown bot difficulty")
	ErrInvalidColor      = chessdto.NewError(chessdto.KindValidation, "invalid_color", "color must be white or black")
	ErrOwnDrawOffer      = chessdto.NewError(chessdto.KindValidation, "own_draw_offer", "cannot accept your own draw offer")
	ErrDrawUnavailable   = chessdto.NewError(chessdto.KindValidation, "draw_unavailable", "draw offers are not available against the bot")
	ErrGameNotFound      = chessdto.NewError(chessdto.KindNotFound, "game_not_found", "game not found")
	ErrGameNotInProgress = chessdto.NewError(chessdto.KindConflict, "game_not_in_progress", "game is not in progress")
	ErrNoActiveDrawOffer = chessdto.NewError(chessdto.KindConflict, "no_active_draw_offer", "no active draw offer")
	ErrStaleSession      = &chessdto.DomainError{Kind: chessdto.KindConflict, Code: "stale_session", Message: "game changed concurrently, retry", Retryable: true}
)

// recordable lists the errors that may be replayed for a move token.
var recordable = map[string]*chessdto.DomainError{}

func init() {
	for _, e := range []*chessdto.DomainError{
		ErrInvalidMove, ErrNotYourTurn, ErrNotParticipant, ErrGameNotFound, ErrGameNotInProgress,
	} {
		recordable[e.Code] = e
	}
}

func errorFromCode(code string) *chessdto.DomainError {
	if e, ok := recordable[code]; ok {
		return e
	}
	return chessdto.NewError(chessdto.KindValidation, code, code)
}
