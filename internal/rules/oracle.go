// Package rules adapts a chess library into the position oracle the game
// engine consumes. Positions are immutable values; every transition returns
// a new Position.
package rules

import (
	"errors"

	"github.com/park285/chess-arena/internal/domain"
)

var ErrIllegalMove = errors.New("illegal move")

// Position is the replayable board state: the UCI history from the initial
// position plus the derived FEN.
type Position struct {
	FEN   string   `json:"fen"`
	Moves []string `json:"moves"`

	state *gameState
}

// Ply returns the number of half-moves played.
func (p Position) Ply() int { return len(p.Moves) }

type Status struct {
	Turn      domain.Color
	Check     bool
	Checkmate bool
	Stalemate bool
	Draw      bool
	Method    string
}

// Terminal reports whether the game cannot continue.
func (s Status) Terminal() bool { return s.Checkmate || s.Stalemate || s.Draw }

// Winner returns the side that delivered mate.
func (s Status) Winner() (domain.Color, bool) {
	if !s.Checkmate {
		return "", false
	}
	return s.Turn.Opponent(), true
}

type PieceKind byte

const (
	Pawn PieceKind = iota + 1
	Knight
	Bishop
	Rook
	Queen
	King
)

type Piece struct {
	Kind  PieceKind
	Color domain.Color
}

// Applied is the outcome of a validated move.
type Applied struct {
	Position Position
	UCI      string
	SAN      string
	Status   Status
}

// Oracle is the rules black box used by the session engine and the bot.
type Oracle interface {
	Initial() Position
	FromMoves(moves []string) (Position, error)
	LegalMoves(p Position) ([]string, error)
	// Apply accepts UCI (preferred) or SAN and fails with ErrIllegalMove.
	Apply(p Position, move string) (Applied, error)
	// Advance is Apply for trusted UCI input without notation bookkeeping.
	Advance(p Position, uci string) (Position, error)
	Status(p Position) (Status, error)
	SideToMove(p Position) (domain.Color, error)
	Pieces(p Position) (map[string]Piece, error)
	// Node is the cheap tree-search view of p.
	Node(p Position) (*Node, error)
}
