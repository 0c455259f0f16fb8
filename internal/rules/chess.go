package rules

import (
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-arena/internal/domain"
)

// gameState caches the replayed library game for a Position. It is never
// mutated after construction; transitions work on clones.
type gameState struct {
	game *nchess.Game
}

// ChessOracle implements Oracle on top of corentings/chess.
type ChessOracle struct{}

func NewChessOracle() *ChessOracle { return &ChessOracle{} }

func (o *ChessOracle) Initial() Position {
	g := nchess.NewGame()
	return Position{FEN: g.FEN(), Moves: []string{}, state: &gameState{game: g}}
}

func (o *ChessOracle) FromMoves(moves []string) (Position, error) {
	g, err := replay(moves)
	if err != nil {
		return Position{}, err
	}
	return Position{FEN: g.FEN(), Moves: append([]string{}, moves...), state: &gameState{game: g}}, nil
}

func (o *ChessOracle) LegalMoves(p Position) ([]string, error) {
	g, err := gameOf(p)
	if err != nil {
		return nil, err
	}
	valid := g.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, valid[i].String())
	}
	sort.Strings(out)
	return out, nil
}

func (o *ChessOracle) Apply(p Position, move string) (Applied, error) {
	raw := strings.TrimSpace(move)
	if raw == "" {
		return Applied{}, ErrIllegalMove
	}
	g, err := gameOf(p)
	if err != nil {
		return Applied{}, err
	}
	pos := g.Position()

	uci := strings.ToLower(raw)
	var san string
	if mv, derr := (nchess.UCINotation{}).Decode(pos, uci); derr == nil {
		if !isLegal(g, uci) {
			return Applied{}, ErrIllegalMove
		}
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
	} else {
		// SAN 입력 fallback
		probe := g.Clone()
		if err := probe.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return Applied{}, ErrIllegalMove
		}
		last := lastMove(probe)
		if last == nil {
			return Applied{}, ErrIllegalMove
		}
		uci = last.String()
		san = nchess.AlgebraicNotation{}.Encode(pos, last)
	}

	next, err := o.Advance(p, uci)
	if err != nil {
		return Applied{}, err
	}
	st, err := o.Status(next)
	if err != nil {
		return Applied{}, err
	}
	return Applied{Position: next, UCI: uci, SAN: san, Status: st}, nil
}

func (o *ChessOracle) Advance(p Position, uci string) (Position, error) {
	g, err := gameOf(p)
	if err != nil {
		return Position{}, err
	}
	next := g.Clone()
	if err := next.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Position{}, ErrIllegalMove
	}
	moves := make([]string, 0, len(p.Moves)+1)
	moves = append(moves, p.Moves...)
	moves = append(moves, uci)
	return Position{FEN: next.FEN(), Moves: moves, state: &gameState{game: next}}, nil
}

func (o *ChessOracle) Status(p Position) (Status, error) {
	g, err := gameOf(p)
	if err != nil {
		return Status{}, err
	}
	st := Status{Turn: colorFrom(g.Position().Turn())}
	if last := lastMove(g); last != nil {
		st.Check = last.HasTag(nchess.Check)
	}
	switch g.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		if g.Method() == nchess.Checkmate {
			st.Checkmate = true
			st.Method = methodName(g.Method())
		}
	case nchess.Draw:
		st.Draw = true
		st.Stalemate = g.Method() == nchess.Stalemate
		st.Method = methodName(g.Method())
	default:
		// 3회 반복과 50수 규칙은 라이브러리에서 청구형이라 자동 무승부로 처리
		for _, m := range g.EligibleDraws() {
			if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
				st.Draw = true
				st.Method = methodName(m)
				break
			}
		}
	}
	return st, nil
}

func (o *ChessOracle) SideToMove(p Position) (domain.Color, error) {
	g, err := gameOf(p)
	if err != nil {
		return "", err
	}
	return colorFrom(g.Position().Turn()), nil
}

func (o *ChessOracle) Pieces(p Position) (map[string]Piece, error) {
	g, err := gameOf(p)
	if err != nil {
		return nil, err
	}
	sm := g.Position().Board().SquareMap()
	out := make(map[string]Piece, len(sm))
	for sq, pc := range sm {
		kind := kindFrom(pc.Type())
		if kind == 0 {
			continue
		}
		out[sq.String()] = Piece{Kind: kind, Color: colorFrom(pc.Color())}
	}
	return out, nil
}

func gameOf(p Position) (*nchess.Game, error) {
	if p.state != nil && p.state.game != nil {
		return p.state.game, nil
	}
	return replay(p.Moves)
}

// replay always starts from the initial position; FEN is kept for display only.
func replay(moves []string) (*nchess.Game, error) {
	g := nchess.NewGame()
	for i, mv := range moves {
		if err := g.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay ply %d (%s): %w", i+1, mv, err)
		}
	}
	return g, nil
}

func isLegal(g *nchess.Game, uci string) bool {
	valid := g.ValidMoves()
	for i := range valid {
		if valid[i].String() == uci {
			return true
		}
	}
	return false
}

func lastMove(g *nchess.Game) *nchess.Move {
	moves := g.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func colorFrom(c nchess.Color) domain.Color {
	if c == nchess.White {
		return domain.White
	}
	return domain.Black
}

func kindFrom(t nchess.PieceType) PieceKind {
	switch t {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	case nchess.King:
		return King
	default:
		return 0
	}
}

func methodName(m nchess.Method) string {
	return strings.ToLower(m.String())
}
