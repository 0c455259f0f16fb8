package bot

import (
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rules"
)

const (
	MateScore  = 10000.0
	CheckScore = 50.0
)

var pieceValues = map[rules.PieceKind]float64{
	rules.Pawn:   1,
	rules.Knight: 3,
	rules.Bishop: 3,
	rules.Rook:   5,
	rules.Queen:  9,
	rules.King:   1000,
}

var centerSquares = map[string]bool{"d4": true, "d5": true, "e4": true, "e5": true}

// 미개발 기물 홈 스퀘어
var homeSquares = map[string]struct {
	kind  rules.PieceKind
	color domain.Color
}{
	"b1": {rules.Knight, domain.White},
	"g1": {rules.Knight, domain.White},
	"b8": {rules.Knight, domain.Black},
	"g8": {rules.Knight, domain.Black},
	"c1": {rules.Bishop, domain.White},
	"f1": {rules.Bishop, domain.White},
	"c8": {rules.Bishop, domain.Black},
	"f8": {rules.Bishop, domain.Black},
}

// Evaluate scores p from White's point of view.
func Evaluate(o rules.Oracle, p rules.Position) (float64, error) {
	n, err := o.Node(p)
	if err != nil {
		return 0, err
	}
	return staticScore(n, n.Status()), nil
}

// staticScore is the leaf evaluation: game end first, then the check
// penalty against the side to move, then material.
func staticScore(n *rules.Node, st rules.Status) float64 {
	if score, done := terminalScore(st); done {
		return score
	}
	if st.Check {
		return -sideSign(st.Turn) * CheckScore
	}
	score := 0.0
	n.EachPiece(func(sq string, pc rules.Piece) {
		score += pieceScore(sq, pc)
	})
	return score
}

// terminalScore only stops on positions where the game is over. A check
// is scored at the leaf and never ends the search.
func terminalScore(st rules.Status) (float64, bool) {
	switch {
	case st.Checkmate:
		return -sideSign(st.Turn) * MateScore, true
	case st.Draw || st.Stalemate:
		return 0, true
	}
	return 0, false
}

// pieceScore is the material value with the centre bonus and the
// undeveloped-minor penalty, signed for White.
func pieceScore(sq string, pc rules.Piece) float64 {
	v := pieceValues[pc.Kind]
	if centerSquares[sq] {
		v += 0.1 * pieceValues[pc.Kind]
	}
	if h, ok := homeSquares[sq]; ok && h.kind == pc.Kind && h.color == pc.Color {
		v -= 0.5
	}
	return sideSign(pc.Color) * v
}

func sideSign(c domain.Color) float64 {
	if c == domain.White {
		return 1
	}
	return -1
}
