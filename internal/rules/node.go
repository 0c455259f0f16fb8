package rules

import (
	"sort"
	"strconv"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-arena/internal/domain"
)

// Node is a search position. It holds only the library position and a link
// to its parent, so playing a move copies one board instead of the whole
// game history.
type Node struct {
	pos    *nchess.Position
	parent *Node
	check  bool
	// repetition counts of positions reached before the root
	history map[string]int
	key     string
	steps   []Step
}

// Step is a legal move from a Node.
type Step struct {
	UCI     string
	Capture bool
	Check   bool
	// Victim is the captured piece kind, 0 when the move captures nothing.
	Victim PieceKind

	move nchess.Move
}

const (
	fiftyMoveClock   = 100
	repetitionsToEnd = 3
)

// Node returns the search view of p. Threefold repetition is counted
// against the positions already played in p. The node owns its own replay
// so a search never touches the library state shared with the session.
func (o *ChessOracle) Node(p Position) (*Node, error) {
	g, err := replay(p.Moves)
	if err != nil {
		return nil, err
	}
	pos := g.Position()
	history := map[string]int{}
	played := g.Positions()
	// only positions since the last capture or pawn move can repeat
	from := len(played) - 1 - pos.HalfMoveClock()
	if from < 0 {
		from = 0
	}
	for _, hp := range played[from:] {
		history[repetitionKey(hp)]++
	}
	n := &Node{pos: pos, history: history}
	if last := lastMove(g); last != nil {
		n.check = last.HasTag(nchess.Check)
	}
	// the root itself is already counted in history
	n.key = repetitionKey(pos)
	history[n.key]--
	return n, nil
}

func (n *Node) Turn() domain.Color { return colorFrom(n.pos.Turn()) }

// Steps lists the legal moves, captures first by victim value, then checks,
// then the rest in UCI order. The order is stable for a given position.
func (n *Node) Steps() []Step {
	if n.steps != nil {
		return n.steps
	}
	valid := n.pos.ValidMoves()
	board := n.pos.Board()
	steps := make([]Step, 0, len(valid))
	for i := range valid {
		mv := valid[i]
		st := Step{
			UCI:     mv.String(),
			Capture: mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
			Check:   mv.HasTag(nchess.Check),
			move:    mv,
		}
		if st.Capture {
			st.Victim = Pawn
			if pc := board.Piece(mv.S2()); pc != nchess.NoPiece {
				st.Victim = kindFrom(pc.Type())
			}
		}
		steps = append(steps, st)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if a.Victim != b.Victim {
			return a.Victim > b.Victim
		}
		if a.Check != b.Check {
			return a.Check
		}
		return a.UCI < b.UCI
	})
	n.steps = steps
	return steps
}

// Play returns the child reached by s. s must come from n.Steps.
func (n *Node) Play(s Step) *Node {
	mv := s.move
	return &Node{pos: n.pos.Update(&mv), parent: n, check: s.Check, history: n.history}
}

// Status reports mate, stalemate and the automatic draws for the node.
func (n *Node) Status() Status {
	st := Status{Turn: n.Turn()}
	st.Check = n.check
	if !n.hasMoves() {
		if st.Check {
			st.Checkmate = true
			st.Method = methodName(nchess.Checkmate)
		} else {
			st.Draw = true
			st.Stalemate = true
			st.Method = methodName(nchess.Stalemate)
		}
		return st
	}
	switch {
	case insufficientMaterial(n.pos.Board()):
		st.Draw = true
		st.Method = methodName(nchess.InsufficientMaterial)
	case n.pos.HalfMoveClock() >= fiftyMoveClock:
		st.Draw = true
		st.Method = methodName(nchess.FiftyMoveRule)
	case n.repetitions() >= repetitionsToEnd:
		st.Draw = true
		st.Method = methodName(nchess.ThreefoldRepetition)
	}
	return st
}

// hasMoves avoids full move generation on leaves.
func (n *Node) hasMoves() bool {
	if n.steps != nil {
		return len(n.steps) > 0
	}
	switch n.pos.Status() {
	case nchess.Checkmate, nchess.Stalemate:
		return false
	}
	return true
}

// EachPiece calls fn for every occupied square.
func (n *Node) EachPiece(fn func(square string, pc Piece)) {
	board := n.pos.Board()
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		pc := board.Piece(sq)
		if pc == nchess.NoPiece {
			continue
		}
		fn(sq.String(), Piece{Kind: kindFrom(pc.Type()), Color: colorFrom(pc.Color())})
	}
}

func (n *Node) repetitions() int {
	clock := n.pos.HalfMoveClock()
	if clock < 4 {
		return 1
	}
	if n.key == "" {
		n.key = repetitionKey(n.pos)
	}
	count := 1
	steps := 0
	for p := n.parent; p != nil && steps < clock; p = p.parent {
		steps++
		if p.key == "" {
			p.key = repetitionKey(p.pos)
		}
		if p.key == n.key {
			count++
		}
	}
	if steps < clock {
		count += n.history[n.key]
	}
	return count
}

// repetitionKey ignores the move clocks, unlike Position.Hash.
func repetitionKey(pos *nchess.Position) string {
	// NoSquare has no algebraic name
	return pos.Board().String() + " " + pos.Turn().String() + " " +
		pos.CastleRights().String() + " " + strconv.Itoa(int(pos.EnPassantSquare()))
}

func insufficientMaterial(b *nchess.Board) bool {
	minors := 0
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		switch b.Piece(sq).Type() {
		case nchess.Pawn, nchess.Rook, nchess.Queen:
			return false
		case nchess.Knight, nchess.Bishop:
			minors++
		}
	}
	return minors <= 1
}
