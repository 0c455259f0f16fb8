package bot

import (
	"context"
	"errors"
	"math"

	"github.com/park285/chess-arena/internal/rules"
)

var ErrNoLegalMoves = errors.New("no legal moves")

// Search runs negamax to depth plies and returns the score from the side to
// move's point of view with the first move that reaches it. With prune set
// the result is identical; only the node count differs.
func Search(ctx context.Context, o rules.Oracle, p rules.Position, depth int, prune bool) (float64, string, error) {
	root, err := o.Node(p)
	if err != nil {
		return 0, "", err
	}
	s := &searcher{ctx: ctx, prune: prune}
	return s.root(root, depth)
}

type searcher struct {
	ctx   context.Context
	prune bool
	nodes int
}

func (s *searcher) root(n *rules.Node, depth int) (float64, string, error) {
	score, move, err := s.negamax(n, depth, math.Inf(-1), math.Inf(1))
	if err != nil {
		return 0, "", err
	}
	if move == "" {
		return score, "", ErrNoLegalMoves
	}
	return score, move, nil
}

func (s *searcher) negamax(n *rules.Node, depth int, alpha, beta float64) (float64, string, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, "", err
	}
	s.nodes++

	st := n.Status()
	sign := sideSign(st.Turn)
	if score, done := terminalScore(st); done {
		return sign * score, "", nil
	}
	if depth <= 0 {
		return sign * staticScore(n, st), "", nil
	}

	best := math.Inf(-1)
	bestMove := ""
	for _, step := range n.Steps() {
		v, _, err := s.negamax(n.Play(step), depth-1, -beta, -alpha)
		if err != nil {
			return 0, "", err
		}
		v = -v
		// strict: ties keep the earlier move in both modes
		if v > best {
			best = v
			bestMove = step.UCI
		}
		if s.prune {
			if best > alpha {
				alpha = best
			}
			if alpha >= beta {
				break
			}
		}
	}
	return best, bestMove, nil
}

// scoreAfter is the mover's immediate static evaluation after step.
func scoreAfter(n *rules.Node, step rules.Step, sign float64) float64 {
	child := n.Play(step)
	return sign * staticScore(child, child.Status())
}

// greedy picks the move with the best immediate evaluation for the mover.
func greedy(ctx context.Context, n *rules.Node, sign float64) (string, float64, error) {
	best := math.Inf(-1)
	bestMove := ""
	for _, step := range n.Steps() {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		if v := scoreAfter(n, step, sign); v > best {
			best = v
			bestMove = step.UCI
		}
	}
	if bestMove == "" {
		return "", 0, ErrNoLegalMoves
	}
	return bestMove, best, nil
}
