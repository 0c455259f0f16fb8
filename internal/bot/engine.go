// Package bot chooses moves for engine-controlled seats. It reads positions
// through the rules oracle and never mutates a session.
package bot

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/rules"
)

type Engine struct {
	oracle rules.Oracle
	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEngine(o rules.Oracle) *Engine {
	return &Engine{
		oracle: o,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Choice is a proposed move.
type Choice struct {
	Move       string
	Score      float64
	Randomized bool
	// Depth is the deepest finished search, 0 for greedy or random picks.
	Depth int
}

func (e *Engine) ChooseMove(ctx context.Context, p rules.Position, d Difficulty) (Choice, error) {
	preset, err := GetPreset(d)
	if err != nil {
		return Choice{}, err
	}
	root, err := e.oracle.Node(p)
	if err != nil {
		return Choice{}, err
	}
	steps := root.Steps()
	if len(steps) == 0 {
		return Choice{}, ErrNoLegalMoves
	}
	sign := sideSign(root.Turn())
	r := e.random()

	var choice Choice
	switch {
	case preset.Depth > 0:
		choice, err = deepen(ctx, root, preset)
		if err != nil {
			return Choice{}, err
		}
	case preset.Greedy:
		mv, score, err := greedy(ctx, root, sign)
		if err != nil {
			return Choice{}, err
		}
		choice = Choice{Move: mv, Score: score}
	default:
		return Choice{Move: steps[r.Intn(len(steps))].UCI, Randomized: true}, nil
	}

	if preset.RandomRate > 0 && r.Float64() < preset.RandomRate {
		alt := steps[r.Intn(len(steps))]
		if alt.UCI != choice.Move && acceptSwap(root, choice.Move, alt, sign) {
			choice = Choice{Move: alt.UCI, Score: choice.Score, Randomized: true, Depth: choice.Depth}
		}
	}
	return choice, nil
}

// deepen searches depth 1 up to the preset depth and keeps the deepest
// finished result. When the preset budget runs out the last finished
// iteration is played; when none finished the greedy move is.
func deepen(ctx context.Context, root *rules.Node, preset Preset) (Choice, error) {
	sctx := ctx
	if preset.Budget > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, preset.Budget)
		defer cancel()
	}
	var best Choice
	for depth := 1; depth <= preset.Depth; depth++ {
		s := &searcher{ctx: sctx, prune: preset.Prune}
		score, mv, err := s.root(root, depth)
		if err == nil {
			best = Choice{Move: mv, Score: score, Depth: depth}
			continue
		}
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return Choice{}, err
		}
		if best.Move != "" {
			return best, nil
		}
		mv, score, gerr := greedy(ctx, root, sideSign(root.Turn()))
		if gerr != nil {
			return Choice{}, gerr
		}
		return Choice{Move: mv, Score: score}, nil
	}
	return best, nil
}

func acceptSwap(root *rules.Node, primary string, alt rules.Step, sign float64) bool {
	for _, step := range root.Steps() {
		if step.UCI == primary {
			return GoodEnough(scoreAfter(root, step, sign), scoreAfter(root, alt, sign))
		}
	}
	return false
}

// GoodEnough reports whether alt is within 30% of best, measured against |best|.
func GoodEnough(best, alt float64) bool {
	return best-alt <= 0.3*math.Abs(best)
}

// ThinkingDelay returns a uniform delay inside the difficulty's window.
func (e *Engine) ThinkingDelay(d Difficulty) time.Duration {
	preset, err := GetPreset(d)
	if err != nil {
		return 0
	}
	span := preset.MaxThink - preset.MinThink
	if span <= 0 {
		return preset.MinThink
	}
	r := e.random()
	return preset.MinThink + time.Duration(r.Int63n(int64(span)+1))
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}
