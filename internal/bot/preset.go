package bot

import (
	"fmt"
	"strings"
	"time"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Preset describes how a difficulty level picks and paces its moves.
type Preset struct {
	Name Difficulty
	// Depth 0 with Greedy unset means a uniform random move.
	Depth      int
	Greedy     bool
	Prune      bool
	RandomRate float64
	MinThink   time.Duration
	MaxThink   time.Duration
	// Budget caps the search; the deepest finished iteration is played.
	Budget time.Duration
}

const swapRate = 0.1

var presets = map[Difficulty]Preset{
	Easy: {
		Name:     Easy,
		MinThink: 500 * time.Millisecond,
		MaxThink: 1000 * time.Millisecond,
	},
	Medium: {
		Name:       Medium,
		Greedy:     true,
		RandomRate: swapRate,
		MinThink:   800 * time.Millisecond,
		MaxThink:   1500 * time.Millisecond,
	},
	Hard: {
		Name:       Hard,
		Depth:      3,
		RandomRate: swapRate,
		MinThink:   1200 * time.Millisecond,
		MaxThink:   2000 * time.Millisecond,
		Budget:     8 * time.Second,
	},
	Expert: {
		Name:       Expert,
		Depth:      5,
		Prune:      true,
		RandomRate: swapRate,
		MinThink:   1500 * time.Millisecond,
		MaxThink:   2500 * time.Millisecond,
		Budget:     10 * time.Second,
	},
}

func GetPreset(d Difficulty) (Preset, error) {
	p, ok := presets[d]
	if !ok {
		return Preset{}, fmt.Errorf("unknown difficulty: %s", d)
	}
	return p, nil
}

// ParseDifficulty accepts the wire names case-insensitively; empty falls back to def.
func ParseDifficulty(s string, def Difficulty) (Difficulty, error) {
	v := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		v = def
	}
	if _, ok := presets[v]; !ok {
		return "", fmt.Errorf("unknown difficulty: %q", s)
	}
	return v, nil
}

func ValidatePreset(p Preset) error {
	if p.MinThink <= 0 || p.MaxThink < p.MinThink {
		return fmt.Errorf("preset %s: invalid thinking window %s..%s", p.Name, p.MinThink, p.MaxThink)
	}
	if p.RandomRate < 0 || p.RandomRate > 1 {
		return fmt.Errorf("preset %s: random rate out of range", p.Name)
	}
	if p.Depth < 0 || (p.Prune && p.Depth == 0) {
		return fmt.Errorf("preset %s: invalid depth %d", p.Name, p.Depth)
	}
	if p.Depth > 0 && p.Budget <= 0 {
		return fmt.Errorf("preset %s: search without a time budget", p.Name)
	}
	return nil
}
