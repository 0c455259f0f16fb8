package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-arena/internal/domain"
)

// ResultToPGN maps a game result to the PGN result token.
func ResultToPGN(r domain.GameResult) string {
	switch r {
	case domain.ResultWhiteWin:
		return "1-0"
	case domain.ResultBlackWin:
		return "0-1"
	case domain.ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders the final game text from the SAN list.
func BuildPGN(g *domain.Game, sans []string) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	date := g.UpdatedAt
	if g.EndedAt != nil {
		date = *g.EndedAt
	}
	if date.IsZero() {
		date = time.Now()
	}
	result := ResultToPGN(g.Result)
	b.WriteString("[Event \"Arena\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.PlayerAt(domain.White))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.PlayerAt(domain.Black))))
	if strings.TrimSpace(g.ResultMethod) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(g.ResultMethod))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(sans); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(sans[i])))
		if i+1 < len(sans) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(sans[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
