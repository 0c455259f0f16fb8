package game

import (
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// reply is the recorded outcome for one client move token.
type reply struct {
	result *chessdto.MoveResult
	err    *chessdto.DomainError
}

// session is the in-memory authority for one game. All fields are guarded
// by mu.
type session struct {
	mu sync.Mutex

	game    *domain.Game
	pos     rules.Position
	moves   []domain.Move
	replies map[string]reply
	offer   *DrawOffer

	botStop func() bool
	botGen  uint64
	evicted bool
}

func newSession(g *domain.Game, pos rules.Position, moves []domain.Move) *session {
	return &session{
		game:    g,
		pos:     pos,
		moves:   moves,
		replies: make(map[string]reply),
	}
}

func (s *session) sans() []string {
	out := make([]string, 0, len(s.moves))
	for _, mv := range s.moves {
		out = append(out, mv.SAN)
	}
	return out
}

// turn follows move parity; the oracle agrees for games started from the
// initial position.
func (s *session) turn() domain.Color {
	if len(s.moves)%2 == 0 {
		return domain.White
	}
	return domain.Black
}

func (s *session) cancelBot() {
	s.botGen++
	if s.botStop != nil {
		s.botStop()
		s.botStop = nil
	}
}

func (s *session) state(now time.Time) chessdto.GameState {
	g := s.game
	st := chessdto.GameState{
		GameID:        g.ID,
		WhitePlayerID: g.PlayerAt(domain.White),
		BlackPlayerID: g.PlayerAt(domain.Black),
		Status:        string(g.Status),
		Result:        string(g.Result),
		ResultMethod:  g.ResultMethod,
		FEN:           g.FEN,
		Turn:          string(s.turn()),
		MovesSAN:      make([]string, 0, len(s.moves)),
		MovesUCI:      make([]string, 0, len(s.moves)),
		MoveCount:     len(s.moves),
		IsBotGame:     g.IsBotGame,
		BotColor:      string(g.BotColor),
		BotDifficulty: g.BotDifficulty,
		IsPrivate:     g.IsPrivate,
		RoomCode:      g.RoomCode,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if g.EndedAt != nil {
		t := *g.EndedAt
		st.EndedAt = &t
	}
	for _, mv := range s.moves {
		st.MovesSAN = append(st.MovesSAN, mv.SAN)
		st.MovesUCI = append(st.MovesUCI, mv.UCI)
	}
	if s.offer.live(now) && g.Status == domain.StatusInProgress {
		st.DrawOfferBy = s.offer.OfferedBy
	}
	return st
}

func moveDTO(mv domain.Move) chessdto.Move {
	return chessdto.Move{
		MoveNumber: mv.MoveNumber,
		PlayerID:   mv.PlayerID,
		Color:      string(mv.Color),
		SAN:        mv.SAN,
		UCI:        mv.UCI,
		FEN:        mv.FEN,
		CreatedAt:  mv.CreatedAt,
	}
}

func ratingDTO(rec domain.RatingRecord) chessdto.PlayerRating {
	return chessdto.PlayerRating{
		PlayerID:    rec.PlayerID,
		Rating:      rec.Rating,
		GamesPlayed: rec.GamesPlayed,
		GamesWon:    rec.GamesWon,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// participants returns the human players to notify.
func participants(g *domain.Game) []string {
	out := make([]string, 0, 2)
	for _, id := range []string{g.WhitePlayerID, g.BlackPlayerID} {
		if id != "" && id != domain.BotPlayerID {
			out = append(out, id)
		}
	}
	return out
}
