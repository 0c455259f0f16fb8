package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/bot"
	"github.com/park285/chess-arena/internal/domain"
)

// scheduleBotLocked arms a deferred engine move for the current ply. Any
// earlier timer for the session is superseded.
func (m *Manager) scheduleBotLocked(s *session) {
	s.cancelBot()
	gen := s.botGen
	ply := len(s.moves)
	gameID := s.game.ID
	level := bot.Difficulty(s.game.BotDifficulty)
	delay := m.bot.ThinkingDelay(level)
	s.botStop = m.afterFunc(delay, func() { m.runBot(gameID, s, gen, ply) })
}

func (m *Manager) runBot(gameID string, s *session, gen uint64, ply int) {
	if m.baseCtx.Err() != nil {
		return
	}
	s.mu.Lock()
	if s.evicted || s.botGen != gen || s.game.Status != domain.StatusInProgress || len(s.moves) != ply {
		s.mu.Unlock()
		return
	}
	s.botStop = nil
	pos := s.pos
	level := bot.Difficulty(s.game.BotDifficulty)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(m.baseCtx, botMoveTimeout)
	defer cancel()

	choice, err := m.bot.ChooseMove(ctx, pos, level)
	if err != nil {
		if m.baseCtx.Err() != nil {
			return
		}
		m.logger.Warn("bot_move_failed", zap.String("game_id", gameID), zap.Error(err))
		// 턴을 비워두지 않도록 무작위 합법 수로 대체
		choice, err = m.bot.ChooseMove(m.baseCtx, pos, bot.Easy)
		if err != nil {
			m.logger.Error("bot_fallback_failed", zap.String("game_id", gameID), zap.Error(err))
			return
		}
	}
	// the token makes a duplicate firing for the same ply a replay
	token := fmt.Sprintf("bot:%d", ply+1)
	// the search may have used the whole deadline; applying gets its own
	actx, acancel := context.WithTimeout(m.baseCtx, botMoveTimeout)
	defer acancel()
	if _, err := m.ApplyMove(actx, gameID, domain.BotPlayerID, choice.Move, "", token); err != nil {
		m.logger.Warn("bot_move_rejected",
			zap.String("game_id", gameID),
			zap.String("uci", choice.Move),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("bot_move",
		zap.String("game_id", gameID),
		zap.String("difficulty", string(level)),
		zap.String("uci", choice.Move),
		zap.Bool("randomized", choice.Randomized),
		zap.Int("depth", choice.Depth),
	)
}
