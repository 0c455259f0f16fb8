package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// CreateRoom reserves a fresh six-character code owned by ownerID.
func (m *Manager) CreateRoom(ctx context.Context, ownerID string) (*chessdto.PrivateRoom, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" || ownerID == domain.BotPlayerID {
		return nil, ErrInvalidPlayer
	}
	if err := m.ensureIdle(ctx, ownerID); err != nil {
		return nil, err
	}
	now := m.now()
	rec := roomRecord{OwnerID: ownerID, CreatedAt: now, ExpiresAt: now.Add(m.roomTTL)}
	for i := 0; i < maxCodeTries; i++ {
		code, err := codeGen()
		if err != nil {
			return nil, err
		}
		ok, err := m.q.createRoom(ctx, code, rec, m.roomTTL)
		if err != nil {
			return nil, chessdto.Upstream(err)
		}
		if !ok {
			continue
		}
		m.logger.Info("room_create", zap.String("code", code), zap.String("owner_id", ownerID))
		return &chessdto.PrivateRoom{Code: code, OwnerID: ownerID, ExpiresAt: rec.ExpiresAt}, nil
	}
	return nil, chessdto.Upstream(fmt.Errorf("failed to allocate room code"))
}

// JoinRoom consumes the code and starts a private game with the owner as white.
func (m *Manager) JoinRoom(ctx context.Context, playerID, code string) (*domain.Game, error) {
	playerID = strings.TrimSpace(playerID)
	code = strings.ToUpper(strings.TrimSpace(code))
	if playerID == "" || playerID == domain.BotPlayerID {
		return nil, ErrInvalidPlayer
	}
	if !validCode(code) {
		return nil, ErrInvalidRoomCode
	}
	if err := m.ensureIdle(ctx, playerID); err != nil {
		return nil, err
	}
	rec, err := m.q.takeRoom(ctx, code, func(r roomRecord) error {
		if r.OwnerID == playerID {
			return ErrSelfJoin
		}
		return nil
	})
	if err != nil {
		var de *chessdto.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrRoomTaken
		}
		return nil, chessdto.Upstream(err)
	}

	if err := m.ensureIdle(ctx, rec.OwnerID); err != nil {
		m.restoreRoom(ctx, code, rec)
		return nil, err
	}
	g, err := m.games.CreateGame(ctx, rec.OwnerID, playerID, game.CreateOptions{IsPrivate: true, RoomCode: code})
	if err != nil {
		m.restoreRoom(ctx, code, rec)
		return nil, err
	}
	for _, id := range []string{rec.OwnerID, playerID} {
		if err := m.q.remove(ctx, id); err != nil {
			m.logger.Warn("room_dequeue_failed", zap.String("player_id", id), zap.Error(err))
		}
	}
	m.logger.Info("room_join",
		zap.String("code", code),
		zap.String("game_id", g.ID),
		zap.String("owner_id", rec.OwnerID),
		zap.String("player_id", playerID),
	)
	m.publishMatch(ctx, chessdto.MatchFound{
		GameID:        g.ID,
		WhitePlayerID: g.WhitePlayerID,
		BlackPlayerID: g.BlackPlayerID,
		IsPrivate:     true,
		RoomCode:      code,
	})
	return g, nil
}

func (m *Manager) restoreRoom(ctx context.Context, code string, rec roomRecord) {
	ttl := rec.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return
	}
	if _, err := m.q.createRoom(ctx, code, rec, ttl); err != nil {
		m.logger.Error("room_restore_failed", zap.String("code", code), zap.Error(err))
	}
}
