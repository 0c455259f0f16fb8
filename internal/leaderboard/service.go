// Package leaderboard serves rating tables with a short-lived Redis snapshot
// in front of the store.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rating"
	"github.com/park285/chess-arena/internal/store"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrInvalidPlayer = chessdto.NewError(chessdto.KindValidation, "invalid_player", "player id is required")

type Ratings interface {
	GetRating(ctx context.Context, playerID string) (*domain.RatingRecord, error)
	TopRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error)
}

type Service struct {
	ratings Ratings
	rdb     *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the store and an optional Redis cache. A nil client
// disables caching.
func NewService(ratings Ratings, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) (*Service, error) {
	if ratings == nil {
		return nil, errors.New("ratings store is required")
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ratings: ratings, rdb: rdb, ttl: ttl, logger: logger, now: time.Now}, nil
}

func topKey(limit int) string { return fmt.Sprintf("leaderboard:top:%d", limit) }

// Top returns the highest rated players, highest first.
func (s *Service) Top(ctx context.Context, limit int) ([]chessdto.PlayerRating, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if cached, ok := s.cached(ctx, limit); ok {
		return cached, nil
	}
	recs, err := s.ratings.TopRatings(ctx, limit)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	out := make([]chessdto.PlayerRating, 0, len(recs))
	for _, r := range recs {
		out = append(out, toDTO(r))
	}
	s.remember(ctx, limit, out)
	return out, nil
}

// Player returns the player's record; players without games report the
// initial rating.
func (s *Service) Player(ctx context.Context, playerID string) (*chessdto.PlayerRating, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" || playerID == domain.BotPlayerID {
		return nil, ErrInvalidPlayer
	}
	rec, err := s.ratings.GetRating(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		fresh := rating.Fresh(playerID, s.now())
		rec = &fresh
	} else if err != nil {
		return nil, chessdto.Upstream(err)
	}
	dto := toDTO(*rec)
	return &dto, nil
}

// Invalidate drops every cached table.
func (s *Service) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	keys, err := s.rdb.Keys(ctx, "leaderboard:top:*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("leaderboard_invalidate_failed", zap.Error(err))
	}
}

func (s *Service) cached(ctx context.Context, limit int) ([]chessdto.PlayerRating, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, topKey(limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("leaderboard_cache_get_failed", zap.Error(err))
		}
		return nil, false
	}
	var out []chessdto.PlayerRating
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Service) remember(ctx context.Context, limit int, rows []chessdto.PlayerRating) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, topKey(limit), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("leaderboard_cache_set_failed", zap.Error(err))
	}
}

func toDTO(r domain.RatingRecord) chessdto.PlayerRating {
	return chessdto.PlayerRating{
		PlayerID:    r.PlayerID,
		Rating:      r.Rating,
		GamesPlayed: r.GamesPlayed,
		GamesWon:    r.GamesWon,
		UpdatedAt:   r.UpdatedAt,
	}
}
