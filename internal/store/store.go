// Package store persists games, moves and ratings. The session engine treats
// it as the source of truth; the Redis snapshot is only a cache in front of it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/chess-arena/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrDuplicateGame = errors.New("store: game already exists")
	// ErrMoveConflict is returned when the move number is already taken.
	ErrMoveConflict = errors.New("store: move number already recorded")
)

type Repository interface {
	CreateGame(ctx context.Context, g *domain.Game) error
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	ListMoves(ctx context.Context, gameID string) ([]domain.Move, error)
	// RecordMove appends mv and writes the updated game row (and rating
	// increments, when the move ended a rated game) atomically.
	RecordMove(ctx context.Context, g *domain.Game, mv domain.Move, ratings []domain.RatingChange) error
	// FinishGame writes a terminal game row without a move (resign, agreed draw).
	FinishGame(ctx context.Context, g *domain.Game, ratings []domain.RatingChange) error
	GetRating(ctx context.Context, playerID string) (*domain.RatingRecord, error)
	TopRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error)
	ActiveGameByPlayer(ctx context.Context, playerID string) (*domain.Game, error)
	Close() error
}

// Open picks a backend from the URL scheme: postgres://, sqlite://path or memory.
func Open(ctx context.Context, url string) (Repository, error) {
	u := strings.TrimSpace(url)
	switch {
	case u == "" || u == "memory":
		return NewMemoryRepository(), nil
	case strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://"):
		return NewPostgres(ctx, u)
	case strings.HasPrefix(u, "sqlite://"):
		return NewSQLite(ctx, strings.TrimPrefix(u, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", u)
	}
}
