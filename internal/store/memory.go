package store

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rating"
)

// memrepo backs development runs and tests when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	games   map[string]*domain.Game
	moves   map[string][]domain.Move
	ratings map[string]domain.RatingRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games:   make(map[string]*domain.Game),
		moves:   make(map[string][]domain.Move),
		ratings: make(map[string]domain.RatingRecord),
	}
}

func (m *memrepo) CreateGame(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.ID]; exists {
		return ErrDuplicateGame
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *memrepo) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (m *memrepo) ListMoves(ctx context.Context, gameID string) ([]domain.Move, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Move{}, m.moves[gameID]...), nil
}

func (m *memrepo) RecordMove(ctx context.Context, g *domain.Game, mv domain.Move, ratings []domain.RatingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.moves[mv.GameID] {
		if existing.MoveNumber == mv.MoveNumber {
			return ErrMoveConflict
		}
	}
	m.moves[mv.GameID] = append(m.moves[mv.GameID], mv)
	m.games[g.ID] = g.Clone()
	m.putRatings(ratings)
	return nil
}

func (m *memrepo) FinishGame(ctx context.Context, g *domain.Game, ratings []domain.RatingChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return ErrNotFound
	}
	m.games[g.ID] = g.Clone()
	m.putRatings(ratings)
	return nil
}

func (m *memrepo) putRatings(ratings []domain.RatingChange) {
	for _, ch := range ratings {
		rec, ok := m.ratings[ch.PlayerID]
		if !ok {
			rec = rating.Fresh(ch.PlayerID, ch.At)
		}
		rec.Rating += ch.Delta
		rec.GamesPlayed++
		if ch.Won {
			rec.GamesWon++
		}
		rec.UpdatedAt = ch.At
		m.ratings[ch.PlayerID] = rec
	}
}

func (m *memrepo) GetRating(ctx context.Context, playerID string) (*domain.RatingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.ratings[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *memrepo) TopRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	items := make([]domain.RatingRecord, 0, len(m.ratings))
	for _, rec := range m.ratings {
		items = append(items, rec)
	}
	m.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		return items[i].PlayerID < items[j].PlayerID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) ActiveGameByPlayer(ctx context.Context, playerID string) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.Game
	for _, g := range m.games {
		if g.Status != domain.StatusInProgress {
			continue
		}
		if g.WhitePlayerID != playerID && g.BlackPlayerID != playerID {
			continue
		}
		if best == nil || g.UpdatedAt.After(best.UpdatedAt) {
			best = g
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best.Clone(), nil
}

func (m *memrepo) Close() error { return nil }
