package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-arena/internal/domain"
)

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	lite, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": lite,
	}
}

func sampleGame(id string, now time.Time) *domain.Game {
	return &domain.Game{
		ID:            id,
		WhitePlayerID: "alice",
		BlackPlayerID: "bob",
		Status:        domain.StatusInProgress,
		FEN:           "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRepositoryGameLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := sampleGame("g-1", now)
			require.NoError(t, repo.CreateGame(ctx, g))
			require.ErrorIs(t, repo.CreateGame(ctx, g), ErrDuplicateGame)

			got, err := repo.GetGame(ctx, "g-1")
			require.NoError(t, err)
			require.Equal(t, "alice", got.WhitePlayerID)
			require.Equal(t, domain.StatusInProgress, got.Status)
			require.Nil(t, got.EndedAt)

			_, err = repo.GetGame(ctx, "missing")
			require.True(t, errors.Is(err, ErrNotFound))

			active, err := repo.ActiveGameByPlayer(ctx, "bob")
			require.NoError(t, err)
			require.Equal(t, "g-1", active.ID)

			mv := domain.Move{GameID: "g-1", PlayerID: "alice", Color: domain.White, MoveNumber: 1, SAN: "e4", UCI: "e2e4", FEN: "after", CreatedAt: now}
			g.FEN = "after"
			require.NoError(t, repo.RecordMove(ctx, g, mv, nil))
			require.ErrorIs(t, repo.RecordMove(ctx, g, mv, nil), ErrMoveConflict)

			moves, err := repo.ListMoves(ctx, "g-1")
			require.NoError(t, err)
			require.Len(t, moves, 1)
			require.Equal(t, "e2e4", moves[0].UCI)
			require.Equal(t, domain.White, moves[0].Color)

			ended := now.Add(time.Minute)
			g.Status = domain.StatusCompleted
			g.Result = domain.ResultWhiteWin
			g.ResultMethod = "resignation"
			g.EndedAt = &ended
			g.UpdatedAt = ended
			ratings := []domain.RatingChange{
				{PlayerID: "alice", Delta: 16, Won: true, At: ended},
				{PlayerID: "bob", Delta: -16, At: ended},
			}
			require.NoError(t, repo.FinishGame(ctx, g, ratings))

			got, err = repo.GetGame(ctx, "g-1")
			require.NoError(t, err)
			require.Equal(t, domain.StatusCompleted, got.Status)
			require.Equal(t, domain.ResultWhiteWin, got.Result)
			require.NotNil(t, got.EndedAt)
			require.True(t, got.EndedAt.Equal(ended))

			_, err = repo.ActiveGameByPlayer(ctx, "bob")
			require.ErrorIs(t, err, ErrNotFound)

			rec, err := repo.GetRating(ctx, "alice")
			require.NoError(t, err)
			require.Equal(t, 1216, rec.Rating)
			require.Equal(t, 1, rec.GamesWon)

			top, err := repo.TopRatings(ctx, 1)
			require.NoError(t, err)
			require.Len(t, top, 1)
			require.Equal(t, "alice", top[0].PlayerID)
		})
	}
}

func TestRatingChangesAccumulate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g1 := sampleGame("g-1", now)
			g2 := sampleGame("g-2", now)
			g2.BlackPlayerID = "carol"
			require.NoError(t, repo.CreateGame(ctx, g1))
			require.NoError(t, repo.CreateGame(ctx, g2))

			// both settled from the same 1200 read; neither may overwrite the other
			g1.Status, g1.Result = domain.StatusCompleted, domain.ResultWhiteWin
			require.NoError(t, repo.FinishGame(ctx, g1, []domain.RatingChange{
				{PlayerID: "alice", Delta: 16, Won: true, At: now},
				{PlayerID: "bob", Delta: -16, At: now},
			}))
			g2.Status, g2.Result = domain.StatusCompleted, domain.ResultBlackWin
			require.NoError(t, repo.FinishGame(ctx, g2, []domain.RatingChange{
				{PlayerID: "alice", Delta: -16, At: now.Add(time.Second)},
				{PlayerID: "carol", Delta: 16, Won: true, At: now.Add(time.Second)},
			}))

			rec, err := repo.GetRating(ctx, "alice")
			require.NoError(t, err)
			require.Equal(t, 1200, rec.Rating)
			require.Equal(t, 2, rec.GamesPlayed)
			require.Equal(t, 1, rec.GamesWon)
		})
	}
}

func TestRecordMoveUnknownGame(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := sampleGame("ghost", time.Now())
			mv := domain.Move{GameID: "ghost", MoveNumber: 1, PlayerID: "alice", Color: domain.White, SAN: "e4", UCI: "e2e4", FEN: "x", CreatedAt: time.Now()}
			require.Error(t, repo.RecordMove(context.Background(), g, mv, nil))
		})
	}
}

func TestOpenSchemes(t *testing.T) {
	repo, err := Open(context.Background(), "memory")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = Open(context.Background(), "mysql://nope")
	require.Error(t, err)
}

func TestRebindForPostgres(t *testing.T) {
	r := &sqlRepo{dialect: dialectPostgres}
	require.Equal(t, "a = $1 AND b = $2", r.q("a = ? AND b = ?"))
	lite := &sqlRepo{dialect: dialectSQLite}
	require.Equal(t, "a = ?", lite.q("a = ?"))
}

func TestBuildPGN(t *testing.T) {
	end := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	g := &domain.Game{WhitePlayerID: `al"ice`, BlackPlayerID: "bob", Result: domain.ResultBlackWin, ResultMethod: "Checkmate", EndedAt: &end}
	pgn := BuildPGN(g, []string{"f3", "e5", "g4", "Qh4#"})
	require.Contains(t, pgn, `[White "al'ice"]`)
	require.Contains(t, pgn, `[Date "2025.01.02"]`)
	require.Contains(t, pgn, `[Termination "checkmate"]`)
	require.True(t, strings.HasSuffix(pgn, "1. f3 e5 2. g4 Qh4# 0-1"))
}
