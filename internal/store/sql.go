package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rating"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// sqlRepo serves both Postgres and SQLite. Queries are written with ?
// placeholders and rebound for Postgres.
type sqlRepo struct {
	db      *sql.DB
	dialect dialect
}

func (r *sqlRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *sqlRepo) q(query string) string {
	if r.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const gameColumns = `id, white_player_id, black_player_id, status, result, result_method, fen,
	is_private, room_code, is_bot_game, bot_color, bot_difficulty, pgn, created_at, updated_at, ended_at`

func (r *sqlRepo) CreateGame(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	query := r.q(`INSERT INTO arena_games (` + gameColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, query,
		g.ID, g.WhitePlayerID, g.BlackPlayerID, string(g.Status), string(g.Result), g.ResultMethod, g.FEN,
		g.IsPrivate, g.RoomCode, g.IsBotGame, string(g.BotColor), g.BotDifficulty, g.PGN,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(), nullTime(g.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateGame
	}
	return nil
}

func (r *sqlRepo) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+gameColumns+` FROM arena_games WHERE id = ?`), id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	return g, nil
}

func (r *sqlRepo) ActiveGameByPlayer(ctx context.Context, playerID string) (*domain.Game, error) {
	query := r.q(`SELECT ` + gameColumns + ` FROM arena_games
		WHERE status = ? AND (white_player_id = ? OR black_player_id = ?)
		ORDER BY updated_at DESC
		LIMIT 1`)
	row := r.db.QueryRowContext(ctx, query, string(domain.StatusInProgress), playerID, playerID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select active game: %w", err)
	}
	return g, nil
}

func (r *sqlRepo) ListMoves(ctx context.Context, gameID string) ([]domain.Move, error) {
	query := r.q(`SELECT game_id, move_number, player_id, color, san, uci, fen, created_at
		FROM arena_moves WHERE game_id = ? ORDER BY move_number ASC`)
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("select moves: %w", err)
	}
	defer rows.Close()

	moves := make([]domain.Move, 0, 64)
	for rows.Next() {
		var (
			mv    domain.Move
			color string
		)
		if err := rows.Scan(&mv.GameID, &mv.MoveNumber, &mv.PlayerID, &color, &mv.SAN, &mv.UCI, &mv.FEN, &mv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		mv.Color = domain.Color(color)
		moves = append(moves, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

func (r *sqlRepo) RecordMove(ctx context.Context, g *domain.Game, mv domain.Move, ratings []domain.RatingChange) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := r.q(`INSERT INTO arena_moves (game_id, move_number, player_id, color, san, uci, fen, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (game_id, move_number) DO NOTHING`)
		res, err := tx.ExecContext(ctx, query,
			mv.GameID, mv.MoveNumber, mv.PlayerID, string(mv.Color), mv.SAN, mv.UCI, mv.FEN, mv.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert move: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrMoveConflict
		}
		if err := r.updateGame(ctx, tx, g); err != nil {
			return err
		}
		return r.upsertRatings(ctx, tx, ratings)
	})
}

func (r *sqlRepo) FinishGame(ctx context.Context, g *domain.Game, ratings []domain.RatingChange) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.updateGame(ctx, tx, g); err != nil {
			return err
		}
		return r.upsertRatings(ctx, tx, ratings)
	})
}

func (r *sqlRepo) GetRating(ctx context.Context, playerID string) (*domain.RatingRecord, error) {
	query := r.q(`SELECT player_id, rating, games_played, games_won, updated_at FROM arena_ratings WHERE player_id = ?`)
	var rec domain.RatingRecord
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(&rec.PlayerID, &rec.Rating, &rec.GamesPlayed, &rec.GamesWon, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select rating: %w", err)
	}
	return &rec, nil
}

func (r *sqlRepo) TopRatings(ctx context.Context, limit int) ([]domain.RatingRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.q(`SELECT player_id, rating, games_played, games_won, updated_at
		FROM arena_ratings ORDER BY rating DESC, player_id ASC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	defer rows.Close()
	out := make([]domain.RatingRecord, 0, limit)
	for rows.Next() {
		var rec domain.RatingRecord
		if err := rows.Scan(&rec.PlayerID, &rec.Rating, &rec.GamesPlayed, &rec.GamesWon, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sqlRepo) updateGame(ctx context.Context, tx *sql.Tx, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	query := r.q(`UPDATE arena_games SET
		status = ?, result = ?, result_method = ?, fen = ?, pgn = ?, updated_at = ?, ended_at = ?
		WHERE id = ?`)
	res, err := tx.ExecContext(ctx, query,
		string(g.Status), string(g.Result), g.ResultMethod, g.FEN, g.PGN, g.UpdatedAt.UTC(), nullTime(g.EndedAt), g.ID)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// upsertRatings adds each change to the stored row; a missing row starts
// from the initial rating.
func (r *sqlRepo) upsertRatings(ctx context.Context, tx *sql.Tx, ratings []domain.RatingChange) error {
	if len(ratings) == 0 {
		return nil
	}
	query := r.q(`INSERT INTO arena_ratings (player_id, rating, games_played, games_won, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			rating = arena_ratings.rating + ?,
			games_played = arena_ratings.games_played + 1,
			games_won = arena_ratings.games_won + excluded.games_won,
			updated_at = excluded.updated_at`)
	for _, ch := range ratings {
		won := 0
		if ch.Won {
			won = 1
		}
		if _, err := tx.ExecContext(ctx, query, ch.PlayerID, rating.Initial+ch.Delta, won, ch.At.UTC(), ch.Delta); err != nil {
			return fmt.Errorf("upsert rating %s: %w", ch.PlayerID, err)
		}
	}
	return nil
}

func (r *sqlRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.Game, error) {
	var (
		g                        domain.Game
		status, result, botColor string
		endedAt                  sql.NullTime
	)
	if err := row.Scan(
		&g.ID, &g.WhitePlayerID, &g.BlackPlayerID, &status, &result, &g.ResultMethod, &g.FEN,
		&g.IsPrivate, &g.RoomCode, &g.IsBotGame, &botColor, &g.BotDifficulty, &g.PGN,
		&g.CreatedAt, &g.UpdatedAt, &endedAt,
	); err != nil {
		return nil, err
	}
	g.Status = domain.GameStatus(status)
	g.Result = domain.GameResult(result)
	g.BotColor = domain.Color(botColor)
	if endedAt.Valid {
		t := endedAt.Time
		g.EndedAt = &t
	}
	return &g, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
