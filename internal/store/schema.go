package store

const postgresSchema = `
CREATE TABLE IF NOT EXISTS arena_games (
	id              TEXT PRIMARY KEY,
	white_player_id TEXT NOT NULL,
	black_player_id TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'waiting',
	result          TEXT NOT NULL DEFAULT '',
	result_method   TEXT NOT NULL DEFAULT '',
	fen             TEXT NOT NULL,
	is_private      BOOLEAN NOT NULL DEFAULT FALSE,
	room_code       TEXT NOT NULL DEFAULT '',
	is_bot_game     BOOLEAN NOT NULL DEFAULT FALSE,
	bot_color       TEXT NOT NULL DEFAULT '',
	bot_difficulty  TEXT NOT NULL DEFAULT '',
	pgn             TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_arena_games_status ON arena_games (status);
CREATE INDEX IF NOT EXISTS idx_arena_games_white ON arena_games (white_player_id);
CREATE INDEX IF NOT EXISTS idx_arena_games_black ON arena_games (black_player_id);

CREATE TABLE IF NOT EXISTS arena_moves (
	game_id     TEXT NOT NULL REFERENCES arena_games (id) ON DELETE CASCADE,
	move_number INTEGER NOT NULL,
	player_id   TEXT NOT NULL,
	color       TEXT NOT NULL,
	san         TEXT NOT NULL,
	uci         TEXT NOT NULL,
	fen         TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, move_number)
);

CREATE TABLE IF NOT EXISTS arena_ratings (
	player_id    TEXT PRIMARY KEY,
	rating       INTEGER NOT NULL DEFAULT 1200,
	games_played INTEGER NOT NULL DEFAULT 0,
	games_won    INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arena_ratings_rating ON arena_ratings (rating DESC);
`

// go-sqlite3 maps TIMESTAMP and BOOLEAN column types back to time.Time and bool.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS arena_games (
	id              TEXT PRIMARY KEY,
	white_player_id TEXT NOT NULL,
	black_player_id TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'waiting',
	result          TEXT NOT NULL DEFAULT '',
	result_method   TEXT NOT NULL DEFAULT '',
	fen             TEXT NOT NULL,
	is_private      BOOLEAN NOT NULL DEFAULT 0,
	room_code       TEXT NOT NULL DEFAULT '',
	is_bot_game     BOOLEAN NOT NULL DEFAULT 0,
	bot_color       TEXT NOT NULL DEFAULT '',
	bot_difficulty  TEXT NOT NULL DEFAULT '',
	pgn             TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL,
	ended_at        TIMESTAMP NULL
);
CREATE INDEX IF NOT EXISTS idx_arena_games_status ON arena_games (status);
CREATE INDEX IF NOT EXISTS idx_arena_games_white ON arena_games (white_player_id);
CREATE INDEX IF NOT EXISTS idx_arena_games_black ON arena_games (black_player_id);

CREATE TABLE IF NOT EXISTS arena_moves (
	game_id     TEXT NOT NULL REFERENCES arena_games (id) ON DELETE CASCADE,
	move_number INTEGER NOT NULL,
	player_id   TEXT NOT NULL,
	color       TEXT NOT NULL,
	san         TEXT NOT NULL,
	uci         TEXT NOT NULL,
	fen         TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (game_id, move_number)
);

CREATE TABLE IF NOT EXISTS arena_ratings (
	player_id    TEXT PRIMARY KEY,
	rating       INTEGER NOT NULL DEFAULT 1200,
	games_played INTEGER NOT NULL DEFAULT 0,
	games_won    INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arena_ratings_rating ON arena_ratings (rating DESC);
`
