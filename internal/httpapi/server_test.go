package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/leaderboard"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/internal/store"
	"github.com/park285/chess-arena/pkg/chessdto"
)

type testAPI struct {
	srv *httptest.Server
	mm  *matchmaking.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := store.NewMemoryRepository()
	games, err := game.NewManager(game.Deps{
		Store:  repo,
		Oracle: rules.NewChessOracle(),
		Cache:  game.NewCache(rdb, time.Hour),
	}, game.Config{}, game.WithAfterFunc(func(time.Duration, func()) func() bool {
		return func() bool { return true }
	}))
	if err != nil {
		t.Fatalf("game.NewManager: %v", err)
	}
	t.Cleanup(games.Close)
	mm, err := matchmaking.NewManager(rdb, games, repo, nil, matchmaking.Config{}, matchmaking.WithSeed(1))
	if err != nil {
		t.Fatalf("matchmaking.NewManager: %v", err)
	}
	lb, err := leaderboard.NewService(repo, rdb, time.Minute, nil)
	if err != nil {
		t.Fatalf("leaderboard.NewService: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	s := New(Deps{Games: games, Matchmaking: mm, Leaderboard: lb, Catalog: cat})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, mm: mm}
}

func (a *testAPI) do(t *testing.T, method, path, playerID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if playerID != "" {
		req.Header.Set(PlayerHeader, playerID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	if code := a.do(t, http.MethodGet, "/healthz", "", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
}

func TestBotGameFlow(t *testing.T) {
	a := newTestAPI(t)
	var st chessdto.GameState
	code := a.do(t, http.MethodPost, "/games/bot", "alice", chessdto.CreateBotGameRequest{Difficulty: "easy"}, &st)
	if code != http.StatusCreated || !st.IsBotGame || st.WhitePlayerID != "alice" {
		t.Fatalf("create bot game: %d %+v", code, st)
	}

	var res chessdto.MoveResult
	code = a.do(t, http.MethodPost, "/games/"+st.GameID+"/moves", "alice", chessdto.MakeMoveRequest{Move: "e2e4", MoveID: "t1"}, &res)
	if code != http.StatusOK || res.Move.SAN != "e4" {
		t.Fatalf("move: %d %+v", code, res)
	}

	var er chessdto.ErrorResponse
	code = a.do(t, http.MethodPost, "/games/"+st.GameID+"/moves", "alice", chessdto.MakeMoveRequest{Move: "d2d4"}, &er)
	if code != http.StatusBadRequest || er.Code != "not_your_turn" {
		t.Fatalf("out of turn: %d %+v", code, er)
	}

	var moves struct {
		Moves []json.RawMessage `json:"moves"`
	}
	if code := a.do(t, http.MethodGet, "/games/"+st.GameID+"/moves", "", nil, &moves); code != http.StatusOK || len(moves.Moves) != 1 {
		t.Fatalf("moves: %d %d", code, len(moves.Moves))
	}

	code = a.do(t, http.MethodPost, "/games/"+st.GameID+"/draw/offer", "alice", nil, &er)
	if code != http.StatusBadRequest || er.Code != "draw_unavailable" {
		t.Fatalf("draw vs bot: %d %+v", code, er)
	}

	code = a.do(t, http.MethodPost, "/games/"+st.GameID+"/resign", "alice", nil, &st)
	if code != http.StatusOK || st.Status != "completed" {
		t.Fatalf("resign: %d %+v", code, st)
	}
	code = a.do(t, http.MethodPost, "/games/"+st.GameID+"/resign", "alice", nil, &er)
	if code != http.StatusConflict || er.Code != "game_not_in_progress" {
		t.Fatalf("second resign: %d %+v", code, er)
	}
}

func TestErrorsMapToStatus(t *testing.T) {
	a := newTestAPI(t)
	var er chessdto.ErrorResponse
	if code := a.do(t, http.MethodPost, "/games/bot", "", nil, &er); code != http.StatusBadRequest || er.Code != "invalid_player" {
		t.Fatalf("missing header: %d %+v", code, er)
	}
	if code := a.do(t, http.MethodGet, "/games/missing", "", nil, &er); code != http.StatusNotFound || er.Code != "game_not_found" {
		t.Fatalf("unknown game: %d %+v", code, er)
	}
	if code := a.do(t, http.MethodPost, "/games/bot", "alice", chessdto.CreateBotGameRequest{Difficulty: "grandmaster"}, &er); code != http.StatusBadRequest {
		t.Fatalf("bad difficulty: %d %+v", code, er)
	}
	if code := a.do(t, http.MethodGet, "/players/nobody/active-game", "", nil, &er); code != http.StatusNotFound {
		t.Fatalf("no active game: %d %+v", code, er)
	}
}

func TestQueueAndRooms(t *testing.T) {
	a := newTestAPI(t)
	var qs chessdto.QueueStatus
	if code := a.do(t, http.MethodPost, "/matchmaking/queue", "alice", nil, &qs); code != http.StatusAccepted || !qs.InQueue {
		t.Fatalf("enqueue: %d %+v", code, qs)
	}
	if code := a.do(t, http.MethodPost, "/matchmaking/queue", "bob", nil, &qs); code != http.StatusAccepted || qs.QueueSize != 2 {
		t.Fatalf("enqueue bob: %d %+v", code, qs)
	}
	pairs, err := a.mm.Tick(context.Background())
	if err != nil || len(pairs) != 1 {
		t.Fatalf("tick: %+v %v", pairs, err)
	}
	var st chessdto.GameState
	if code := a.do(t, http.MethodGet, "/players/alice/active-game", "", nil, &st); code != http.StatusOK || st.GameID != pairs[0].GameID {
		t.Fatalf("active game: %d %+v", code, st)
	}
	var er chessdto.ErrorResponse
	if code := a.do(t, http.MethodPost, "/matchmaking/queue", "alice", nil, &er); code != http.StatusConflict || er.Code != "already_in_game" {
		t.Fatalf("busy enqueue: %d %+v", code, er)
	}

	var room chessdto.PrivateRoom
	if code := a.do(t, http.MethodPost, "/rooms", "carol", nil, &room); code != http.StatusCreated || len(room.Code) != 6 {
		t.Fatalf("create room: %d %+v", code, room)
	}
	if code := a.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", "carol", nil, &er); code != http.StatusConflict || er.Code != "self_join" {
		t.Fatalf("self join: %d %+v", code, er)
	}
	if code := a.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", "dave", nil, &st); code != http.StatusCreated || st.WhitePlayerID != "carol" || !st.IsPrivate {
		t.Fatalf("join: %d %+v", code, st)
	}
	if code := a.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", "erin", nil, &er); code != http.StatusNotFound {
		t.Fatalf("consumed room: %d %+v", code, er)
	}

	if code := a.do(t, http.MethodPost, "/matchmaking/queue", "frank", nil, &qs); code != http.StatusAccepted {
		t.Fatalf("enqueue frank: %d", code)
	}
	if code := a.do(t, http.MethodDelete, "/matchmaking/queue", "frank", nil, nil); code != http.StatusNoContent {
		t.Fatalf("dequeue: %d", code)
	}
	if code := a.do(t, http.MethodGet, "/matchmaking/queue", "frank", nil, &qs); code != http.StatusOK || qs.InQueue {
		t.Fatalf("status after dequeue: %d %+v", code, qs)
	}
}

func TestLeaderboardAndPlayer(t *testing.T) {
	a := newTestAPI(t)
	var board struct {
		Players []chessdto.PlayerRating `json:"players"`
	}
	if code := a.do(t, http.MethodGet, "/leaderboard?limit=5", "", nil, &board); code != http.StatusOK || len(board.Players) != 0 {
		t.Fatalf("leaderboard: %d %+v", code, board)
	}
	var p chessdto.PlayerRating
	if code := a.do(t, http.MethodGet, "/players/zoe", "", nil, &p); code != http.StatusOK || p.Rating != 1200 {
		t.Fatalf("player: %d %+v", code, p)
	}
}
