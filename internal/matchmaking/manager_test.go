package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/store"
	"github.com/park285/chess-arena/pkg/chessdto"
)

type fakeGames struct {
	mu      sync.Mutex
	created []*domain.Game
	active  map[string]bool
	fail    error
}

func (f *fakeGames) CreateGame(_ context.Context, whiteID, blackID string, opts game.CreateOptions) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	g := &domain.Game{
		ID:            fmt.Sprintf("g%d", len(f.created)+1),
		WhitePlayerID: whiteID,
		BlackPlayerID: blackID,
		Status:        domain.StatusInProgress,
		IsPrivate:     opts.IsPrivate,
		RoomCode:      opts.RoomCode,
	}
	f.created = append(f.created, g)
	return g, nil
}

func (f *fakeGames) ActiveGame(_ context.Context, playerID string) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[playerID] {
		return &domain.Game{ID: "busy", Status: domain.StatusInProgress}, nil
	}
	return nil, game.ErrGameNotFound
}

type fakeRatings map[string]int

func (f fakeRatings) GetRating(_ context.Context, playerID string) (*domain.RatingRecord, error) {
	r, ok := f[playerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &domain.RatingRecord{PlayerID: playerID, Rating: r}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []chessdto.Event
}

func (r *recorder) Publish(_ context.Context, ev chessdto.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type harness struct {
	m      *Manager
	mr     *miniredis.Miniredis
	games  *fakeGames
	events *recorder
	now    time.Time
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func newTestManager(t *testing.T, ratings fakeRatings) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:     mr,
		games:  &fakeGames{active: map[string]bool{}},
		events: &recorder{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	m, err := NewManager(rdb, h.games, ratings, h.events, Config{},
		WithClock(func() time.Time { return h.now }),
		WithSeed(7),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.m = m
	return h
}

func mustEnqueue(t *testing.T, h *harness, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := h.m.Enqueue(context.Background(), id); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}
}

func TestFirstTickPairsCloseRatings(t *testing.T) {
	h := newTestManager(t, fakeRatings{"p1": 1200, "p2": 1250})
	ctx := context.Background()
	mustEnqueue(t, h, "p1", "p2")

	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one pairing, got %+v", pairs)
	}
	p := pairs[0]
	if !((p.WhiteID == "p1" && p.BlackID == "p2") || (p.WhiteID == "p2" && p.BlackID == "p1")) {
		t.Fatalf("unexpected seats: %+v", p)
	}
	st, err := h.m.Status(ctx, "p1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.InQueue || st.QueueSize != 0 {
		t.Fatalf("queue should be empty: %+v", st)
	}
	if len(h.events.events) != 1 || h.events.events[0].Type != game.EventMatchFound {
		t.Fatalf("expected match_found, got %+v", h.events.events)
	}
	if to := h.events.events[0].To; len(to) != 2 {
		t.Fatalf("match_found should address both players: %v", to)
	}
}

func TestWideGapPairsOnlyAfterFallback(t *testing.T) {
	h := newTestManager(t, fakeRatings{"low": 1200, "high": 1800})
	ctx := context.Background()
	mustEnqueue(t, h, "low", "high")

	for _, at := range []time.Duration{0, 5 * time.Second, 10 * time.Second, 10 * time.Second} {
		h.advance(at)
		pairs, err := h.m.Tick(ctx)
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if len(pairs) != 0 {
			t.Fatalf("600 point gap paired too early: %+v", pairs)
		}
	}
	// 30초 대기
	h.advance(5 * time.Second)
	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected fallback pairing at 30s, got %+v", pairs)
	}
}

func TestWindowMustBeMutual(t *testing.T) {
	h := newTestManager(t, fakeRatings{"veteran": 1200, "newcomer": 1550})
	ctx := context.Background()
	mustEnqueue(t, h, "veteran")
	h.advance(20 * time.Second)
	mustEnqueue(t, h, "newcomer")

	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("newcomer window is 100, pairing must wait: %+v", pairs)
	}
	h.advance(10 * time.Second)
	pairs, err = h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("veteran reached fallback, expected pairing: %+v", pairs)
	}
}

func TestNoPlayerPairedTwice(t *testing.T) {
	h := newTestManager(t, fakeRatings{"a": 1200, "b": 1210, "c": 1220})
	ctx := context.Background()
	mustEnqueue(t, h, "a", "b", "c")

	seen := map[string]int{}
	for i := 0; i < 5; i++ {
		h.advance(10 * time.Second)
		pairs, err := h.m.Tick(ctx)
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		for _, p := range pairs {
			seen[p.WhiteID]++
			seen[p.BlackID]++
		}
	}
	if len(h.games.created) != 1 {
		t.Fatalf("expected exactly one game, got %d", len(h.games.created))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("player %s paired %d times", id, n)
		}
	}
	left := ""
	for _, id := range []string{"a", "b", "c"} {
		if seen[id] == 0 {
			left = id
		}
	}
	st, err := h.m.Status(ctx, left)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.InQueue || st.QueueSize != 1 {
		t.Fatalf("unpaired player should stay queued: %+v", st)
	}
}

func TestPairingFailureRestoresEntries(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()
	mustEnqueue(t, h, "p1", "p2")
	h.games.fail = errors.New("store down")
	h.advance(3 * time.Second)

	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("no pairing expected: %+v", pairs)
	}
	for _, id := range []string{"p1", "p2"} {
		st, err := h.m.Status(ctx, id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if !st.InQueue || st.WaitSeconds == nil || *st.WaitSeconds != 3 {
			t.Fatalf("%s should be restored with its wait time: %+v", id, st)
		}
	}

	h.games.fail = nil
	pairs, err = h.m.Tick(ctx)
	if err != nil || len(pairs) != 1 {
		t.Fatalf("retry should pair: %+v %v", pairs, err)
	}
}

func TestTickEvictsStaleEntries(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()
	mustEnqueue(t, h, "p1", "p2")
	h.mr.Del(searchKey("p1"))

	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("stale entry must not be paired: %+v", pairs)
	}
	st, _ := h.m.Status(ctx, "p1")
	if st.InQueue || st.QueueSize != 1 {
		t.Fatalf("p1 should be evicted: %+v", st)
	}
}

func TestTickDoesNotOverlap(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	mustEnqueue(t, h, "p1", "p2")
	h.m.ticking.Store(true)
	pairs, err := h.m.Tick(context.Background())
	if err != nil || pairs != nil {
		t.Fatalf("overlapping tick should be a no-op: %+v %v", pairs, err)
	}
	h.m.ticking.Store(false)
	if pairs, _ := h.m.Tick(context.Background()); len(pairs) != 1 {
		t.Fatalf("expected pairing once guard is released: %+v", pairs)
	}
}

func TestEnqueueKeepsWaitAndRating(t *testing.T) {
	h := newTestManager(t, fakeRatings{"p1": 1432})
	ctx := context.Background()
	mustEnqueue(t, h, "p1", "fresh")
	h.advance(7 * time.Second)
	st, err := h.m.Enqueue(ctx, "p1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if st.WaitSeconds == nil || *st.WaitSeconds != 7 || st.QueueSize != 2 {
		t.Fatalf("re-enqueue should keep the original entry: %+v", st)
	}
	if score, err := h.mr.ZScore(queueKey, "p1"); err != nil || score != 1432 {
		t.Fatalf("stored rating: %v %v", score, err)
	}
	if score, err := h.mr.ZScore(queueKey, "fresh"); err != nil || score != 1200 {
		t.Fatalf("unrated player should queue at 1200: %v %v", score, err)
	}

	if err := h.m.Dequeue(ctx, "p1"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	st, _ = h.m.Status(ctx, "p1")
	if st.InQueue || st.WaitSeconds != nil {
		t.Fatalf("p1 should be gone: %+v", st)
	}
}

func TestEnqueueRejectsBusyPlayer(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	h.games.active["busy"] = true
	if _, err := h.m.Enqueue(context.Background(), "busy"); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("expected ErrAlreadyInGame, got %v", err)
	}
	if _, err := h.m.Enqueue(context.Background(), " "); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("expected ErrInvalidPlayer, got %v", err)
	}
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestRoomLifecycle(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()

	room, err := h.m.CreateRoom(ctx, "owner")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !codePattern.MatchString(room.Code) {
		t.Fatalf("bad code %q", room.Code)
	}
	if !room.ExpiresAt.Equal(h.now.Add(time.Hour)) {
		t.Fatalf("expiry: %v", room.ExpiresAt)
	}

	if _, err := h.m.JoinRoom(ctx, "owner", room.Code); !errors.Is(err, ErrSelfJoin) {
		t.Fatalf("expected ErrSelfJoin, got %v", err)
	}
	g, err := h.m.JoinRoom(ctx, "guest", room.Code)
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if g.WhitePlayerID != "owner" || g.BlackPlayerID != "guest" || !g.IsPrivate || g.RoomCode != room.Code {
		t.Fatalf("unexpected game: %+v", g)
	}
	if _, err := h.m.JoinRoom(ctx, "third", room.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("code must be consumed, got %v", err)
	}
	if len(h.events.events) != 1 || h.events.events[0].Type != game.EventMatchFound {
		t.Fatalf("expected match_found for the room game: %+v", h.events.events)
	}
}

func TestJoinRoomRejectsMalformedAndExpired(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()

	for _, code := range []string{"", "ABC", "ABCDEFG", "AB-123"} {
		if _, err := h.m.JoinRoom(ctx, "guest", code); !errors.Is(err, ErrInvalidRoomCode) {
			t.Fatalf("%q: expected ErrInvalidRoomCode, got %v", code, err)
		}
	}
	if _, err := h.m.JoinRoom(ctx, "guest", "ZZZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	room, err := h.m.CreateRoom(ctx, "owner")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	h.mr.FastForward(time.Hour + time.Second)
	if _, err := h.m.JoinRoom(ctx, "guest", room.Code); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expired room should be gone, got %v", err)
	}
}

func TestJoinRoomRestoresOnFailure(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()
	room, err := h.m.CreateRoom(ctx, "owner")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	h.games.fail = errors.New("store down")
	if _, err := h.m.JoinRoom(ctx, "guest", room.Code); err == nil {
		t.Fatalf("expected failure")
	}
	h.games.fail = nil
	g, err := h.m.JoinRoom(ctx, "guest", room.Code)
	if err != nil {
		t.Fatalf("room should survive a failed join: %v", err)
	}
	if g.WhitePlayerID != "owner" {
		t.Fatalf("owner must be white: %+v", g)
	}
}

func TestJoinRoomRequiresIdlePlayers(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()
	room, err := h.m.CreateRoom(ctx, "owner")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	h.games.active["guest"] = true
	if _, err := h.m.JoinRoom(ctx, "guest", room.Code); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("busy joiner: %v", err)
	}
	h.games.active["guest"] = false

	// owner got a queue game after opening the room
	h.games.active["owner"] = true
	if _, err := h.m.JoinRoom(ctx, "guest", room.Code); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("busy owner: %v", err)
	}
	if len(h.games.created) != 0 {
		t.Fatalf("no game may start while a seat is busy: %+v", h.games.created)
	}
	h.games.active["owner"] = false

	mustEnqueue(t, h, "guest")
	if _, err := h.m.JoinRoom(ctx, "guest", room.Code); err != nil {
		t.Fatalf("room should survive a busy owner: %v", err)
	}
	st, err := h.m.Status(ctx, "guest")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.InQueue {
		t.Fatalf("room game must take the joiner out of the queue")
	}
}

func TestTickDropsBusyPlayers(t *testing.T) {
	h := newTestManager(t, fakeRatings{})
	ctx := context.Background()
	mustEnqueue(t, h, "p1", "p2")
	h.games.active["p1"] = true

	pairs, err := h.m.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(pairs) != 0 || len(h.games.created) != 0 {
		t.Fatalf("busy player was paired: %+v", pairs)
	}
	p1, _ := h.m.Status(ctx, "p1")
	p2, _ := h.m.Status(ctx, "p2")
	if p1.InQueue || !p2.InQueue {
		t.Fatalf("expected only the idle player to stay queued: p1=%+v p2=%+v", p1, p2)
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		wait time.Duration
		want int
	}{
		{0, 100},
		{4999 * time.Millisecond, 100},
		{5 * time.Second, 200},
		{10 * time.Second, 300},
		{15 * time.Second, 400},
		{20 * time.Second, 500},
		{29 * time.Second, 500},
	}
	for _, c := range cases {
		if got := Window(c.wait); got != c.want {
			t.Fatalf("Window(%v) = %d, want %d", c.wait, got, c.want)
		}
	}
}
