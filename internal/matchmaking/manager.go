package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/rating"
	"github.com/park285/chess-arena/internal/store"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// Games is the part of the game manager the queue needs.
type Games interface {
	CreateGame(ctx context.Context, whiteID, blackID string, opts game.CreateOptions) (*domain.Game, error)
	ActiveGame(ctx context.Context, playerID string) (*domain.Game, error)
}

type Ratings interface {
	GetRating(ctx context.Context, playerID string) (*domain.RatingRecord, error)
}

type Config struct {
	EntryTTL time.Duration
	RoomTTL  time.Duration
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSeed fixes the colour assignment sequence.
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.rand = rand.New(rand.NewSource(seed)) }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

type Manager struct {
	q       *queueStore
	games   Games
	ratings Ratings
	events  game.Broadcaster
	roomTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	ticking atomic.Bool
}

func NewManager(rdb *redis.Client, games Games, ratings Ratings, events game.Broadcaster, cfg Config, opts ...Option) (*Manager, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if games == nil || ratings == nil {
		return nil, errors.New("games and ratings are required")
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = defaultEntryTTL
	}
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = defaultRoomTTL
	}
	m := &Manager{
		q:       &queueStore{rdb: rdb, entryTTL: cfg.EntryTTL},
		games:   games,
		ratings: ratings,
		events:  events,
		roomTTL: cfg.RoomTTL,
		logger:  zap.NewNop(),
		now:     time.Now,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Enqueue adds the player to the rating queue. Enqueueing twice keeps the
// original wait time.
func (m *Manager) Enqueue(ctx context.Context, playerID string) (*chessdto.QueueStatus, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" || playerID == domain.BotPlayerID {
		return nil, ErrInvalidPlayer
	}
	if err := m.ensureIdle(ctx, playerID); err != nil {
		return nil, err
	}
	queued, err := m.q.inQueue(ctx, playerID)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	if !queued {
		r, err := m.ratingOf(ctx, playerID)
		if err != nil {
			return nil, err
		}
		if err := m.q.add(ctx, Entry{PlayerID: playerID, Rating: r, EnqueuedAt: m.now()}); err != nil {
			return nil, chessdto.Upstream(err)
		}
		m.logger.Info("mm_enqueue", zap.String("player_id", playerID), zap.Int("rating", r))
	}
	return m.Status(ctx, playerID)
}

func (m *Manager) Dequeue(ctx context.Context, playerID string) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return ErrInvalidPlayer
	}
	if err := m.q.remove(ctx, playerID); err != nil {
		return chessdto.Upstream(err)
	}
	m.logger.Info("mm_dequeue", zap.String("player_id", playerID))
	return nil
}

func (m *Manager) Status(ctx context.Context, playerID string) (*chessdto.QueueStatus, error) {
	playerID = strings.TrimSpace(playerID)
	size, err := m.q.size(ctx)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	st := &chessdto.QueueStatus{QueueSize: size}
	if playerID == "" {
		return st, nil
	}
	queued, err := m.q.inQueue(ctx, playerID)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	if !queued {
		return st, nil
	}
	started, ok, err := m.q.startedAt(ctx, playerID)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	st.InQueue = ok
	if ok {
		wait := int64(m.now().Sub(started) / time.Second)
		if wait < 0 {
			wait = 0
		}
		st.WaitSeconds = &wait
	}
	return st, nil
}

// Tick pairs waiting players once. Overlapping calls return immediately.
func (m *Manager) Tick(ctx context.Context) ([]Pairing, error) {
	if !m.ticking.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer m.ticking.Store(false)

	entries, stale, err := m.q.snapshot(ctx)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	for _, id := range stale {
		if err := m.q.remove(ctx, id); err != nil {
			m.logger.Warn("mm_stale_remove_failed", zap.String("player_id", id), zap.Error(err))
			continue
		}
		m.logger.Info("mm_stale_evicted", zap.String("player_id", id))
	}
	if len(entries) < 2 {
		return nil, nil
	}

	now := m.now()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})
	taken := make(map[string]bool, len(entries))
	var out []Pairing
	for _, p := range entries {
		if taken[p.PlayerID] {
			continue
		}
		for _, c := range m.candidates(p, entries, taken) {
			if !accepts(p, c, now) {
				continue
			}
			err := m.q.claim(ctx, p.PlayerID, c.PlayerID)
			if errors.Is(err, errClaimLost) || errors.Is(err, redis.TxFailedErr) {
				// 다른 프로세스가 먼저 가져감
				continue
			}
			if err != nil {
				return out, chessdto.Upstream(err)
			}
			taken[p.PlayerID], taken[c.PlayerID] = true, true
			pr, err := m.start(ctx, p, c, now)
			if err != nil {
				m.logger.Warn("mm_pair_failed",
					zap.String("player_a", p.PlayerID),
					zap.String("player_b", c.PlayerID),
					zap.Error(err),
				)
				if rerr := m.q.restore(ctx, now, m.stillWaiting(ctx, p, c)...); rerr != nil {
					m.logger.Error("mm_restore_failed", zap.Error(rerr))
				}
				break
			}
			out = append(out, pr)
			break
		}
	}
	return out, nil
}

// Run ticks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.Tick(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("mm_tick_failed", zap.Error(err))
			}
		}
	}
}

// candidates returns up to ten untaken entries ordered by rating distance.
func (m *Manager) candidates(p Entry, entries []Entry, taken map[string]bool) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.PlayerID == p.PlayerID || taken[e.PlayerID] {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].Rating-p.Rating) < abs(out[j].Rating-p.Rating)
	})
	if len(out) > candidateScan {
		out = out[:candidateScan]
	}
	return out
}

func accepts(p, c Entry, now time.Time) bool {
	waitP := now.Sub(p.EnqueuedAt)
	if waitP >= FallbackWait {
		return true
	}
	d := abs(p.Rating - c.Rating)
	return d <= Window(waitP) && d <= Window(now.Sub(c.EnqueuedAt))
}

func (m *Manager) start(ctx context.Context, a, b Entry, now time.Time) (Pairing, error) {
	// a queued player may have started a room game since enqueueing
	for _, e := range []Entry{a, b} {
		if err := m.ensureIdle(ctx, e.PlayerID); err != nil {
			return Pairing{}, err
		}
	}
	white, black := a, b
	if m.coin() {
		white, black = b, a
	}
	g, err := m.games.CreateGame(ctx, white.PlayerID, black.PlayerID, game.CreateOptions{})
	if err != nil {
		return Pairing{}, err
	}
	pr := Pairing{
		GameID:      g.ID,
		WhiteID:     white.PlayerID,
		BlackID:     black.PlayerID,
		WhiteRating: white.Rating,
		BlackRating: black.Rating,
	}
	m.logger.Info("mm_pair",
		zap.String("game_id", g.ID),
		zap.String("white_id", pr.WhiteID),
		zap.String("black_id", pr.BlackID),
		zap.Int("rating_gap", abs(pr.WhiteRating-pr.BlackRating)),
		zap.Duration("waited", now.Sub(a.EnqueuedAt)),
	)
	m.publishMatch(ctx, chessdto.MatchFound{
		GameID:        g.ID,
		WhitePlayerID: pr.WhiteID,
		BlackPlayerID: pr.BlackID,
		WhiteRating:   pr.WhiteRating,
		BlackRating:   pr.BlackRating,
	})
	return pr, nil
}

func (m *Manager) publishMatch(ctx context.Context, mf chessdto.MatchFound) {
	if m.events == nil {
		return
	}
	m.events.Publish(ctx, chessdto.Event{
		Type:    game.EventMatchFound,
		GameID:  mf.GameID,
		Payload: mf,
		To:      []string{mf.WhitePlayerID, mf.BlackPlayerID},
	})
}

// stillWaiting drops entries whose player is now seated in a game.
func (m *Manager) stillWaiting(ctx context.Context, entries ...Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if errors.Is(m.ensureIdle(ctx, e.PlayerID), ErrAlreadyInGame) {
			m.logger.Info("mm_busy_dropped", zap.String("player_id", e.PlayerID))
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *Manager) ensureIdle(ctx context.Context, playerID string) error {
	g, err := m.games.ActiveGame(ctx, playerID)
	if errors.Is(err, game.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if g != nil && g.Status == domain.StatusInProgress {
		return ErrAlreadyInGame
	}
	return nil
}

func (m *Manager) ratingOf(ctx context.Context, playerID string) (int, error) {
	rec, err := m.ratings.GetRating(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return rating.Initial, nil
	}
	if err != nil {
		return 0, chessdto.Upstream(fmt.Errorf("rating lookup: %w", err))
	}
	return rec.Rating, nil
}

func (m *Manager) coin() bool {
	m.randMu.Lock()
	defer m.randMu.Unlock()
	return m.rand.Intn(2) == 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
