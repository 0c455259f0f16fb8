// Package game is the authoritative session engine: it validates moves
// through the rules oracle, persists every transition before exposing it and
// settles ratings when a game ends.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/bot"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/rating"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/internal/store"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	defaultDrawOfferTTL = 30 * time.Second
	defaultRetention    = 10 * time.Minute
	botMoveTimeout      = 30 * time.Second
)

// AfterFunc schedules f after d and returns a stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, f)
	return t.Stop
}

type Deps struct {
	Store  store.Repository
	Oracle rules.Oracle
	Bot    *bot.Engine
	Cache  *Cache
	Events Broadcaster
	Logger *zap.Logger
}

type Config struct {
	DrawOfferTTL      time.Duration
	Retention         time.Duration
	DefaultDifficulty bot.Difficulty
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithAfterFunc(f AfterFunc) Option {
	return func(m *Manager) { m.afterFunc = f }
}

func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

type Manager struct {
	store  store.Repository
	oracle rules.Oracle
	bot    *bot.Engine
	cache  *Cache
	events Broadcaster
	logger *zap.Logger
	cfg    Config

	now       func() time.Time
	afterFunc AfterFunc
	newID     func() string

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(deps Deps, cfg Config, opts ...Option) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("game store is required")
	}
	if deps.Oracle == nil {
		return nil, fmt.Errorf("rules oracle is required")
	}
	if deps.Bot == nil {
		deps.Bot = bot.NewEngine(deps.Oracle)
	}
	if deps.Events == nil {
		deps.Events = nopBroadcaster{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.DrawOfferTTL <= 0 {
		cfg.DrawOfferTTL = defaultDrawOfferTTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = bot.Medium
	}
	if _, err := bot.GetPreset(cfg.DefaultDifficulty); err != nil {
		return nil, fmt.Errorf("default difficulty validation failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:     deps.Store,
		oracle:    deps.Oracle,
		bot:       deps.Bot,
		cache:     deps.Cache,
		events:    deps.Events,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
		afterFunc: realAfterFunc,
		newID:     uuid.NewString,
		baseCtx:   ctx,
		cancel:    cancel,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close cancels pending bot moves. In-flight calls finish normally.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	list := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()
	for _, s := range list {
		s.mu.Lock()
		s.cancelBot()
		s.mu.Unlock()
	}
}

// CreateGame starts a rated game between two humans, white first.
func (m *Manager) CreateGame(ctx context.Context, whiteID, blackID string, opts CreateOptions) (*domain.Game, error) {
	whiteID, blackID = strings.TrimSpace(whiteID), strings.TrimSpace(blackID)
	if whiteID == "" || blackID == "" || whiteID == blackID || whiteID == domain.BotPlayerID || blackID == domain.BotPlayerID {
		return nil, ErrInvalidPlayers
	}
	g := m.newGame(whiteID, blackID)
	g.IsPrivate = opts.IsPrivate
	g.RoomCode = opts.RoomCode
	s, err := m.start(ctx, g)
	if err != nil {
		return nil, err
	}
	m.logger.Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("white_id", whiteID),
		zap.String("black_id", blackID),
		zap.Bool("private", g.IsPrivate),
	)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone(), nil
}

// CreateBotGame starts an unrated game against the engine. Empty difficulty
// and color default to the configured difficulty and white.
func (m *Manager) CreateBotGame(ctx context.Context, playerID, difficulty, playerColor string) (*domain.Game, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" || playerID == domain.BotPlayerID {
		return nil, ErrInvalidPlayers
	}
	level, err := bot.ParseDifficulty(difficulty, m.cfg.DefaultDifficulty)
	if err != nil {
		return nil, ErrInvalidDifficulty
	}
	color := domain.Color(strings.ToLower(strings.TrimSpace(playerColor)))
	if color == "" {
		color = domain.White
	}
	if !color.Valid() {
		return nil, ErrInvalidColor
	}

	whiteID, blackID := playerID, domain.BotPlayerID
	if color == domain.Black {
		whiteID, blackID = domain.BotPlayerID, playerID
	}
	g := m.newGame(whiteID, blackID)
	g.IsBotGame = true
	g.BotColor = color.Opponent()
	g.BotDifficulty = string(level)

	s, err := m.start(ctx, g)
	if err != nil {
		return nil, err
	}
	m.logger.Info("game_create_bot",
		zap.String("game_id", g.ID),
		zap.String("player_id", playerID),
		zap.String("difficulty", string(level)),
		zap.String("bot_color", string(g.BotColor)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if g.BotColor == domain.White {
		m.scheduleBotLocked(s)
	}
	return s.game.Clone(), nil
}

func (m *Manager) newGame(whiteID, blackID string) *domain.Game {
	now := m.now()
	return &domain.Game{
		ID:            m.newID(),
		WhitePlayerID: whiteID,
		BlackPlayerID: blackID,
		Status:        domain.StatusInProgress,
		FEN:           m.oracle.Initial().FEN,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (m *Manager) start(ctx context.Context, g *domain.Game) (*session, error) {
	if err := m.store.CreateGame(ctx, g); err != nil {
		return nil, chessdto.Upstream(err)
	}
	s := newSession(g.Clone(), m.oracle.Initial(), []domain.Move{})
	m.mu.Lock()
	m.sessions[g.ID] = s
	m.mu.Unlock()

	s.mu.Lock()
	m.mirrorLocked(ctx, s)
	s.mu.Unlock()
	return s, nil
}

// ApplyMove validates and applies one move. A repeated moveID from the same
// player returns the recorded outcome without touching the session.
func (m *Manager) ApplyMove(ctx context.Context, gameID, playerID, notation, promotion, moveID string) (*chessdto.MoveResult, error) {
	res, _, err := m.SubmitMove(ctx, gameID, playerID, notation, promotion, moveID)
	return res, err
}

// SubmitMove is ApplyMove that also reports whether the outcome was replayed
// from an earlier submission of the same token.
func (m *Manager) SubmitMove(ctx context.Context, gameID, playerID, notation, promotion, moveID string) (*chessdto.MoveResult, bool, error) {
	playerID = strings.TrimSpace(playerID)
	key := replyKey(playerID, moveID)
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, false, err
	}
	if key != "" {
		if r, ok := s.replies[key]; ok {
			s.mu.Unlock()
			res, err := replayed(r)
			return res, true, err
		}
	}
	res, events, derr := m.applyLocked(ctx, s, playerID, notation, promotion)
	if key != "" && (derr == nil || !derr.Retryable) {
		s.replies[key] = reply{result: res, err: derr}
		m.mirrorLocked(ctx, s)
	}
	s.mu.Unlock()

	m.publish(ctx, events)
	if derr != nil {
		return nil, false, derr
	}
	return res, false, nil
}

// replyKey scopes move tokens to the submitting player.
func replyKey(playerID, moveID string) string {
	moveID = strings.TrimSpace(moveID)
	if moveID == "" {
		return ""
	}
	return playerID + "/" + moveID
}

func replayed(r reply) (*chessdto.MoveResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.result == nil {
		return nil, ErrInvalidMove
	}
	out := *r.result
	return &out, nil
}

func (m *Manager) applyLocked(ctx context.Context, s *session, playerID, notation, promotion string) (*chessdto.MoveResult, []chessdto.Event, *chessdto.DomainError) {
	g := s.game
	if g.Status != domain.StatusInProgress {
		return nil, nil, ErrGameNotInProgress
	}
	color, ok := g.PlayerColor(playerID)
	if !ok {
		return nil, nil, ErrNotParticipant
	}
	side, err := m.oracle.SideToMove(s.pos)
	if err != nil {
		return nil, nil, asDomain(chessdto.Upstream(err))
	}
	if side != color {
		return nil, nil, ErrNotYourTurn
	}

	input := withPromotion(notation, promotion)
	applied, err := m.oracle.Apply(s.pos, input)
	if errors.Is(err, rules.ErrIllegalMove) {
		return nil, nil, ErrInvalidMove
	}
	if err != nil {
		return nil, nil, asDomain(chessdto.Upstream(err))
	}

	now := m.now()
	next := g.Clone()
	next.FEN = applied.Position.FEN
	next.UpdatedAt = now
	mv := domain.Move{
		GameID:     g.ID,
		PlayerID:   playerID,
		Color:      color,
		MoveNumber: len(s.moves) + 1,
		SAN:        applied.SAN,
		UCI:        applied.UCI,
		FEN:        applied.Position.FEN,
		CreatedAt:  now,
	}

	terminal := applied.Status.Terminal()
	var (
		ratings []domain.RatingRecord
		changes []domain.RatingChange
	)
	if terminal {
		if applied.Status.Checkmate {
			next.Result = domain.WinResult(color)
			next.ResultMethod = MethodCheckmate
		} else {
			next.Result = domain.ResultDraw
			next.ResultMethod = applied.Status.Method
			if next.ResultMethod == "" {
				next.ResultMethod = "draw"
			}
		}
		finish(next, now)
		next.PGN = store.BuildPGN(next, append(s.sans(), applied.SAN))
		if ratings, changes, err = m.settle(ctx, next, now); err != nil {
			return nil, nil, asDomain(chessdto.Upstream(err))
		}
	}

	if err := m.store.RecordMove(ctx, next, mv, changes); err != nil {
		if errors.Is(err, store.ErrMoveConflict) {
			m.evictLocked(ctx, s)
			return nil, nil, ErrStaleSession
		}
		return nil, nil, asDomain(chessdto.Upstream(err))
	}

	s.game = next
	s.pos = applied.Position
	s.moves = append(s.moves, mv)

	res := &chessdto.MoveResult{
		Move:  moveDTO(mv),
		State: s.state(now),
		Check: applied.Status.Check,
	}
	events := []chessdto.Event{{Type: EventMoveMade, GameID: g.ID, Payload: res, To: participants(next)}}

	m.logger.Info("game_move",
		zap.String("game_id", g.ID),
		zap.String("player_id", playerID),
		zap.String("uci", mv.UCI),
		zap.Int("move_number", mv.MoveNumber),
	)

	if terminal {
		events = append(events, m.endLocked(s, ratings, now))
	} else if next.IsBotGame && applied.Status.Turn == next.BotColor {
		m.scheduleBotLocked(s)
	}
	m.mirrorLocked(ctx, s)
	return res, events, nil
}

// Resign ends the game in the opponent's favour.
func (m *Manager) Resign(ctx context.Context, gameID, playerID string) (*domain.Game, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g := s.game
	if g.Status != domain.StatusInProgress {
		s.mu.Unlock()
		return nil, ErrGameNotInProgress
	}
	color, ok := g.PlayerColor(strings.TrimSpace(playerID))
	if !ok || playerID == domain.BotPlayerID {
		s.mu.Unlock()
		return nil, ErrNotParticipant
	}
	now := m.now()
	next := g.Clone()
	next.Result = domain.WinResult(color.Opponent())
	next.ResultMethod = MethodResignation
	finish(next, now)
	ev, derr := m.finishLocked(ctx, s, next, now)
	out := s.game.Clone()
	s.mu.Unlock()
	if derr != nil {
		return nil, derr
	}
	m.logger.Info("game_resign", zap.String("game_id", gameID), zap.String("player_id", playerID))
	m.publish(ctx, []chessdto.Event{ev})
	return out, nil
}

// OfferDraw records a pending offer that the other seat may accept until it expires.
func (m *Manager) OfferDraw(ctx context.Context, gameID, playerID string) (*DrawOffer, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g := s.game
	if g.Status != domain.StatusInProgress {
		s.mu.Unlock()
		return nil, ErrGameNotInProgress
	}
	color, ok := g.PlayerColor(strings.TrimSpace(playerID))
	if !ok || playerID == domain.BotPlayerID {
		s.mu.Unlock()
		return nil, ErrNotParticipant
	}
	if g.IsBotGame {
		s.mu.Unlock()
		return nil, ErrDrawUnavailable
	}
	now := m.now()
	s.offer = &DrawOffer{GameID: g.ID, OfferedBy: playerID, Color: color, ExpiresAt: now.Add(m.cfg.DrawOfferTTL)}
	offer := *s.offer
	m.mirrorLocked(ctx, s)
	to := participants(g)
	s.mu.Unlock()

	m.logger.Info("game_draw_offer", zap.String("game_id", gameID), zap.String("player_id", playerID))
	m.publish(ctx, []chessdto.Event{{Type: EventDrawOffered, GameID: gameID, Payload: offer, To: to}})
	return &offer, nil
}

// AcceptDraw ends the game as a draw when the other seat's offer is still live.
func (m *Manager) AcceptDraw(ctx context.Context, gameID, playerID string) (*domain.Game, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g := s.game
	if g.Status != domain.StatusInProgress {
		s.mu.Unlock()
		return nil, ErrGameNotInProgress
	}
	if _, ok := g.PlayerColor(strings.TrimSpace(playerID)); !ok || playerID == domain.BotPlayerID {
		s.mu.Unlock()
		return nil, ErrNotParticipant
	}
	now := m.now()
	if !s.offer.live(now) {
		if s.offer != nil {
			s.offer = nil
			m.mirrorLocked(ctx, s)
		}
		s.mu.Unlock()
		return nil, ErrNoActiveDrawOffer
	}
	if s.offer.OfferedBy == playerID {
		s.mu.Unlock()
		return nil, ErrOwnDrawOffer
	}
	next := g.Clone()
	next.Result = domain.ResultDraw
	next.ResultMethod = MethodAgreement
	finish(next, now)
	ev, derr := m.finishLocked(ctx, s, next, now)
	out := s.game.Clone()
	s.mu.Unlock()
	if derr != nil {
		return nil, derr
	}
	m.logger.Info("game_draw_accept", zap.String("game_id", gameID), zap.String("player_id", playerID))
	m.publish(ctx, []chessdto.Event{ev})
	return out, nil
}

// finishLocked persists a terminal row that carries no move.
func (m *Manager) finishLocked(ctx context.Context, s *session, next *domain.Game, now time.Time) (chessdto.Event, *chessdto.DomainError) {
	next.PGN = store.BuildPGN(next, s.sans())
	ratings, changes, err := m.settle(ctx, next, now)
	if err != nil {
		return chessdto.Event{}, asDomain(chessdto.Upstream(err))
	}
	if err := m.store.FinishGame(ctx, next, changes); err != nil {
		return chessdto.Event{}, asDomain(chessdto.Upstream(err))
	}
	s.game = next
	ev := m.endLocked(s, ratings, now)
	m.mirrorLocked(ctx, s)
	return ev, nil
}

// endLocked clears pending work for a session that just became terminal.
func (m *Manager) endLocked(s *session, ratings []domain.RatingRecord, now time.Time) chessdto.Event {
	s.offer = nil
	s.cancelBot()
	g := s.game
	payload := GameOverPayload{State: s.state(now), Reason: g.ResultMethod}
	switch g.Result {
	case domain.ResultWhiteWin:
		payload.Winner = g.PlayerAt(domain.White)
	case domain.ResultBlackWin:
		payload.Winner = g.PlayerAt(domain.Black)
	}
	for _, rec := range ratings {
		payload.Ratings = append(payload.Ratings, ratingDTO(rec))
	}
	m.logger.Info("game_over",
		zap.String("game_id", g.ID),
		zap.String("result", string(g.Result)),
		zap.String("method", g.ResultMethod),
	)
	id := g.ID
	m.afterFunc(m.cfg.Retention, func() { m.forget(id) })
	return chessdto.Event{Type: EventGameOver, GameID: g.ID, Payload: payload, To: participants(g)}
}

// settle computes the updated rating records for a rated game and the
// increments the store applies.
func (m *Manager) settle(ctx context.Context, g *domain.Game, now time.Time) ([]domain.RatingRecord, []domain.RatingChange, error) {
	if g.IsBotGame || g.Result == domain.ResultNone {
		return nil, nil, nil
	}
	white, err := m.ratingOf(ctx, g.WhitePlayerID, now)
	if err != nil {
		return nil, nil, err
	}
	black, err := m.ratingOf(ctx, g.BlackPlayerID, now)
	if err != nil {
		return nil, nil, err
	}
	var w, b domain.RatingRecord
	switch g.Result {
	case domain.ResultWhiteWin:
		w, b = rating.Apply(white, black, false, now)
	case domain.ResultBlackWin:
		b, w = rating.Apply(black, white, false, now)
	default:
		w, b = rating.Apply(white, black, true, now)
	}
	return []domain.RatingRecord{w, b}, []domain.RatingChange{rating.ChangeOf(white, w), rating.ChangeOf(black, b)}, nil
}

func (m *Manager) ratingOf(ctx context.Context, playerID string, now time.Time) (domain.RatingRecord, error) {
	rec, err := m.store.GetRating(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return rating.Fresh(playerID, now), nil
	}
	if err != nil {
		return domain.RatingRecord{}, err
	}
	return *rec, nil
}

// Moves returns the ordered move list.
func (m *Manager) Moves(ctx context.Context, gameID string) ([]domain.Move, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]domain.Move{}, s.moves...), nil
}

func (m *Manager) Game(ctx context.Context, gameID string) (*domain.Game, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.game.Clone(), nil
}

// State returns the wire form used for resync after a reconnect.
func (m *Manager) State(ctx context.Context, gameID string) (*chessdto.GameState, error) {
	s, err := m.acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	st := s.state(m.now())
	return &st, nil
}

// ActiveGame returns the player's in-progress game.
func (m *Manager) ActiveGame(ctx context.Context, playerID string) (*domain.Game, error) {
	g, err := m.store.ActiveGameByPlayer(ctx, strings.TrimSpace(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	return m.Game(ctx, g.ID)
}

// acquire returns the session locked. A session evicted while the caller
// waited is reloaded.
func (m *Manager) acquire(ctx context.Context, gameID string) (*session, error) {
	for {
		s, err := m.load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !s.evicted {
			return s, nil
		}
		s.mu.Unlock()
	}
}

// load resolves a session: registry, then Redis snapshot, then the store.
func (m *Manager) load(ctx context.Context, gameID string) (*session, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, ErrGameNotFound
	}
	m.mu.Lock()
	s := m.sessions[gameID]
	m.mu.Unlock()
	if s != nil {
		return s, nil
	}

	s = m.fromCache(ctx, gameID)
	if s == nil {
		var err error
		if s, err = m.fromStore(ctx, gameID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	if existing := m.sessions[gameID]; existing != nil {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[gameID] = s
	m.mu.Unlock()

	// resume a bot turn that was pending when the session left memory
	s.mu.Lock()
	if s.game.IsBotGame && s.game.Status == domain.StatusInProgress && s.turn() == s.game.BotColor && s.botStop == nil {
		m.scheduleBotLocked(s)
	}
	s.mu.Unlock()
	return s, nil
}

func (m *Manager) fromCache(ctx context.Context, gameID string) *session {
	snap, err := m.cache.Load(ctx, gameID)
	if err != nil {
		m.logger.Warn("game_cache_load_failed", zap.String("game_id", gameID), zap.Error(err))
		return nil
	}
	if snap == nil {
		return nil
	}
	pos, err := m.oracle.FromMoves(uciList(snap.Moves))
	if err != nil {
		m.logger.Warn("game_cache_replay_failed", zap.String("game_id", gameID), zap.Error(err))
		return nil
	}
	s := newSession(snap.Game, pos, snap.Moves)
	s.replies = restoreReplies(snap.Replies)
	s.offer = snap.DrawOffer
	return s
}

func (m *Manager) fromStore(ctx context.Context, gameID string) (*session, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	moves, err := m.store.ListMoves(ctx, gameID)
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	pos, err := m.oracle.FromMoves(uciList(moves))
	if err != nil {
		return nil, chessdto.Upstream(err)
	}
	return newSession(g, pos, moves), nil
}

// mirrorLocked writes the snapshot; a failed write drops the key so a stale
// copy is never served.
func (m *Manager) mirrorLocked(ctx context.Context, s *session) {
	if m.cache == nil || s.evicted {
		return
	}
	if err := m.cache.Save(ctx, s.snapshot()); err != nil {
		m.logger.Warn("game_cache_save_failed", zap.String("game_id", s.game.ID), zap.Error(err))
		_ = m.cache.Delete(ctx, s.game.ID)
	}
}

// evictLocked drops a session whose in-memory view diverged from the store.
func (m *Manager) evictLocked(ctx context.Context, s *session) {
	s.evicted = true
	s.cancelBot()
	id := s.game.ID
	if m.cache != nil {
		_ = m.cache.Delete(ctx, id)
	}
	m.mu.Lock()
	if m.sessions[id] == s {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.logger.Warn("game_session_evicted", zap.String("game_id", id))
}

func (m *Manager) forget(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, gameID)
}

func (m *Manager) publish(ctx context.Context, events []chessdto.Event) {
	for _, ev := range events {
		m.events.Publish(ctx, ev)
	}
}

func finish(g *domain.Game, now time.Time) {
	g.Status = domain.StatusCompleted
	g.UpdatedAt = now
	t := now
	g.EndedAt = &t
}

func withPromotion(notation, promotion string) string {
	mv := strings.TrimSpace(notation)
	p := strings.ToLower(strings.TrimSpace(promotion))
	if p == "" || len(mv) != 4 {
		return mv
	}
	switch p {
	case "queen":
		p = "q"
	case "rook":
		p = "r"
	case "bishop":
		p = "b"
	case "knight":
		p = "n"
	}
	return mv + p[:1]
}

func uciList(moves []domain.Move) []string {
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.UCI)
	}
	return out
}

func asDomain(err error) *chessdto.DomainError {
	var de *chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	return &chessdto.DomainError{Kind: chessdto.KindUpstream, Code: "upstream", Message: err.Error(), Retryable: true}
}
