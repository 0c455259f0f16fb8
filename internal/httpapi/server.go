// Package httpapi exposes the arena over REST (chi) and mounts the
// websocket gateway.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/game"
	"github.com/park285/chess-arena/internal/leaderboard"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// PlayerHeader names the caller. Authentication happens upstream.
const PlayerHeader = "X-Player-Id"

type Deps struct {
	Games       *game.Manager
	Matchmaking *matchmaking.Manager
	Leaderboard *leaderboard.Service
	Realtime    http.Handler
	Catalog     *msgcat.Catalog
	Logger      *zap.Logger
}

type Server struct {
	r   *chi.Mux
	d   Deps
	log *zap.Logger
}

var (
	errMissingPlayer = chessdto.NewError(chessdto.KindValidation, "invalid_player", "X-Player-Id header is required")
	errBadBody       = chessdto.NewError(chessdto.KindValidation, "bad_request", "malformed request body")
)

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	s := &Server{r: chi.NewRouter(), d: d, log: d.Logger}
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.accessLog)

	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if d.Realtime != nil {
		// 웹소켓은 Timeout 미들웨어 밖에 둔다
		s.r.Get("/ws", d.Realtime.ServeHTTP)
	}

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		r.Route("/games", func(r chi.Router) {
			r.Post("/bot", s.handleCreateBot)
			r.Get("/{id}", s.handleGetGame)
			r.Get("/{id}/moves", s.handleListMoves)
			r.Post("/{id}/moves", s.handleMove)
			r.Post("/{id}/resign", s.handleResign)
			r.Post("/{id}/draw/offer", s.handleOfferDraw)
			r.Post("/{id}/draw/accept", s.handleAcceptDraw)
		})
		r.Route("/matchmaking/queue", func(r chi.Router) {
			r.Post("/", s.handleEnqueue)
			r.Delete("/", s.handleDequeue)
			r.Get("/", s.handleQueueStatus)
		})
		r.Post("/rooms", s.handleCreateRoom)
		r.Post("/rooms/{code}/join", s.handleJoinRoom)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/players/{id}", s.handlePlayer)
		r.Get("/players/{id}/active-game", s.handleActiveGame)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, chessdto.ErrorResponse{Kind: string(chessdto.KindNotFound), Code: "route_not_found", Message: r.URL.Path})
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.r.ServeHTTP(w, r) }

func (s *Server) Router() chi.Router { return s.r }

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func player(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(PlayerHeader))
	if id == "" {
		return "", errMissingPlayer
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// fail maps a domain error kind to a status: validation 400, not found 404,
// conflict 409, upstream 503.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var de *chessdto.DomainError
	if !errors.As(err, &de) {
		de = chessdto.Upstream(err).(*chessdto.DomainError)
	}
	status := http.StatusServiceUnavailable
	switch de.Kind {
	case chessdto.KindValidation:
		status = http.StatusBadRequest
	case chessdto.KindNotFound:
		status = http.StatusNotFound
	case chessdto.KindConflict:
		status = http.StatusConflict
	}
	if status == http.StatusServiceUnavailable {
		s.log.Warn("http_upstream_error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, chessdto.ErrorResponse{
		Kind:      string(de.Kind),
		Code:      de.Code,
		Message:   s.d.Catalog.ErrorText(de.Code, de.Message),
		Retryable: de.Retryable,
	})
}
