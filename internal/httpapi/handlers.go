package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/park285/chess-arena/pkg/chessdto"
)

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req chessdto.CreateBotGameRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.d.Games.CreateBotGame(r.Context(), pid, req.Difficulty, req.PlayerColor)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.d.Games.State(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	st, err := s.d.Games.State(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := s.d.Games.Moves(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moves": moves})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req chessdto.MakeMoveRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.MoveID == "" {
		req.MoveID = r.Header.Get("Idempotency-Key")
	}
	res, err := s.d.Games.ApplyMove(r.Context(), chi.URLParam(r, "id"), pid, req.Move, req.Promotion, req.MoveID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.d.Games.Resign(r.Context(), chi.URLParam(r, "id"), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeState(w, r, g.ID)
}

func (s *Server) handleOfferDraw(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offer, err := s.d.Games.OfferDraw(r.Context(), chi.URLParam(r, "id"), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleAcceptDraw(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.d.Games.AcceptDraw(r.Context(), chi.URLParam(r, "id"), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeState(w, r, g.ID)
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, gameID string) {
	st, err := s.d.Games.State(r.Context(), gameID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.d.Matchmaking.Enqueue(r.Context(), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleDequeue(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Matchmaking.Dequeue(r.Context(), pid); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.d.Matchmaking.Status(r.Context(), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	room, err := s.d.Matchmaking.CreateRoom(r.Context(), pid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	pid, err := player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.d.Matchmaking.JoinRoom(r.Context(), pid, chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.d.Games.State(r.Context(), g.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.d.Leaderboard.Top(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": rows})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.d.Leaderboard.Player(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleActiveGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.d.Games.ActiveGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeState(w, r, g.ID)
}
