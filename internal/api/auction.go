package api

import (
	"net/http"
)

type selectRequest struct {
	PlayerID string `json:"player_id"`
	Force    bool   `json:"force"`
}

type amountRequest struct {
	Amount int `json:"amount"`
}

type teamRequest struct {
	TeamID string `json:"team_id"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Current())
}

func (s *Server) handleIncrements(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]int{"increments": s.increments})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.engine.SelectLot(r.Context(), req.PlayerID, req.Force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRaise(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.engine.RaiseBid(r.Context(), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetBid(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.engine.SetBid(r.Context(), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.UndoBid(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBidder(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.engine.AssignBidder(r.Context(), req.TeamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSold(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.FinalizeSale(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUnsold(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.MarkUnsold(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.engine.RevealTeam(r.Context(), req.TeamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Reset(r.Context()))
}
