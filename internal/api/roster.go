package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitchside/auctiond/internal/roster"
)

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.manager.EligiblePool(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in roster.RegisterInput
	if !s.decode(w, r, &in) {
		return
	}
	reg, err := s.manager.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.manager.Registrations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, regs)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	reg, err := s.manager.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	reg, err := s.manager.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in roster.TeamInput
	if !s.decode(w, r, &in) {
		return
	}
	team, err := s.manager.CreateTeam(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.manager.Teams(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.manager.Team(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleSquad(w http.ResponseWriter, r *http.Request) {
	squad, err := s.manager.TeamSquad(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, squad)
}

func (s *Server) handleSquadCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Buffer the export so an error can still produce a clean JSON response.
	var buf bytes.Buffer
	if err := s.manager.ExportSquadCSV(r.Context(), id, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "squad-"+id+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
