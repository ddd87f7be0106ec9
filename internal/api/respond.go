package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pitchside/auctiond/internal/roster"
	"github.com/pitchside/auctiond/internal/session"
	"github.com/pitchside/auctiond/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// writeError maps domain errors onto HTTP statuses: precondition violations
// are 409, validation failures 400, unknown records 404, the rest 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrLotInProgress),
		errors.Is(err, session.ErrNoLiveLot),
		errors.Is(err, session.ErrNoBidder),
		errors.Is(err, session.ErrNothingToUndo),
		errors.Is(err, session.ErrNotEligible),
		errors.Is(err, session.ErrInsufficientFunds),
		errors.Is(err, roster.ErrNotPending):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidAmount),
		errors.Is(err, session.ErrBelowBasePrice),
		errors.Is(err, roster.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownTeam),
		errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		s.writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}
