// Package api exposes the operator console and public endpoints over HTTP.
// Auction operations go through the session engine, roster operations
// through the roster manager, and the spectator stream through the hub.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pitchside/auctiond/internal/hub"
	"github.com/pitchside/auctiond/internal/roster"
	"github.com/pitchside/auctiond/internal/session"
)

// Server holds the handler dependencies. Increments are the operator
// console's quick-raise buttons; RaiseBid accepts any positive amount.
type Server struct {
	engine     *session.Engine
	manager    *roster.Manager
	hub        *hub.Hub
	logger     *slog.Logger
	increments []int
}

func NewServer(engine *session.Engine, manager *roster.Manager, h *hub.Hub, logger *slog.Logger, increments ...int) *Server {
	return &Server{engine: engine, manager: manager, hub: h, logger: logger, increments: increments}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/ws", s.hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/pool", s.handlePool)

		r.Post("/registrations", s.handleRegister)
		r.Get("/registrations", s.handleRegistrations)
		r.Post("/registrations/{id}/approve", s.handleApprove)
		r.Post("/registrations/{id}/reject", s.handleReject)

		r.Post("/teams", s.handleCreateTeam)
		r.Get("/teams", s.handleTeams)
		r.Get("/teams/{id}", s.handleTeam)
		r.Get("/teams/{id}/squad", s.handleSquad)
		r.Get("/teams/{id}/squad.csv", s.handleSquadCSV)

		r.Route("/auction", func(r chi.Router) {
			r.Get("/", s.handleCurrent)
			r.Get("/increments", s.handleIncrements)
			r.Post("/select", s.handleSelect)
			r.Post("/raise", s.handleRaise)
			r.Post("/bid", s.handleSetBid)
			r.Post("/undo", s.handleUndo)
			r.Post("/bidder", s.handleBidder)
			r.Post("/sold", s.handleSold)
			r.Post("/unsold", s.handleUnsold)
			r.Post("/reveal", s.handleReveal)
			r.Post("/reset", s.handleReset)
		})
	})

	return r
}
