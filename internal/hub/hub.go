// Package hub streams auction state to spectator screens over WebSocket.
// Each connection gets its own engine subscription, so every client sees
// every transition in order. Team wallet refreshes ride the same socket
// after each sale.
package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pitchside/auctiond/internal/session"
	"github.com/pitchside/auctiond/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message is one JSON frame on the spectator socket. Exactly one of Session
// or Teams is set, keyed by Type.
type Message struct {
	Type    string            `json:"type"`
	Session *session.Snapshot `json:"session,omitempty"`
	Teams   []store.Team      `json:"teams,omitempty"`
}

// Hub upgrades spectator connections and streams session snapshots.
type Hub struct {
	engine *session.Engine
	teams  store.TeamRepository
	logger *slog.Logger

	upgrader websocket.Upgrader
}

func New(engine *session.Engine, teams store.TeamRepository, logger *slog.Logger) *Hub {
	return &Hub{
		engine: engine,
		teams:  teams,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The stream is public read-only broadcast data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS handles WebSocket upgrade requests at GET /ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", slog.Any("error", err))
		return
	}
	h.logger.Info("spectator connected", slog.String("remote", conn.RemoteAddr().String()))

	sub, cancel := h.engine.Subscribe()
	done := make(chan struct{})

	// Read pump: the client sends nothing meaningful, but reading detects
	// disconnects and services pongs.
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go h.writePump(conn, sub, cancel, done)
}

// writePump is the single writer for one connection. It sends the current
// team list first, then relays every session snapshot; a sold snapshot is
// followed by a fresh team list so wallets update on screen.
func (h *Hub) writePump(conn *websocket.Conn, sub <-chan session.Snapshot, cancel func(), done <-chan struct{}) {
	defer func() {
		cancel()
		conn.Close()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := h.sendTeams(conn); err != nil {
		return
	}

	for {
		select {
		case snap := <-sub:
			if err := h.write(conn, Message{Type: "session", Session: &snap}); err != nil {
				return
			}
			if snap.State == session.StateSold {
				if err := h.sendTeams(conn); err != nil {
					return
				}
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Hub) sendTeams(conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	teams, err := h.teams.List(ctx)
	if err != nil {
		h.logger.Error("failed to load teams for spectator stream", slog.Any("error", err))
		return err
	}
	return h.write(conn, Message{Type: "teams", Teams: teams})
}

func (h *Hub) write(conn *websocket.Conn, msg Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
