// Package memory provides a store.Driver backed by in-memory maps. It is
// used for development and for tests that do not need Postgres. Sale
// application holds the store lock for the whole update, which gives the
// same all-or-nothing behavior as the Postgres transaction.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/config"
	"github.com/pitchside/auctiond/internal/event"
	"github.com/pitchside/auctiond/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		s := New(clk)
		return s.Repositories(), nil
	})
}

// Store holds all collections behind one mutex.
type Store struct {
	mu            sync.RWMutex
	clk           clock.Clock
	registrations map[string]*store.Registration
	teams         map[string]*store.Team
	events        []event.Event
}

// New creates an empty in-memory store.
func New(clk clock.Clock) *Store {
	return &Store{
		clk:           clk,
		registrations: make(map[string]*store.Registration),
		teams:         make(map[string]*store.Team),
	}
}

// Repositories exposes the store through the driver contract.
func (s *Store) Repositories() *store.Repositories {
	return &store.Repositories{
		Registrations: s,
		Teams:         (*teamStore)(s),
		Sales:         s,
		Events:        (*eventStore)(s),
		Closer:        nopCloser{},
		Ping:          func(context.Context) error { return nil },
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// --- store.RegistrationRepository ---

func (s *Store) Create(_ context.Context, r *store.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.clk.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	cp := *r
	s.registrations[r.ID] = &cp
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*store.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.registrations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) List(_ context.Context) ([]store.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*store.Registration) bool { return true }), nil
}

func (s *Store) ListEligible(_ context.Context) ([]store.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *store.Registration) bool {
		return r.Role == store.RolePlayer &&
			(r.Status == store.StatusApproved || r.Status == store.StatusUnsold)
	}), nil
}

func (s *Store) ListByTeam(_ context.Context, teamID string) ([]store.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r *store.Registration) bool {
		return r.Status == store.StatusSold && r.TeamID != nil && *r.TeamID == teamID
	}), nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status store.RegistrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = s.clk.Now().UTC()
	return nil
}

// collect returns copies sorted by creation time for stable listings.
// Callers must hold at least a read lock.
func (s *Store) collect(keep func(*store.Registration) bool) []store.Registration {
	out := make([]store.Registration, 0, len(s.registrations))
	for _, r := range s.registrations {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// --- store.SaleApplier ---

func (s *Store) ApplySale(_ context.Context, sale store.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[sale.TeamID]
	if !ok {
		return store.ErrNotFound
	}
	reg, ok := s.registrations[sale.PlayerID]
	if !ok {
		return store.ErrNotFound
	}
	if reg.Status != store.StatusApproved && reg.Status != store.StatusUnsold {
		return store.ErrNotEligible
	}
	if team.Wallet < sale.Price {
		return store.ErrInsufficientFunds
	}

	now := s.clk.Now().UTC()
	team.Wallet -= sale.Price
	team.UpdatedAt = now

	teamID := sale.TeamID
	reg.Status = store.StatusSold
	reg.TeamID = &teamID
	reg.SoldPrice = sale.Price
	reg.UpdatedAt = now
	return nil
}

// --- store.TeamRepository ---

// teamStore gives the team methods their own receiver so the method sets of
// the two repositories do not collide on Create/GetByID/List.
type teamStore Store

func (ts *teamStore) Create(_ context.Context, t *store.Team) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := ts.clk.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	cp := *t
	ts.teams[t.ID] = &cp
	return nil
}

func (ts *teamStore) GetByID(_ context.Context, id string) (*store.Team, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	t, ok := ts.teams[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (ts *teamStore) List(_ context.Context) ([]store.Team, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]store.Team, 0, len(ts.teams))
	for _, t := range ts.teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- event.Store ---

type eventStore Store

func (es *eventStore) Append(_ context.Context, events ...event.Event) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	now := es.clk.Now().UTC()
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		es.events = append(es.events, e)
	}
	return nil
}

func (es *eventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var out []event.Event
	for _, e := range es.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (es *eventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var out []event.Event
	for _, e := range es.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}
