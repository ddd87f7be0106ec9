// Package roster handles tournament sign-ups and team administration: the
// public registration intake, the admin approve/reject flow, team creation
// and squad exports. The auction itself lives in internal/session.
package roster

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitchside/auctiond/internal/event"
	"github.com/pitchside/auctiond/internal/store"
)

// Errors returned by the manager.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotPending   = errors.New("registration is not pending")
)

// Config carries the intake defaults.
type Config struct {
	DefaultBasePrice int
	DefaultWallet    int
}

// RegisterInput is a public sign-up submission.
type RegisterInput struct {
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Role      string `json:"role" validate:"required,oneof=Player Manager"`
	Mobile    string `json:"mobile" validate:"required,min=7,max=20"`
	Photo     string `json:"photo" validate:"omitempty,max=500"`
	Position  string `json:"position" validate:"omitempty,max=50"`
	Age       int    `json:"age" validate:"omitempty,gte=10,lte=80"`
	Style     string `json:"style" validate:"omitempty,max=50"`
	BasePrice int    `json:"base_price" validate:"omitempty,gt=0"`
}

// TeamInput creates a franchise. A zero wallet takes the configured default.
type TeamInput struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Logo   string `json:"logo" validate:"omitempty,max=500"`
	Wallet int    `json:"wallet" validate:"omitempty,gt=0"`
}

// Manager owns the registration and team lifecycle outside the live auction.
type Manager struct {
	repos    *store.Repositories
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	validate *validator.Validate
}

func NewManager(repos *store.Repositories, cfg Config, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		repos:    repos,
		cfg:      cfg,
		logger:   logger,
		tracer:   tp.Tracer("roster"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register creates a pending registration from a public submission. Players
// without an explicit base price get the configured default.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*store.Registration, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Register",
		trace.WithAttributes(attribute.String("role", in.Role)),
	)
	defer span.End()

	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	reg := &store.Registration{
		Name:      in.Name,
		Role:      store.Role(in.Role),
		Mobile:    in.Mobile,
		Photo:     in.Photo,
		Position:  in.Position,
		Age:       in.Age,
		Style:     in.Style,
		Status:    store.StatusPending,
		BasePrice: in.BasePrice,
	}
	if reg.Role == store.RolePlayer && reg.BasePrice == 0 {
		reg.BasePrice = m.cfg.DefaultBasePrice
	}

	if err := m.repos.Registrations.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("creating registration: %w", err)
	}
	m.record(ctx, reg.ID, event.RegistrationCreated, 1, event.RegistrationData{
		Name: reg.Name, Role: string(reg.Role),
	})

	m.logger.InfoContext(ctx, "registration received",
		slog.String("registration_id", reg.ID),
		slog.String("name", reg.Name),
		slog.String("role", string(reg.Role)),
	)
	return reg, nil
}

// Approve moves a pending registration into the eligible pool.
func (m *Manager) Approve(ctx context.Context, id string) (*store.Registration, error) {
	return m.review(ctx, id, store.StatusApproved, event.RegistrationApproved)
}

// Reject declines a pending registration.
func (m *Manager) Reject(ctx context.Context, id string) (*store.Registration, error) {
	return m.review(ctx, id, store.StatusRejected, event.RegistrationRejected)
}

func (m *Manager) review(ctx context.Context, id string, status store.RegistrationStatus, t event.Type) (*store.Registration, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.review",
		trace.WithAttributes(
			attribute.String("registration.id", id),
			attribute.String("status", string(status)),
		),
	)
	defer span.End()

	reg, err := m.repos.Registrations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading registration: %w", err)
	}
	if reg.Status != store.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, id, reg.Status)
	}

	if err := m.repos.Registrations.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("updating registration status: %w", err)
	}
	reg.Status = status
	m.record(ctx, reg.ID, t, 2, event.RegistrationData{
		Name: reg.Name, Role: string(reg.Role),
	})

	m.logger.InfoContext(ctx, "registration reviewed",
		slog.String("registration_id", id),
		slog.String("status", string(status)),
	)
	return reg, nil
}

// CreateTeam creates a franchise with its bidding wallet.
func (m *Manager) CreateTeam(ctx context.Context, in TeamInput) (*store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateTeam",
		trace.WithAttributes(attribute.String("team.name", in.Name)),
	)
	defer span.End()

	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	team := &store.Team{
		Name:   in.Name,
		Logo:   in.Logo,
		Wallet: in.Wallet,
	}
	if team.Wallet == 0 {
		team.Wallet = m.cfg.DefaultWallet
	}

	if err := m.repos.Teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	m.record(ctx, team.ID, event.TeamCreated, 1, event.TeamCreatedData{
		Name: team.Name, Wallet: team.Wallet,
	})

	m.logger.InfoContext(ctx, "team created",
		slog.String("team_id", team.ID),
		slog.String("name", team.Name),
		slog.Int("wallet", team.Wallet),
	)
	return team, nil
}

// EligiblePool lists the players an operator can put up as the next lot.
func (m *Manager) EligiblePool(ctx context.Context) ([]store.Registration, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.EligiblePool")
	defer span.End()
	return m.repos.Registrations.ListEligible(ctx)
}

// Registrations lists every sign-up, pending ones included.
func (m *Manager) Registrations(ctx context.Context) ([]store.Registration, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Registrations")
	defer span.End()
	return m.repos.Registrations.List(ctx)
}

// Teams lists every franchise.
func (m *Manager) Teams(ctx context.Context) ([]store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Teams")
	defer span.End()
	return m.repos.Teams.List(ctx)
}

// Team returns one franchise.
func (m *Manager) Team(ctx context.Context, id string) (*store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Team",
		trace.WithAttributes(attribute.String("team.id", id)),
	)
	defer span.End()
	return m.repos.Teams.GetByID(ctx, id)
}

// TeamSquad returns the sold players of a team, the team checked first so an
// unknown id is a not-found rather than an empty squad.
func (m *Manager) TeamSquad(ctx context.Context, id string) ([]store.Registration, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.TeamSquad",
		trace.WithAttributes(attribute.String("team.id", id)),
	)
	defer span.End()

	if _, err := m.repos.Teams.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	return m.repos.Registrations.ListByTeam(ctx, id)
}

// ExportSquadCSV writes a team's squad as CSV with a fixed header row.
func (m *Manager) ExportSquadCSV(ctx context.Context, id string, w io.Writer) error {
	ctx, span := m.tracer.Start(ctx, "Manager.ExportSquadCSV",
		trace.WithAttributes(attribute.String("team.id", id)),
	)
	defer span.End()

	squad, err := m.TeamSquad(ctx, id)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Position", "Price", "Mobile"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, p := range squad {
		row := []string{p.Name, p.Position, strconv.Itoa(p.SoldPrice), p.Mobile}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// record appends an audit event. Failures are logged, not fatal.
func (m *Manager) record(ctx context.Context, aggregateID string, t event.Type, version int, payload any) {
	if m.repos.Events == nil {
		return
	}
	data, _ := json.Marshal(payload)
	evt := event.Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        data,
		Version:     version,
	}
	if err := m.repos.Events.Append(ctx, evt); err != nil {
		m.logger.ErrorContext(ctx, "failed to append roster event",
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}
