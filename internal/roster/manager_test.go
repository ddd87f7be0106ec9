package roster_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/event"
	"github.com/pitchside/auctiond/internal/roster"
	"github.com/pitchside/auctiond/internal/store"
	"github.com/pitchside/auctiond/internal/store/memory"
)

var testCfg = roster.Config{DefaultBasePrice: 500, DefaultWallet: 15000}

func newManager(t *testing.T) (*roster.Manager, *store.Repositories) {
	t.Helper()
	clk := clock.Mock{T: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repos := memory.New(clk).Repositories()
	m := roster.NewManager(repos, testCfg, slog.New(slog.DiscardHandler), noop.NewTracerProvider())
	return m, repos
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name          string
		in            roster.RegisterInput
		wantErr       error
		wantBasePrice int
	}{
		{
			name: "player with default base price",
			in: roster.RegisterInput{
				Name: "Arjun Nair", Role: "Player", Mobile: "9876543210",
				Position: "Striker", Age: 24,
			},
			wantBasePrice: 500,
		},
		{
			name: "player with explicit base price",
			in: roster.RegisterInput{
				Name: "Benny Thomas", Role: "Player", Mobile: "9876543211",
				BasePrice: 1200,
			},
			wantBasePrice: 1200,
		},
		{
			name: "manager gets no base price",
			in: roster.RegisterInput{
				Name: "Clara Mathew", Role: "Manager", Mobile: "9876543212",
			},
			wantBasePrice: 0,
		},
		{
			name:    "missing name",
			in:      roster.RegisterInput{Role: "Player", Mobile: "9876543210"},
			wantErr: roster.ErrInvalidInput,
		},
		{
			name:    "unknown role",
			in:      roster.RegisterInput{Name: "Dev Anand", Role: "Referee", Mobile: "9876543210"},
			wantErr: roster.ErrInvalidInput,
		},
		{
			name:    "missing mobile",
			in:      roster.RegisterInput{Name: "Dev Anand", Role: "Player"},
			wantErr: roster.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, repos := newManager(t)
			reg, err := m.Register(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if reg.Status != store.StatusPending {
				t.Errorf("status = %s, want pending", reg.Status)
			}
			if reg.BasePrice != tt.wantBasePrice {
				t.Errorf("base price = %d, want %d", reg.BasePrice, tt.wantBasePrice)
			}
			events, err := repos.Events.Load(context.Background(), reg.ID)
			if err != nil || len(events) != 1 || events[0].Type != event.RegistrationCreated {
				t.Errorf("events = %v (%v), want one registration.created", events, err)
			}
		})
	}
}

func TestApproveReject(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, err := m.Register(ctx, roster.RegisterInput{Name: "Arjun Nair", Role: "Player", Mobile: "9876543210"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Register(ctx, roster.RegisterInput{Name: "Benny Thomas", Role: "Player", Mobile: "9876543211"})
	if err != nil {
		t.Fatal(err)
	}

	if got, err := m.Approve(ctx, a.ID); err != nil || got.Status != store.StatusApproved {
		t.Fatalf("Approve() = %v, %v, want approved", got, err)
	}
	if got, err := m.Reject(ctx, b.ID); err != nil || got.Status != store.StatusRejected {
		t.Fatalf("Reject() = %v, %v, want rejected", got, err)
	}

	// Decisions are single-shot: a reviewed registration cannot flip.
	if _, err := m.Reject(ctx, a.ID); !errors.Is(err, roster.ErrNotPending) {
		t.Errorf("rejecting approved registration error = %v, want ErrNotPending", err)
	}
	if _, err := m.Approve(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("approving unknown id error = %v, want ErrNotFound", err)
	}

	// Only the approved player is on the block.
	pool, err := m.EligiblePool(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 1 || pool[0].ID != a.ID {
		t.Errorf("eligible pool = %+v, want only the approved player", pool)
	}
}

func TestCreateTeam(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	team, err := m.CreateTeam(ctx, roster.TeamInput{Name: "Thunder FC"})
	if err != nil {
		t.Fatalf("CreateTeam() error: %v", err)
	}
	if team.Wallet != 15000 {
		t.Errorf("wallet = %d, want default 15000", team.Wallet)
	}

	custom, err := m.CreateTeam(ctx, roster.TeamInput{Name: "Harbour XI", Wallet: 8000})
	if err != nil {
		t.Fatal(err)
	}
	if custom.Wallet != 8000 {
		t.Errorf("wallet = %d, want 8000", custom.Wallet)
	}

	if _, err := m.CreateTeam(ctx, roster.TeamInput{}); !errors.Is(err, roster.ErrInvalidInput) {
		t.Errorf("CreateTeam(empty) error = %v, want ErrInvalidInput", err)
	}

	teams, err := m.Teams(ctx)
	if err != nil || len(teams) != 2 {
		t.Errorf("Teams() = %d teams (%v), want 2", len(teams), err)
	}
}

func TestExportSquadCSV(t *testing.T) {
	m, repos := newManager(t)
	ctx := context.Background()

	team, err := m.CreateTeam(ctx, roster.TeamInput{Name: "Thunder FC"})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := m.Register(ctx, roster.RegisterInput{
		Name: "Arjun Nair", Role: "Player", Mobile: "9876543210", Position: "Striker",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Approve(ctx, reg.ID); err != nil {
		t.Fatal(err)
	}
	if err := repos.Sales.ApplySale(ctx, store.Sale{PlayerID: reg.ID, TeamID: team.ID, Price: 1000}); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := m.ExportSquadCSV(ctx, team.ID, &buf); err != nil {
		t.Fatalf("ExportSquadCSV() error: %v", err)
	}
	want := "Name,Position,Price,Mobile\nArjun Nair,Striker,1000,9876543210\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}

	if err := m.ExportSquadCSV(ctx, "missing", &buf); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("export for unknown team error = %v, want ErrNotFound", err)
	}
}

func TestTeamSquad_UnknownTeam(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.TeamSquad(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("TeamSquad() error = %v, want ErrNotFound", err)
	}
}
