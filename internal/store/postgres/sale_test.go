package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/store"
	"github.com/pitchside/auctiond/internal/store/postgres"
)

type saleFixture struct {
	regs   *postgres.RegistrationRepo
	teams  *postgres.TeamRepo
	sales  *postgres.SaleApplier
	player *store.Registration
	team   *store.Team
}

func newSaleFixture(t *testing.T, wallet int) *saleFixture {
	t.Helper()
	db := newTestDB(t)
	clk := clock.Real{}
	f := &saleFixture{
		regs:  postgres.NewRegistrationRepo(db, clk),
		teams: postgres.NewTeamRepo(db, clk),
		sales: postgres.NewSaleApplier(db, clk),
	}
	ctx := context.Background()

	f.player = &store.Registration{
		Name: "Arjun Nair", Role: store.RolePlayer,
		Status: store.StatusApproved, BasePrice: 500,
	}
	if err := f.regs.Create(ctx, f.player); err != nil {
		t.Fatalf("creating player: %v", err)
	}
	f.team = &store.Team{Name: "Thunder FC", Wallet: wallet}
	if err := f.teams.Create(ctx, f.team); err != nil {
		t.Fatalf("creating team: %v", err)
	}
	return f
}

func TestApplySale(t *testing.T) {
	f := newSaleFixture(t, 15000)
	ctx := context.Background()

	sale := store.Sale{PlayerID: f.player.ID, TeamID: f.team.ID, Price: 1000}
	if err := f.sales.ApplySale(ctx, sale); err != nil {
		t.Fatalf("ApplySale: %v", err)
	}

	team, err := f.teams.GetByID(ctx, f.team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if team.Wallet != 14000 {
		t.Errorf("wallet = %d, want 14000", team.Wallet)
	}

	reg, err := f.regs.GetByID(ctx, f.player.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Status != store.StatusSold || reg.SoldPrice != 1000 {
		t.Errorf("registration = %s @%d, want sold @1000", reg.Status, reg.SoldPrice)
	}
	if reg.TeamID == nil || *reg.TeamID != f.team.ID {
		t.Errorf("team id = %v, want %s", reg.TeamID, f.team.ID)
	}
}

func TestApplySale_InsufficientFundsRollsBack(t *testing.T) {
	f := newSaleFixture(t, 300)
	ctx := context.Background()

	sale := store.Sale{PlayerID: f.player.ID, TeamID: f.team.ID, Price: 1000}
	err := f.sales.ApplySale(ctx, sale)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("ApplySale error = %v, want ErrInsufficientFunds", err)
	}

	// Neither record may change on a rejected sale.
	team, _ := f.teams.GetByID(ctx, f.team.ID)
	if team.Wallet != 300 {
		t.Errorf("wallet = %d, want untouched 300", team.Wallet)
	}
	reg, _ := f.regs.GetByID(ctx, f.player.ID)
	if reg.Status != store.StatusApproved || reg.TeamID != nil {
		t.Errorf("registration = %+v, want untouched", reg)
	}
}

func TestApplySale_SoldPlayerNotEligible(t *testing.T) {
	f := newSaleFixture(t, 15000)
	ctx := context.Background()

	sale := store.Sale{PlayerID: f.player.ID, TeamID: f.team.ID, Price: 1000}
	if err := f.sales.ApplySale(ctx, sale); err != nil {
		t.Fatalf("first ApplySale: %v", err)
	}

	err := f.sales.ApplySale(ctx, sale)
	if !errors.Is(err, store.ErrNotEligible) {
		t.Fatalf("second ApplySale error = %v, want ErrNotEligible", err)
	}

	// The wallet must not be debited twice.
	team, _ := f.teams.GetByID(ctx, f.team.ID)
	if team.Wallet != 14000 {
		t.Errorf("wallet = %d, want a single debit to 14000", team.Wallet)
	}
}

func TestApplySale_UnknownRecords(t *testing.T) {
	f := newSaleFixture(t, 15000)
	ctx := context.Background()

	err := f.sales.ApplySale(ctx, store.Sale{
		PlayerID: f.player.ID,
		TeamID:   "00000000-0000-0000-0000-000000000000",
		Price:    500,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown team error = %v, want ErrNotFound", err)
	}

	err = f.sales.ApplySale(ctx, store.Sale{
		PlayerID: "00000000-0000-0000-0000-000000000000",
		TeamID:   f.team.ID,
		Price:    500,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown player error = %v, want ErrNotFound", err)
	}

	// The failed second leg must roll back the wallet debit.
	team, _ := f.teams.GetByID(ctx, f.team.ID)
	if team.Wallet != 15000 {
		t.Errorf("wallet = %d, want untouched 15000", team.Wallet)
	}
}
