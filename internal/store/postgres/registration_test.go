package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/store"
	"github.com/pitchside/auctiond/internal/store/postgres"
)

func TestRegistrationRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewRegistrationRepo(db, clock.Real{})
	ctx := context.Background()

	reg := &store.Registration{
		Name:      "Arjun Nair",
		Role:      store.RolePlayer,
		Mobile:    "9876543210",
		Position:  "Striker",
		Age:       24,
		Style:     "Right foot",
		Status:    store.StatusPending,
		BasePrice: 500,
	}
	if err := repo.Create(ctx, reg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if reg.ID == "" {
		t.Fatal("Create did not set the id")
	}

	got, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != reg.Name || got.Status != store.StatusPending || got.BasePrice != 500 {
		t.Errorf("GetByID = %+v, want the created registration", got)
	}

	if _, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByID(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistrationRepo_ListEligible(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewRegistrationRepo(db, clock.Real{})
	ctx := context.Background()

	seed := []*store.Registration{
		{Name: "Approved Player", Role: store.RolePlayer, Status: store.StatusApproved, BasePrice: 500},
		{Name: "Unsold Player", Role: store.RolePlayer, Status: store.StatusUnsold, BasePrice: 500},
		{Name: "Pending Player", Role: store.RolePlayer, Status: store.StatusPending, BasePrice: 500},
		{Name: "Sold Player", Role: store.RolePlayer, Status: store.StatusSold, BasePrice: 500},
		{Name: "Approved Manager", Role: store.RoleManager, Status: store.StatusApproved},
	}
	for _, r := range seed {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s): %v", r.Name, err)
		}
	}

	pool, err := repo.ListEligible(ctx)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("ListEligible returned %d, want 2", len(pool))
	}
	for _, p := range pool {
		if p.Role != store.RolePlayer {
			t.Errorf("pool contains role %s", p.Role)
		}
		if p.Status != store.StatusApproved && p.Status != store.StatusUnsold {
			t.Errorf("pool contains status %s", p.Status)
		}
	}
}

func TestRegistrationRepo_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewRegistrationRepo(db, clock.Real{})
	ctx := context.Background()

	reg := &store.Registration{Name: "Arjun Nair", Role: store.RolePlayer, Status: store.StatusPending}
	if err := repo.Create(ctx, reg); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdateStatus(ctx, reg.ID, store.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}

	err = repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", store.StatusApproved)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateStatus(unknown) error = %v, want ErrNotFound", err)
	}
}
