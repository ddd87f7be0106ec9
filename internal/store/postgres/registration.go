package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/store"
)

// RegistrationRepo implements store.RegistrationRepository with sqlx.
type RegistrationRepo struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewRegistrationRepo returns a new RegistrationRepo.
func NewRegistrationRepo(db *sqlx.DB, clk clock.Clock) *RegistrationRepo {
	return &RegistrationRepo{db: db, clk: clk}
}

func (r *RegistrationRepo) Create(ctx context.Context, reg *store.Registration) error {
	query := `INSERT INTO registrations
	           (name, role, mobile, photo, position, age, style, status, base_price, sold_price, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $10)
	           RETURNING id`
	now := r.clk.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return r.db.QueryRowContext(ctx, query,
		reg.Name, reg.Role, reg.Mobile, reg.Photo, reg.Position, reg.Age, reg.Style,
		reg.Status, reg.BasePrice, now,
	).Scan(&reg.ID)
}

func (r *RegistrationRepo) GetByID(ctx context.Context, id string) (*store.Registration, error) {
	var reg store.Registration
	err := r.db.GetContext(ctx, &reg, `SELECT * FROM registrations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting registration: %w", err)
	}
	return &reg, nil
}

func (r *RegistrationRepo) List(ctx context.Context) ([]store.Registration, error) {
	var regs []store.Registration
	err := r.db.SelectContext(ctx, &regs, `SELECT * FROM registrations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	return regs, nil
}

func (r *RegistrationRepo) ListEligible(ctx context.Context) ([]store.Registration, error) {
	var regs []store.Registration
	err := r.db.SelectContext(ctx, &regs,
		`SELECT * FROM registrations
		 WHERE role = $1 AND status IN ($2, $3)
		 ORDER BY created_at ASC`,
		store.RolePlayer, store.StatusApproved, store.StatusUnsold)
	if err != nil {
		return nil, fmt.Errorf("listing eligible players: %w", err)
	}
	return regs, nil
}

func (r *RegistrationRepo) ListByTeam(ctx context.Context, teamID string) ([]store.Registration, error) {
	var regs []store.Registration
	err := r.db.SelectContext(ctx, &regs,
		`SELECT * FROM registrations
		 WHERE team_id = $1 AND status = $2
		 ORDER BY sold_price DESC`,
		teamID, store.StatusSold)
	if err != nil {
		return nil, fmt.Errorf("listing team squad: %w", err)
	}
	return regs, nil
}

func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id string, status store.RegistrationStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3`,
		status, r.clk.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating registration status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
