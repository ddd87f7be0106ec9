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

// SaleApplier implements store.SaleApplier with a single transaction.
//
// Both updates are conditional: the wallet debit requires sufficient funds
// and the registration update requires an eligible status. If either
// condition fails the transaction rolls back, so a concurrent sale against
// the same player or an overdrawn wallet can never half-apply.
type SaleApplier struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewSaleApplier returns a new SaleApplier.
func NewSaleApplier(db *sqlx.DB, clk clock.Clock) *SaleApplier {
	return &SaleApplier{db: db, clk: clk}
}

func (s *SaleApplier) ApplySale(ctx context.Context, sale store.Sale) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sale transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clk.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`UPDATE teams SET wallet = wallet - $1, updated_at = $2
		 WHERE id = $3 AND wallet >= $1`,
		sale.Price, now, sale.TeamID,
	)
	if err != nil {
		return fmt.Errorf("debiting team wallet: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Distinguish a missing team from an overdrawn one.
		var wallet int
		err := tx.GetContext(ctx, &wallet, `SELECT wallet FROM teams WHERE id = $1`, sale.TeamID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking team wallet: %w", err)
		}
		return store.ErrInsufficientFunds
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE registrations
		 SET status = $1, team_id = $2, sold_price = $3, updated_at = $4
		 WHERE id = $5 AND status IN ($6, $7)`,
		store.StatusSold, sale.TeamID, sale.Price, now,
		sale.PlayerID, store.StatusApproved, store.StatusUnsold,
	)
	if err != nil {
		return fmt.Errorf("marking player sold: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM registrations WHERE id = $1`, sale.PlayerID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking registration status: %w", err)
		}
		return store.ErrNotEligible
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sale: %w", err)
	}
	return nil
}
