package store

import (
	"context"
	"errors"
	"time"
)

// Errors returned by repositories.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient wallet funds")
	ErrNotEligible       = errors.New("registration is not eligible for sale")
)

// Role classifies a registration. Only players go under the hammer.
type Role string

const (
	RolePlayer  Role = "Player"
	RoleManager Role = "Manager"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
	StatusSold     RegistrationStatus = "sold"
	StatusUnsold   RegistrationStatus = "unsold"
)

// Registration represents a tournament sign-up.
type Registration struct {
	ID        string             `db:"id" json:"id"`
	Name      string             `db:"name" json:"name"`
	Role      Role               `db:"role" json:"role"`
	Mobile    string             `db:"mobile" json:"mobile,omitempty"`
	Photo     string             `db:"photo" json:"photo,omitempty"`
	Position  string             `db:"position" json:"position,omitempty"`
	Age       int                `db:"age" json:"age,omitempty"`
	Style     string             `db:"style" json:"style,omitempty"`
	Status    RegistrationStatus `db:"status" json:"status"`
	BasePrice int                `db:"base_price" json:"base_price"`
	SoldPrice int                `db:"sold_price" json:"sold_price"`
	TeamID    *string            `db:"team_id" json:"team_id,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// Team represents a franchise with a bidding wallet.
type Team struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Logo      string    `db:"logo" json:"logo,omitempty"`
	Wallet    int       `db:"wallet" json:"wallet"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sale describes a finalized lot: the winning team buys the player at Price.
type Sale struct {
	PlayerID string
	TeamID   string
	Price    int
}

// RegistrationRepository defines registration persistence operations.
type RegistrationRepository interface {
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	List(ctx context.Context) ([]Registration, error)
	// ListEligible returns players that may be put up as the next lot:
	// role Player with status approved or unsold.
	ListEligible(ctx context.Context) ([]Registration, error)
	// ListByTeam returns the sold squad of a team.
	ListByTeam(ctx context.Context, teamID string) ([]Registration, error)
	UpdateStatus(ctx context.Context, id string, status RegistrationStatus) error
}

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
}

// SaleApplier finalizes a sale as a single atomic unit: the winning team's
// wallet is debited (conditional on sufficient funds) and the registration is
// marked sold with teamID and soldPrice set (conditional on the registration
// still being eligible). Either both records change or neither does.
type SaleApplier interface {
	ApplySale(ctx context.Context, sale Sale) error
}
