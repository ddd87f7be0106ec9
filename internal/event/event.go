package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	LotSelected    Type = "lot.selected"
	LotBidRaised   Type = "lot.bid_raised"
	LotBidSet      Type = "lot.bid_set"
	LotBidUndone   Type = "lot.bid_undone"
	BidderAssigned Type = "lot.bidder_assigned"
	LotSold        Type = "lot.sold"
	LotUnsold      Type = "lot.unsold"

	TeamRevealed Type = "team.revealed"
	TeamCreated  Type = "team.created"

	RegistrationCreated  Type = "registration.created"
	RegistrationApproved Type = "registration.approved"
	RegistrationRejected Type = "registration.rejected"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// LotSelectedData is the payload for LotSelected events.
type LotSelectedData struct {
	PlayerID  string `json:"player_id"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	BasePrice int    `json:"base_price"`
	Forced    bool   `json:"forced,omitempty"`
}

// BidChangedData is the payload for bid raise/set/undo events. CurrentBid is
// the authoritative bid after the change; Previous is the single-slot undo
// value after the change (nil when cleared).
type BidChangedData struct {
	Amount     int  `json:"amount,omitempty"`
	CurrentBid int  `json:"current_bid"`
	Previous   *int `json:"previous,omitempty"`
}

// BidderAssignedData is the payload for BidderAssigned events.
type BidderAssignedData struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

// LotSoldData is the payload for LotSold events.
type LotSoldData struct {
	TeamID string `json:"team_id"`
	Price  int    `json:"price"`
}

// TeamRevealedData is the payload for TeamRevealed events.
type TeamRevealedData struct {
	TeamID string `json:"team_id"`
}

// TeamCreatedData is the payload for TeamCreated events.
type TeamCreatedData struct {
	Name   string `json:"name"`
	Wallet int    `json:"wallet"`
}

// RegistrationData is the payload for registration lifecycle events.
type RegistrationData struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	BasePrice int    `json:"base_price,omitempty"`
}
