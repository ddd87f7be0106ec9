package session

import (
	"encoding/json"
	"fmt"

	"github.com/pitchside/auctiond/internal/event"
	"github.com/pitchside/auctiond/internal/store"
)

// State is the auction session state.
type State string

const (
	// StateIdle means no lot is selected; screens show "waiting for pick".
	StateIdle State = "idle"
	// StateLive means bidding is open on the current lot.
	StateLive State = "live"
	// StateSold is the display state after a finalized sale. It reverts to
	// idle after the configured delay.
	StateSold State = "sold"
	// StateUnsold is the display state after a pass. It reverts to idle
	// after the configured delay.
	StateUnsold State = "unsold"
	// StateReveal broadcasts a team's squad and remaining wallet. Leaving
	// it requires an explicit reset or a new lot selection.
	StateReveal State = "reveal"
)

// Lot is the player currently on the block. An empty BidderTeamID means no
// bidder is assigned. PreviousBid holds exactly one undo step; it is nil
// when there is nothing to undo.
type Lot struct {
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Photo          string `json:"photo,omitempty"`
	Position       string `json:"position,omitempty"`
	Age            int    `json:"age,omitempty"`
	Style          string `json:"style,omitempty"`
	BasePrice      int    `json:"base_price"`
	CurrentBid     int    `json:"current_bid"`
	BidderTeamID   string `json:"bidder_team_id,omitempty"`
	BidderTeamName string `json:"bidder_team_name,omitempty"`
	PreviousBid    *int   `json:"previous_bid,omitempty"`
}

// HasBidder reports whether a concrete team is assigned.
func (l *Lot) HasBidder() bool { return l.BidderTeamID != "" }

// TeamReveal is the payload of the reveal state: one team's identity,
// remaining wallet and full sold squad.
type TeamReveal struct {
	TeamID string               `json:"team_id"`
	Name   string               `json:"name"`
	Logo   string               `json:"logo,omitempty"`
	Wallet int                  `json:"wallet"`
	Squad  []store.Registration `json:"squad"`
}

// Snapshot is one emission of the session state. Seq increases by one per
// emission, so an observer can verify it never sees an older state than its
// most recent one.
type Snapshot struct {
	Seq    uint64      `json:"seq"`
	State  State       `json:"state"`
	Lot    *Lot        `json:"lot,omitempty"`
	Reveal *TeamReveal `json:"reveal,omitempty"`
}

// Replay reconstructs a lot and its state from its event history. Display
// fields not carried by events (photo, age, style) are left zero; callers
// restoring a live lot re-fetch them from the registration.
func Replay(events []event.Event) (*Lot, State, error) {
	if len(events) == 0 {
		return nil, StateIdle, fmt.Errorf("no events to replay")
	}

	lot := &Lot{}
	state := StateIdle
	for _, e := range events {
		switch e.Type {
		case event.LotSelected:
			var d event.LotSelectedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, StateIdle, fmt.Errorf("unmarshalling selected event: %w", err)
			}
			lot.PlayerID = d.PlayerID
			lot.Name = d.Name
			lot.Position = d.Position
			lot.BasePrice = d.BasePrice
			lot.CurrentBid = d.BasePrice
			lot.BidderTeamID = ""
			lot.BidderTeamName = ""
			lot.PreviousBid = nil
			state = StateLive

		case event.LotBidRaised, event.LotBidSet, event.LotBidUndone:
			var d event.BidChangedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, StateIdle, fmt.Errorf("unmarshalling bid event: %w", err)
			}
			lot.CurrentBid = d.CurrentBid
			lot.PreviousBid = d.Previous

		case event.BidderAssigned:
			var d event.BidderAssignedData
			if err := json.Unmarshal(e.Data, &d); err != nil {
				return nil, StateIdle, fmt.Errorf("unmarshalling bidder event: %w", err)
			}
			lot.BidderTeamID = d.TeamID
			lot.BidderTeamName = d.TeamName

		case event.LotSold:
			state = StateSold

		case event.LotUnsold:
			state = StateUnsold
		}
	}
	return lot, state, nil
}
