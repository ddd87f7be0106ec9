// Package session owns the live auction state machine: one current lot,
// bid mutation with single-step undo, atomic sale finalization and a
// snapshot stream for broadcast screens.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitchside/auctiond/internal/clock"
	"github.com/pitchside/auctiond/internal/event"
	"github.com/pitchside/auctiond/internal/store"
)

// Errors returned by engine operations. All of them mean the command was
// rejected with no state change.
var (
	ErrLotInProgress     = errors.New("a lot is already live")
	ErrNotEligible       = errors.New("player is not in the eligible pool")
	ErrNoLiveLot         = errors.New("no live lot")
	ErrInvalidAmount     = errors.New("bid amount must be positive")
	ErrBelowBasePrice    = errors.New("bid is below the base price")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNoBidder          = errors.New("no bidder assigned")
	ErrUnknownTeam       = errors.New("unknown team")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Config holds display-timing parameters. The delays control how long the
// sold/unsold stamp stays up before the session returns to idle.
type Config struct {
	SoldDelay   time.Duration
	UnsoldDelay time.Duration
}

// Engine is the single writer of the auction session. All operations are
// serialized by its mutex; any number of observers read through Subscribe.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	state   State
	lot     *Lot
	lotID   string // event aggregate id of the current lot
	version int    // event version counter for the current lot
	reveal  *TeamReveal
	seq     uint64

	subs      map[uint64]*subscriber
	nextSubID uint64

	repos  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	clk    clock.Clock
}

// NewEngine creates an idle engine on top of the given repositories.
func NewEngine(repos *store.Repositories, cfg Config, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Engine {
	return &Engine{
		cfg:    cfg,
		state:  StateIdle,
		subs:   make(map[uint64]*subscriber),
		repos:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/pitchside/auctiond/internal/session"),
		clk:    clk,
	}
}

// Current returns the current session snapshot.
func (e *Engine) Current() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers an observer. The returned channel first delivers the
// current snapshot, then every subsequent snapshot in emission order with no
// gaps. A subscriber that stops reading buffers emissions until its cancel
// func is called; cancel closes the channel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	sub := newSubscriber()
	sub.push(e.snapshotLocked())
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = sub
	e.mu.Unlock()

	go sub.run()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			sub.close()
		})
	}
	return sub.out, cancel
}

// SelectLot puts an eligible player on the block. If a lot is currently
// live, force must be set: overriding a live lot is destructive and needs
// explicit operator confirmation.
func (e *Engine) SelectLot(ctx context.Context, playerID string, force bool) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SelectLot",
		trace.WithAttributes(
			attribute.String("player.id", playerID),
			attribute.Bool("force", force),
		),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateLive && !force {
		return Snapshot{}, ErrLotInProgress
	}

	reg, err := e.repos.Registrations.GetByID(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrNotEligible
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading player: %w", err)
	}
	if reg.Role != store.RolePlayer ||
		(reg.Status != store.StatusApproved && reg.Status != store.StatusUnsold) {
		return Snapshot{}, ErrNotEligible
	}

	e.lotID = "lot-" + uuid.NewString()
	e.version = 0
	e.lot = &Lot{
		PlayerID:   reg.ID,
		Name:       reg.Name,
		Photo:      reg.Photo,
		Position:   reg.Position,
		Age:        reg.Age,
		Style:      reg.Style,
		BasePrice:  reg.BasePrice,
		CurrentBid: reg.BasePrice,
	}
	e.state = StateLive
	e.reveal = nil

	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotSelected, event.LotSelectedData{
		PlayerID:  reg.ID,
		Name:      reg.Name,
		Position:  reg.Position,
		BasePrice: reg.BasePrice,
		Forced:    force,
	})

	e.logger.InfoContext(ctx, "lot selected",
		slog.String("lot_id", e.lotID),
		slog.String("player_id", reg.ID),
		slog.String("player", reg.Name),
		slog.Int("base_price", reg.BasePrice),
	)
	return snap, nil
}

// RaiseBid increases the current bid by amount, saving the previous value
// for a single-step undo.
func (e *Engine) RaiseBid(ctx context.Context, amount int) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RaiseBid",
		trace.WithAttributes(attribute.Int("bid.amount", amount)),
	)
	defer span.End()

	if amount <= 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}

	prev := e.lot.CurrentBid
	e.lot.PreviousBid = &prev
	e.lot.CurrentBid += amount

	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotBidRaised, event.BidChangedData{
		Amount:     amount,
		CurrentBid: e.lot.CurrentBid,
		Previous:   e.lot.PreviousBid,
	})
	return snap, nil
}

// SetBid sets the current bid to an explicit amount. The base price stays a
// floor: the bid on a live lot can never drop below it.
func (e *Engine) SetBid(ctx context.Context, amount int) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SetBid",
		trace.WithAttributes(attribute.Int("bid.amount", amount)),
	)
	defer span.End()

	if amount <= 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}
	if amount < e.lot.BasePrice {
		return Snapshot{}, ErrBelowBasePrice
	}

	prev := e.lot.CurrentBid
	e.lot.PreviousBid = &prev
	e.lot.CurrentBid = amount

	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotBidSet, event.BidChangedData{
		CurrentBid: e.lot.CurrentBid,
		Previous:   e.lot.PreviousBid,
	})
	return snap, nil
}

// UndoBid restores the bid saved by the last raise or set. The undo slot is
// deliberately one deep: a second undo without an intervening bid change is
// an error, not a deeper rewind.
func (e *Engine) UndoBid(ctx context.Context) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.UndoBid")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}
	if e.lot.PreviousBid == nil {
		return Snapshot{}, ErrNothingToUndo
	}

	e.lot.CurrentBid = *e.lot.PreviousBid
	e.lot.PreviousBid = nil

	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotBidUndone, event.BidChangedData{
		CurrentBid: e.lot.CurrentBid,
	})
	return snap, nil
}

// AssignBidder marks a team as the current highest bidder. Funds are not
// checked here; the bidder can change any number of times before the sale
// closes, so sufficiency is only enforced at finalization.
func (e *Engine) AssignBidder(ctx context.Context, teamID string) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.AssignBidder",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}

	team, err := e.repos.Teams.GetByID(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrUnknownTeam
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading team: %w", err)
	}

	e.lot.BidderTeamID = team.ID
	e.lot.BidderTeamName = team.Name

	snap := e.publishLocked()
	e.recordLocked(ctx, event.BidderAssigned, event.BidderAssignedData{
		TeamID:   team.ID,
		TeamName: team.Name,
	})
	return snap, nil
}

// FinalizeSale closes the current lot as sold. The wallet debit and the
// registration update are applied by the store as one transaction; on any
// failure no record changes and the lot stays live.
func (e *Engine) FinalizeSale(ctx context.Context) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.FinalizeSale")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}
	if !e.lot.HasBidder() {
		return Snapshot{}, ErrNoBidder
	}

	team, err := e.repos.Teams.GetByID(ctx, e.lot.BidderTeamID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrUnknownTeam
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading bidder team: %w", err)
	}
	if team.Wallet < e.lot.CurrentBid {
		return Snapshot{}, fmt.Errorf("%w: %s is short %d", ErrInsufficientFunds, team.Name, e.lot.CurrentBid-team.Wallet)
	}

	sale := store.Sale{
		PlayerID: e.lot.PlayerID,
		TeamID:   team.ID,
		Price:    e.lot.CurrentBid,
	}
	if err := e.repos.Sales.ApplySale(ctx, sale); err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			return Snapshot{}, fmt.Errorf("%w: wallet changed under us", ErrInsufficientFunds)
		case errors.Is(err, store.ErrNotEligible):
			return Snapshot{}, fmt.Errorf("%w: player already sold", ErrNotEligible)
		case errors.Is(err, store.ErrNotFound):
			return Snapshot{}, ErrUnknownTeam
		default:
			return Snapshot{}, fmt.Errorf("applying sale: %w", err)
		}
	}

	e.state = StateSold
	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotSold, event.LotSoldData{
		TeamID: team.ID,
		Price:  sale.Price,
	})
	e.revertAfterLocked(e.cfg.SoldDelay)

	e.logger.InfoContext(ctx, "lot sold",
		slog.String("lot_id", e.lotID),
		slog.String("player_id", sale.PlayerID),
		slog.String("team_id", sale.TeamID),
		slog.Int("price", sale.Price),
	)
	return snap, nil
}

// MarkUnsold closes the current lot without a sale. The player re-enters
// the eligible pool with the distinct unsold status.
func (e *Engine) MarkUnsold(ctx context.Context) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.MarkUnsold")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLive {
		return Snapshot{}, ErrNoLiveLot
	}

	if err := e.repos.Registrations.UpdateStatus(ctx, e.lot.PlayerID, store.StatusUnsold); err != nil {
		return Snapshot{}, fmt.Errorf("marking player unsold: %w", err)
	}

	e.state = StateUnsold
	snap := e.publishLocked()
	e.recordLocked(ctx, event.LotUnsold, struct{}{})
	e.revertAfterLocked(e.cfg.UnsoldDelay)

	e.logger.InfoContext(ctx, "lot unsold",
		slog.String("lot_id", e.lotID),
		slog.String("player_id", e.lot.PlayerID),
	)
	return snap, nil
}

// RevealTeam switches the broadcast to a team's squad and remaining wallet.
// It is independent of the bidding cycle and does not touch the lot; leaving
// the reveal requires Reset or a new SelectLot.
func (e *Engine) RevealTeam(ctx context.Context, teamID string) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RevealTeam",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	team, err := e.repos.Teams.GetByID(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, ErrUnknownTeam
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading team: %w", err)
	}
	squad, err := e.repos.Registrations.ListByTeam(ctx, teamID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading squad: %w", err)
	}

	e.reveal = &TeamReveal{
		TeamID: team.ID,
		Name:   team.Name,
		Logo:   team.Logo,
		Wallet: team.Wallet,
		Squad:  squad,
	}
	e.state = StateReveal

	snap := e.publishLocked()
	e.recordLocked(ctx, event.TeamRevealed, event.TeamRevealedData{TeamID: team.ID})
	return snap, nil
}

// Reset returns the session to idle, clearing any lot or reveal.
func (e *Engine) Reset(ctx context.Context) Snapshot {
	_, span := e.tracer.Start(ctx, "Engine.Reset")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearLocked()
	return e.publishLocked()
}

// RecoverLiveLot replays lot events and restores a live lot left behind by
// a previous leader. Terminal lots are ignored; the newest live one wins.
func (e *Engine) RecoverLiveLot(ctx context.Context) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RecoverLiveLot")
	defer span.End()

	started, err := e.repos.Events.LoadByType(ctx, event.LotSelected)
	if err != nil {
		return false, fmt.Errorf("loading lot selected events: %w", err)
	}

	var (
		liveLot     *Lot
		liveLotID   string
		liveVersion int
	)
	seen := make(map[string]struct{}, len(started))
	for _, se := range started {
		if _, ok := seen[se.AggregateID]; ok {
			continue
		}
		seen[se.AggregateID] = struct{}{}

		events, loadErr := e.repos.Events.Load(ctx, se.AggregateID)
		if loadErr != nil {
			e.logger.WarnContext(ctx, "failed to load lot events during recovery",
				slog.String("lot_id", se.AggregateID),
				slog.Any("error", loadErr),
			)
			continue
		}
		lot, state, replayErr := Replay(events)
		if replayErr != nil {
			e.logger.WarnContext(ctx, "failed to replay lot during recovery",
				slog.String("lot_id", se.AggregateID),
				slog.Any("error", replayErr),
			)
			continue
		}
		if state != StateLive {
			continue
		}
		liveLot = lot
		liveLotID = se.AggregateID
		liveVersion = events[len(events)-1].Version
	}

	if liveLot == nil {
		return false, nil
	}

	// Events do not carry display fields; refresh from the registration.
	if reg, regErr := e.repos.Registrations.GetByID(ctx, liveLot.PlayerID); regErr == nil {
		liveLot.Photo = reg.Photo
		liveLot.Age = reg.Age
		liveLot.Style = reg.Style
	}

	e.mu.Lock()
	e.lot = liveLot
	e.lotID = liveLotID
	e.version = liveVersion
	e.state = StateLive
	e.reveal = nil
	e.publishLocked()
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "recovered live lot",
		slog.String("lot_id", liveLotID),
		slog.String("player_id", liveLot.PlayerID),
		slog.Int("current_bid", liveLot.CurrentBid),
	)
	return true, nil
}

// clearLocked resets to idle. Callers must hold e.mu.
func (e *Engine) clearLocked() {
	e.state = StateIdle
	e.lot = nil
	e.lotID = ""
	e.version = 0
	e.reveal = nil
}

// snapshotLocked builds a copy of the current state. Callers must hold e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{Seq: e.seq, State: e.state}
	if e.lot != nil {
		lot := *e.lot
		if e.lot.PreviousBid != nil {
			prev := *e.lot.PreviousBid
			lot.PreviousBid = &prev
		}
		snap.Lot = &lot
	}
	if e.reveal != nil {
		reveal := *e.reveal
		snap.Reveal = &reveal
	}
	return snap
}

// publishLocked bumps the sequence and fans the new snapshot out to every
// subscriber queue. Callers must hold e.mu.
func (e *Engine) publishLocked() Snapshot {
	e.seq++
	snap := e.snapshotLocked()
	for _, sub := range e.subs {
		sub.push(snap)
	}
	return snap
}

// recordLocked appends an audit event for the current lot. Persistence
// failures are logged, not fatal: the authoritative state already changed.
// Callers must hold e.mu.
func (e *Engine) recordLocked(ctx context.Context, t event.Type, payload any) {
	if e.repos.Events == nil || e.lotID == "" {
		return
	}
	data, _ := json.Marshal(payload)
	e.version++
	evt := event.Event{
		AggregateID: e.lotID,
		Type:        t,
		Data:        data,
		Version:     e.version,
	}
	if err := e.repos.Events.Append(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "failed to append auction event",
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}

// revertAfterLocked schedules the timed sold/unsold -> idle transition for
// the current lot. A newer lot cancels the pending revert by virtue of the
// lot id check. Callers must hold e.mu.
func (e *Engine) revertAfterLocked(d time.Duration) {
	lotID := e.lotID
	timer := e.clk.After(d)
	go func() {
		<-timer
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.lotID != lotID || (e.state != StateSold && e.state != StateUnsold) {
			return
		}
		e.clearLocked()
		e.publishLocked()
	}()
}

// subscriber delivers snapshots to one observer in order without gaps. The
// queue is unbounded so a slow reader delays only itself.
type subscriber struct {
	mu     sync.Mutex
	queue  []Snapshot
	wake   chan struct{}
	done   chan struct{}
	out    chan Snapshot
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan Snapshot),
	}
}

func (s *subscriber) push(snap Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, snap)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var next Snapshot
		ok := len(s.queue) > 0
		if ok {
			next = s.queue[0]
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.done)
}
