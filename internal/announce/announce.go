// Package announce posts auction results to a Discord channel. It observes
// the session engine like any other subscriber, so announcements never slow
// down the auction itself.
package announce

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/pitchside/auctiond/internal/session"
)

// sender is the slice of discordgo.Session the announcer needs.
type sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer relays sold/unsold results to one channel.
type Announcer struct {
	session   *discordgo.Session
	sender    sender
	channelID string
	engine    *session.Engine
	logger    *slog.Logger
}

// New creates an announcer with its own Discord session.
func New(token, channelID string, engine *session.Engine, logger *slog.Logger) (*Announcer, error) {
	ds, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return &Announcer{
		session:   ds,
		sender:    ds,
		channelID: channelID,
		engine:    engine,
		logger:    logger,
	}, nil
}

// Start opens the Discord connection and begins relaying results until ctx
// is cancelled.
func (a *Announcer) Start(ctx context.Context) error {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.logger.InfoContext(ctx, "announcer connected", slog.String("user", s.State.User.Username))
	})
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	go a.run(ctx)
	return nil
}

// Stop closes the Discord connection.
func (a *Announcer) Stop() error {
	return a.session.Close()
}

// run watches session transitions and posts once per sold/unsold result.
// The transition check keeps the revert-to-idle snapshots silent.
func (a *Announcer) run(ctx context.Context) {
	sub, cancel := a.engine.Subscribe()
	defer cancel()

	prev := session.StateIdle
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub:
			if !ok {
				return
			}
			if snap.State != prev {
				if msg := formatResult(snap); msg != "" {
					a.post(ctx, msg)
				}
			}
			prev = snap.State
		}
	}
}

func (a *Announcer) post(ctx context.Context, msg string) {
	if _, err := a.sender.ChannelMessageSend(a.channelID, msg); err != nil {
		a.logger.ErrorContext(ctx, "failed to post announcement",
			slog.String("channel_id", a.channelID),
			slog.Any("error", err),
		)
	}
}

// formatResult renders the announcement for a terminal snapshot; any other
// state returns the empty string.
func formatResult(snap session.Snapshot) string {
	if snap.Lot == nil {
		return ""
	}
	switch snap.State {
	case session.StateSold:
		return fmt.Sprintf("**SOLD!** %s goes to %s for %d", snap.Lot.Name, snap.Lot.BidderTeamName, snap.Lot.CurrentBid)
	case session.StateUnsold:
		return fmt.Sprintf("**UNSOLD** %s goes back into the pool", snap.Lot.Name)
	default:
		return ""
	}
}
