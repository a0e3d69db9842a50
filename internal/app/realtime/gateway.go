/*
Package realtime contains the presence and fan-out core of the messaging backend.

This file defines the Gateway, which orchestrates the session lifecycle:
admission against the presence counter, computing and establishing the initial
group subscriptions, and symmetric teardown on disconnect.
*/
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wavechat/internal/app/user"
	"wavechat/internal/pkg/logx"
)

// teardownTimeout bounds the release of shared resources when a session ends.
const teardownTimeout = 10 * time.Second

// ErrTooManyConnections is returned by Connect when the user already holds the
// maximum number of concurrent connections.
var ErrTooManyConnections = errors.New("too many connections for user")

// ChannelLister supplies the channel ids a user belongs to. Satisfied by the
// store; consulted once per connect to compute the initial subscriptions.
type ChannelLister interface {
	ListChannelIDsForUser(ctx context.Context, userID uuid.UUID) ([]int64, error)
}

// GatewayConfig is the construction-time configuration of the Gateway.
type GatewayConfig struct {
	// MaxConnectionsPerUser caps concurrent sessions per user across all
	// processes sharing the presence store.
	MaxConnectionsPerUser int
}

// Gateway admits websocket sessions and wires them into the presence counter
// and the group router. It is safe for concurrent use by the per-connection
// goroutines.
type Gateway struct {
	cfg      GatewayConfig
	presence Presence
	router   Router
	channels ChannelLister
	logger   zerolog.Logger
}

// NewGateway constructs a Gateway around the shared components.
func NewGateway(cfg GatewayConfig, presence Presence, router Router, channels ChannelLister) *Gateway {
	return &Gateway{
		cfg:      cfg,
		presence: presence,
		router:   router,
		channels: channels,
		logger:   logx.Logger().With().Str("component", "Gateway").Logger(),
	}
}

// Connect runs the session lifecycle up to the Open state:
//
//	Connecting -> Admitted -> Subscribed -> Open
//
// Admission reads the presence counter first: an unreachable store rejects
// with close code 4003 before anything is incremented, a full slot rejects
// with 4001. Afterwards the counter is incremented, the user group and the
// user's current channel groups are subscribed, and the session is Open.
//
// The read between Current and Increment is deliberately not atomic across
// the two calls: a small race can admit one connection over the limit under
// concurrent connects. Availability is preferred over exactness here.
//
// On any fatal failure the session is closed with the appropriate code and
// exactly the resources acquired so far are released. The returned session is
// ready for Run.
func (g *Gateway) Connect(ctx context.Context, conn Conn, u user.User) (*Session, error) {
	s := newSession(g, conn, u)
	s.setState(StateConnecting)

	count, err := g.presence.Current(ctx, u.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Presence store unreachable during admission.")
		s.closeWithCode(CloseServiceUnavailable, "service unavailable")
		s.Teardown()
		return nil, err
	}

	if count >= int64(g.cfg.MaxConnectionsPerUser) {
		s.logger.Warn().Int64("current_connections", count).Msg("User has too many connections.")
		s.closeWithCode(CloseTooManyConnections, "too many connections")
		s.Teardown()
		return nil, ErrTooManyConnections
	}

	if _, err := g.presence.Increment(ctx, u.ID); err != nil {
		s.logger.Error().Err(err).Msg("Failed to increment presence counter.")
		s.closeWithCode(CloseServiceUnavailable, "service unavailable")
		s.Teardown()
		return nil, err
	}
	s.markPresenceHeld()
	s.setState(StateAdmitted)

	if err := g.router.Subscribe(ctx, UserGroup(u.ID), s); err != nil {
		s.logger.Error().Err(err).Msg("Failed to subscribe to user group.")
		s.closeWithCode(CloseServiceUnavailable, "service unavailable")
		s.Teardown()
		return nil, err
	}
	s.markUserGroupHeld()

	channelIDs, err := g.channels.ListChannelIDsForUser(ctx, u.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list channel memberships.")
		s.closeWithCode(CloseServiceUnavailable, "service unavailable")
		s.Teardown()
		return nil, fmt.Errorf("list channel memberships: %w", err)
	}

	groups := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		groups = append(groups, ChannelGroup(id))
	}

	// Per-group failures leave the session in a degraded-but-open state; the
	// groups that did subscribe keep working.
	for _, group := range SubscribeMany(ctx, g.router, groups, s, s.logger) {
		s.addGroup(group)
	}
	s.setState(StateSubscribed)

	s.setState(StateOpen)
	s.logger.Info().Int("channel_groups", len(groups)).Msg("Session open.")

	return s, nil
}

// release returns the shared resources a session acquired. Called exactly once
// from Session.Teardown. An error releasing one resource never prevents
// attempting the others.
func (g *Gateway) release(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	presenceHeld, userGroupHeld, groups := s.acquiredResources()

	if userGroupHeld {
		if err := g.router.Unsubscribe(ctx, UserGroup(s.user.ID), s); err != nil {
			s.logger.Error().Err(err).Msg("Failed to unsubscribe from user group during teardown")
		}
	}

	UnsubscribeMany(ctx, g.router, groups, s, s.logger)

	if presenceHeld {
		if err := g.presence.Decrement(ctx, s.user.ID); err != nil {
			s.logger.Error().Err(err).Msg("Failed to decrement presence counter during teardown")
		}
	}
}
