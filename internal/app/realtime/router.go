package realtime

import (
	"context"

	"github.com/rs/zerolog"
)

// Subscriber receives the events of every group it is subscribed to.
// Implementations must not block inside HandleEvent; the router dispatches
// sequentially and a stalled subscriber would stall the broadcast.
type Subscriber interface {
	// SessionID uniquely identifies the subscriber; subscribing the same
	// session to the same group twice is a no-op.
	SessionID() string

	// HandleEvent is invoked once per publish to a subscribed group.
	HandleEvent(event Event)
}

// Router is process-transparent publish/subscribe keyed by group name.
// Sessions on different processes receive events for groups they share.
// Delivery is at-most-once best-effort per subscriber: a subscriber that is
// mid-disconnect may or may not see an in-flight publish. Presence is
// eventually corrected by the full resubscription on reconnect.
type Router interface {
	// Subscribe registers interest. Idempotent per (group, session).
	Subscribe(ctx context.Context, group string, sub Subscriber) error

	// Unsubscribe removes interest. A no-op for unknown sessions.
	Unsubscribe(ctx context.Context, group string, sub Subscriber) error

	// Publish delivers the event to every current subscriber of the group,
	// including subscribers on other processes.
	Publish(ctx context.Context, group string, event Event) error

	// Close releases the router's background resources.
	Close() error
}

// SubscribeMany subscribes the session to each group independently and returns
// the groups that succeeded. A failure on one group is logged and does not
// abort the others: partial presence beats refusing an otherwise-healthy
// connection.
func SubscribeMany(ctx context.Context, r Router, groups []string, sub Subscriber, logger zerolog.Logger) []string {
	subscribed := make([]string, 0, len(groups))
	for _, group := range groups {
		if err := r.Subscribe(ctx, group, sub); err != nil {
			logger.Error().Err(err).Str("group", group).Msg("Failed to subscribe to group")
			continue
		}
		subscribed = append(subscribed, group)
	}
	return subscribed
}

// UnsubscribeMany removes the session from each group independently, logging
// failures and continuing.
func UnsubscribeMany(ctx context.Context, r Router, groups []string, sub Subscriber, logger zerolog.Logger) {
	for _, group := range groups {
		if err := r.Unsubscribe(ctx, group, sub); err != nil {
			logger.Error().Err(err).Str("group", group).Msg("Failed to unsubscribe from group")
		}
	}
}
