package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wavechat/internal/pkg/logx"
)

// Publisher is the outbound half of the fan-out: business handlers call it
// after a data mutation commits to push one event to the affected group.
// Publish failures are logged, not returned: the mutation is already durable
// and delivery to live sessions is best-effort.
type Publisher struct {
	router Router
	logger zerolog.Logger
}

// NewPublisher constructs a Publisher over the shared router.
func NewPublisher(router Router) *Publisher {
	return &Publisher{
		router: router,
		logger: logx.Logger().With().Str("component", "Publisher").Logger(),
	}
}

// MessageCreated broadcasts a persisted message to every session subscribed to
// its channel group. message and channel must be JSON-serializable
// representations safe to hand to clients.
func (p *Publisher) MessageCreated(ctx context.Context, channelID int64, message, channel any) {
	rawMessage, err := json.Marshal(message)
	if err != nil {
		p.logger.Error().Err(err).Int64("channel_id", channelID).Msg("Failed to serialize message for broadcast")
		return
	}

	rawChannel, err := json.Marshal(channel)
	if err != nil {
		p.logger.Error().Err(err).Int64("channel_id", channelID).Msg("Failed to serialize channel for broadcast")
		return
	}

	event := Event{
		Type:    EventChatMessage,
		Message: rawMessage,
		Channel: rawChannel,
	}

	if err := p.router.Publish(ctx, ChannelGroup(channelID), event); err != nil {
		p.logger.Error().Err(err).Int64("channel_id", channelID).Msg("Failed to publish chat_message event")
	}
}

// ChannelJoined tells every live session of the user to subscribe to the
// channel's group, so a join performed on one device takes effect on all of
// that user's open connections.
func (p *Publisher) ChannelJoined(ctx context.Context, userID uuid.UUID, channelID int64) {
	event := Event{Type: EventSubscribeChannel, ChannelID: channelID}

	if err := p.router.Publish(ctx, UserGroup(userID), event); err != nil {
		p.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Int64("channel_id", channelID).
			Msg("Failed to publish subscribe_channel event")
	}
}

// ChannelLeft is the symmetric removal, published on leave and ban.
func (p *Publisher) ChannelLeft(ctx context.Context, userID uuid.UUID, channelID int64) {
	event := Event{Type: EventUnsubscribeChannel, ChannelID: channelID}

	if err := p.router.Publish(ctx, UserGroup(userID), event); err != nil {
		p.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Int64("channel_id", channelID).
			Msg("Failed to publish unsubscribe_channel event")
	}
}
