/*
Package realtime contains the presence and fan-out core of the messaging backend.

It tracks which live websocket sessions belong to which user and which channels,
enforces a per-user connection cap through a shared presence counter, and routes
channel events to every subscribed session across process boundaries.

This file defines the Event type routed between processes and the group naming
scheme shared by all components.
*/
package realtime

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// EventType tags an Event with its meaning.
type EventType string

const (
	// EventChatMessage carries a newly persisted message to every session
	// subscribed to the message's channel group.
	EventChatMessage EventType = "chat_message"

	// EventSubscribeChannel instructs every live session of one user to add a
	// channel group to its subscription set. It never reaches the wire.
	EventSubscribeChannel EventType = "subscribe_channel"

	// EventUnsubscribeChannel is the symmetric removal, used on leave and ban.
	EventUnsubscribeChannel EventType = "unsubscribe_channel"

	// EventError carries an error notification to the client.
	EventError EventType = "error"
)

// Event is the immutable unit published to a group and delivered to its
// subscribers. Exactly one payload section is populated depending on Type.
type Event struct {
	Type EventType `json:"type"`

	// chat_message payload: the serialized message and the minimal
	// representation of the channel it belongs to.
	Message json.RawMessage `json:"message,omitempty"`
	Channel json.RawMessage `json:"channel,omitempty"`

	// subscribe_channel / unsubscribe_channel payload.
	ChannelID int64 `json:"channel_id,omitempty"`

	// error payload.
	Detail string `json:"detail,omitempty"`
}

// envelope is the outbound wire format: {"type": ..., "data": {...}}.
type envelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type chatMessageData struct {
	Message json.RawMessage `json:"message"`
	Channel json.RawMessage `json:"channel"`
}

type errorData struct {
	Detail string `json:"detail"`
}

// wirePayload serializes the event for the client socket. Control events
// (subscribe_channel, unsubscribe_channel) only mutate session state and
// report ok=false; they are never written to the wire.
func (e Event) wirePayload() (payload []byte, ok bool, err error) {
	switch e.Type {
	case EventChatMessage:
		payload, err = json.Marshal(envelope{
			Type: e.Type,
			Data: chatMessageData{Message: e.Message, Channel: e.Channel},
		})
		return payload, err == nil, err

	case EventError:
		payload, err = json.Marshal(envelope{
			Type: e.Type,
			Data: errorData{Detail: e.Detail},
		})
		return payload, err == nil, err

	default:
		return nil, false, nil
	}
}

// UserGroup is the broadcast address reaching every live session of one user.
func UserGroup(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ChannelGroup is the broadcast address reaching every session subscribed to a channel.
func ChannelGroup(channelID int64) string {
	return "channel:" + strconv.FormatInt(channelID, 10)
}
