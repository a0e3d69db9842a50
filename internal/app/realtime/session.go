/*
Package realtime contains the presence and fan-out core of the messaging backend.

This file defines the Session struct, representing one live websocket connection.
A Session owns its socket, its outbound send queue, and the set of groups it is
subscribed to. It runs the read/write pumps and reacts to routed events.
*/
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wavechat/internal/app/user"
	"wavechat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 4096

	// capacity of the per-session outbound queue.
	sendQueueSize = 256

	// bound on router calls made while reacting to control events on an
	// open session.
	subscriptionOpTimeout = 5 * time.Second
)

// Application-defined websocket close codes (4000-4999 range).
const (
	// CloseTooManyConnections signals that the user already holds the maximum
	// number of concurrent connections. Retriable after closing another session.
	CloseTooManyConnections = 4001

	// CloseServiceUnavailable signals that the presence or router backing store
	// was unreachable. Fully retriable; no partial state is left behind.
	CloseServiceUnavailable = 4003
)

// SessionState tracks the connect lifecycle of a Session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAdmitted
	StateSubscribed
	StateOpen
	StateClosing
	StateClosed
)

// String returns the lifecycle stage name for logging.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAdmitted:
		return "admitted"
	case StateSubscribed:
		return "subscribed"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the subset of *websocket.Conn a Session needs. Narrowing the socket
// to an interface keeps the lifecycle logic testable without live sockets.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session represents one live connection and its subscription state. It is
// exclusively owned by the goroutine that accepted the socket; the gateway's
// presence counter and router are the only shared resources it touches.
type Session struct {
	// unique identifier of this connection, distinct per socket.
	id string

	// the authenticated owner of the connection.
	user user.User

	// underlying websocket connection.
	conn Conn

	// the gateway that admitted this session; owns the shared components.
	gateway *Gateway

	// buffered queue of payloads waiting to be written to the socket.
	send chan []byte

	// lifecycle stage, transitioned by the gateway and teardown.
	state atomic.Int32

	// mu guards the resource bookkeeping below and the send/sendClosed pair.
	mu sync.Mutex

	// sendClosed is set before send is closed; enqueue checks it under mu so
	// a publish racing teardown drops the payload instead of panicking.
	sendClosed bool

	// channel groups this session currently holds.
	groups map[string]struct{}

	// whether the user:<id> group subscription was established.
	userGroupHeld bool

	// whether the presence counter was incremented for this session.
	presenceHeld bool

	// ensures teardown runs exactly once regardless of how the session ends.
	teardownOnce sync.Once

	// guards closing the send channel.
	closeSendOnce sync.Once

	// structured logger with session context.
	logger zerolog.Logger
}

func newSession(gateway *Gateway, conn Conn, u user.User) *Session {
	id := uuid.NewString()

	sessionLogger := logx.Logger().With().
		Str("session_id", id).
		Str("user_id", u.ID.String()).
		Logger()

	return &Session{
		id:      id,
		user:    u,
		conn:    conn,
		gateway: gateway,
		send:    make(chan []byte, sendQueueSize),
		groups:  make(map[string]struct{}),
		logger:  sessionLogger,
	}
}

// SessionID implements Subscriber.
func (s *Session) SessionID() string {
	return s.id
}

// User returns the identity that owns this session.
func (s *Session) User() user.User {
	return s.user
}

// State returns the current lifecycle stage.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

// HandleEvent implements Subscriber. Message events are serialized and queued
// for the socket; control events mutate the subscription set and never reach
// the wire.
func (s *Session) HandleEvent(event Event) {
	switch event.Type {
	case EventChatMessage, EventError:
		payload, ok, err := event.wirePayload()
		if err != nil {
			s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to serialize event for wire")
			return
		}
		if ok {
			s.enqueue(payload)
		}

	case EventSubscribeChannel:
		s.subscribeChannel(event.ChannelID)

	case EventUnsubscribeChannel:
		s.unsubscribeChannel(event.ChannelID)

	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Dropping event of unknown type")
	}
}

// subscribeChannel adds one channel group to the session's subscription set.
// Published to the user group by the join endpoint, so joining a channel on one
// device updates all of that user's other open sessions.
func (s *Session) subscribeChannel(channelID int64) {
	group := ChannelGroup(channelID)

	ctx, cancel := context.WithTimeout(context.Background(), subscriptionOpTimeout)
	defer cancel()

	if err := s.gateway.router.Subscribe(ctx, group, s); err != nil {
		s.logger.Error().Err(err).Str("group", group).Msg("Failed to subscribe to channel group")
		return
	}

	s.mu.Lock()
	s.groups[group] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug().Str("group", group).Msg("Subscribed to channel group.")
}

// unsubscribeChannel is the symmetric removal, used on leave and ban.
func (s *Session) unsubscribeChannel(channelID int64) {
	group := ChannelGroup(channelID)

	ctx, cancel := context.WithTimeout(context.Background(), subscriptionOpTimeout)
	defer cancel()

	if err := s.gateway.router.Unsubscribe(ctx, group, s); err != nil {
		s.logger.Error().Err(err).Str("group", group).Msg("Failed to unsubscribe from channel group")
	}

	s.mu.Lock()
	delete(s.groups, group)
	s.mu.Unlock()
}

// enqueue hands a payload to the write pump without blocking the broadcast. A
// session whose queue is full cannot keep up and is torn down unilaterally
// rather than allowed to stall the publisher. A payload arriving after the
// queue closed is dropped; the routers snapshot subscribers before
// dispatching, so a publish can race a teardown.
func (s *Session) enqueue(payload []byte) {
	s.mu.Lock()
	if s.sendClosed {
		s.mu.Unlock()
		return
	}

	select {
	case s.send <- payload:
		s.mu.Unlock()
		return
	default:
	}
	s.mu.Unlock()

	s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, tearing down slow consumer.")
	s.Teardown()
}

// markPresenceHeld records that the presence counter was incremented for this
// session and must be decremented on teardown.
func (s *Session) markPresenceHeld() {
	s.mu.Lock()
	s.presenceHeld = true
	s.mu.Unlock()
}

// markUserGroupHeld records that the user:<id> group subscription was established.
func (s *Session) markUserGroupHeld() {
	s.mu.Lock()
	s.userGroupHeld = true
	s.mu.Unlock()
}

// addGroup records a held channel group.
func (s *Session) addGroup(group string) {
	s.mu.Lock()
	s.groups[group] = struct{}{}
	s.mu.Unlock()
}

// acquiredResources snapshots what this session actually holds, so teardown
// releases exactly the resources acquired on the path taken.
func (s *Session) acquiredResources() (presence, userGroup bool, groups []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups = make([]string, 0, len(s.groups))
	for group := range s.groups {
		groups = append(groups, group)
	}
	return s.presenceHeld, s.userGroupHeld, groups
}

// Run starts the write pump and blocks on the read pump until the connection
// ends, then tears the session down. Socket closure is the cancellation
// signal; there is no separate token.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

// readPump consumes inbound frames until the socket errors or closes. Inbound
// content is discarded: all mutations travel through the HTTP API and reach
// sessions via the router. The pump still enforces read limits and heartbeats.
func (s *Session) readPump() {
	defer s.Teardown()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Session read ended unexpectedly")
			}
			return
		}
	}
}

// writePump writes queued payloads and periodic pings to the socket. It exits
// when the send queue is closed or a write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error in write pump")
		}
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn().Err(err).Msg("Error writing message, tearing session down")
				s.Teardown()
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Info().Err(err).Msg("Ping failed, tearing session down")
				s.Teardown()
				return
			}
		}
	}
}

// closeWithCode sends an application close frame before closing the socket.
func (s *Session) closeWithCode(code int, reason string) {
	s.logger.Warn().Int("close_code", code).Str("reason", reason).Msg("Closing session with application close code.")

	closeMessage := websocket.FormatCloseMessage(code, reason)

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to set write deadline for close frame")
	}

	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write application close frame")
	}
}

// closeSend closes the send queue exactly once, stopping the write pump.
// sendClosed is flipped in the same critical section enqueue checks it in,
// so no sender can slip in between the flag and the close.
func (s *Session) closeSend() {
	s.closeSendOnce.Do(func() {
		s.mu.Lock()
		s.sendClosed = true
		close(s.send)
		s.mu.Unlock()
	})
}

// Teardown releases everything this session acquired, exactly once. Safe to
// call from any goroutine and at any lifecycle stage; a session torn down
// before subscriptions were established releases only the presence slot, and
// one torn down before admission releases nothing.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		s.setState(StateClosing)

		s.gateway.release(s)

		s.closeSend()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error during teardown")
		}

		s.setState(StateClosed)
		s.logger.Info().Msg("Session closed.")
	})
}
