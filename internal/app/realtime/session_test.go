package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandleEvent(t *testing.T) {
	ctx := context.Background()

	openSession := func(t *testing.T, gw *Gateway) *Session {
		t.Helper()
		s, err := gw.Connect(ctx, newFakeConn(), testUser())
		require.NoError(t, err)
		return s
	}

	t.Run("chat_message is queued in the wire envelope", func(t *testing.T) {
		gw := newTestGateway(5, NewMemoryPresence(), NewMemoryRouter(), stubLister{})
		s := openSession(t, gw)

		s.HandleEvent(Event{
			Type:    EventChatMessage,
			Message: json.RawMessage(`{"content":"hello"}`),
			Channel: json.RawMessage(`{"name":"general"}`),
		})

		payload, ok := drainOne(s)
		require.True(t, ok)

		var got struct {
			Type string `json:"type"`
			Data struct {
				Message json.RawMessage `json:"message"`
				Channel json.RawMessage `json:"channel"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "chat_message", got.Type)
		assert.JSONEq(t, `{"content":"hello"}`, string(got.Data.Message))
		assert.JSONEq(t, `{"name":"general"}`, string(got.Data.Channel))
	})

	t.Run("control events mutate subscriptions and never reach the wire", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{})
		s := openSession(t, gw)

		s.HandleEvent(Event{Type: EventSubscribeChannel, ChannelID: 42})

		_, queued := drainOne(s)
		assert.False(t, queued)
		assert.Equal(t, 1, router.subscriberCount(ChannelGroup(42)))

		s.HandleEvent(Event{Type: EventUnsubscribeChannel, ChannelID: 42})

		_, queued = drainOne(s)
		assert.False(t, queued)
		assert.Equal(t, 0, router.subscriberCount(ChannelGroup(42)))
	})

	t.Run("unsubscribing a channel never held is harmless", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{})
		s := openSession(t, gw)

		s.HandleEvent(Event{Type: EventUnsubscribeChannel, ChannelID: 99})

		assert.Equal(t, 0, router.subscriberCount(ChannelGroup(99)))
		assert.Equal(t, StateOpen, s.State())
	})

	t.Run("unknown event types are dropped", func(t *testing.T) {
		gw := newTestGateway(5, NewMemoryPresence(), NewMemoryRouter(), stubLister{})
		s := openSession(t, gw)

		s.HandleEvent(Event{Type: EventType("presence_ping")})

		_, queued := drainOne(s)
		assert.False(t, queued)
	})

	t.Run("an event arriving after teardown is dropped", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{ids: []int64{4}})
		s := openSession(t, gw)

		s.Teardown()

		// the routers snapshot subscribers before dispatching, so a publish
		// can still reach a session that closed in between
		event := Event{Type: EventChatMessage, Message: json.RawMessage(`{}`), Channel: json.RawMessage(`{}`)}
		s.HandleEvent(event)
		s.HandleEvent(event)

		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("events racing teardown never panic", func(t *testing.T) {
		gw := newTestGateway(5, NewMemoryPresence(), NewMemoryRouter(), stubLister{})
		s := openSession(t, gw)

		event := Event{Type: EventChatMessage, Message: json.RawMessage(`{}`), Channel: json.RawMessage(`{}`)}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < sendQueueSize*2; i++ {
				s.HandleEvent(event)
			}
		}()

		s.Teardown()
		wg.Wait()

		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("a full send queue tears the slow session down", func(t *testing.T) {
		presence := NewMemoryPresence()
		gw := newTestGateway(5, presence, NewMemoryRouter(), stubLister{})
		s := openSession(t, gw)

		event := Event{Type: EventChatMessage, Message: json.RawMessage(`{}`), Channel: json.RawMessage(`{}`)}
		for i := 0; i < sendQueueSize+1; i++ {
			s.HandleEvent(event)
		}

		assert.Equal(t, StateClosed, s.State())
		assert.False(t, presence.EntryExists(s.User().ID))
	})
}

func TestRouterFanOut(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers only to sessions subscribed to the channel", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{ids: []int64{1}})

		subscribed, err := gw.Connect(ctx, newFakeConn(), testUser())
		require.NoError(t, err)

		outsiderGW := newTestGateway(5, NewMemoryPresence(), router, stubLister{})
		outsider, err := outsiderGW.Connect(ctx, newFakeConn(), testUser())
		require.NoError(t, err)

		err = router.Publish(ctx, ChannelGroup(1), Event{
			Type:    EventChatMessage,
			Message: json.RawMessage(`{"content":"hi"}`),
			Channel: json.RawMessage(`{}`),
		})
		require.NoError(t, err)

		_, got := drainOne(subscribed)
		assert.True(t, got)
		_, got = drainOne(outsider)
		assert.False(t, got)
	})

	t.Run("a control event on the user group updates every session of that user", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{})
		u := testUser()

		first, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		second, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)

		err = router.Publish(ctx, UserGroup(u.ID), Event{Type: EventSubscribeChannel, ChannelID: 8})
		require.NoError(t, err)

		assert.Equal(t, 2, router.subscriberCount(ChannelGroup(8)))

		// both sessions now receive channel traffic
		err = router.Publish(ctx, ChannelGroup(8), Event{
			Type:    EventChatMessage,
			Message: json.RawMessage(`{}`),
			Channel: json.RawMessage(`{}`),
		})
		require.NoError(t, err)

		_, got := drainOne(first)
		assert.True(t, got)
		_, got = drainOne(second)
		assert.True(t, got)
	})

	t.Run("duplicate subscriptions deliver once", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{ids: []int64{5}})

		s, err := gw.Connect(ctx, newFakeConn(), testUser())
		require.NoError(t, err)

		// a join event racing the initial subscription must not double-deliver
		s.HandleEvent(Event{Type: EventSubscribeChannel, ChannelID: 5})
		assert.Equal(t, 1, router.subscriberCount(ChannelGroup(5)))

		err = router.Publish(ctx, ChannelGroup(5), Event{
			Type:    EventChatMessage,
			Message: json.RawMessage(`{}`),
			Channel: json.RawMessage(`{}`),
		})
		require.NoError(t, err)

		_, got := drainOne(s)
		assert.True(t, got)
		_, got = drainOne(s)
		assert.False(t, got)
	})
}

func TestEventWirePayload(t *testing.T) {
	t.Run("error events carry their detail", func(t *testing.T) {
		payload, ok, err := Event{Type: EventError, Detail: "boom"}.wirePayload()
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"type":"error","data":{"detail":"boom"}}`, string(payload))
	})

	t.Run("control events have no wire form", func(t *testing.T) {
		payload, ok, err := Event{Type: EventSubscribeChannel, ChannelID: 1}.wirePayload()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, payload)
	})
}
