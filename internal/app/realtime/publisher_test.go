package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("MessageCreated reaches subscribed sessions as chat_message", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{ids: []int64{12}})

		s, err := gw.Connect(ctx, newFakeConn(), testUser())
		require.NoError(t, err)

		pub := NewPublisher(router)
		pub.MessageCreated(ctx, 12, map[string]string{"content": "hi"}, map[string]string{"name": "general"})

		payload, ok := drainOne(s)
		require.True(t, ok)

		var got struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "chat_message", got.Type)
	})

	t.Run("ChannelJoined subscribes every session of the user", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{})
		u := testUser()

		_, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		_, err = gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)

		pub := NewPublisher(router)
		pub.ChannelJoined(ctx, u.ID, 30)

		assert.Equal(t, 2, router.subscriberCount(ChannelGroup(30)))
	})

	t.Run("ChannelLeft drops the channel from every session of the user", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, NewMemoryPresence(), router, stubLister{ids: []int64{30}})
		u := testUser()

		_, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		_, err = gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		require.Equal(t, 2, router.subscriberCount(ChannelGroup(30)))

		pub := NewPublisher(router)
		pub.ChannelLeft(ctx, u.ID, 30)

		assert.Equal(t, 0, router.subscriberCount(ChannelGroup(30)))
	})
}

func TestMemoryPresence(t *testing.T) {
	ctx := context.Background()

	t.Run("counts rise and fall per user", func(t *testing.T) {
		p := NewMemoryPresence()
		u := testUser()

		count, err := p.Increment(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = p.Increment(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		require.NoError(t, p.Decrement(ctx, u.ID))
		count, err = p.Current(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("entry disappears at zero", func(t *testing.T) {
		p := NewMemoryPresence()
		u := testUser()

		_, err := p.Increment(ctx, u.ID)
		require.NoError(t, err)
		require.NoError(t, p.Decrement(ctx, u.ID))

		assert.False(t, p.EntryExists(u.ID))

		count, err := p.Current(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
