package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(maxConns int, presence Presence, router Router, lister ChannelLister) *Gateway {
	return NewGateway(GatewayConfig{MaxConnectionsPerUser: maxConns}, presence, router, lister)
}

func TestGatewayConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("admits and subscribes user and channel groups", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(5, presence, router, stubLister{ids: []int64{1, 2}})
		u := testUser()

		s, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		require.NotNil(t, s)

		assert.Equal(t, StateOpen, s.State())

		count, err := presence.Current(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		assert.Equal(t, 1, router.subscriberCount(UserGroup(u.ID)))
		assert.Equal(t, 1, router.subscriberCount(ChannelGroup(1)))
		assert.Equal(t, 1, router.subscriberCount(ChannelGroup(2)))
	})

	// Sequential connects hold the cap exactly. Concurrent connects may admit
	// one session over it because the count-then-increment pair is not atomic;
	// that window is an accepted property, documented on Gateway.Connect.
	t.Run("rejects with 4001 at the connection cap", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(3, presence, router, stubLister{})
		u := testUser()

		for i := 0; i < 3; i++ {
			_, err := gw.Connect(ctx, newFakeConn(), u)
			require.NoError(t, err)
		}

		conn := newFakeConn()
		s, err := gw.Connect(ctx, conn, u)
		require.ErrorIs(t, err, ErrTooManyConnections)
		assert.Nil(t, s)
		assert.Equal(t, CloseTooManyConnections, conn.closeCode())
		assert.True(t, conn.isClosed())

		// the rejected attempt must not disturb the counter
		count, err := presence.Current(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("rejects with 4003 when the presence store is unreachable", func(t *testing.T) {
		router := NewMemoryRouter()
		gw := newTestGateway(5, failingPresence{}, router, stubLister{})
		u := testUser()

		conn := newFakeConn()
		s, err := gw.Connect(ctx, conn, u)
		require.ErrorIs(t, err, ErrPresenceUnavailable)
		assert.Nil(t, s)
		assert.Equal(t, CloseServiceUnavailable, conn.closeCode())
		assert.True(t, conn.isClosed())

		// rejection happened before any increment or subscription
		assert.Equal(t, 0, router.subscriberCount(UserGroup(u.ID)))
	})

	t.Run("releases the presence slot when membership listing fails", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(5, presence, router, stubLister{err: context.DeadlineExceeded})
		u := testUser()

		conn := newFakeConn()
		s, err := gw.Connect(ctx, conn, u)
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Equal(t, CloseServiceUnavailable, conn.closeCode())

		// the increment that happened before the failure is undone, and the
		// user group subscription established in between is gone too
		assert.False(t, presence.EntryExists(u.ID))
		assert.Equal(t, 0, router.subscriberCount(UserGroup(u.ID)))
	})
}

func TestSessionTeardown(t *testing.T) {
	ctx := context.Background()

	t.Run("releases everything the session acquired", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(5, presence, router, stubLister{ids: []int64{7}})
		u := testUser()

		conn := newFakeConn()
		s, err := gw.Connect(ctx, conn, u)
		require.NoError(t, err)

		s.Teardown()

		assert.Equal(t, StateClosed, s.State())
		assert.True(t, conn.isClosed())
		assert.False(t, presence.EntryExists(u.ID))
		assert.Equal(t, 0, router.subscriberCount(UserGroup(u.ID)))
		assert.Equal(t, 0, router.subscriberCount(ChannelGroup(7)))
	})

	t.Run("is idempotent and never decrements twice", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(5, presence, router, stubLister{})
		u := testUser()

		first, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		second, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)

		first.Teardown()
		first.Teardown()
		first.Teardown()

		// only the first session's slot is released, however many times its
		// teardown is invoked
		count, err := presence.Current(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		second.Teardown()
		assert.False(t, presence.EntryExists(u.ID))
	})

	t.Run("keeps other sessions of the same user subscribed", func(t *testing.T) {
		presence := NewMemoryPresence()
		router := NewMemoryRouter()
		gw := newTestGateway(5, presence, router, stubLister{ids: []int64{3}})
		u := testUser()

		first, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)
		second, err := gw.Connect(ctx, newFakeConn(), u)
		require.NoError(t, err)

		first.Teardown()

		assert.Equal(t, 1, router.subscriberCount(UserGroup(u.ID)))
		assert.Equal(t, 1, router.subscriberCount(ChannelGroup(3)))
		assert.Equal(t, StateOpen, second.State())
	})
}
