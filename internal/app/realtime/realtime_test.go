package realtime

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wavechat/internal/app/user"
)

// fakeConn is a Conn that records everything written to it, for driving
// sessions without live sockets.
type fakeConn struct {
	mu        sync.Mutex
	frames    []fakeFrame
	closed    bool
	closeOnce sync.Once
	readDone  chan struct{}

	// writeErr, when set, fails every WriteMessage call.
	writeErr error
}

type fakeFrame struct {
	messageType int
	data        []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{readDone: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.readDone
	return 0, nil, errors.New("connection closed")
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, fakeFrame{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.readDone) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// closeCode extracts the code of the first close frame written, or 0.
func (c *fakeConn) closeCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.frames {
		if f.messageType == websocket.CloseMessage && len(f.data) >= 2 {
			return int(binary.BigEndian.Uint16(f.data[:2]))
		}
	}
	return 0
}

// failingPresence is a Presence whose backing store is unreachable.
type failingPresence struct{}

func (failingPresence) Current(context.Context, uuid.UUID) (int64, error) {
	return 0, ErrPresenceUnavailable
}

func (failingPresence) Increment(context.Context, uuid.UUID) (int64, error) {
	return 0, ErrPresenceUnavailable
}

func (failingPresence) Decrement(context.Context, uuid.UUID) error {
	return ErrPresenceUnavailable
}

// stubLister serves a fixed membership list, or an error.
type stubLister struct {
	ids []int64
	err error
}

func (l stubLister) ListChannelIDsForUser(context.Context, uuid.UUID) ([]int64, error) {
	return l.ids, l.err
}

func testUser() user.User {
	return user.User{ID: uuid.New(), Username: "tester"}
}

// drainOne receives a single queued payload without blocking the test.
func drainOne(s *Session) ([]byte, bool) {
	select {
	case payload := <-s.send:
		return payload, true
	default:
		return nil, false
	}
}
