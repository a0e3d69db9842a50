package realtime

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPresenceUnavailable is returned when the presence backing store cannot be
// reached within the bounded operation timeout. Callers must treat it as a hard
// failure, never as a zero count; admitting connections while the counter is
// unreadable would lift the per-user cap during an outage.
var ErrPresenceUnavailable = errors.New("presence store unavailable")

// Presence is a shared, crash-tolerant counter of open sessions per user.
//
// Increment and Decrement must be atomic in the backing store; callers never
// read-modify-write. Entries self-expire after a TTL so that a process crash
// that skips the decrement cannot leak a slot forever.
type Presence interface {
	// Current reads the number of open sessions for the user. A missing entry
	// reads as 0. Returns ErrPresenceUnavailable when the store is unreachable.
	Current(ctx context.Context, userID uuid.UUID) (int64, error)

	// Increment atomically increments the counter, re-arms its expiry, and
	// returns the post-increment count.
	Increment(ctx context.Context, userID uuid.UUID) (int64, error)

	// Decrement atomically decrements the counter and deletes the entry once
	// it reaches zero, so idle users leave no keys behind.
	Decrement(ctx context.Context, userID uuid.UUID) error
}
