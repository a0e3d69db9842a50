package realtime

import (
	"context"
	"sync"
)

// MemoryRouter implements Router within a single process. It backs tests and
// single-process deployments where no shared broadcast medium exists.
type MemoryRouter struct {
	mu     sync.RWMutex
	groups map[string]map[string]Subscriber
}

// NewMemoryRouter constructs an empty in-process router.
func NewMemoryRouter() *MemoryRouter {
	return &MemoryRouter{groups: make(map[string]map[string]Subscriber)}
}

// Subscribe registers the session under the group, keyed by session id.
func (r *MemoryRouter) Subscribe(_ context.Context, group string, sub Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.groups[group]
	if subs == nil {
		subs = make(map[string]Subscriber)
		r.groups[group] = subs
	}
	subs[sub.SessionID()] = sub
	return nil
}

// Unsubscribe removes the session from the group, dropping empty groups.
func (r *MemoryRouter) Unsubscribe(_ context.Context, group string, sub Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.groups[group]
	if subs == nil {
		return nil
	}
	delete(subs, sub.SessionID())
	if len(subs) == 0 {
		delete(r.groups, group)
	}
	return nil
}

// Publish delivers the event to a snapshot of the group's subscribers. The
// snapshot is taken under the read lock and dispatched outside it, so a
// subscriber reacting to the event (e.g. subscribing to another group) cannot
// deadlock the router.
func (r *MemoryRouter) Publish(_ context.Context, group string, event Event) error {
	r.mu.RLock()
	snapshot := make([]Subscriber, 0, len(r.groups[group]))
	for _, sub := range r.groups[group] {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	for _, sub := range snapshot {
		sub.HandleEvent(event)
	}
	return nil
}

// Close is a no-op; a memory router holds no background resources.
func (r *MemoryRouter) Close() error {
	return nil
}

// subscriberCount reports the current group size; used by tests.
func (r *MemoryRouter) subscriberCount(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}
