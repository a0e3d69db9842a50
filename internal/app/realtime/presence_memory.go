package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryPresence implements Presence with a process-local map. It backs tests
// and single-process deployments; counters die with the process, so no TTL
// bookkeeping is needed.
type MemoryPresence struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

// NewMemoryPresence constructs an empty in-memory presence counter.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{counts: make(map[uuid.UUID]int64)}
}

// Current reads the counter; absent entries read as 0.
func (p *MemoryPresence) Current(_ context.Context, userID uuid.UUID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID], nil
}

// Increment bumps the counter and returns the new value.
func (p *MemoryPresence) Increment(_ context.Context, userID uuid.UUID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[userID]++
	return p.counts[userID], nil
}

// Decrement lowers the counter, deleting the entry at zero or below.
func (p *MemoryPresence) Decrement(_ context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[userID]--
	if p.counts[userID] <= 0 {
		delete(p.counts, userID)
	}
	return nil
}

// EntryExists reports whether a counter entry is currently stored for the
// user. Exposed so tests can assert that entries are cleaned up at zero.
func (p *MemoryPresence) EntryExists(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.counts[userID]
	return ok
}
