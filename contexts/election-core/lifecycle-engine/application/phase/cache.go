package phase

import (
	"sync"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// Cache holds the most recent observed phase per election. It is the only
// mutable state shared across vote requests; a stale read costs at most one
// slow-path derivation against the election window, never a wrong commit.
type Cache struct {
	mu     sync.RWMutex
	phases map[string]entities.ElectionPhase
}

func NewCache() *Cache {
	return &Cache{
		phases: make(map[string]entities.ElectionPhase),
	}
}

// Apply records a broadcast phase event. Transitions only move forward:
// ENDED is absorbing and a late START after END is a no-op.
func (c *Cache) Apply(event entities.PhaseEvent) {
	if event.ElectionID == "" {
		return
	}
	next := event.Phase()

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.phases[event.ElectionID]
	if ok && !entities.Advances(current, next) {
		return
	}
	c.phases[event.ElectionID] = next
}

// Lookup returns the cached phase override, if any.
func (c *Cache) Lookup(electionID string) (entities.ElectionPhase, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	phase, ok := c.phases[electionID]
	return phase, ok
}

// Resolve returns the effective phase for an election: the cached event
// override when one exists, otherwise the phase derived from the window.
func (c *Cache) Resolve(election entities.Election, now time.Time) entities.ElectionPhase {
	derived := election.DerivePhase(now)
	cached, ok := c.Lookup(election.ElectionID)
	if !ok {
		return derived
	}
	// The window never lies about ENDED; keep whichever is further along so a
	// missed broadcast cannot hold an election LIVE past its end time.
	if entities.Advances(cached, derived) {
		return derived
	}
	return cached
}

var _ ports.PhaseStore = (*Cache)(nil)
