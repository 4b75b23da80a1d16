package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sweepRetryDelay is how long an attempt whose auto-submit failed is left out
// of later sweeps.
const sweepRetryDelay = 5 * time.Minute

// sweepBackoff holds back attempts the sweep failed to close, so a batch of
// broken records cannot starve the rest of the queue.
type sweepBackoff struct {
	mu    sync.Mutex
	until map[uuid.UUID]time.Time
}

func newSweepBackoff() *sweepBackoff {
	return &sweepBackoff{until: make(map[uuid.UUID]time.Time)}
}

// held returns the attempts still backing off at now and forgets the rest.
func (b *sweepBackoff) held(now time.Time) []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(b.until))
	for id, until := range b.until {
		if !now.Before(until) {
			delete(b.until, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (b *sweepBackoff) fail(id uuid.UUID, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[id] = until
}
