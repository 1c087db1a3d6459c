package claim

import (
	"sync"
	"time"

	"citizenship/pkg/domain"
)

// cooldowns tracks the last successful self-claim per user. Entries are
// evicted lazily when checked after expiry.
type cooldowns struct {
	mu   sync.Mutex
	ttl  time.Duration
	last map[domain.UserID]time.Time
}

func newCooldowns(ttl time.Duration) *cooldowns {
	return &cooldowns{ttl: ttl, last: make(map[domain.UserID]time.Time)}
}

// remaining is how long user must still wait at now. Zero means free.
func (c *cooldowns) remaining(user domain.UserID, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.last[user]
	if !ok {
		return 0
	}
	left := at.Add(c.ttl).Sub(now)
	if left <= 0 {
		delete(c.last, user)
		return 0
	}
	return left
}

func (c *cooldowns) stamp(user domain.UserID, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[user] = now
}

func (c *cooldowns) forget(user domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, user)
}
