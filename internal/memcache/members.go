package memcache

import (
	"sync"
	"time"
)

type entry struct {
	uids []int64
	exp  time.Time
}

// Members is a TTL cache of conversation member lists used to route fan-out
// without hitting the store on every event. Membership is append-only, so a
// stale entry can only under-deliver for at most one TTL.
type Members struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[int64]entry
}

func New(ttl time.Duration) *Members {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Members{ttl: ttl, m: make(map[int64]entry)}
}

func (c *Members) Get(convID int64) ([]int64, bool) {
	c.mu.RLock()
	e, ok := c.m[convID]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		return nil, false
	}
	return e.uids, true
}

func (c *Members) Set(convID int64, uids []int64) {
	c.mu.Lock()
	c.m[convID] = entry{uids: uids, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
