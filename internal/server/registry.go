package server

import (
	"sort"
	"sync"
)

// ConnectionRegistry maps an account id to its most recent live
// connection. Routing is last-writer-wins: a reconnect replaces the
// prior entry without closing it, and the replaced connection is simply
// no longer addressable.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[int]*Client
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[int]*Client),
	}
}

// Register associates c with userId, replacing any prior association.
// It reports whether an existing entry was replaced.
func (r *ConnectionRegistry) Register(userId int, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.conns[userId]
	r.conns[userId] = c
	return replaced
}

// Deregister removes the association for userId, but only if c is still
// the registered connection. A stale connection's late disconnect can
// therefore never evict a fresh reconnect. It reports whether an entry
// was removed.
func (r *ConnectionRegistry) Deregister(userId int, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.conns[userId]
	if !ok || cur.id != c.id {
		return false
	}

	delete(r.conns, userId)
	return true
}

// Lookup resolves the registered connection for userId. Absence means
// the user is offline, which is a normal outcome for callers.
func (r *ConnectionRegistry) Lookup(userId int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userId]
	return c, ok
}

// Snapshot returns the ids of all registered users in ascending order.
func (r *ConnectionRegistry) Snapshot() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return ids
}
