package realtime

import (
	"sort"
	"sync"
)

// Connection is a live, addressable socket as seen by the registry and dispatcher.
type Connection interface {
	ID() uint64
	UserID() string
	// Offer queues a frame without blocking.
	Offer(frame []byte) error
	Close()
}

// Registry maps user ids to their live connections. All access goes through
// one mutex so register, unregister and dispatch snapshots never interleave.
type Registry struct {
	mu    sync.Mutex
	conns map[string]map[uint64]Connection
	total int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[uint64]Connection)}
}

// Register adds conn under userID. Registering the same connection twice is a no-op.
func (r *Registry) Register(userID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.conns[userID]
	if !ok {
		byID = make(map[uint64]Connection)
		r.conns[userID] = byID
	}
	if _, exists := byID[conn.ID()]; exists {
		return
	}
	byID[conn.ID()] = conn
	r.total++
}

// Unregister removes conn and reports whether it was present. It is idempotent.
func (r *Registry) Unregister(userID string, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, exists := byID[conn.ID()]; !exists {
		return false
	}
	delete(byID, conn.ID())
	if len(byID) == 0 {
		delete(r.conns, userID)
	}
	r.total--
	return true
}

// Connections returns a snapshot of the user's live connections ordered by id.
func (r *Registry) Connections(userID string) []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID := r.conns[userID]
	out := make([]Connection, 0, len(byID))
	for _, conn := range byID {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of live connections across all users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Users returns the number of users with at least one live connection.
func (r *Registry) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll empties the registry and closes every connection it held.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	all := make([]Connection, 0, r.total)
	for _, byID := range r.conns {
		for _, conn := range byID {
			all = append(all, conn)
		}
	}
	r.conns = make(map[string]map[uint64]Connection)
	r.total = 0
	r.mu.Unlock()

	for _, conn := range all {
		conn.Close()
	}
	return len(all)
}
