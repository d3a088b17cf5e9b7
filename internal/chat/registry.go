package chat

import "sync"

// Registry tracks which live connections belong to which user and which
// conversation. It is the single owner of the in-memory socket maps: nothing
// outside this type ever sees them, only the four operations below. State is
// process-local and intentionally lost on restart; clients reconnect.
//
// Mutations are serialized by a single mutex; reads return snapshots so the
// broadcaster can iterate without holding the lock while writing to sockets.
// Every operation is a total function: none of them can fail.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[*Conn]struct{}
	byConv map[string]map[*Conn]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[*Conn]struct{}),
		byConv: make(map[string]map[*Conn]struct{}),
	}
}

// Register adds the connection to both the per-user and the per-conversation
// set. Registering the same connection twice is absorbed by the sets.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byUser[c.UserID][c]; dup {
		return
	}
	users := r.byUser[c.UserID]
	if users == nil {
		users = make(map[*Conn]struct{})
		r.byUser[c.UserID] = users
	}
	users[c] = struct{}{}

	conns := r.byConv[c.ConversationID]
	if conns == nil {
		conns = make(map[*Conn]struct{})
		r.byConv[c.ConversationID] = conns
	}
	conns[c] = struct{}{}

	activeConnections.Inc()
}

// Unregister removes the connection from both sets and drops keys whose sets
// become empty, so the maps never grow without bound. Calling it on a
// connection that is not registered is a no-op.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byUser[c.UserID]
	if !ok {
		return
	}
	if _, ok := users[c]; !ok {
		return
	}
	delete(users, c)
	if len(users) == 0 {
		delete(r.byUser, c.UserID)
	}

	if conns, ok := r.byConv[c.ConversationID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.byConv, c.ConversationID)
		}
	}

	activeConnections.Dec()
}

// MembersOf returns a snapshot of the live connections currently registered
// for the conversation. The result may be empty and is safe to iterate while
// other goroutines register and unregister.
func (r *Registry) MembersOf(conversationID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byConv[conversationID]
	out := make([]*Conn, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

// UserFor reports the owning user of a connection, and whether the
// connection is still registered. Used to attribute inbound frames and to
// clean up on error paths.
func (r *Registry) UserFor(c *Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byUser[c.UserID][c]; ok {
		return c.UserID, true
	}
	return "", false
}

// Online reports whether the user holds at least one live connection
// anywhere. The push dispatcher uses this to decide between socket delivery
// and out-of-band notification.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}
