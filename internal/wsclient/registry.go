package wsclient

import (
	"sync"

	"github.com/google/uuid"

	"github.com/questline/sessionsync/internal/protocol"
)

// Registry shares one physical connection per session id across any number
// of consumers. Acquire/Release bracket a consumer's interest; the socket
// closes only when the last handle for a session is released, so a release
// followed immediately by a fresh acquire (unmount then remount during
// navigation) reuses the live connection instead of flapping it.
type Registry struct {
	opts Options

	mutex   sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	conn *Conn
	refs int
}

// Handle is one consumer's claim on a session connection.
type Handle struct {
	id        string
	sessionID string
	registry  *Registry

	mutex    sync.Mutex
	conn     *Conn
	released bool
}

// NewRegistry creates an empty connection registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[string]*registryEntry),
	}
}

// Acquire returns a handle on the shared connection for sessionID, dialing a
// new one if none is live. Only the first acquire for a session sends a JOIN;
// later acquires piggyback on the open socket.
func (r *Registry) Acquire(sessionID string, identity protocol.Identity) *Handle {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.entries[sessionID]
	if exists && !entry.conn.isClosed() && entry.conn.Status() != StatusDisconnected {
		entry.refs++
	} else {
		conn := newConn(sessionID, identity, r.opts)
		entry = &registryEntry{conn: conn, refs: 1}
		r.entries[sessionID] = entry
		go conn.run()
	}

	return &Handle{
		id:        uuid.New().String(),
		sessionID: sessionID,
		registry:  r,
		conn:      entry.conn,
	}
}

// Conn returns the shared connection this handle refers to.
func (h *Handle) Conn() *Conn {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.conn
}

// ID returns the handle's unique id.
func (h *Handle) ID() string { return h.id }

// Release drops this handle's claim. Releasing a handle that is not the last
// one is a no-op on the wire; the final release sends LEAVE and closes the
// socket. Release is idempotent.
func (h *Handle) Release() {
	h.mutex.Lock()
	if h.released {
		h.mutex.Unlock()
		return
	}
	h.released = true
	conn := h.conn
	h.mutex.Unlock()

	h.registry.release(h.sessionID, conn)
}

func (r *Registry) release(sessionID string, conn *Conn) {
	r.mutex.Lock()
	entry, exists := r.entries[sessionID]
	if !exists || entry.conn != conn {
		// A newer connection already replaced this one; nothing to do.
		r.mutex.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		r.mutex.Unlock()
		return
	}
	delete(r.entries, sessionID)
	r.mutex.Unlock()

	conn.close()
}

// Refs reports how many unreleased handles exist for a session.
func (r *Registry) Refs(sessionID string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if entry, exists := r.entries[sessionID]; exists {
		return entry.refs
	}
	return 0
}
