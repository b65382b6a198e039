package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// ConnKind tags the transport behind a registered connection.
type ConnKind string

const (
	ConnSSE       ConnKind = "sse"
	ConnWebSocket ConnKind = "websocket"
)

// sendBuffer is the per-connection queue depth. A full buffer marks the
// consumer as too slow and the connection is dropped, matching the
// drop-and-disconnect backpressure policy of the hub this grew out of.
const sendBuffer = 64

// Conn is a live push-capable connection owned by the Registry. The transport
// goroutine drains Send until Done is closed; drivers enqueue through the
// registry and never write to the transport directly.
type Conn struct {
	UserID int
	ID     string
	Kind   ConnKind

	send chan Message
	done chan struct{}
	once sync.Once

	mu         sync.Mutex
	lastActive time.Time
}

// Send is the stream of messages the transport must write out.
func (c *Conn) Send() <-chan Message { return c.send }

// Done is closed when the connection is unregistered or replaced.
func (c *Conn) Done() <-chan struct{} { return c.done }

// LastActiveAt reports the last time a message was enqueued or the transport
// signalled liveness.
func (c *Conn) LastActiveAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch records transport liveness (e.g. a WebSocket pong).
func (c *Conn) Touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// enqueue attempts a non-blocking handoff to the transport goroutine.
// It reports false when the connection is closed or its buffer is full.
func (c *Conn) enqueue(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		c.Touch()
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

const bucketCount = 16

type bucket struct {
	mu     sync.Mutex
	byUser map[int]map[string]*Conn
}

// Registry tracks live SSE/WebSocket connections keyed by user. One user may
// hold any number of simultaneous connections (multi-tab, multi-device).
// User buckets are locked independently; there is no global lock on the hot
// path. Connection IDs are unique registry-wide: re-registering an ID closes
// and replaces the stale handle.
type Registry struct {
	buckets [bucketCount]bucket

	idMu sync.Mutex
	byID map[string]*Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]*Conn)}
	for i := range r.buckets {
		r.buckets[i].byUser = make(map[int]map[string]*Conn)
	}
	return r
}

func (r *Registry) bucket(userID int) *bucket {
	idx := userID % bucketCount
	if idx < 0 {
		idx = -idx
	}
	return &r.buckets[idx]
}

// Register creates a connection handle for the user. Registration is
// idempotent per connID: a duplicate closes the previous handle first, so
// subsequent deliveries reach only the new one.
func (r *Registry) Register(userID int, connID string, kind ConnKind) *Conn {
	conn := &Conn{
		UserID:     userID,
		ID:         connID,
		Kind:       kind,
		send:       make(chan Message, sendBuffer),
		done:       make(chan struct{}),
		lastActive: time.Now(),
	}

	// The stale swap and the bucket insert are one step under idMu: two
	// racing registrations of the same id must not leave the loser's closed
	// handle in the bucket while byID points at the winner's.
	r.idMu.Lock()
	stale := r.byID[connID]
	r.byID[connID] = conn
	if stale != nil {
		r.removeFromBucket(stale)
		stale.close()
	}
	b := r.bucket(userID)
	b.mu.Lock()
	set, ok := b.byUser[userID]
	if !ok {
		set = make(map[string]*Conn)
		b.byUser[userID] = set
	}
	set[connID] = conn
	b.mu.Unlock()
	r.idMu.Unlock()

	if stale != nil {
		slog.Info("replaced stale connection", "connId", connID, "userId", userID)
	}
	return conn
}

// Unregister removes the connection and closes its handle. Calling it for an
// already-replaced or already-removed connection is a no-op, so transports and
// drivers may both unregister on failure without coordination.
func (r *Registry) Unregister(conn *Conn) {
	r.idMu.Lock()
	if cur := r.byID[conn.ID]; cur == conn {
		delete(r.byID, conn.ID)
	}
	r.idMu.Unlock()

	r.removeFromBucket(conn)
	conn.close()
}

func (r *Registry) removeFromBucket(conn *Conn) {
	b := r.bucket(conn.UserID)
	b.mu.Lock()
	if set, ok := b.byUser[conn.UserID]; ok {
		if cur, exists := set[conn.ID]; exists && cur == conn {
			delete(set, conn.ID)
			if len(set) == 0 {
				delete(b.byUser, conn.UserID)
			}
		}
	}
	b.mu.Unlock()
}

// ActiveConnections returns the user's live connections, optionally filtered
// by transport kind (pass "" for all).
func (r *Registry) ActiveConnections(userID int, kind ConnKind) []*Conn {
	b := r.bucket(userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	conns := make([]*Conn, 0, len(set))
	for _, c := range set {
		if kind == "" || c.Kind == kind {
			conns = append(conns, c)
		}
	}
	return conns
}

// deliverVia pushes msg to every live connection of the given kind. Shared by
// the SSE and WebSocket drivers, which differ only in transport handling.
func (r *Registry) deliverVia(userID int, kind ConnKind, msg Message) Outcome {
	conns := r.ActiveConnections(userID, kind)
	if len(conns) == 0 {
		return NoActiveConnection
	}
	delivered := false
	for _, c := range conns {
		if c.enqueue(msg) {
			delivered = true
			continue
		}
		// Slow or dead consumer: drop the connection, the client reconnects.
		r.Unregister(c)
		slog.Warn("dropped slow or closed connection", "connId", c.ID, "userId", userID, "kind", kind)
	}
	if !delivered {
		return TransportError
	}
	return Delivered
}
