package webrtc

import (
	"sync"

	"github.com/lanikai/rtcdc/internal/asyncseq"
)

// Listener accepts server-role Connections for one Endpoint, keyed by an
// application-supplied peer identifier (e.g. a signaling session id). It
// does not itself listen on a socket: callers demultiplex inbound
// datagrams to a peerId out of band and hand them to AcceptConnection.
type Listener struct {
	mu sync.Mutex

	endpoint *Endpoint

	byPeer      map[string]*Connection
	connections *asyncseq.Source[*Connection]

	closed bool
}

func newListener(e *Endpoint) *Listener {
	return &Listener{
		endpoint:    e,
		byPeer:      make(map[string]*Connection),
		connections: asyncseq.New[*Connection](0),
	}
}

// LocalFingerprint returns the listener's certificate fingerprint, shared
// with every connection it accepts.
func (l *Listener) LocalFingerprint() string {
	return l.endpoint.certificate.Fingerprint
}

// Connections returns the sequence of newly accepted connections, in the
// order AcceptConnection constructed them.
func (l *Listener) Connections() *asyncseq.Source[*Connection] {
	return l.connections
}

// AcceptConnection returns the existing connection registered for peerId,
// if any; otherwise it constructs a new server-role connection, registers
// it under peerId, publishes it on Connections, and returns it. send is
// used only for a newly constructed connection.
func (l *Listener) AcceptConnection(peerID string, send func(b []byte) error) (*Connection, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if existing, ok := l.byPeer[peerID]; ok {
		l.mu.Unlock()
		return existing, nil
	}
	l.mu.Unlock()

	engine := l.endpoint.newDTLSEngine(l.endpoint.certificate.Fingerprint)
	conn := newConnection(false, l.endpoint.certificate.Fingerprint, "", engine, send)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	if existing, ok := l.byPeer[peerID]; ok {
		// Lost a race with a concurrent AcceptConnection for the same peer.
		l.mu.Unlock()
		conn.Close()
		return existing, nil
	}
	l.byPeer[peerID] = conn
	l.mu.Unlock()

	l.connections.Produce(conn)
	return conn, nil
}

// Connection returns the connection registered for peerId, if any.
func (l *Listener) Connection(peerID string) (*Connection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.byPeer[peerID]
	return c, ok
}

// RemoveConnection closes and unregisters the connection for peerId, if
// one is registered.
func (l *Listener) RemoveConnection(peerID string) {
	l.mu.Lock()
	c, ok := l.byPeer[peerID]
	delete(l.byPeer, peerID)
	l.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Close closes every connection currently registered and the incoming-
// connections sequence.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	conns := l.byPeer
	l.byPeer = make(map[string]*Connection)
	l.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	l.connections.Close()
}
