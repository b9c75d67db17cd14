package webrtc

import (
	"sync"

	"github.com/lanikai/rtcdc/internal/dtls"
)

// Endpoint holds a local identity certificate and vends the Connections and
// Listeners built from it. Every Connection an Endpoint creates shares the
// same certificate and fingerprint.
type Endpoint struct {
	mu sync.Mutex

	certificate   *Certificate
	newDTLSEngine func(localFingerprint string) dtls.Engine

	listeners []*Listener
	closed    bool
}

// NewEndpoint constructs an Endpoint from cfg. If cfg.Certificate is nil, a
// fresh self-signed certificate is generated. If cfg.NewDTLSEngine is nil,
// connections are driven by dtls.Loopback, the non-cryptographic test
// double.
func NewEndpoint(cfg Config) (*Endpoint, error) {
	cert := cfg.Certificate
	if cert == nil {
		var err error
		cert, err = GenerateCertificate()
		if err != nil {
			return nil, err
		}
	}

	newDTLSEngine := cfg.NewDTLSEngine
	if newDTLSEngine == nil {
		newDTLSEngine = func(localFingerprint string) dtls.Engine {
			return dtls.NewLoopback(localFingerprint)
		}
	}

	return &Endpoint{
		certificate:   cert,
		newDTLSEngine: newDTLSEngine,
	}, nil
}

// Certificate returns the endpoint's identity certificate.
func (e *Endpoint) Certificate() *Certificate {
	return e.certificate
}

// Connect creates a client-role Connection to a peer whose certificate
// fingerprint is remoteFingerprint. send is called with every outbound
// datagram (STUN or DTLS) the connection produces; the caller owns actually
// transmitting it (over a UDP socket, a relay, whatever transport is in
// use). The returned Connection is in StateNew; call Start to begin the
// handshake.
func (e *Endpoint) Connect(remoteFingerprint string, send func(b []byte) error) (*Connection, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.mu.Unlock()

	engine := e.newDTLSEngine(e.certificate.Fingerprint)
	return newConnection(true, e.certificate.Fingerprint, remoteFingerprint, engine, send), nil
}

// Listen creates a Listener that accepts server-role connections under this
// endpoint's certificate.
func (e *Endpoint) Listen() (*Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	l := newListener(e)
	e.listeners = append(e.listeners, l)
	return l, nil
}

// Close closes the endpoint and every listener it has vended. Connections
// already created from this endpoint are unaffected; close them
// individually.
func (e *Endpoint) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	listeners := e.listeners
	e.listeners = nil
	e.mu.Unlock()

	for _, l := range listeners {
		l.Close()
	}
}
