// Package dtls defines the external-collaborator contract the connection
// orchestrator uses to drive a DTLS handshake and exchange encrypted
// application data over it. It does not implement TLS/DTLS cryptography
// itself — the record layer and handshake state machine are treated as an
// opaque collaborator — but it does provide a Loopback Engine, a
// non-cryptographic test double used to exercise the rest of the stack
// end-to-end without a real DTLS stack wired in.
package dtls

// Result is what processing one inbound datagram through an Engine
// produces: zero or more datagrams to send back to the peer, whether the
// handshake is now complete, and any application-data records that were
// ready to hand off to SCTP.
type Result struct {
	DatagramsToSend   [][]byte
	HandshakeComplete bool
	ApplicationData    [][]byte
}

// Engine is the DTLS record/handshake layer as seen by the orchestrator:
// start a handshake, feed it received datagrams, and once it reports
// HandshakeComplete, encrypt outbound application data with
// WriteApplicationData. RemoteFingerprint becomes available once the
// peer's certificate has been read off the wire.
type Engine interface {
	// StartHandshake begins the handshake for the given role, returning the
	// initial flight of datagrams to send (empty for the server role, which
	// only responds).
	StartHandshake(isClient bool) ([][]byte, error)

	// ProcessReceivedDatagram feeds one inbound datagram (already
	// identified by the caller's demultiplexer as DTLS-range) into the
	// handshake/record state machine.
	ProcessReceivedDatagram(b []byte) (Result, error)

	// WriteApplicationData encrypts plaintext for transmission. It is only
	// valid to call once the handshake has completed.
	WriteApplicationData(plaintext []byte) ([]byte, error)

	// RemoteFingerprint returns the peer certificate's fingerprint, once
	// known (after the handshake completes).
	RemoteFingerprint() (string, bool)
}
