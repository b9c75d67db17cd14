package dtls

import (
	"sync"

	"github.com/pkg/errors"
)

// Record types loosely mirror RFC 6347's content-type byte, so that a
// Loopback-produced datagram still falls in the same 20-63 range a real
// DTLS record would, and the orchestrator's demultiplexer routes it the
// same way it would route genuine DTLS.
const (
	recordHandshake      byte = 22
	recordApplicationData byte = 23
)

// Loopback is a non-cryptographic Engine test double: it exchanges each
// side's fingerprint in the clear as a single-round-trip "handshake" and
// passes application data through unencrypted. It exists to exercise the
// SCTP/DCEP stack above it without depending on a real DTLS implementation.
// It is not, and is not meant to be, a security boundary.
type Loopback struct {
	mu sync.Mutex

	localFingerprint string
	remoteFingerprint string
	haveRemote        bool

	isClient  bool
	started   bool
	complete  bool
}

// NewLoopback constructs a Loopback engine advertising localFingerprint as
// its own certificate fingerprint.
func NewLoopback(localFingerprint string) *Loopback {
	return &Loopback{localFingerprint: localFingerprint}
}

func (e *Loopback) StartHandshake(isClient bool) ([][]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isClient = isClient
	e.started = true

	if !isClient {
		return nil, nil // server only answers
	}
	return [][]byte{e.handshakeRecord()}, nil
}

func (e *Loopback) handshakeRecord() []byte {
	record := make([]byte, 1+len(e.localFingerprint))
	record[0] = recordHandshake
	copy(record[1:], e.localFingerprint)
	return record
}

func (e *Loopback) ProcessReceivedDatagram(b []byte) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(b) < 1 {
		return Result{}, errors.Wrap(ErrInvalidRecord, "dtls: empty datagram")
	}

	switch b[0] {
	case recordHandshake:
		e.remoteFingerprint = string(b[1:])
		e.haveRemote = true

		var out [][]byte
		if !e.complete {
			e.complete = true
			if !e.isClient {
				// First flight reaching the server: reply with our own
				// fingerprint to complete the exchange.
				out = [][]byte{e.handshakeRecord()}
			}
		}
		return Result{DatagramsToSend: out, HandshakeComplete: e.complete}, nil

	case recordApplicationData:
		if !e.complete {
			return Result{}, errors.Wrap(ErrHandshakeNotComplete, "dtls: application data before handshake")
		}
		return Result{HandshakeComplete: true, ApplicationData: [][]byte{append([]byte(nil), b[1:]...)}}, nil

	default:
		return Result{}, errors.Wrapf(ErrInvalidRecord, "dtls: unknown record type %#02x", b[0])
	}
}

func (e *Loopback) WriteApplicationData(plaintext []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.complete {
		return nil, ErrHandshakeNotComplete
	}
	record := make([]byte, 1+len(plaintext))
	record[0] = recordApplicationData
	copy(record[1:], plaintext)
	return record, nil
}

func (e *Loopback) RemoteFingerprint() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteFingerprint, e.haveRemote
}
