package webrtc

import "github.com/lanikai/rtcdc/internal/dtls"

// Config carries the optional knobs an Endpoint is constructed with: a
// plain struct of caller-filled options rather than a constructor with a
// long parameter list.
type Config struct {
	// Certificate is the identity certificate this endpoint's connections
	// present during the DTLS handshake. If nil, NewEndpoint generates a
	// fresh one.
	Certificate *Certificate

	// NewDTLSEngine constructs the DTLS engine for one new connection. If
	// nil, NewEndpoint falls back to dtls.NewLoopback keyed on the endpoint's
	// certificate fingerprint, since DTLS itself is treated as an external
	// collaborator here and this module ships only a non-cryptographic
	// test double of one.
	NewDTLSEngine func(localFingerprint string) dtls.Engine
}
