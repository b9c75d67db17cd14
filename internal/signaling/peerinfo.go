// Package signaling exchanges just enough out-of-band information for two
// peers to dial each other's UDP socket and start a Connection: a
// certificate fingerprint and an ICE ufrag/password pair, carried over a
// websocket. It does not negotiate SDP or media; that is out of scope for
// a data-channel-only stack.
package signaling

import "github.com/lanikai/rtcdc/internal/logging"

var log = logging.DefaultLogger.WithTag("signaling")

// PeerInfo is what one side of a connection publishes to the other before
// the handshake begins.
type PeerInfo struct {
	Fingerprint string `json:"fingerprint"`
	Ufrag       string `json:"ufrag"`
	Password    string `json:"password"`

	// Addr is the host:port of the UDP socket this peer will send from and
	// receive on. The demo binary uses it to know where to send datagrams;
	// a production deployment might instead rely on the transport that
	// carried the signaling exchange itself.
	Addr string `json:"addr"`
}
