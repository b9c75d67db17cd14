package signaling

import (
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Dial connects to a signaling Server at url (e.g. "ws://host:8000/ws"),
// sends local, and returns the remote peer's PeerInfo read back.
func Dial(url string, local PeerInfo) (remote PeerInfo, err error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return PeerInfo{}, errors.Wrap(err, "signaling: dialing")
	}
	defer conn.Close()

	if err := conn.WriteJSON(local); err != nil {
		return PeerInfo{}, errors.Wrap(err, "signaling: sending local peer info")
	}
	if err := conn.ReadJSON(&remote); err != nil {
		return PeerInfo{}, errors.Wrap(err, "signaling: reading remote peer info")
	}
	return remote, nil
}
