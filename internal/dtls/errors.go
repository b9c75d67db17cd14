package dtls

import "fmt"

var (
	ErrHandshakeNotComplete = fmt.Errorf("dtls: handshake not complete")
	ErrInvalidRecord        = fmt.Errorf("dtls: invalid record")
)
