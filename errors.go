package webrtc

import "fmt"

// Error kinds carried across the connection orchestrator.
var (
	ErrClosed              = fmt.Errorf("webrtc: connection closed")
	ErrFingerprintMismatch = fmt.Errorf("webrtc: remote certificate fingerprint mismatch")
	ErrChannelNotOpen      = fmt.Errorf("webrtc: data channel not open")
)
