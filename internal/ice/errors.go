package ice

import "fmt"

// Error kinds carried across the ICE-Lite layer.
var (
	ErrMissingUsername        = fmt.Errorf("ice: missing username")
	ErrInvalidUsernameFormat   = fmt.Errorf("ice: invalid username format")
	ErrLocalUfragMismatch      = fmt.Errorf("ice: local ufrag mismatch")
	ErrMissingMessageIntegrity = fmt.Errorf("ice: missing message integrity")
	ErrInvalidMessageIntegrity = fmt.Errorf("ice: invalid message integrity")
	ErrFingerprintFailed       = fmt.Errorf("ice: fingerprint verification failed")
	ErrRoleConflict            = fmt.Errorf("ice: role conflict")
)
