package dcep

import "fmt"

// Error kinds carried across the DCEP layer.
var (
	ErrInsufficientData = fmt.Errorf("dcep: insufficient data")
	ErrInvalidFormat    = fmt.Errorf("dcep: invalid format")
	ErrChannelClosed    = fmt.Errorf("dcep: channel closed")
	ErrNotReady         = fmt.Errorf("dcep: channel not ready")
)
