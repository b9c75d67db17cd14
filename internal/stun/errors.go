package stun

import "fmt"

// InsufficientDataError is returned when a buffer is too short to contain
// a complete STUN message or attribute.
type InsufficientDataError struct {
	Expected int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("stun: insufficient data: expected %d bytes, got %d", e.Expected, e.Actual)
}

// InvalidFormatError is returned when a message or attribute is structurally
// malformed in a way that isn't simply a length shortfall.
type InvalidFormatError struct {
	Reason string
}

func (e *InvalidFormatError) Error() string {
	return "stun: invalid format: " + e.Reason
}

// InvalidMagicCookieError is returned when the fixed magic cookie field
// does not match RFC 5389's 0x2112A442.
type InvalidMagicCookieError struct {
	Value uint32
}

func (e *InvalidMagicCookieError) Error() string {
	return fmt.Sprintf("stun: invalid magic cookie: %#08x", e.Value)
}
