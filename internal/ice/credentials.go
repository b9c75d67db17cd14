// Package ice implements an ICE-Lite agent (RFC 8445 §3): it never gathers
// candidates or initiates connectivity checks, only validates incoming
// STUN binding requests and answers them.
package ice

import "github.com/lanikai/rtcdc/internal/rng"

const (
	defaultUfragLength    = 8
	defaultPasswordLength = 24
)

// Credentials is one side's ICE username fragment and password.
type Credentials struct {
	Ufrag    string
	Password string
}

// GenerateCredentials draws a fresh local ufrag/password pair from the
// process CSPRNG via the 62-symbol alphabet, rejection-sampled to avoid
// modulo bias.
func GenerateCredentials() Credentials {
	return Credentials{
		Ufrag:    rng.String(defaultUfragLength),
		Password: rng.String(defaultPasswordLength),
	}
}
